package repository

import (
	"context"
	"fmt"
	"time"

	"booktracker/internal/httpapi/models"

	"gorm.io/gorm"
)

type ProgressRepository interface {
	Create(ctx context.Context, p *models.ReadingProgress) error
	GetByID(ctx context.Context, id int64) (*models.ReadingProgress, error)
	GetByUserAndBook(ctx context.Context, userID string, bookID int64) (*models.ReadingProgress, error)
	Update(ctx context.Context, p *models.ReadingProgress, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID string) ([]models.ReadingProgress, error)
	StatusCounts(ctx context.Context, userID string) (map[string]int64, error)
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Create(ctx context.Context, p *models.ReadingProgress) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create progress: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

func (r *progressRepository) GetByID(ctx context.Context, id int64) (*models.ReadingProgress, error) {
	var p models.ReadingProgress
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepository) GetByUserAndBook(ctx context.Context, userID string, bookID int64) (*models.ReadingProgress, error) {
	var p models.ReadingProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Update mutates the given columns and refreshes updated_at.
func (r *progressRepository) Update(ctx context.Context, p *models.ReadingProgress, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	if err := r.db.WithContext(ctx).Model(p).Updates(fields).Error; err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

func (r *progressRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.ReadingProgress{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]models.ReadingProgress, error) {
	var list []models.ReadingProgress
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return list, nil
}

func (r *progressRepository) StatusCounts(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ReadingProgress{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
