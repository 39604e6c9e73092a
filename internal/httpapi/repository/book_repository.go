package repository

import (
	"context"
	"fmt"

	"booktracker/internal/httpapi/models"

	"gorm.io/gorm"
)

type BookRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, b *models.Book) error
	ReclaimIfOrphaned(ctx context.Context, bookID int64) (bool, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepository) Create(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create book: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("create book: %w", err)
	}
	// GORM will populate b.ID and b.CreatedAt
	return nil
}

func (r *bookRepository) Update(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Save(b).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update book: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// ReclaimIfOrphaned deletes the book iff no progress row references it.
// Count and delete run in one transaction; this is the only path that
// destroys a catalog entry.
func (r *bookRepository) ReclaimIfOrphaned(ctx context.Context, bookID int64) (bool, error) {
	reclaimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.ReadingProgress{}).
			Where("book_id = ?", bookID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("count book references: %w", err)
		}
		if refs > 0 {
			return nil
		}
		if err := tx.Delete(&models.Book{}, bookID).Error; err != nil {
			return fmt.Errorf("reclaim book: %w", err)
		}
		reclaimed = true
		return nil
	})
	return reclaimed, err
}
