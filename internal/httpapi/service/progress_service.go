package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/repository"

	"gorm.io/gorm"
)

// UpsertInput carries a progress mutation. Nil optional fields leave the
// stored value untouched.
type UpsertInput struct {
	BookID      int64
	CurrentPage int
	Status      *string
	Notes       *string
	Rating      *int
}

type ProgressService interface {
	// Attach creates the caller's progress row on a book; a second attach for
	// the same (user, book) pair fails with ErrAlreadyInLibrary.
	Attach(ctx context.Context, userID string, bookID int64) (*models.ReadingProgress, error)
	// Upsert updates the caller's row, creating it when absent.
	Upsert(ctx context.Context, userID string, in UpsertInput) (*models.ReadingProgress, error)
	// DetachProgress deletes the caller's row by progress id and runs
	// reclamation on the freed book.
	DetachProgress(ctx context.Context, userID string, progressID int64) (int64, error)
	// DetachBook deletes the caller's row on the given book and runs
	// reclamation. Callers without a row on the book are refused.
	DetachBook(ctx context.Context, userID string, bookID int64) (bool, error)
	// List returns the caller's rows, most recently updated first, with the
	// Book association loaded.
	List(ctx context.Context, userID string) ([]models.ReadingProgress, error)
}

type progressService struct {
	progress repository.ProgressRepository
	books    repository.BookRepository
}

func NewProgressService(progress repository.ProgressRepository, books repository.BookRepository) ProgressService {
	return &progressService{progress: progress, books: books}
}

func (s *progressService) Attach(ctx context.Context, userID string, bookID int64) (*models.ReadingProgress, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.progress.GetByUserAndBook(ctx, userID, bookID); err == nil {
		return nil, ErrAlreadyInLibrary
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &models.ReadingProgress{
		UserID:      userID,
		BookID:      bookID,
		CurrentPage: 0,
		Status:      models.StatusReading,
		UpdatedAt:   time.Now(),
	}
	if err := s.progress.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// A concurrent attach slipped in between check and create.
			return nil, ErrAlreadyInLibrary
		}
		return nil, err
	}
	return p, nil
}

func (s *progressService) Upsert(ctx context.Context, userID string, in UpsertInput) (*models.ReadingProgress, error) {
	book, err := s.books.GetByID(ctx, in.BookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.CurrentPage < 0 || in.CurrentPage > book.TotalPages {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, in.CurrentPage, book.TotalPages)
	}
	if in.Status != nil && !models.ValidStatus(*in.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *in.Status)
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	}

	existing, err := s.progress.GetByUserAndBook(ctx, userID, in.BookID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return s.createFromUpsert(ctx, userID, in, book)
	}

	now := time.Now()
	fields := map[string]any{"current_page": in.CurrentPage}
	existing.CurrentPage = in.CurrentPage
	if in.Status != nil {
		fields["status"] = *in.Status
		existing.Status = *in.Status
		// completed_at is written exactly once, on the first transition into
		// completed, and never overwritten afterwards.
		if *in.Status == models.StatusCompleted && existing.CompletedAt == nil {
			fields["completed_at"] = now
			existing.CompletedAt = &now
		}
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
		existing.Notes = *in.Notes
	}
	if in.Rating != nil {
		fields["rating"] = *in.Rating
		existing.Rating = in.Rating
	}
	if err := s.progress.Update(ctx, existing, fields); err != nil {
		return nil, err
	}
	existing.UpdatedAt = now
	existing.Book = book
	return existing, nil
}

func (s *progressService) createFromUpsert(ctx context.Context, userID string, in UpsertInput, book *models.Book) (*models.ReadingProgress, error) {
	status := models.StatusReading
	if in.Status != nil {
		status = *in.Status
	}
	p := &models.ReadingProgress{
		UserID:      userID,
		BookID:      in.BookID,
		CurrentPage: in.CurrentPage,
		Status:      status,
		Rating:      in.Rating,
		UpdatedAt:   time.Now(),
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
	if status == models.StatusCompleted {
		now := time.Now()
		p.CompletedAt = &now
	}
	if err := s.progress.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a race against a concurrent create; redo as an update.
			return s.Upsert(ctx, userID, in)
		}
		return nil, err
	}
	p.Book = book
	return p, nil
}

func (s *progressService) DetachProgress(ctx context.Context, userID string, progressID int64) (int64, error) {
	p, err := s.progress.GetByID(ctx, progressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if p.UserID != userID {
		return 0, ErrForbidden
	}
	if err := s.progress.Delete(ctx, progressID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	// Reclamation runs only after the delete committed.
	if _, err := s.books.ReclaimIfOrphaned(ctx, p.BookID); err != nil {
		return 0, err
	}
	return p.BookID, nil
}

func (s *progressService) DetachBook(ctx context.Context, userID string, bookID int64) (bool, error) {
	p, err := s.progress.GetByUserAndBook(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Ownership gate: a user may not remove a book they never added.
			return false, ErrForbidden
		}
		return false, err
	}
	if err := s.progress.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrForbidden
		}
		return false, err
	}
	return s.books.ReclaimIfOrphaned(ctx, bookID)
}

func (s *progressService) List(ctx context.Context, userID string) ([]models.ReadingProgress, error) {
	return s.progress.ListByUser(ctx, userID)
}
