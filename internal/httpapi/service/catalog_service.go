package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/repository"

	"gorm.io/gorm"
)

const maxTotalPages = 10000

// BookCandidate describes an incoming book, manual or Google-sourced, before
// it has been resolved against the catalog.
type BookCandidate struct {
	Title         string
	Author        string
	TotalPages    int
	Genre         string
	Description   string
	Publisher     string
	PublishedDate string
	CoverImage    string
	Thumbnail     string
	PreviewLink   string
	ISBN          string
	GoogleID      string
}

// BookPatch carries partial updates for an existing catalog entry.
type BookPatch struct {
	Title         *string
	Author        *string
	TotalPages    *int
	Genre         *string
	Description   *string
	Publisher     *string
	PublishedDate *string
	CoverImage    *string
	Thumbnail     *string
	ISBN          *string
}

type CatalogService interface {
	// Resolve finds-or-creates the single shared catalog entry the candidate
	// refers to. Idempotent on (isbn, google id); candidates with neither key
	// always create a new entry.
	Resolve(ctx context.Context, c BookCandidate) (*models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, patch BookPatch) (*models.Book, error)
}

type catalogService struct {
	books repository.BookRepository
}

func NewCatalogService(books repository.BookRepository) CatalogService {
	return &catalogService{books: books}
}

func (s *catalogService) Resolve(ctx context.Context, c BookCandidate) (*models.Book, error) {
	// Existing metadata wins over the candidate's.
	if c.ISBN != "" {
		b, err := s.books.GetByISBN(ctx, c.ISBN)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if c.GoogleID != "" {
		b, err := s.books.GetByGoogleID(ctx, c.GoogleID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := validateCandidate(&c); err != nil {
		return nil, err
	}

	b := &models.Book{
		Title:         c.Title,
		Author:        c.Author,
		TotalPages:    c.TotalPages,
		Genre:         c.Genre,
		Description:   c.Description,
		Publisher:     c.Publisher,
		PublishedDate: c.PublishedDate,
		CoverImage:    c.CoverImage,
		Thumbnail:     c.Thumbnail,
		PreviewLink:   c.PreviewLink,
		ISBN:          nilIfEmpty(c.ISBN),
		GoogleID:      nilIfEmpty(c.GoogleID),
	}
	if err := s.books.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Someone else won the lookup-then-create race; their row is the
			// catalog entry now.
			return s.resolveToWinner(ctx, c)
		}
		return nil, err
	}
	return b, nil
}

// resolveToWinner re-reads the row that won a uniqueness race. If neither key
// finds a row the catalog is in an inconsistent state, which must surface.
// Lookup failures other than not-found are returned as themselves.
func (s *catalogService) resolveToWinner(ctx context.Context, c BookCandidate) (*models.Book, error) {
	if c.ISBN != "" {
		b, err := s.books.GetByISBN(ctx, c.ISBN)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if c.GoogleID != "" {
		b, err := s.books.GetByGoogleID(ctx, c.GoogleID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("resolve book: lost uniqueness race but winning row not found (isbn=%q google_id=%q)", c.ISBN, c.GoogleID)
}

func (s *catalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := s.books.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *catalogService) UpdateBook(ctx context.Context, id int64, patch BookPatch) (*models.Book, error) {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if len(t) < 2 {
			return nil, fmt.Errorf("%w: title must be at least 2 characters", ErrValidation)
		}
		b.Title = t
	}
	if patch.Author != nil {
		a := strings.TrimSpace(*patch.Author)
		if len(a) < 2 {
			return nil, fmt.Errorf("%w: author must be at least 2 characters", ErrValidation)
		}
		b.Author = a
	}
	if patch.TotalPages != nil {
		if *patch.TotalPages < 1 || *patch.TotalPages > maxTotalPages {
			return nil, fmt.Errorf("%w: total pages must be between 1 and %d", ErrValidation, maxTotalPages)
		}
		b.TotalPages = *patch.TotalPages
	}
	if patch.Genre != nil {
		b.Genre = strings.TrimSpace(*patch.Genre)
	}
	if patch.Description != nil {
		b.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Publisher != nil {
		b.Publisher = *patch.Publisher
	}
	if patch.PublishedDate != nil {
		b.PublishedDate = *patch.PublishedDate
	}
	if patch.CoverImage != nil {
		b.CoverImage = *patch.CoverImage
	}
	if patch.Thumbnail != nil {
		b.Thumbnail = *patch.Thumbnail
	}
	if patch.ISBN != nil {
		b.ISBN = nilIfEmpty(strings.TrimSpace(*patch.ISBN))
	}

	if err := s.books.Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: isbn already belongs to another book", ErrValidation)
		}
		return nil, err
	}
	return b, nil
}

// validateCandidate applies the shape checks for a new catalog entry. A zero
// TotalPages is allowed only for provider-sourced candidates, since Google
// Books omits the page count for some volumes.
func validateCandidate(c *BookCandidate) error {
	c.Title = strings.TrimSpace(c.Title)
	c.Author = strings.TrimSpace(c.Author)
	if len(c.Title) < 2 {
		return fmt.Errorf("%w: title must be at least 2 characters", ErrValidation)
	}
	if len(c.Author) < 2 {
		return fmt.Errorf("%w: author must be at least 2 characters", ErrValidation)
	}
	if c.TotalPages < 0 || c.TotalPages > maxTotalPages {
		return fmt.Errorf("%w: total pages must be between 1 and %d", ErrValidation, maxTotalPages)
	}
	if c.TotalPages == 0 && c.ISBN == "" && c.GoogleID == "" {
		return fmt.Errorf("%w: total pages must be between 1 and %d", ErrValidation, maxTotalPages)
	}
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
