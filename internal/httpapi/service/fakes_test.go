package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/repository"

	"gorm.io/gorm"
)

// fakeStore is an in-memory stand-in for the Postgres-backed repositories.
// It enforces the same uniqueness constraints (isbn, google_id, user+book)
// and reports violations as repository.ErrDuplicateKey, so the race-handling
// paths in the services are exercised for real.
type fakeStore struct {
	mu       sync.Mutex
	books    map[int64]*models.Book
	progress map[int64]*models.ReadingProgress
	bookSeq  int64
	progSeq  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:    make(map[int64]*models.Book),
		progress: make(map[int64]*models.ReadingProgress),
	}
}

func (s *fakeStore) bookRepo() repository.BookRepository         { return &fakeBookRepo{s: s} }
func (s *fakeStore) progressRepo() repository.ProgressRepository { return &fakeProgressRepo{s: s} }

// hiddenRowProgressRepo answers not-found to the first `hides` lookups of a
// (user, book) pair even when the row exists, reproducing the window where a
// concurrent create lands between a service's existence check and its insert.
type hiddenRowProgressRepo struct {
	repository.ProgressRepository
	mu    sync.Mutex
	hides int
}

func (r *hiddenRowProgressRepo) GetByUserAndBook(ctx context.Context, userID string, bookID int64) (*models.ReadingProgress, error) {
	r.mu.Lock()
	hide := r.hides > 0
	if hide {
		r.hides--
	}
	r.mu.Unlock()
	if hide {
		return nil, gorm.ErrRecordNotFound
	}
	return r.ProgressRepository.GetByUserAndBook(ctx, userID, bookID)
}

// failingLookupBookRepo replays the queued errors, one per GetByISBN call,
// before delegating to the real repo.
type failingLookupBookRepo struct {
	repository.BookRepository
	mu   sync.Mutex
	errs []error
}

func (r *failingLookupBookRepo) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	r.mu.Lock()
	var err error
	if len(r.errs) > 0 {
		err = r.errs[0]
		r.errs = r.errs[1:]
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.BookRepository.GetByISBN(ctx, isbn)
}

type fakeBookRepo struct {
	s *fakeStore
}

func (r *fakeBookRepo) GetByID(_ context.Context, id int64) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.books[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookRepo) GetByISBN(_ context.Context, isbn string) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.books {
		if b.ISBN != nil && *b.ISBN == isbn {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookRepo) GetByGoogleID(_ context.Context, googleID string) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.books {
		if b.GoogleID != nil && *b.GoogleID == googleID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookRepo) Create(_ context.Context, b *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.books {
		if b.ISBN != nil && existing.ISBN != nil && *existing.ISBN == *b.ISBN {
			return fmt.Errorf("create book: %w", repository.ErrDuplicateKey)
		}
		if b.GoogleID != nil && existing.GoogleID != nil && *existing.GoogleID == *b.GoogleID {
			return fmt.Errorf("create book: %w", repository.ErrDuplicateKey)
		}
	}
	r.s.bookSeq++
	b.ID = r.s.bookSeq
	b.CreatedAt = time.Now()
	copied := *b
	r.s.books[b.ID] = &copied
	return nil
}

func (r *fakeBookRepo) Update(_ context.Context, b *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[b.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for id, existing := range r.s.books {
		if id == b.ID {
			continue
		}
		if b.ISBN != nil && existing.ISBN != nil && *existing.ISBN == *b.ISBN {
			return fmt.Errorf("update book: %w", repository.ErrDuplicateKey)
		}
	}
	copied := *b
	r.s.books[b.ID] = &copied
	return nil
}

func (r *fakeBookRepo) ReclaimIfOrphaned(_ context.Context, bookID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.progress {
		if p.BookID == bookID {
			return false, nil
		}
	}
	if _, ok := r.s.books[bookID]; !ok {
		return false, nil
	}
	delete(r.s.books, bookID)
	return true, nil
}

type fakeProgressRepo struct {
	s *fakeStore
}

func (r *fakeProgressRepo) Create(_ context.Context, p *models.ReadingProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.progress {
		if existing.UserID == p.UserID && existing.BookID == p.BookID {
			return fmt.Errorf("create progress: %w", repository.ErrDuplicateKey)
		}
	}
	r.s.progSeq++
	p.ID = r.s.progSeq
	p.StartedAt = time.Now()
	p.UpdatedAt = p.StartedAt
	copied := *p
	copied.Book = nil
	r.s.progress[p.ID] = &copied
	return nil
}

func (r *fakeProgressRepo) GetByID(_ context.Context, id int64) (*models.ReadingProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.progress[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProgressRepo) GetByUserAndBook(_ context.Context, userID string, bookID int64) (*models.ReadingProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.progress {
		if p.UserID == userID && p.BookID == bookID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProgressRepo) Update(_ context.Context, p *models.ReadingProgress, fields map[string]any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.progress[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "current_page":
			stored.CurrentPage = value.(int)
		case "status":
			stored.Status = value.(string)
		case "notes":
			stored.Notes = value.(string)
		case "rating":
			v := value.(int)
			stored.Rating = &v
		case "completed_at":
			v := value.(time.Time)
			stored.CompletedAt = &v
		case "updated_at":
			stored.UpdatedAt = value.(time.Time)
		}
	}
	// Mirror the real repository, which refreshes updated_at on every Update
	// (progress_repository.go:61) even when the caller omits it.
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeProgressRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.progress[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.progress, id)
	return nil
}

func (r *fakeProgressRepo) ListByUser(_ context.Context, userID string) ([]models.ReadingProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []models.ReadingProgress
	for _, p := range r.s.progress {
		if p.UserID != userID {
			continue
		}
		copied := *p
		if b, ok := r.s.books[p.BookID]; ok {
			bookCopy := *b
			copied.Book = &bookCopy
		}
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

func (r *fakeProgressRepo) StatusCounts(_ context.Context, userID string) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[string]int64)
	for _, p := range r.s.progress {
		if p.UserID == userID {
			counts[p.Status]++
		}
	}
	return counts, nil
}
