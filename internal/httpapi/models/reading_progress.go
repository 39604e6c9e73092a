package models

import (
	"math"
	"time"
)

// Reading statuses accepted on a progress row.
const (
	StatusReading   = "reading"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
	StatusWishlist  = "wishlist"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusReading, StatusCompleted, StatusPaused, StatusWishlist:
		return true
	}
	return false
}

// ReadingProgress is a per-user row on a shared catalog Book. The
// (user_id, book_id) pair is unique; the Book association is lookup only,
// the book's lifetime is governed by reclamation, not by this row.
type ReadingProgress struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      string     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_book"`
	BookID      int64      `json:"book_id" gorm:"not null;uniqueIndex:idx_user_book"`
	CurrentPage int        `json:"current_page" gorm:"default:0"`
	Status      string     `json:"status" gorm:"default:'reading';not null"`
	Rating      *int       `json:"rating,omitempty" gorm:"check:rating >= 0 AND rating <= 5"`
	Notes       string     `json:"notes,omitempty" gorm:"type:text"`
	StartedAt   time.Time  `json:"started_at" gorm:"autoCreateTime"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"default:CURRENT_TIMESTAMP"`

	// Associations
	Book *Book `json:"book,omitempty" gorm:"foreignKey:BookID"`
}

func (ReadingProgress) TableName() string {
	return "reading_progress"
}

// Percentage derives the completion percentage against totalPages.
// Not stored; 0 when totalPages is 0.
func (p *ReadingProgress) Percentage(totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	return int(math.Round(float64(p.CurrentPage) / float64(totalPages) * 100))
}
