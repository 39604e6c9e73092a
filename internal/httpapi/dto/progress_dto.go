package dto

import (
	"time"

	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/service"
)

// DTOs for progress-related operations in the HTTP API

type UpsertProgressRequest struct {
	BookID      int64   `json:"book_id" binding:"required,gt=0"`
	CurrentPage *int    `json:"current_page" binding:"required"`
	Status      *string `json:"status,omitempty" binding:"omitempty,oneof=reading completed paused wishlist"`
	Notes       *string `json:"notes,omitempty"`
	Rating      *int    `json:"rating,omitempty" binding:"omitempty,min=0,max=5"`
}

func (r UpsertProgressRequest) ToInput() service.UpsertInput {
	return service.UpsertInput{
		BookID:      r.BookID,
		CurrentPage: *r.CurrentPage,
		Status:      r.Status,
		Notes:       r.Notes,
		Rating:      r.Rating,
	}
}

type ProgressResponse struct {
	ID          int64        `json:"id"`
	UserID      string       `json:"user_id"`
	BookID      int64        `json:"book_id"`
	CurrentPage int          `json:"current_page"`
	Status      string       `json:"status"`
	Rating      *int         `json:"rating,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Percentage  int          `json:"percentage"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Book        *models.Book `json:"book,omitempty"`
}

// FromProgressModel annotates a row with its derived percentage.
func FromProgressModel(p models.ReadingProgress) ProgressResponse {
	totalPages := 0
	if p.Book != nil {
		totalPages = p.Book.TotalPages
	}
	return ProgressResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		BookID:      p.BookID,
		CurrentPage: p.CurrentPage,
		Status:      p.Status,
		Rating:      p.Rating,
		Notes:       p.Notes,
		Percentage:  p.Percentage(totalPages),
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
		UpdatedAt:   p.UpdatedAt,
		Book:        p.Book,
	}
}
