package service

import (
	"context"
	"math"

	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/repository"
)

// Stats is the read-only summary over a user's progress rows.
type Stats struct {
	TotalBooks      int64            `json:"total_books"`
	CompletedBooks  int64            `json:"completed_books"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
	CompletionRate  int              `json:"completion_rate"`
}

type StatsService interface {
	ComputeStats(ctx context.Context, userID string) (*Stats, error)
}

type statsService struct {
	progress repository.ProgressRepository
}

func NewStatsService(progress repository.ProgressRepository) StatsService {
	return &statsService{progress: progress}
}

// ComputeStats derives the counters from the ledger on every call; nothing is
// cached, so the result is consistent with the rows at the instant it runs.
func (s *statsService) ComputeStats(ctx context.Context, userID string) (*Stats, error) {
	breakdown, err := s.progress.StatusCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range breakdown {
		total += n
	}
	completed := breakdown[models.StatusCompleted]

	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(completed) / float64(total) * 100))
	}

	return &Stats{
		TotalBooks:      total,
		CompletedBooks:  completed,
		StatusBreakdown: breakdown,
		CompletionRate:  rate,
	}, nil
}
