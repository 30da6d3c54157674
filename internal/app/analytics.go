package app

import (
	"context"

	"course-exam-service/internal/domain"
)

// RecentResultsLimit caps the history returned with analytics.
const RecentResultsLimit = 10

type AnalyticsService struct {
	results ResultRepository
}

func NewAnalyticsService(results ResultRepository) *AnalyticsService {
	return &AnalyticsService{results: results}
}

// Analyze aggregates a user's history. PassRate uses integer division.
func (s *AnalyticsService) Analyze(ctx context.Context, userID int64) (domain.Analytics, error) {
	history, err := s.results.ListResults(ctx, ResultFilter{UserID: userID})
	if err != nil {
		return domain.Analytics{}, err
	}

	a := domain.Analytics{UserID: userID, Recent: []domain.Result{}}
	if len(history) == 0 {
		return a, nil
	}

	sum := 0.0
	for _, r := range history {
		sum += r.Percentage
		if r.Passed {
			a.Passed++
		}
	}
	a.ExamsTaken = len(history)
	a.AveragePercent = sum / float64(len(history))
	a.PassRate = a.Passed * 100 / len(history)

	recent := history
	if len(recent) > RecentResultsLimit {
		recent = recent[:RecentResultsLimit]
	}
	a.Recent = append(a.Recent, recent...)
	return a, nil
}

// ListResults returns every result when userID is zero, otherwise one user's.
func (s *AnalyticsService) ListResults(ctx context.Context, userID int64) ([]domain.Result, error) {
	return s.results.ListResults(ctx, ResultFilter{UserID: userID})
}
