package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"course-exam-service/internal/domain"
)

// Submission is a finished answer sheet handed over by an exam session.
type Submission struct {
	User      domain.User
	Course    domain.Course
	Questions []domain.Question
	Answers   []string
	Elapsed   int // seconds
	Timeout   bool
}

// Score computes the result of a submission at time now. Unanswered questions and
// any answer other than the exact correct letter earn nothing.
func Score(sub Submission, now time.Time) domain.Result {
	score, totalPoints := 0, 0
	for i, q := range sub.Questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		totalPoints += points
		if i < len(sub.Answers) && sub.Answers[i] == q.CorrectAnswer {
			score += points
		}
	}

	percentage := 0.0
	if totalPoints > 0 {
		percentage = float64(score) * 100.0 / float64(totalPoints)
	}

	return domain.Result{
		UserID:         sub.User.ID,
		Username:       sub.User.Username,
		CourseID:       sub.Course.ID,
		CourseCode:     sub.Course.Code,
		CourseTitle:    sub.Course.Title,
		TakenAt:        now,
		Score:          score,
		TotalQuestions: len(sub.Questions),
		TotalPoints:    totalPoints,
		Percentage:     percentage,
		TimeSpent:      sub.Elapsed,
		Passed:         percentage >= float64(sub.Course.PassingMark),
	}
}

// Recorder scores submissions and persists the resulting records.
type Recorder struct {
	results  ResultRepository
	notifier ResultNotifier
	now      func() time.Time
}

func NewRecorder(results ResultRepository, notifier ResultNotifier) *Recorder {
	return NewRecorderWithClock(results, notifier, time.Now)
}

// NewRecorderWithClock is test-only for deterministic timestamps.
func NewRecorderWithClock(results ResultRepository, notifier ResultNotifier, now func() time.Time) *Recorder {
	return &Recorder{results: results, notifier: notifier, now: now}
}

// Record scores sub and stores the result. The returned result carries its id.
// The notifier, if any, is called in the background.
func (r *Recorder) Record(ctx context.Context, sub Submission) (domain.Result, error) {
	result := Score(sub, r.now().UTC())
	stored, err := r.results.CreateResult(ctx, result)
	if err != nil {
		return result, fmt.Errorf("save result: %w", err)
	}
	if r.notifier != nil {
		go r.notify(context.WithoutCancel(ctx), stored)
	}
	return stored, nil
}

func (r *Recorder) notify(ctx context.Context, result domain.Result) {
	if err := r.notifier.NotifyResult(ctx, result); err != nil {
		log.Printf("notify result %d: %v", result.ID, err)
	}
}
