package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
)

type countingSubmit struct {
	calls atomic.Int32
}

func (c *countingSubmit) submit(_ context.Context, sub app.Submission) (domain.Result, error) {
	c.calls.Add(1)
	return app.Score(sub, fixedNow), nil
}

func newExam(t *testing.T, answers []string, submit app.SubmitFunc) *app.ExamSession {
	t.Helper()
	course := domain.Course{ID: 1, Code: "CS101", Title: "Intro", TimeAllocation: 1, ExamLength: len(answers), PassingMark: 40}
	exam, err := app.NewExamSession("exam-1", domain.User{ID: 1, Username: "student1"}, course, questions(1, answers...), 30, submit)
	if err != nil {
		t.Fatalf("new exam: %v", err)
	}
	return exam
}

func TestNewExamSessionRequiresCourseAndQuestions(t *testing.T) {
	user := domain.User{ID: 1}
	if _, err := app.NewExamSession("x", user, domain.Course{}, questions(1, "A"), 30, nil); !errors.Is(err, domain.ErrNoCourseSelected) {
		t.Fatalf("expected no course selected, got %v", err)
	}
	if _, err := app.NewExamSession("x", user, domain.Course{ID: 1, TimeAllocation: 1}, nil, 30, nil); !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}

	exam := newExam(t, []string{"A", "B"}, nil)
	snap := exam.Snapshot()
	if exam.State() != app.StateInProgress || snap.Index != 0 || snap.Remaining != 60 || snap.Elapsed != 0 {
		t.Fatalf("unexpected initial state %v %+v", exam.State(), snap)
	}
	if snap.HasPrev || !snap.HasNext || snap.Total != 2 {
		t.Fatalf("unexpected navigation flags %+v", snap)
	}
	for _, a := range exam.Answers() {
		if a != "" {
			t.Fatalf("expected empty answer slots, got %v", exam.Answers())
		}
	}
}

func TestExamNavigationPersistsAndClamps(t *testing.T) {
	exam := newExam(t, []string{"A", "B", "C"}, nil)

	if _, err := exam.Select("E"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected invalid option rejected, got %v", err)
	}
	if _, err := exam.Select("A"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := exam.Answers()[0]; got != "" {
		t.Fatalf("expected selection held in memory only, slot=%q", got)
	}

	snap, _ := exam.Next()
	if snap.Index != 1 || snap.Selected != "" || exam.Answers()[0] != "A" {
		t.Fatalf("expected move to 1 with slot 0 persisted, got %+v %v", snap, exam.Answers())
	}
	_, _ = exam.Select("B")
	_, _ = exam.Select("D") // re-selecting replaces
	snap, _ = exam.Prev()
	if snap.Index != 0 || snap.Selected != "A" || exam.Answers()[1] != "D" {
		t.Fatalf("expected back at 0 showing A, got %+v %v", snap, exam.Answers())
	}

	snap, _ = exam.Prev()
	if snap.Index != 0 {
		t.Fatalf("expected prev at first question to stay, got %d", snap.Index)
	}
	_, _ = exam.Next()
	_, _ = exam.Next()
	snap, _ = exam.Next()
	if snap.Index != 2 || snap.HasNext {
		t.Fatalf("expected next at last question to stay, got %+v", snap)
	}
	if snap.Answered != 2 {
		t.Fatalf("expected two answered slots, got %d", snap.Answered)
	}
}

func TestExamAutosaveEveryThirtySeconds(t *testing.T) {
	ctx := context.Background()
	exam := newExam(t, []string{"A"}, nil)
	_, _ = exam.Select("C")

	for i := 0; i < 29; i++ {
		exam.Tick(ctx)
	}
	if exam.Answers()[0] != "" {
		t.Fatalf("expected no autosave before 30s")
	}
	exam.Tick(ctx)
	if exam.Answers()[0] != "C" {
		t.Fatalf("expected autosave at 30s, got %v", exam.Answers())
	}
	if snap := exam.Snapshot(); snap.Elapsed != 30 || snap.Remaining != 30 || exam.State() != app.StateInProgress {
		t.Fatalf("unexpected clock %+v", snap)
	}
}

func TestExamTimeoutSubmitsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	counter := &countingSubmit{}
	exam := newExam(t, []string{"A", "B"}, counter.submit)
	_, _ = exam.Select("A")

	for i := 0; i < 59; i++ {
		if !exam.Tick(ctx) {
			t.Fatalf("tick %d ended the exam early", i+1)
		}
	}
	if exam.Tick(ctx) {
		t.Fatalf("expected the 60th tick to end the exam")
	}

	select {
	case <-exam.Done():
	default:
		t.Fatalf("expected done after timeout")
	}
	outcome, ok := exam.Outcome()
	if !ok || !outcome.Timeout || outcome.Result.TimeSpent != 60 || outcome.Result.Score != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	// stray ticks and late submits change nothing
	for i := 0; i < 5; i++ {
		if exam.Tick(ctx) {
			t.Fatalf("expected tick after submission to be inert")
		}
	}
	if _, err := exam.Submit(ctx, true); !errors.Is(err, domain.ErrExamClosed) {
		t.Fatalf("expected closed exam, got %v", err)
	}
	if counter.calls.Load() != 1 {
		t.Fatalf("expected exactly one submission, got %d", counter.calls.Load())
	}
	if snap := exam.Snapshot(); snap.Remaining != 0 || snap.Elapsed != 60 || snap.State != "submitted" {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
}

func TestExamManualSubmitNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	counter := &countingSubmit{}
	exam := newExam(t, []string{"A", "B"}, counter.submit)
	_, _ = exam.Select("A")
	_, _ = exam.Next()
	_, _ = exam.Select("B")

	if _, err := exam.Submit(ctx, false); !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected confirmation required, got %v", err)
	}
	if exam.State() != app.StateInProgress {
		t.Fatalf("expected unconfirmed submit to leave state alone")
	}

	result, err := exam.Submit(ctx, true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 2 || !result.Passed {
		t.Fatalf("expected pending selection persisted on submit, got %+v", result)
	}
	if exam.State() != app.StateSubmitted {
		t.Fatalf("expected submitted, got %v", exam.State())
	}
	if _, err := exam.Select("C"); !errors.Is(err, domain.ErrExamClosed) {
		t.Fatalf("expected no interaction after submit, got %v", err)
	}
	if outcome, _ := exam.Outcome(); outcome.Timeout {
		t.Fatalf("expected manual outcome")
	}
}

func TestExamAbandonRecordsNothing(t *testing.T) {
	ctx := context.Background()
	counter := &countingSubmit{}
	exam := newExam(t, []string{"A"}, counter.submit)

	if !exam.Abandon() {
		t.Fatalf("expected abandon to succeed")
	}
	if exam.Abandon() {
		t.Fatalf("expected second abandon to be a no-op")
	}
	if exam.Tick(ctx) {
		t.Fatalf("expected tick after abandon to be inert")
	}
	if _, err := exam.Submit(ctx, true); !errors.Is(err, domain.ErrExamClosed) {
		t.Fatalf("expected closed exam, got %v", err)
	}
	outcome, ok := exam.Outcome()
	if !ok || !outcome.Discarded || exam.State() != app.StateDiscarded {
		t.Fatalf("expected discarded outcome, got %+v", outcome)
	}
	if counter.calls.Load() != 0 {
		t.Fatalf("expected nothing submitted, got %d", counter.calls.Load())
	}
}

func TestExamConcurrentSubmitAndTimeout(t *testing.T) {
	ctx := context.Background()
	counter := &countingSubmit{}
	exam := newExam(t, []string{"A", "B"}, counter.submit)

	// bring the clock to the last second, then race the final tick with submits
	for i := 0; i < 59; i++ {
		exam.Tick(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			exam.Tick(ctx)
		}()
		go func() {
			defer wg.Done()
			_, _ = exam.Submit(ctx, true)
		}()
	}
	wg.Wait()

	if counter.calls.Load() != 1 {
		t.Fatalf("expected exactly one submission, got %d", counter.calls.Load())
	}
}

func TestExamRunStopsAfterTimeout(t *testing.T) {
	counter := &countingSubmit{}
	exam := newExam(t, []string{"A"}, counter.submit)

	ticks := make(chan time.Time)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		exam.Run(context.Background(), ticks)
	}()

	for i := 0; i < 60; i++ {
		ticks <- time.Now()
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected run loop to stop after timeout")
	}
	if counter.calls.Load() != 1 {
		t.Fatalf("expected one submission, got %d", counter.calls.Load())
	}
}

func TestExamUpdatesKeepLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	exam := newExam(t, []string{"A"}, nil)
	for i := 0; i < 5; i++ {
		exam.Tick(ctx)
	}
	select {
	case snap := <-exam.Updates():
		if snap.Elapsed != 5 {
			t.Fatalf("expected latest snapshot, got elapsed %d", snap.Elapsed)
		}
	default:
		t.Fatalf("expected a pending snapshot")
	}
}
