package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"course-exam-service/internal/domain"
)

// ExamState is the lifecycle position of an exam session.
type ExamState int

const (
	StateInitializing ExamState = iota
	StateInProgress
	StateSubmitted
	// StateDiscarded is reached when the candidate leaves mid-exam; nothing is recorded.
	StateDiscarded
)

func (s ExamState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateInProgress:
		return "in_progress"
	case StateSubmitted:
		return "submitted"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("ExamState(%d)", int(s))
	}
}

// DefaultAutosaveEvery is the number of elapsed seconds between autosaves.
const DefaultAutosaveEvery = 30

// SubmitFunc turns a finished answer sheet into a stored result.
type SubmitFunc func(ctx context.Context, sub Submission) (domain.Result, error)

// QuestionView is a question as shown to the candidate, without the answer key.
type QuestionView struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// Snapshot is the displayable state of an exam session.
type Snapshot struct {
	SessionID string       `json:"sessionId"`
	State     string       `json:"state"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Question  QuestionView `json:"question"`
	Selected  string       `json:"selected"`
	Answered  int          `json:"answered"`
	Remaining int          `json:"remaining"`
	Elapsed   int          `json:"elapsed"`
	HasPrev   bool         `json:"hasPrev"`
	HasNext   bool         `json:"hasNext"`
}

// Outcome describes how a session ended.
type Outcome struct {
	Result    domain.Result
	Timeout   bool
	Discarded bool
	Err       error
}

// ExamSession drives one candidate's timed attempt. It is safe for concurrent use;
// the timer goroutine and the candidate's actions serialize on mu.
type ExamSession struct {
	id            string
	user          domain.User
	course        domain.Course
	questions     []domain.Question
	autosaveEvery int
	submit        SubmitFunc

	mu        sync.Mutex
	state     ExamState
	index     int
	answers   []string
	selected  string
	remaining int
	elapsed   int

	updates chan Snapshot
	done    chan struct{}
	outcome *Outcome
}

// NewExamSession initializes a session over a generated question set and moves it
// to InProgress at the first question. An empty set aborts initialization.
func NewExamSession(id string, user domain.User, course domain.Course, questions []domain.Question, autosaveEvery int, submit SubmitFunc) (*ExamSession, error) {
	if course.ID == 0 {
		return nil, domain.ErrNoCourseSelected
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions available for %s", domain.ErrInsufficientQuestions, course.Code)
	}
	if autosaveEvery <= 0 {
		autosaveEvery = DefaultAutosaveEvery
	}

	e := &ExamSession{
		id:            id,
		user:          user,
		course:        course,
		questions:     questions,
		autosaveEvery: autosaveEvery,
		submit:        submit,
		state:         StateInitializing,
		updates:       make(chan Snapshot, 1),
		done:          make(chan struct{}),
	}
	e.answers = make([]string, len(questions))
	e.remaining = course.TimeAllocation * 60
	e.elapsed = 0
	e.index = 0
	e.state = StateInProgress
	return e, nil
}

func (e *ExamSession) ID() string { return e.id }

func (e *ExamSession) Course() domain.Course { return e.course }

func (e *ExamSession) State() ExamState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current displayable state.
func (e *ExamSession) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Answers returns a copy of the persisted answer slots.
func (e *ExamSession) Answers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.answers...)
}

// Updates receives snapshots after ticks and candidate actions. Only the latest
// snapshot is kept for a slow reader.
func (e *ExamSession) Updates() <-chan Snapshot { return e.updates }

// Done is closed once the session has ended and its Outcome is available.
func (e *ExamSession) Done() <-chan struct{} { return e.done }

// Outcome returns how the session ended; ok is false while it is still running.
func (e *ExamSession) Outcome() (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome == nil {
		return Outcome{}, false
	}
	return *e.outcome, true
}

// Select records the chosen option for the active question. It stays in memory
// until navigation, autosave or submission persists it into the answer slot.
func (e *ExamSession) Select(option string) (Snapshot, error) {
	if !domain.IsOptionLetter(option) {
		return Snapshot{}, fmt.Errorf("%w: option %q is not one of A, B, C, D", domain.ErrValidation, option)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return Snapshot{}, domain.ErrExamClosed
	}
	e.selected = option
	return e.publishLocked(), nil
}

// Next persists the current selection and moves forward; at the last question it stays put.
func (e *ExamSession) Next() (Snapshot, error) {
	return e.navigate(1)
}

// Prev persists the current selection and moves back; at the first question it stays put.
func (e *ExamSession) Prev() (Snapshot, error) {
	return e.navigate(-1)
}

func (e *ExamSession) navigate(step int) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return Snapshot{}, domain.ErrExamClosed
	}
	e.persistLocked()
	target := e.index + step
	if target >= 0 && target < len(e.questions) {
		e.index = target
		e.selected = e.answers[target]
	}
	return e.publishLocked(), nil
}

// Tick advances the clock by one second. It reports whether the session is still
// in progress afterwards; once it returns false no later tick has any effect.
func (e *ExamSession) Tick(ctx context.Context) bool {
	e.mu.Lock()
	if e.state != StateInProgress {
		e.mu.Unlock()
		return false
	}
	if e.remaining > 0 {
		e.remaining--
		e.elapsed++
		if e.elapsed%e.autosaveEvery == 0 {
			e.persistLocked()
		}
	}
	if e.remaining > 0 {
		e.publishLocked()
		e.mu.Unlock()
		return true
	}
	sub := e.closeLocked(true)
	e.mu.Unlock()

	e.finish(ctx, sub)
	return false
}

// Submit ends the exam on the candidate's request. The caller must have obtained an
// explicit confirmation; confirmed=false is rejected without changing state.
func (e *ExamSession) Submit(ctx context.Context, confirmed bool) (domain.Result, error) {
	if !confirmed {
		return domain.Result{}, domain.ErrConfirmationRequired
	}
	e.mu.Lock()
	if e.state != StateInProgress {
		e.mu.Unlock()
		return domain.Result{}, domain.ErrExamClosed
	}
	sub := e.closeLocked(false)
	e.mu.Unlock()

	outcome := e.finish(ctx, sub)
	return outcome.Result, outcome.Err
}

// Abandon discards an in-progress session without recording anything.
func (e *ExamSession) Abandon() bool {
	e.mu.Lock()
	if e.state != StateInProgress {
		e.mu.Unlock()
		return false
	}
	e.state = StateDiscarded
	e.outcome = &Outcome{Discarded: true}
	e.mu.Unlock()

	close(e.done)
	return true
}

// Run applies ticks until the session ends or ctx is canceled.
func (e *ExamSession) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticks:
			if !e.Tick(ctx) {
				return
			}
		}
	}
}

// closeLocked persists the pending selection and moves to Submitted. Only the
// caller that wins this transition goes on to record a result.
func (e *ExamSession) closeLocked(timeout bool) Submission {
	e.persistLocked()
	e.state = StateSubmitted
	e.publishLocked()
	return Submission{
		User:      e.user,
		Course:    e.course,
		Questions: e.questions,
		Answers:   append([]string(nil), e.answers...),
		Elapsed:   e.elapsed,
		Timeout:   timeout,
	}
}

// finish records the closed session. The caller's cancellation does not reach the
// store write: once the session left InProgress its result must be persisted.
func (e *ExamSession) finish(ctx context.Context, sub Submission) Outcome {
	outcome := Outcome{Timeout: sub.Timeout}
	if e.submit == nil {
		outcome.Result = Score(sub, time.Now().UTC())
	} else {
		outcome.Result, outcome.Err = e.submit(context.WithoutCancel(ctx), sub)
	}

	e.mu.Lock()
	e.outcome = &outcome
	e.mu.Unlock()
	close(e.done)
	return outcome
}

func (e *ExamSession) persistLocked() {
	e.answers[e.index] = e.selected
}

func (e *ExamSession) publishLocked() Snapshot {
	snap := e.snapshotLocked()
	select {
	case e.updates <- snap:
	default:
		select {
		case <-e.updates:
		default:
		}
		select {
		case e.updates <- snap:
		default:
		}
	}
	return snap
}

func (e *ExamSession) snapshotLocked() Snapshot {
	q := e.questions[e.index]
	points := q.Points
	if points == 0 {
		points = 1
	}
	answered := 0
	for _, a := range e.answers {
		if a != "" {
			answered++
		}
	}
	return Snapshot{
		SessionID: e.id,
		State:     e.state.String(),
		Index:     e.index,
		Total:     len(e.questions),
		Question: QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options(),
			Points:  points,
		},
		Selected:  e.selected,
		Answered:  answered,
		Remaining: e.remaining,
		Elapsed:   e.elapsed,
		HasPrev:   e.index > 0,
		HasNext:   e.index < len(e.questions)-1,
	}
}
