package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"course-exam-service/internal/domain"
	"github.com/google/uuid"
)

// TickerFunc starts a ticker and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is the production TickerFunc.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// ExamOptions tunes exam sessions.
type ExamOptions struct {
	AutosaveEvery int
	TickInterval  time.Duration
	NewTicker     TickerFunc
}

// LoginSession is the context of one logged-in user: the selected course and at
// most one current exam. It lives from Login until Logout.
type LoginSession struct {
	id        string
	user      domain.User
	createdAt time.Time

	mu     sync.Mutex
	course *domain.Course
	exam   *ExamSession
	stop   context.CancelFunc
}

// NewLoginSession is exported for infrastructure layers that need to seed sessions.
func NewLoginSession(id string, user domain.User, createdAt time.Time) *LoginSession {
	return &LoginSession{id: id, user: user, createdAt: createdAt}
}

func (s *LoginSession) ID() string { return s.id }

func (s *LoginSession) User() domain.User { return s.user }

func (s *LoginSession) CreatedAt() time.Time { return s.createdAt }

// Course returns the selected course, if any.
func (s *LoginSession) Course() (domain.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.course == nil {
		return domain.Course{}, false
	}
	return *s.course, true
}

// Exam returns the most recent exam session, if any.
func (s *LoginSession) Exam() (*ExamSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exam, s.exam != nil
}

// ExamService is the session controller the presentation layer talks to.
type ExamService struct {
	auth      *AuthService
	catalog   *CatalogService
	generator *Generator
	recorder  *Recorder
	sessions  SessionRepository
	opts      ExamOptions
	now       func() time.Time
}

func NewExamService(auth *AuthService, catalog *CatalogService, generator *Generator, recorder *Recorder, sessions SessionRepository, opts ExamOptions) *ExamService {
	if opts.AutosaveEvery <= 0 {
		opts.AutosaveEvery = DefaultAutosaveEvery
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.NewTicker == nil {
		opts.NewTicker = RealTicker
	}
	return &ExamService{
		auth:      auth,
		catalog:   catalog,
		generator: generator,
		recorder:  recorder,
		sessions:  sessions,
		opts:      opts,
		now:       time.Now,
	}
}

// Login authenticates and opens a login session.
func (s *ExamService) Login(ctx context.Context, username, password string) (*LoginSession, error) {
	user, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	session := NewLoginSession(uuid.NewString(), user, s.now())
	s.sessions.Put(session)
	return session, nil
}

// Logout abandons any running exam without recording it and closes the session.
// An exam already submitting is left to finish and record its result.
func (s *ExamService) Logout(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	session.mu.Lock()
	exam, stop := session.exam, session.stop
	session.exam, session.stop, session.course = nil, nil, nil
	session.mu.Unlock()

	// an exam that already closed keeps its run context so the result write finishes
	abandoned := exam == nil || exam.Abandon()
	if stop != nil && abandoned {
		stop()
	}
	s.sessions.Delete(sessionID)
	return nil
}

// Session looks up a login session by id.
func (s *ExamService) Session(sessionID string) (*LoginSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RequireAdmin returns the session when it belongs to an admin.
func (s *ExamService) RequireAdmin(sessionID string) (*LoginSession, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.user.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// SelectCourse makes a course current for the session if its pool can fill an exam.
func (s *ExamService) SelectCourse(ctx context.Context, sessionID string, courseID int64) (domain.Course, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.Course{}, err
	}
	course, err := s.catalog.GetCourseByID(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if err := checkEligible(course); err != nil {
		return domain.Course{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.exam != nil && session.exam.State() == StateInProgress {
		return domain.Course{}, domain.ErrExamInProgress
	}
	session.course = &course
	return course, nil
}

// StartExam generates a question set for the selected course and starts the clock.
// It refuses to start when the pool cannot supply the full exam length, including
// when generation comes back short.
func (s *ExamService) StartExam(ctx context.Context, sessionID string) (*ExamSession, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.course == nil {
		return nil, domain.ErrNoCourseSelected
	}
	if session.exam != nil && session.exam.State() == StateInProgress {
		return nil, domain.ErrExamInProgress
	}

	course, err := s.catalog.GetCourseByID(ctx, session.course.ID)
	if err != nil {
		return nil, err
	}
	if err := checkEligible(course); err != nil {
		return nil, err
	}
	questions, err := s.generator.GenerateExam(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("generate exam: %w", err)
	}
	if len(questions) < course.ExamLength {
		return nil, fmt.Errorf("%w: %s drew %d of %d questions", domain.ErrInsufficientQuestions, course.Code, len(questions), course.ExamLength)
	}

	exam, err := NewExamSession(uuid.NewString(), session.user, course, questions, s.opts.AutosaveEvery, s.recorder.Record)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	ticks, stopTicker := s.opts.NewTicker(s.opts.TickInterval)
	go func() {
		defer cancel()
		defer stopTicker()
		exam.Run(runCtx, ticks)
	}()
	go logTimeout(exam, session.user.Username)

	session.course = &course
	session.exam = exam
	session.stop = cancel
	return exam, nil
}

// Exam returns the session's current exam.
func (s *ExamService) Exam(sessionID string) (*ExamSession, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	exam, ok := session.Exam()
	if !ok {
		return nil, domain.ErrNoActiveExam
	}
	return exam, nil
}

func checkEligible(course domain.Course) error {
	if !course.Eligible() {
		return fmt.Errorf("%w: %s requires %d, available %d",
			domain.ErrInsufficientQuestions, course.Code, course.ExamLength, course.TotalQuestions)
	}
	return nil
}

// logTimeout reports auto-submissions, which have no caller to return errors to.
func logTimeout(exam *ExamSession, username string) {
	<-exam.Done()
	outcome, ok := exam.Outcome()
	if !ok || !outcome.Timeout {
		return
	}
	if outcome.Err != nil {
		log.Printf("auto-submit %s for %s failed: %v", exam.ID(), username, outcome.Err)
		return
	}
	log.Printf("auto-submitted %s for %s: result %d", exam.ID(), username, outcome.Result.ID)
}
