package app

import (
	"context"

	"course-exam-service/internal/domain"
)

// UserRepository persists accounts and the failed-login counter.
type UserRepository interface {
	// CreateUser returns domain.ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	// GetUserByUsername returns domain.ErrNotFound for unknown usernames.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	IncrementLoginAttempts(ctx context.Context, userID int64) error
	ResetLoginAttempts(ctx context.Context, userID int64) error
	CountUsersByRole(ctx context.Context, role string) (int, error)
}

// CourseRepository persists courses. Every read fills Course.TotalQuestions.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error)
	// ListCourses returns courses ordered by code.
	ListCourses(ctx context.Context) ([]domain.Course, error)
	GetCourseByID(ctx context.Context, id int64) (domain.Course, error)
	GetCourseByCode(ctx context.Context, code string) (domain.Course, error)
}

// QuestionRepository persists the question bank.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	ListQuestions(ctx context.Context, courseID int64) ([]domain.Question, error)
}

// ResultFilter narrows ListResults; a zero UserID selects every user.
type ResultFilter struct {
	UserID int64
}

// ResultRepository persists exam results.
type ResultRepository interface {
	CreateResult(ctx context.Context, result domain.Result) (domain.Result, error)
	// ListResults returns results newest first.
	ListResults(ctx context.Context, filter ResultFilter) ([]domain.Result, error)
}

// Store is the full persistence surface (memory or Postgres).
type Store interface {
	UserRepository
	CourseRepository
	QuestionRepository
	ResultRepository
}

// QuestionPool serves a course's question pool, usually from a cache in front of
// QuestionRepository.
type QuestionPool interface {
	Pool(ctx context.Context, courseID int64) ([]domain.Question, error)
	// Invalidate drops any cached pool for the course after the bank changes.
	Invalidate(ctx context.Context, courseID int64) error
}

// SessionRepository abstracts where login sessions live (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *LoginSession)
	Get(id string) (*LoginSession, bool)
	Delete(id string)
}

// ResultNotifier is told about every recorded result.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, result domain.Result) error
}
