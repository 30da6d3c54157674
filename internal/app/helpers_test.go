package app_test

import (
	"context"
	"testing"
	"time"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
	"course-exam-service/internal/infra/memory"
	"golang.org/x/crypto/bcrypt"
)

// fixture is a memory-backed service graph with a hand-driven exam clock.
type fixture struct {
	store    *memory.Store
	services *app.Services
	ticks    chan time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ticks := make(chan time.Time)
	services := app.NewServices(store, memory.NewPoolCache(store, time.Minute), memory.NewSessionStore(), nil, app.Options{
		BcryptCost: bcrypt.MinCost,
		Exam: app.ExamOptions{
			NewTicker: func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} },
		},
	})
	return &fixture{store: store, services: services, ticks: ticks}
}

func (f *fixture) addUser(t *testing.T, username, password, role string) domain.User {
	t.Helper()
	user, err := f.services.Auth.AddUser(context.Background(), username, password, role)
	if err != nil {
		t.Fatalf("add user %s: %v", username, err)
	}
	return user
}

// addCourse creates a course whose pool holds one question per answer letter,
// each worth the matching entry in points (1 when points is short).
func (f *fixture) addCourse(t *testing.T, code string, examLength, passingMark int, answers []string, points ...int) domain.Course {
	t.Helper()
	ctx := context.Background()
	course, err := f.services.Catalog.AddCourse(ctx, app.NewCourse{
		Code:           code,
		Title:          code + " title",
		TimeAllocation: 1,
		ExamLength:     examLength,
		PassingMark:    passingMark,
	})
	if err != nil {
		t.Fatalf("add course %s: %v", code, err)
	}
	for i, answer := range answers {
		p := 1
		if i < len(points) {
			p = points[i]
		}
		if _, err := f.services.Catalog.AddQuestion(ctx, sampleQuestion(course.ID, answer, p)); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	course, err = f.services.Catalog.GetCourseByID(ctx, course.ID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	return course
}

func sampleQuestion(courseID int64, answer string, points int) app.NewQuestion {
	return app.NewQuestion{
		CourseID:      courseID,
		Text:          "Pick " + answer,
		OptionA:       "alpha",
		OptionB:       "bravo",
		OptionC:       "charlie",
		OptionD:       "delta",
		CorrectAnswer: answer,
		Points:        points,
	}
}

// questions builds an in-memory question set without touching a store.
func questions(courseID int64, answers ...string) []domain.Question {
	qs := make([]domain.Question, 0, len(answers))
	for i, a := range answers {
		qs = append(qs, domain.Question{
			ID:            int64(i + 1),
			CourseID:      courseID,
			Text:          "Pick " + a,
			OptionA:       "alpha",
			OptionB:       "bravo",
			OptionC:       "charlie",
			OptionD:       "delta",
			CorrectAnswer: a,
			Points:        1,
		})
	}
	return qs
}
