package app_test

import (
	"context"
	"errors"
	"testing"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
)

func TestAddCourseValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []app.NewCourse{
		{Code: "", Title: "Intro", TimeAllocation: 10, ExamLength: 5, PassingMark: 40},
		{Code: "CS101", Title: " ", TimeAllocation: 10, ExamLength: 5, PassingMark: 40},
		{Code: "CS101", Title: "Intro", TimeAllocation: 0, ExamLength: 5, PassingMark: 40},
		{Code: "CS101", Title: "Intro", TimeAllocation: 10, ExamLength: 0, PassingMark: 40},
		{Code: "CS101", Title: "Intro", TimeAllocation: 10, ExamLength: 5, PassingMark: 101},
	}
	for i, in := range cases {
		if _, err := f.services.Catalog.AddCourse(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, err := f.services.Catalog.AddCourse(ctx, app.NewCourse{Code: "CS101", Title: "Intro", TimeAllocation: 10, ExamLength: 5, PassingMark: 40}); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if _, err := f.services.Catalog.AddCourse(ctx, app.NewCourse{Code: "CS101", Title: "Again", TimeAllocation: 10, ExamLength: 5}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate code, got %v", err)
	}
}

func TestListCoursesCountsPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "MA201", 2, 50, []string{"A"})
	f.addCourse(t, "CS101", 2, 40, []string{"A", "B", "C"})

	courses, err := f.services.Catalog.ListCourses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(courses) != 2 || courses[0].Code != "CS101" || courses[1].Code != "MA201" {
		t.Fatalf("expected courses ordered by code, got %+v", courses)
	}
	if courses[0].TotalQuestions != 3 || !courses[0].Eligible() {
		t.Fatalf("expected CS101 eligible with 3 questions, got %+v", courses[0])
	}
	if courses[1].TotalQuestions != 1 || courses[1].Eligible() {
		t.Fatalf("expected MA201 ineligible with 1 question, got %+v", courses[1])
	}

	byCode, err := f.services.Catalog.GetCourseByCode(ctx, " CS101 ")
	if err != nil || byCode.ID != courses[0].ID {
		t.Fatalf("get by code: %+v (%v)", byCode, err)
	}
	if _, err := f.services.Catalog.GetCourseByCode(ctx, "XX000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddQuestionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course := f.addCourse(t, "CS101", 1, 40, nil)

	bad := []app.NewQuestion{
		func() app.NewQuestion { q := sampleQuestion(course.ID, "A", 1); q.Text = ""; return q }(),
		func() app.NewQuestion { q := sampleQuestion(course.ID, "A", 1); q.OptionD = "  "; return q }(),
		sampleQuestion(course.ID, "E", 1),
		sampleQuestion(course.ID, "a", 1),
		sampleQuestion(course.ID, "A", -2),
	}
	for i, in := range bad {
		if _, err := f.services.Catalog.AddQuestion(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, err := f.services.Catalog.AddQuestion(ctx, sampleQuestion(999, "A", 1)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown course, got %v", err)
	}

	q, err := f.services.Catalog.AddQuestion(ctx, sampleQuestion(course.ID, "D", 0))
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if q.Points != 1 {
		t.Fatalf("expected default of 1 point, got %d", q.Points)
	}
}

func TestAddQuestionRefreshesPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course := f.addCourse(t, "CS101", 2, 40, []string{"A"})

	// warm the cache, then grow the pool
	if _, err := f.services.Generator.Generate(ctx, course.ID, 2); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.services.Catalog.AddQuestion(ctx, sampleQuestion(course.ID, "B", 1)); err != nil {
		t.Fatalf("add question: %v", err)
	}

	set, err := f.services.Generator.Generate(ctx, course.ID, 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected new question visible to generator, got %d", len(set))
	}

	pool, err := f.services.Catalog.ListQuestions(ctx, course.ID)
	if err != nil || len(pool) != 2 {
		t.Fatalf("list questions: %d (%v)", len(pool), err)
	}
}
