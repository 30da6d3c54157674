package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"course-exam-service/internal/domain"
)

// CatalogService manages courses and the question bank.
type CatalogService struct {
	courses   CourseRepository
	questions QuestionRepository
	pool      QuestionPool
}

func NewCatalogService(courses CourseRepository, questions QuestionRepository, pool QuestionPool) *CatalogService {
	return &CatalogService{courses: courses, questions: questions, pool: pool}
}

// NewCourse carries the admin-supplied course fields.
type NewCourse struct {
	Code           string
	Title          string
	TimeAllocation int
	ExamLength     int
	PassingMark    int
}

// AddCourse validates and creates a course; a taken code yields domain.ErrDuplicate.
func (s *CatalogService) AddCourse(ctx context.Context, in NewCourse) (domain.Course, error) {
	code := strings.TrimSpace(in.Code)
	title := strings.TrimSpace(in.Title)
	switch {
	case code == "" || title == "":
		return domain.Course{}, fmt.Errorf("%w: course code and title are required", domain.ErrValidation)
	case in.TimeAllocation < 1:
		return domain.Course{}, fmt.Errorf("%w: time allocation must be at least one minute", domain.ErrValidation)
	case in.ExamLength < 1:
		return domain.Course{}, fmt.Errorf("%w: exam length must be at least one question", domain.ErrValidation)
	case in.PassingMark < 0 || in.PassingMark > 100:
		return domain.Course{}, fmt.Errorf("%w: passing mark must be between 0 and 100", domain.ErrValidation)
	}

	return s.courses.CreateCourse(ctx, domain.Course{
		Code:           code,
		Title:          title,
		TimeAllocation: in.TimeAllocation,
		ExamLength:     in.ExamLength,
		PassingMark:    in.PassingMark,
	})
}

func (s *CatalogService) ListCourses(ctx context.Context) ([]domain.Course, error) {
	return s.courses.ListCourses(ctx)
}

func (s *CatalogService) GetCourseByID(ctx context.Context, id int64) (domain.Course, error) {
	return s.courses.GetCourseByID(ctx, id)
}

func (s *CatalogService) GetCourseByCode(ctx context.Context, code string) (domain.Course, error) {
	return s.courses.GetCourseByCode(ctx, strings.TrimSpace(code))
}

// NewQuestion carries the admin-supplied question fields. Points defaults to 1.
type NewQuestion struct {
	CourseID      int64
	Text          string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectAnswer string
	Points        int
}

// AddQuestion validates and inserts a question into the course pool.
func (s *CatalogService) AddQuestion(ctx context.Context, in NewQuestion) (domain.Question, error) {
	q, err := validateQuestion(in)
	if err != nil {
		return domain.Question{}, err
	}
	if _, err := s.courses.GetCourseByID(ctx, in.CourseID); err != nil {
		return domain.Question{}, err
	}

	created, err := s.questions.CreateQuestion(ctx, q)
	if err != nil {
		return domain.Question{}, err
	}
	if err := s.pool.Invalidate(ctx, in.CourseID); err != nil {
		log.Printf("invalidate pool for course %d: %v", in.CourseID, err)
	}
	return created, nil
}

// ListQuestions returns the full pool of a course.
func (s *CatalogService) ListQuestions(ctx context.Context, courseID int64) ([]domain.Question, error) {
	if _, err := s.courses.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.questions.ListQuestions(ctx, courseID)
}

func validateQuestion(in NewQuestion) (domain.Question, error) {
	for _, field := range []string{in.Text, in.OptionA, in.OptionB, in.OptionC, in.OptionD} {
		if strings.TrimSpace(field) == "" {
			return domain.Question{}, fmt.Errorf("%w: question text and all four options are required", domain.ErrValidation)
		}
	}
	if !domain.IsOptionLetter(in.CorrectAnswer) {
		return domain.Question{}, fmt.Errorf("%w: correct answer %q is not one of A, B, C, D", domain.ErrValidation, in.CorrectAnswer)
	}
	points := in.Points
	if points == 0 {
		points = 1
	}
	if points < 1 {
		return domain.Question{}, fmt.Errorf("%w: points must be at least 1", domain.ErrValidation)
	}
	return domain.Question{
		CourseID:      in.CourseID,
		Text:          in.Text,
		OptionA:       in.OptionA,
		OptionB:       in.OptionB,
		OptionC:       in.OptionC,
		OptionD:       in.OptionD,
		CorrectAnswer: in.CorrectAnswer,
		Points:        points,
	}, nil
}
