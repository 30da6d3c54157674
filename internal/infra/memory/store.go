package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
)

// Store is an in-memory implementation of app.Store for demos and tests.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]domain.User
	courses   map[int64]domain.Course
	questions map[int64]domain.Question
	results   map[int64]domain.Result
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int64]domain.User),
		courses:   make(map[int64]domain.Course),
		questions: make(map[int64]domain.Question),
		results:   make(map[int64]domain.Result),
	}
}

var _ app.Store = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return domain.User{}, fmt.Errorf("username %q %w", user.Username, domain.ErrDuplicate)
		}
	}
	user.ID = s.id()
	user.LoginAttempts = 0
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("user %q %w", username, domain.ErrNotFound)
}

func (s *Store) IncrementLoginAttempts(_ context.Context, userID int64) error {
	return s.updateUser(userID, func(u *domain.User) { u.LoginAttempts++ })
}

func (s *Store) ResetLoginAttempts(_ context.Context, userID int64) error {
	return s.updateUser(userID, func(u *domain.User) { u.LoginAttempts = 0 })
}

func (s *Store) updateUser(userID int64, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d %w", userID, domain.ErrNotFound)
	}
	fn(&u)
	s.users[userID] = u
	return nil
}

func (s *Store) CountUsersByRole(_ context.Context, role string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateCourse(_ context.Context, course domain.Course) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if c.Code == course.Code {
			return domain.Course{}, fmt.Errorf("course code %q %w", course.Code, domain.ErrDuplicate)
		}
	}
	course.ID = s.id()
	course.TotalQuestions = 0
	s.courses[course.ID] = course
	return course, nil
}

func (s *Store) ListCourses(_ context.Context) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		courses = append(courses, s.withCountLocked(c))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (s *Store) GetCourseByID(_ context.Context, id int64) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return domain.Course{}, fmt.Errorf("course %d %w", id, domain.ErrNotFound)
	}
	return s.withCountLocked(c), nil
}

func (s *Store) GetCourseByCode(_ context.Context, code string) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.courses {
		if c.Code == code {
			return s.withCountLocked(c), nil
		}
	}
	return domain.Course{}, fmt.Errorf("course %q %w", code, domain.ErrNotFound)
}

func (s *Store) withCountLocked(c domain.Course) domain.Course {
	c.TotalQuestions = 0
	for _, q := range s.questions {
		if q.CourseID == c.ID {
			c.TotalQuestions++
		}
	}
	return c
}

func (s *Store) CreateQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[question.CourseID]; !ok {
		return domain.Question{}, fmt.Errorf("course %d %w", question.CourseID, domain.ErrNotFound)
	}
	question.ID = s.id()
	s.questions[question.ID] = question
	return question, nil
}

func (s *Store) ListQuestions(_ context.Context, courseID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.CourseID == courseID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (s *Store) CreateResult(_ context.Context, result domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = s.id()
	s.results[result.ID] = result
	return result, nil
}

func (s *Store) ListResults(_ context.Context, filter app.ResultFilter) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.Result, 0)
	for _, r := range s.results {
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].TakenAt.Equal(results[j].TakenAt) {
			return results[i].TakenAt.After(results[j].TakenAt)
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}
