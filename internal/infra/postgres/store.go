package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// Store persists users, courses, questions and results in Postgres.
// Each write is a single statement; no explicit transactions are used.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ app.Store = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id, login_attempts`,
		user.Username, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.LoginAttempts)
	if err != nil {
		return domain.User{}, storeError("create user "+user.Username, err)
	}
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, login_attempts FROM users WHERE username=$1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.LoginAttempts)
	if err != nil {
		return domain.User{}, storeError("user "+username, err)
	}
	return u, nil
}

func (s *Store) IncrementLoginAttempts(ctx context.Context, userID int64) error {
	return s.execOne(ctx, fmt.Sprintf("user %d", userID),
		`UPDATE users SET login_attempts = login_attempts + 1 WHERE id=$1`, userID)
}

func (s *Store) ResetLoginAttempts(ctx context.Context, userID int64) error {
	return s.execOne(ctx, fmt.Sprintf("user %d", userID),
		`UPDATE users SET login_attempts = 0 WHERE id=$1`, userID)
}

func (s *Store) CountUsersByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&n); err != nil {
		return 0, storeError("count users", err)
	}
	return n, nil
}

func (s *Store) CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO courses (course_code, course_title, time_allocation, questions_per_exam, passing_mark)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		course.Code, course.Title, course.TimeAllocation, course.ExamLength, course.PassingMark,
	).Scan(&course.ID)
	if err != nil {
		return domain.Course{}, storeError("create course "+course.Code, err)
	}
	course.TotalQuestions = 0
	return course, nil
}

// courseSelect annotates each course with its pool size.
const courseSelect = `
SELECT c.id, c.course_code, c.course_title, c.time_allocation, c.questions_per_exam, c.passing_mark,
       COUNT(q.id) AS total_questions
FROM courses c
LEFT JOIN questions q ON q.course_id = c.id`

func (s *Store) ListCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := s.pool.Query(ctx, courseSelect+` GROUP BY c.id ORDER BY c.course_code`)
	if err != nil {
		return nil, storeError("list courses", err)
	}
	defer rows.Close()

	courses := make([]domain.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, storeError("scan course", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list courses", err)
	}
	return courses, nil
}

func (s *Store) GetCourseByID(ctx context.Context, id int64) (domain.Course, error) {
	row := s.pool.QueryRow(ctx, courseSelect+` WHERE c.id=$1 GROUP BY c.id`, id)
	c, err := scanCourse(row)
	if err != nil {
		return domain.Course{}, storeError(fmt.Sprintf("course %d", id), err)
	}
	return c, nil
}

func (s *Store) GetCourseByCode(ctx context.Context, code string) (domain.Course, error) {
	row := s.pool.QueryRow(ctx, courseSelect+` WHERE c.course_code=$1 GROUP BY c.id`, code)
	c, err := scanCourse(row)
	if err != nil {
		return domain.Course{}, storeError("course "+code, err)
	}
	return c, nil
}

func scanCourse(row pgx.Row) (domain.Course, error) {
	var c domain.Course
	err := row.Scan(&c.ID, &c.Code, &c.Title, &c.TimeAllocation, &c.ExamLength, &c.PassingMark, &c.TotalQuestions)
	return c, err
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	// course_id references courses, but a missing course should read as not found
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id=$1)`, q.CourseID).Scan(&exists); err != nil {
		return domain.Question{}, storeError("check course", err)
	}
	if !exists {
		return domain.Question{}, fmt.Errorf("course %d %w", q.CourseID, domain.ErrNotFound)
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO questions (course_id, question_text, option_a, option_b, option_c, option_d, correct_answer, points)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		q.CourseID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Points,
	).Scan(&q.ID)
	if err != nil {
		return domain.Question{}, storeError("create question", err)
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, courseID int64) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, question_text, option_a, option_b, option_c, option_d, correct_answer, points
		 FROM questions WHERE course_id=$1 ORDER BY id`, courseID)
	if err != nil {
		return nil, storeError("list questions", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.Points); err != nil {
			return nil, storeError("scan question", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list questions", err)
	}
	return questions, nil
}

func (s *Store) CreateResult(ctx context.Context, r domain.Result) (domain.Result, error) {
	if r.TakenAt.IsZero() {
		r.TakenAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO results (user_id, username, course_id, course_code, course_title, date_time,
		                      score, total_questions, total_points, percentage, time_spent, passed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		r.UserID, r.Username, r.CourseID, r.CourseCode, r.CourseTitle, r.TakenAt,
		r.Score, r.TotalQuestions, r.TotalPoints, r.Percentage, r.TimeSpent, r.Passed,
	).Scan(&r.ID)
	if err != nil {
		return domain.Result{}, storeError("create result", err)
	}
	return r, nil
}

func (s *Store) ListResults(ctx context.Context, filter app.ResultFilter) ([]domain.Result, error) {
	query := `SELECT id, user_id, username, course_id, course_code, course_title, date_time,
	                 score, total_questions, total_points, percentage, time_spent, passed
	          FROM results`
	args := []interface{}{}
	if filter.UserID != 0 {
		query += ` WHERE user_id=$1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY date_time DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("list results", err)
	}
	defer rows.Close()

	results := make([]domain.Result, 0)
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.CourseID, &r.CourseCode, &r.CourseTitle, &r.TakenAt,
			&r.Score, &r.TotalQuestions, &r.TotalPoints, &r.Percentage, &r.TimeSpent, &r.Passed); err != nil {
			return nil, storeError("scan result", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list results", err)
	}
	return results, nil
}

func (s *Store) execOne(ctx context.Context, what, sql string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %w", what, domain.ErrNotFound)
	}
	return nil
}

// storeError maps driver errors onto the domain taxonomy.
func storeError(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", what, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %w", what, domain.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w: %w", what, domain.ErrPersistence, err)
}
