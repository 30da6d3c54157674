package domain

import "time"

// Roles a user can hold.
const (
	RoleAdmin     = "admin"
	RoleCandidate = "candidate"
)

// User is an account that can log in. PasswordHash is never the plaintext password.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	PasswordHash  string `json:"-"`
	Role          string `json:"role"`
	LoginAttempts int    `json:"loginAttempts"`
}

// IsAdmin reports whether the user administers the question bank.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Course is a subject area with its exam configuration.
// TotalQuestions is derived from the question pool on every read and never stored.
type Course struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	Title          string `json:"title"`
	TimeAllocation int    `json:"timeAllocation"` // minutes
	ExamLength     int    `json:"examLength"`     // questions per exam
	PassingMark    int    `json:"passingMark"`    // percentage
	TotalQuestions int    `json:"totalQuestions"`
}

// Eligible reports whether the pool is large enough to draw a full exam.
func (c Course) Eligible() bool {
	return c.ExamLength <= c.TotalQuestions
}

// Option letters in display order.
var OptionLetters = []string{"A", "B", "C", "D"}

// Question models an MCQ question with four options and one correct letter.
type Question struct {
	ID            int64  `json:"id"`
	CourseID      int64  `json:"courseId"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectAnswer string `json:"correctAnswer"`
	Points        int    `json:"points"` // defaults to 1 if zero
}

// Options returns the option texts in A..D order.
func (q Question) Options() []string {
	return []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// IsOptionLetter reports whether s is one of A, B, C or D.
func IsOptionLetter(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// Result is the immutable outcome of one exam attempt. User and course fields are
// copied at submission time so the record survives later course edits.
type Result struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Username       string    `json:"username"`
	CourseID       int64     `json:"courseId"`
	CourseCode     string    `json:"courseCode"`
	CourseTitle    string    `json:"courseTitle"`
	TakenAt        time.Time `json:"takenAt"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	TotalPoints    int       `json:"totalPoints"`
	Percentage     float64   `json:"percentage"`
	TimeSpent      int       `json:"timeSpent"` // seconds
	Passed         bool      `json:"passed"`
}

// Analytics aggregates a candidate's result history.
type Analytics struct {
	UserID         int64    `json:"userId"`
	ExamsTaken     int      `json:"examsTaken"`
	AveragePercent float64  `json:"averagePercent"`
	Passed         int      `json:"passed"`
	PassRate       int      `json:"passRate"` // integer percent
	Recent         []Result `json:"recent"`
}
