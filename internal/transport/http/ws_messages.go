package http

import (
	"encoding/json"
	"fmt"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loggedInPayload struct {
	SessionID string      `json:"sessionId"`
	User      domain.User `json:"user"`
}

type coursePayload struct {
	CourseID int64 `json:"courseId"`
}

type courseView struct {
	domain.Course
	Eligible bool `json:"eligible"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type submitPayload struct {
	Confirm bool `json:"confirm"`
}

type resultPayload struct {
	domain.Result
	Timeout bool `json:"timeout"`
}

type addCoursePayload struct {
	Code           string `json:"code"`
	Title          string `json:"title"`
	TimeAllocation int    `json:"timeAllocation"`
	ExamLength     int    `json:"examLength"`
	PassingMark    int    `json:"passingMark"`
}

type addQuestionPayload struct {
	CourseID      int64  `json:"courseId"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectAnswer string `json:"correctAnswer"`
	Points        int    `json:"points"`
}

type importPayload struct {
	CourseID int64  `json:"courseId"`
	Content  string `json:"content"`
}

type importedPayload struct {
	CourseID int64 `json:"courseId"`
	Count    int   `json:"count"`
}

type resultsPayload struct {
	UserID int64 `json:"userId"`
}

type errorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func decodePayload(in inboundMessage, dst any) error {
	if len(in.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(in.Payload, dst); err != nil {
		return fmt.Errorf("%w: invalid %s payload", domain.ErrValidation, in.Type)
	}
	return nil
}

func courseViews(courses []domain.Course) []courseView {
	views := make([]courseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, courseView{Course: c, Eligible: c.Eligible()})
	}
	return views
}

func newResultPayload(outcome app.Outcome) resultPayload {
	return resultPayload{Result: outcome.Result, Timeout: outcome.Timeout}
}
