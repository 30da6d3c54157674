package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
	"github.com/gorilla/websocket"
)

var (
	errNotLoggedIn     = fmt.Errorf("%w: not logged in", domain.ErrAuth)
	errAlreadyLoggedIn = fmt.Errorf("%w: already logged in", domain.ErrValidation)
	errUnsupported     = fmt.Errorf("%w: unsupported message type", domain.ErrValidation)
)

type WSHandler struct {
	services *app.Services
	upgrader websocket.Upgrader
}

func NewWSHandler(services *app.Services) *WSHandler {
	return &WSHandler{
		services: services,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// wsConn is one presentation client. It owns at most one login session, which
// is closed when the connection goes away.
type wsConn struct {
	h    *WSHandler
	conn *websocket.Conn

	send         chan outboundMessage[any]
	closeSignals chan struct{}
	writerDone   chan struct{}
	forwarders   sync.WaitGroup

	sessionID string
}

// ServeWS upgrades HTTP requests to websockets and dispatches client messages
// to the exam use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &wsConn{
		h:            h,
		conn:         conn,
		send:         make(chan outboundMessage[any], 16),
		closeSignals: make(chan struct{}),
		writerDone:   make(chan struct{}),
	}

	// single writer; everything else goes through send
	go func() {
		defer close(c.writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				_ = conn.Close()
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := c.dispatch(ctx, inbound); err != nil {
			c.emitError(err)
		}
	}

	close(c.closeSignals)
	c.forwarders.Wait()
	if c.sessionID != "" {
		// a dropped connection abandons any running exam
		_ = h.services.Exams.Logout(context.Background(), c.sessionID)
	}
	close(c.send)
	<-c.writerDone
}

func (c *wsConn) dispatch(ctx context.Context, in inboundMessage) error {
	svc := c.h.services
	switch in.Type {
	case "login":
		var p loginPayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		if c.sessionID != "" {
			return errAlreadyLoggedIn
		}
		session, err := svc.Exams.Login(ctx, p.Username, p.Password)
		if err != nil {
			return err
		}
		c.sessionID = session.ID()
		c.emit("logged_in", loggedInPayload{SessionID: session.ID(), User: session.User()})
		return nil

	case "logout":
		if c.sessionID == "" {
			return errNotLoggedIn
		}
		if err := svc.Exams.Logout(ctx, c.sessionID); err != nil {
			return err
		}
		c.sessionID = ""
		c.emit("logged_out", struct{}{})
		return nil

	case "courses":
		if _, err := c.session(); err != nil {
			return err
		}
		courses, err := svc.Catalog.ListCourses(ctx)
		if err != nil {
			return err
		}
		c.emit("courses", courseViews(courses))
		return nil

	case "select_course":
		var p coursePayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		if _, err := c.session(); err != nil {
			return err
		}
		course, err := svc.Exams.SelectCourse(ctx, c.sessionID, p.CourseID)
		if err != nil {
			return err
		}
		c.emit("course_selected", courseView{Course: course, Eligible: course.Eligible()})
		return nil

	case "start":
		if _, err := c.session(); err != nil {
			return err
		}
		exam, err := svc.Exams.StartExam(ctx, c.sessionID)
		if err != nil {
			return err
		}
		c.forwarders.Add(1)
		go c.forward(exam)
		c.emit("question", exam.Snapshot())
		return nil

	case "select", "next", "prev":
		exam, err := c.exam()
		if err != nil {
			return err
		}
		var snap app.Snapshot
		switch in.Type {
		case "select":
			var p selectPayload
			if err := decodePayload(in, &p); err != nil {
				return err
			}
			snap, err = exam.Select(strings.TrimSpace(p.Option))
		case "next":
			snap, err = exam.Next()
		default:
			snap, err = exam.Prev()
		}
		if err != nil {
			return err
		}
		c.emit("question", snap)
		return nil

	case "submit":
		var p submitPayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		exam, err := c.exam()
		if err != nil {
			return err
		}
		result, err := exam.Submit(ctx, p.Confirm)
		if err != nil {
			return err
		}
		c.emit("result", resultPayload{Result: result})
		return nil

	case "analytics":
		session, err := c.session()
		if err != nil {
			return err
		}
		analytics, err := svc.Analytics.Analyze(ctx, session.User().ID)
		if err != nil {
			return err
		}
		c.emit("analytics", analytics)
		return nil
	}

	return c.dispatchAdmin(ctx, in)
}

func (c *wsConn) dispatchAdmin(ctx context.Context, in inboundMessage) error {
	svc := c.h.services
	switch in.Type {
	case "add_course", "add_question", "questions", "import", "results":
	default:
		return errUnsupported
	}
	if c.sessionID == "" {
		return errNotLoggedIn
	}
	if _, err := svc.Exams.RequireAdmin(c.sessionID); err != nil {
		return err
	}

	switch in.Type {
	case "add_course":
		var p addCoursePayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		course, err := svc.Catalog.AddCourse(ctx, app.NewCourse{
			Code:           p.Code,
			Title:          p.Title,
			TimeAllocation: p.TimeAllocation,
			ExamLength:     p.ExamLength,
			PassingMark:    p.PassingMark,
		})
		if err != nil {
			return err
		}
		c.emit("course_added", courseView{Course: course, Eligible: course.Eligible()})

	case "add_question":
		var p addQuestionPayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		question, err := svc.Catalog.AddQuestion(ctx, app.NewQuestion{
			CourseID:      p.CourseID,
			Text:          p.Text,
			OptionA:       p.OptionA,
			OptionB:       p.OptionB,
			OptionC:       p.OptionC,
			OptionD:       p.OptionD,
			CorrectAnswer: p.CorrectAnswer,
			Points:        p.Points,
		})
		if err != nil {
			return err
		}
		c.emit("question_added", question)

	case "questions":
		var p coursePayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		questions, err := svc.Catalog.ListQuestions(ctx, p.CourseID)
		if err != nil {
			return err
		}
		c.emit("questions", questions)

	case "import":
		var p importPayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		count, err := svc.Importer.Import(ctx, p.CourseID, strings.NewReader(p.Content))
		if err != nil {
			return err
		}
		c.emit("imported", importedPayload{CourseID: p.CourseID, Count: count})

	case "results":
		var p resultsPayload
		if err := decodePayload(in, &p); err != nil {
			return err
		}
		results, err := svc.Analytics.ListResults(ctx, p.UserID)
		if err != nil {
			return err
		}
		c.emit("results", results)
	}
	return nil
}

// forward relays timer snapshots and, for auto-submitted exams, the result.
// Manually submitted results are answered by the submit handler itself.
func (c *wsConn) forward(exam *app.ExamSession) {
	defer c.forwarders.Done()
	for {
		select {
		case snap := <-exam.Updates():
			if !c.emit("tick", snap) {
				return
			}
		case <-exam.Done():
			outcome, _ := exam.Outcome()
			if !outcome.Timeout {
				return
			}
			if outcome.Err != nil {
				c.emitError(outcome.Err)
				return
			}
			c.emit("result", newResultPayload(outcome))
			return
		case <-c.closeSignals:
			return
		}
	}
}

func (c *wsConn) session() (*app.LoginSession, error) {
	if c.sessionID == "" {
		return nil, errNotLoggedIn
	}
	return c.h.services.Exams.Session(c.sessionID)
}

func (c *wsConn) exam() (*app.ExamSession, error) {
	if c.sessionID == "" {
		return nil, errNotLoggedIn
	}
	return c.h.services.Exams.Exam(c.sessionID)
}

func (c *wsConn) emit(typ string, payload any) bool {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
		return true
	case <-c.writerDone:
		return false
	case <-c.closeSignals:
		return false
	}
}

const errGenericMessage = "request failed, please try again"

func (c *wsConn) emitError(err error) {
	kind := domain.Kind(err)
	msg := err.Error()
	switch kind {
	case "persistence", "internal":
		// driver text stays in the log
		log.Printf("ws request failed: %v", err)
		msg = errGenericMessage
	}
	c.emit("error", errorPayload{Message: msg, Kind: kind})
}
