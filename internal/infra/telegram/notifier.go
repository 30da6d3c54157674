package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"course-exam-service/internal/domain"
	"gopkg.in/telebot.v4"
)

// Notifier posts recorded exam results to an administrator chat.
type Notifier struct {
	bot  *telebot.Bot
	chat telebot.ChatID
}

// NewNotifier builds an offline bot: it only sends, never polls for updates.
// apiURL may be empty to use the public Bot API.
func NewNotifier(token string, chatID int64, apiURL string) (*Notifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}
	return &Notifier{bot: bot, chat: telebot.ChatID(chatID)}, nil
}

func (n *Notifier) NotifyResult(_ context.Context, result domain.Result) error {
	if _, err := n.bot.Send(n.chat, FormatResult(result)); err != nil {
		return fmt.Errorf("send result %d: %w", result.ID, err)
	}
	return nil
}

// FormatResult renders a one-line summary of the result.
func FormatResult(r domain.Result) string {
	verdict := "failed"
	if r.Passed {
		verdict = "passed"
	}
	return fmt.Sprintf("%s %s %s (%s): %d/%d points, %.1f%%, %d questions in %s",
		r.Username, verdict, r.CourseCode, r.CourseTitle,
		r.Score, r.TotalPoints, r.Percentage, r.TotalQuestions,
		time.Duration(r.TimeSpent)*time.Second,
	)
}
