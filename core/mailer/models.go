// Package mailer keeps track of the messages staff send to students of a course:
// the message log, the per-recipient send log and each user's saved messages.
package mailer

import (
	"context"
	"time"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/user"
)

const TypeEmail = "email"

// Log orderings understood by Repository.QueryLog.
const (
	FieldTimeSent           = "time_sent"
	FieldRecipientFirstName = "recipient_first_name"
)

var ErrNotFound = core.NewNotFoundError("message")

type (
	// Message is a logged message template. Subject and Body may hold variables.
	Message struct {
		ID      string `json:"id" db:"id"`
		Subject string `json:"subject" db:"subject"`
		Body    string `json:"body" db:"body"`
		Type    string `json:"type" db:"type"`
	}

	// SendLog records one delivery of a message to one recipient.
	SendLog struct {
		ID          string    `json:"id" db:"id"`
		MessageID   string    `json:"message_id" db:"message_id"`
		TimeSent    time.Time `json:"time_sent" db:"time_sent"`
		Destination string    `json:"destination" db:"destination"`
		RecipientID int64     `json:"recipient_id" db:"recipient_id"`
		SenderID    int64     `json:"sender_id" db:"sender_id"`
		CourseID    int64     `json:"course_id" db:"course_id"`
	}

	SavedMessage struct {
		ID      string `json:"id" db:"id"`
		UserID  int64  `json:"user_id" db:"user_id"`
		Summary string `json:"summary" db:"summary"`
		Text    string `json:"text" db:"text"`
	}

	// LogEntry is a message joined with one of its sends.
	LogEntry struct {
		Message Message
		Send    SendLog
	}

	LogFilter struct {
		CourseID    int64
		MessageID   string
		RecipientID int64
	}

	// LoggedMessage is a message as shown in the message log, with the recipients the view covers.
	LoggedMessage struct {
		ID         string      `json:"id"`
		Subject    string      `json:"subject"`
		Body       string      `json:"body"`
		Type       string      `json:"type"`
		TimeSent   time.Time   `json:"time_sent"`
		Sender     user.User   `json:"sender"`
		Recipients []user.User `json:"recipients"`
		// RecipientCount is the number of recipients of the message in the whole course.
		RecipientCount int `json:"recipient_count"`
	}

	LogView struct {
		CourseID  int64           `json:"course_id"`
		MessageID string          `json:"message_id,omitempty"`
		Recipient *user.User      `json:"recipient,omitempty"`
		Messages  []LoggedMessage `json:"messages"`
	}

	// Draft is the subject and body of a message before personalisation.
	Draft struct {
		Subject string `json:"subject" validate:"required"`
		Body    string `json:"body" validate:"required"`
	}

	SendRequest struct {
		Draft
		CourseID     int64   `json:"course_id" validate:"required"`
		SenderID     int64   `json:"sender_id" validate:"required"`
		ReplyToID    int64   `json:"reply_to_id"` // 0: the sender
		RecipientIDs []int64 `json:"recipient_ids" validate:"required,min=1,dive,required"`
		Type         string  `json:"type"` // empty: TypeEmail
	}

	SendResult struct {
		RecipientID int64  `json:"recipient_id"`
		Destination string `json:"destination,omitempty"`
		Sent        bool   `json:"sent"`
		Err         error  `json:"-"`
	}
)

type Repository interface {
	CreateMessage(ctx context.Context, msg Message, exec ...core.DBExecutor) error
	CreateSendLog(ctx context.Context, log SendLog, exec ...core.DBExecutor) error
	CreateSavedMessage(ctx context.Context, msg SavedMessage, exec ...core.DBExecutor) error
	QuerySavedMessages(ctx context.Context, userID int64, exec ...core.DBExecutor) ([]SavedMessage, error)
	// QueryLog returns the sends matching filter joined with their message, sorted by ordering.
	// Ordering fields are FieldTimeSent and FieldRecipientFirstName.
	QueryLog(ctx context.Context, filter LogFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]LogEntry, error)
}
