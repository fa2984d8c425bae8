package core

import (
	"context"
	"time"
)

// Audit event topics
const (
	TopicSettingsUpdated = "engagement.settings.updated"
	TopicReportViewed    = "engagement.report.viewed"
)

// Report pages
const (
	PageReport    = "report"
	PageMailerLog = "mailer_log"
)

type (
	// EventPublisher emits audit events.
	EventPublisher interface {
		Publish(ctx context.Context, topic string, event interface{}) error
		Close() error
	}

	SettingsUpdated struct {
		CourseID int64     `json:"course_id"`
		UserID   int64     `json:"user_id,omitempty"`
		Time     time.Time `json:"time"`
	}

	ReportViewed struct {
		CourseID    int64     `json:"course_id"`
		UserID      int64     `json:"user_id,omitempty"`
		Page        string    `json:"page"`
		MessageID   string    `json:"message_id,omitempty"`
		RecipientID int64     `json:"recipient_id,omitempty"`
		Time        time.Time `json:"time"`
	}
)

// PublishOrLog publishes event and logs publishing failures.
// Audit events are emitted after the change they describe is committed, so a failure must not undo it.
func PublishOrLog(ctx context.Context, pub EventPublisher, logger Logger, topic string, event interface{}) {
	if err := pub.Publish(ctx, topic, event); err != nil {
		logger.Error("publishing "+topic, err, map[string]interface{}{"event": event})
	}
}
