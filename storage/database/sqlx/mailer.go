package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/mailer"
)

const (
	insertMessage = `INSERT INTO mailer_message (id, subject, body, type) VALUES ($1, $2, $3, $4)`

	insertSendLog = `INSERT INTO mailer_sendlog (id, message_id, time_sent, destination, recipient_id, sender_id, course_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertSavedMessage = `INSERT INTO mailer_saved_message (id, user_id, summary, text) VALUES ($1, $2, $3, $4)`

	querySavedMessages = `SELECT id, user_id, summary, text FROM mailer_saved_message WHERE user_id = $1 ORDER BY summary, id`

	queryLog = `SELECT m.id, m.subject, m.body, m.type,
s.id AS send_id, s.time_sent, s.destination, s.recipient_id, s.sender_id, s.course_id
FROM mailer_message m
JOIN mailer_sendlog s ON s.message_id = m.id
LEFT JOIN users u ON u.id = s.recipient_id`
)

// logOrderColumns maps the orderings understood by QueryLog to their columns.
var logOrderColumns = map[string]string{
	mailer.FieldTimeSent:           "s.time_sent",
	mailer.FieldRecipientFirstName: "u.first_name",
}

type (
	mailerRepository struct {
		repo
	}

	logRow struct {
		ID          string     `db:"id"`
		Subject     string     `db:"subject"`
		Body        string     `db:"body"`
		Type        string     `db:"type"`
		SendID      string     `db:"send_id"`
		TimeSent    time.Time  `db:"time_sent"`
		Destination string     `db:"destination"`
		RecipientID int64      `db:"recipient_id"`
		SenderID    null.Int64 `db:"sender_id"`
		CourseID    int64      `db:"course_id"`
	}
)

var _ mailer.Repository = (*mailerRepository)(nil) // interface compliance check

func NewMailerRepository(exec core.DBExecutor) *mailerRepository {
	return &mailerRepository{repo{exec: exec}}
}

func (r mailerRepository) CreateMessage(ctx context.Context, msg mailer.Message, exec ...core.DBExecutor) error {
	if _, err := r.getExec(exec).ExecContext(ctx, insertMessage, msg.ID, msg.Subject, msg.Body, msg.Type); err != nil {
		return core.NewStoreError(err, "inserting message")
	}
	return nil
}

func (r mailerRepository) CreateSendLog(ctx context.Context, log mailer.SendLog, exec ...core.DBExecutor) error {
	senderID := null.NewInt64(log.SenderID, log.SenderID != 0)
	_, err := r.getExec(exec).ExecContext(ctx, insertSendLog,
		log.ID, log.MessageID, log.TimeSent.UTC(), log.Destination, log.RecipientID, senderID, log.CourseID)
	if err != nil {
		return core.NewStoreError(err, "inserting send log")
	}
	return nil
}

func (r mailerRepository) CreateSavedMessage(ctx context.Context, msg mailer.SavedMessage, exec ...core.DBExecutor) error {
	if _, err := r.getExec(exec).ExecContext(ctx, insertSavedMessage, msg.ID, msg.UserID, msg.Summary, msg.Text); err != nil {
		return core.NewStoreError(err, "inserting saved message")
	}
	return nil
}

func (r mailerRepository) QuerySavedMessages(ctx context.Context, userID int64, exec ...core.DBExecutor) ([]mailer.SavedMessage, error) {
	msgs := make([]mailer.SavedMessage, 0)
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &msgs, querySavedMessages, userID); err != nil {
		return nil, core.NewStoreError(err, "querying saved messages")
	}
	return msgs, nil
}

func (r mailerRepository) QueryLog(ctx context.Context, filter mailer.LogFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]mailer.LogEntry, error) {
	var (
		q     strings.Builder
		conds []string
		args  []interface{}
	)
	addCond := func(expr string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, expr+" = $"+strconv.Itoa(len(args)))
	}
	addCond("s.course_id", filter.CourseID)
	if filter.MessageID != "" {
		addCond("s.message_id", filter.MessageID)
	}
	if filter.RecipientID != 0 {
		addCond("s.recipient_id", filter.RecipientID)
	}

	q.WriteString(queryLog)
	q.WriteString("\nWHERE ")
	q.WriteString(strings.Join(conds, " AND "))

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			col, ok := logOrderColumns[ord.Field]
			if !ok {
				return nil, errors.Errorf("unknown message log ordering %q", ord.Field)
			}
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
		q.WriteString("\nORDER BY ")
		q.WriteString(strings.Join(orderList, ", "))
	}

	var rows []logRow
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q.String(), args...); err != nil {
		return nil, core.NewStoreError(err, "querying message log")
	}

	entries := make([]mailer.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, mailer.LogEntry{
			Message: mailer.Message{ID: row.ID, Subject: row.Subject, Body: row.Body, Type: row.Type},
			Send: mailer.SendLog{
				ID:          row.SendID,
				MessageID:   row.ID,
				TimeSent:    row.TimeSent.UTC(),
				Destination: row.Destination,
				RecipientID: row.RecipientID,
				SenderID:    row.SenderID.Int64,
				CourseID:    row.CourseID,
			},
		})
	}
	return entries, nil
}
