package mailer

import (
	"context"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/user"
)

// mockable
var (
	NowFunc   = time.Now
	NewIDFunc = func() string { return uuid.New().String() }
)

type (
	ServiceDeps struct {
		Repo       Repository
		Users      user.Repository
		Email      core.EmailService
		Publisher  core.EventPublisher
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Service struct {
		repo       Repository
		users      user.Repository
		email      core.EmailService
		publisher  core.EventPublisher
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		repo:       deps.Repo,
		users:      deps.Users,
		email:      deps.Email,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
}

// LogMessage stores a message template and returns it with its id.
func (svc *Service) LogMessage(ctx context.Context, subject, body, typ string) (Message, error) {
	if typ == "" {
		typ = TypeEmail
	}
	msg := Message{ID: NewIDFunc(), Subject: subject, Body: body, Type: typ}
	if err := svc.repo.CreateMessage(ctx, msg); err != nil {
		return Message{}, errors.Wrap(err, "logging message")
	}
	return msg, nil
}

// LogSend records that a message was sent. TimeSent defaults to now.
func (svc *Service) LogSend(ctx context.Context, send SendLog) (SendLog, error) {
	var flds []core.FieldError
	if send.MessageID == "" {
		flds = append(flds, core.FieldError{Field: "message_id", Error: "message_id is a required field"})
	}
	if send.RecipientID == 0 {
		flds = append(flds, core.FieldError{Field: "recipient_id", Error: "recipient_id is a required field"})
	}
	if send.SenderID == 0 {
		flds = append(flds, core.FieldError{Field: "sender_id", Error: "sender_id is a required field"})
	}
	if send.CourseID == 0 {
		flds = append(flds, core.FieldError{Field: "course_id", Error: "course_id is a required field"})
	}
	if flds != nil {
		return SendLog{}, core.NewValidationError(nil, flds...)
	}

	send.ID = NewIDFunc()
	if send.TimeSent.IsZero() {
		send.TimeSent = NowFunc()
	}
	send.TimeSent = send.TimeSent.UTC()
	if err := svc.repo.CreateSendLog(ctx, send); err != nil {
		return SendLog{}, errors.Wrap(err, "logging send")
	}
	return send, nil
}

// SaveMessage adds a message to userID's saved messages.
func (svc *Service) SaveMessage(ctx context.Context, userID int64, summary, text string) (SavedMessage, error) {
	msg := SavedMessage{ID: NewIDFunc(), UserID: userID, Summary: core.CleanString(summary), Text: text}
	if msg.Summary == "" {
		return SavedMessage{}, core.NewValidationError(nil, core.FieldError{Field: "summary", Error: "summary is a required field"})
	}
	if err := svc.repo.CreateSavedMessage(ctx, msg); err != nil {
		return SavedMessage{}, errors.Wrap(err, "saving message")
	}
	return msg, nil
}

func (svc *Service) SavedMessages(ctx context.Context, userID int64) ([]SavedMessage, error) {
	msgs, err := svc.repo.QuerySavedMessages(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "loading saved messages")
	}
	return msgs, nil
}

// SendCustomisedEmail personalises draft for recipient and emails it.
func (svc *Service) SendCustomisedEmail(ctx context.Context, draft Draft, recipient, sender, replyTo user.User) SendResult {
	from := sender.MailAddress()
	reply := replyTo.MailAddress()
	msg := &core.EmailMessage{
		From:        &from,
		To:          []mail.Address{recipient.MailAddress()},
		ReplyTo:     &reply,
		Subject:     ReplaceVariables(draft.Subject, recipient),
		TextContent: ReplaceVariables(draft.Body, recipient),
	}

	res := SendResult{RecipientID: recipient.ID, Destination: recipient.Email}
	if err := svc.email.SendMessage(ctx, msg); err != nil {
		res.Err = err
		return res
	}
	res.Sent = true
	return res
}

// Send logs req's message once and emails it to each recipient. Each successful send is logged.
// Results follow req.RecipientIDs order; a failure for one recipient does not stop the others.
func (svc *Service) Send(ctx context.Context, req SendRequest) ([]SendResult, error) {
	if err := svc.validate.Struct(req); err != nil {
		return nil, core.TranslateValidationErrors(err, svc.translator)
	}

	sender, err := svc.users.GetUser(ctx, req.SenderID)
	if err != nil {
		return nil, errors.Wrap(err, "loading sender")
	}
	replyTo := sender
	if req.ReplyToID != 0 && req.ReplyToID != req.SenderID {
		if replyTo, err = svc.users.GetUser(ctx, req.ReplyToID); err != nil {
			return nil, errors.Wrap(err, "loading reply-to user")
		}
	}
	recipients, err := svc.usersByID(ctx, req.RecipientIDs)
	if err != nil {
		return nil, err
	}

	msg, err := svc.LogMessage(ctx, req.Subject, req.Body, req.Type)
	if err != nil {
		return nil, err
	}

	results := make([]SendResult, 0, len(req.RecipientIDs))
	for _, id := range req.RecipientIDs {
		recipient, ok := recipients[id]
		if !ok {
			results = append(results, SendResult{RecipientID: id, Err: user.ErrNotFound})
			continue
		}

		res := svc.SendCustomisedEmail(ctx, req.Draft, recipient, sender, replyTo)
		if res.Sent {
			_, err = svc.LogSend(ctx, SendLog{
				MessageID:   msg.ID,
				Destination: recipient.Email,
				RecipientID: recipient.ID,
				SenderID:    sender.ID,
				CourseID:    req.CourseID,
			})
			if err != nil {
				svc.logger.Error("logging send", err, map[string]interface{}{"message_id": msg.ID, "recipient_id": id})
				res.Err = err
			}
		} else {
			svc.logger.Warn("sending message", res.Err, map[string]interface{}{"message_id": msg.ID, "recipient_id": id})
		}
		results = append(results, res)
	}
	return results, nil
}

func (svc *Service) usersByID(ctx context.Context, ids []int64) (map[int64]user.User, error) {
	usrs, err := svc.users.QueryUsersByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "loading users")
	}
	byID := make(map[int64]user.User, len(usrs))
	for _, usr := range usrs {
		byID[usr.ID] = usr
	}
	return byID, nil
}

// MessageLog returns the messages sent in filter.CourseID.
// With a RecipientID, only that recipient's messages are listed, newest first, personalised for them.
// Otherwise with a MessageID, that message is listed with its recipients by first name; ErrNotFound if it was not sent in the course.
// Otherwise all messages of the course are listed, newest first.
func (svc *Service) MessageLog(ctx context.Context, filter LogFilter, viewerID int64) (LogView, error) {
	if filter.CourseID == 0 {
		return LogView{}, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course_id is a required field"})
	}

	var (
		view     = LogView{CourseID: filter.CourseID, Messages: []LoggedMessage{}}
		ordering []core.DBOrdering
		event    = core.ReportViewed{CourseID: filter.CourseID, UserID: viewerID, Page: core.PageMailerLog}
	)
	switch {
	case filter.RecipientID != 0:
		filter.MessageID = ""
		ordering = []core.DBOrdering{{Field: FieldTimeSent}}
		event.RecipientID = filter.RecipientID
	case filter.MessageID != "":
		ordering = []core.DBOrdering{{Field: FieldRecipientFirstName, Ascending: true}}
		view.MessageID = filter.MessageID
		event.MessageID = filter.MessageID
	default:
		ordering = []core.DBOrdering{{Field: FieldTimeSent}, {Field: FieldRecipientFirstName, Ascending: true}}
	}

	entries, err := svc.repo.QueryLog(ctx, filter, ordering)
	if err != nil {
		return LogView{}, errors.Wrap(err, "loading message log")
	}
	if view.MessageID != "" && len(entries) == 0 {
		return LogView{}, ErrNotFound
	}

	var counts map[string]int
	if filter.RecipientID != 0 {
		recipient, err := svc.users.GetUser(ctx, filter.RecipientID)
		if err != nil {
			return LogView{}, errors.Wrap(err, "loading recipient")
		}
		view.Recipient = &recipient

		all, err := svc.repo.QueryLog(ctx, LogFilter{CourseID: filter.CourseID}, nil)
		if err != nil {
			return LogView{}, errors.Wrap(err, "counting recipients")
		}
		counts = make(map[string]int)
		for _, entry := range all {
			counts[entry.Message.ID]++
		}
	}

	ids := make([]int64, 0, 2*len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Send.SenderID, entry.Send.RecipientID)
	}
	usrs, err := svc.usersByID(ctx, ids)
	if err != nil {
		return LogView{}, err
	}

	view.Messages = groupEntries(entries, usrs)
	for i := range view.Messages {
		msg := &view.Messages[i]
		if view.Recipient != nil {
			msg.Subject = ReplaceVariables(msg.Subject, *view.Recipient)
			msg.Body = ReplaceVariables(msg.Body, *view.Recipient)
			msg.RecipientCount = counts[msg.ID]
		}
	}

	event.Time = NowFunc().UTC()
	core.PublishOrLog(ctx, svc.publisher, svc.logger, core.TopicReportViewed, event)
	return view, nil
}

// groupEntries groups entries by message, in the order messages first appear.
// A message keeps the details of its first entry. Unknown users are kept with their id only.
func groupEntries(entries []LogEntry, usrs map[int64]user.User) []LoggedMessage {
	var (
		msgs  []LoggedMessage
		index = make(map[string]int)
	)
	lookup := func(id int64) user.User {
		if usr, ok := usrs[id]; ok {
			return usr
		}
		return user.User{ID: id}
	}

	for _, entry := range entries {
		i, ok := index[entry.Message.ID]
		if !ok {
			i = len(msgs)
			index[entry.Message.ID] = i
			msgs = append(msgs, LoggedMessage{
				ID:       entry.Message.ID,
				Subject:  entry.Message.Subject,
				Body:     entry.Message.Body,
				Type:     entry.Message.Type,
				TimeSent: entry.Send.TimeSent,
				Sender:   lookup(entry.Send.SenderID),
			})
		}
		msgs[i].Recipients = append(msgs[i].Recipients, lookup(entry.Send.RecipientID))
		msgs[i].RecipientCount = len(msgs[i].Recipients)
	}
	if msgs == nil {
		msgs = []LoggedMessage{}
	}
	return msgs
}
