package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/mailer"
)

type sendRow struct {
	mailer.SendResult
	Error string `json:"error,omitempty"`
}

func (cli *commandLine) mail(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("mail")
	courseID := fs.Int64("course", 0, "The course ID.")
	senderID := fs.Int64("sender", 0, "The sending user's ID.")
	replyToID := fs.Int64("replyto", 0, "The ID of the user replies go to (default: the sender).")
	to := fs.String("to", "", "Comma separated recipient IDs.")
	subject := fs.String("subject", "", "The message subject. May contain "+strings.Join(core.SortedKeys(mailer.Variables()), ", ")+".")
	body := fs.String("body", "", "The message body. May contain the same variables as the subject.")
	if err := parseFlags(fs, args, courseID, senderID); err != nil {
		return err
	}
	recipientIDs, err := parseIDs(*to)
	if err != nil {
		return err
	}

	results, err := cli.mailerSvc.Send(ctx, mailer.SendRequest{
		Draft:        mailer.Draft{Subject: *subject, Body: *body},
		CourseID:     *courseID,
		SenderID:     *senderID,
		ReplyToID:    *replyToID,
		RecipientIDs: recipientIDs,
	})
	if err != nil {
		return err
	}

	out := make([]sendRow, 0, len(results))
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		row := sendRow{SendResult: res}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		out = append(out, row)
		rows = append(rows, []string{strconv.FormatInt(res.RecipientID, 10), res.Destination, strconv.FormatBool(res.Sent), row.Error})
	}
	return cli.print(out, []string{"RECIPIENT", "DESTINATION", "SENT", "ERROR"}, rows)
}

func (cli *commandLine) mailerLog(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("mailerlog")
	courseID := fs.Int64("course", 0, "The course ID.")
	userID := fs.Int64("user", 0, "The ID of the user viewing the log.")
	messageID := fs.String("message", "", "Only show this message and its recipients.")
	recipientID := fs.Int64("recipient", 0, "Only show the messages sent to this user.")
	if err := parseFlags(fs, args, courseID, userID); err != nil {
		return err
	}

	view, err := cli.mailerSvc.MessageLog(ctx, mailer.LogFilter{CourseID: *courseID, MessageID: *messageID, RecipientID: *recipientID}, *userID)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(view.Messages))
	for _, msg := range view.Messages {
		names := make([]string, 0, len(msg.Recipients))
		for _, usr := range msg.Recipients {
			names = append(names, usr.FullName())
		}
		recipients := strings.Join(names, ", ")
		if view.Recipient != nil {
			recipients = strconv.Itoa(msg.RecipientCount)
		}
		rows = append(rows, []string{
			msg.ID, msg.TimeSent.Format(time.RFC3339), msg.Sender.FullName(), msg.Subject, recipients,
		})
	}
	return cli.print(view, []string{"MESSAGE", "SENT", "SENDER", "SUBJECT", "RECIPIENTS"}, rows)
}

func (cli *commandLine) saveMessage(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("savemessage")
	userID := fs.Int64("user", 0, "The owner's ID.")
	summary := fs.String("summary", "", "A short summary to find the message by.")
	text := fs.String("text", "", "The message text.")
	if err := parseFlags(fs, args, userID); err != nil {
		return err
	}

	msg, err := cli.mailerSvc.SaveMessage(ctx, *userID, *summary, *text)
	if err != nil {
		return err
	}
	return cli.print(msg, []string{"ID", "SUMMARY"}, [][]string{{msg.ID, msg.Summary}})
}

func (cli *commandLine) savedMessages(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("savedmessages")
	userID := fs.Int64("user", 0, "The owner's ID.")
	if err := parseFlags(fs, args, userID); err != nil {
		return err
	}

	msgs, err := cli.mailerSvc.SavedMessages(ctx, *userID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(msgs))
	for _, msg := range msgs {
		rows = append(rows, []string{msg.ID, msg.Summary, msg.Text})
	}
	return cli.print(msgs, []string{"ID", "SUMMARY", "TEXT"}, rows)
}
