package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/engagement"
	"github.com/trezcool/engagement/core/indicator"
	"github.com/trezcool/engagement/core/mailer"
	"github.com/trezcool/engagement/core/user"
	emailsvc "github.com/trezcool/engagement/services/email"
	"github.com/trezcool/engagement/services/events"
	logsvc "github.com/trezcool/engagement/services/logger"
	"github.com/trezcool/engagement/storage/database/dummy"
)

const courseID = "7"

var (
	tina = user.User{ID: 1, FirstName: "Tina", LastName: "Tran", Email: "tina@example.com"}
	ann  = user.User{ID: 2, FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}
	bob  = user.User{ID: 3, FirstName: "Bob", LastName: "Ray", Email: "bob@example.com"}
)

type fixture struct {
	cli      *commandLine
	out      *bytes.Buffer
	mock     sqlmock.Sqlmock
	recorder *events.Recorder
	email    *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		_ = sqlDB.Close()
	})

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	users := dummydb.NewUserRepository(db)
	for _, usr := range []user.User{tina, ann, bob} {
		users.CreateUser(usr)
	}

	registry, err := indicator.ParseRegistry(`
[[indicator]]
name = "login"
version = 1
fields = ["login_sessiontimeout"]

[[indicator]]
name = "forum"

[[indicator]]
name = "assessment"
enabled = false
`)
	require.NoError(t, err)

	conf := &core.Config{AppName: "Engagement", TestMode: true, DefaultFromEmail: mail.Address{Address: "noreply@example.com"}}
	logger := logsvc.NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), conf)
	validate, translator := core.NewValidator()
	engagement.InitValidators(validate, translator)
	recorder := events.NewRecorder()
	email := emailsvc.NewConsoleServiceMock(conf)

	var out bytes.Buffer
	cli := &commandLine{
		db:       sqlDB,
		registry: registry,
		engagementSvc: engagement.NewService(engagement.ServiceDeps{
			DB:         sqlx.NewDb(sqlDB, "postgres"),
			Repo:       dummydb.NewEngagementRepository(db),
			Registry:   registry,
			Publisher:  recorder,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
		}),
		mailerSvc: mailer.NewService(mailer.ServiceDeps{
			Repo:       dummydb.NewMailerRepository(db),
			Users:      users,
			Email:      email,
			Publisher:  recorder,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
		}),
		out:        &out,
		jsonOutput: true,
	}
	return fixture{cli: cli, out: &out, mock: mock, recorder: recorder, email: email}
}

func (f fixture) run(args ...string) error {
	f.out.Reset()
	return f.cli.run(context.Background(), append([]string{"admin"}, args...))
}

func (f fixture) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.out.Bytes(), v), f.out.String())
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.run(tt.args...)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "weights: no course", args: []string{"weights"}, wantErr: errHelp},
		{name: "setweights: no user", args: []string{"setweights", "-course", courseID, "login=100"}, wantErr: errHelp},
		{name: "setweights: no weightings", args: []string{"setweights", "-course", courseID, "-user", "1"}, wantErr: errHelp},
		{name: "setsettings: no values", args: []string{"setsettings", "-course", courseID, "-user", "1"}, wantErr: errHelp},
		{name: "rank: no scores file", args: []string{"rank", "-course", courseID, "-user", "1"}, wantErr: errHelp},
		{name: "mail: no sender", args: []string{"mail", "-course", courseID, "-to", "2"}, wantErr: errHelp},
		{name: "mailerlog: no viewer", args: []string{"mailerlog", "-course", courseID}, wantErr: errHelp},
		{name: "flag help", args: []string{"weights", "-h"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, f.run(tt.args...))
		})
	}
}

func Test_commandLine_indicators(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.run("indicators"))
	var got []indicatorRow
	f.decode(t, &got)
	assert.Equal(t, []indicatorRow{
		{Name: "login", Enabled: true, Configurable: true},
		{Name: "forum", Enabled: true},
		{Name: "assessment"},
	}, got)
}

func Test_commandLine_setWeights(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "bad pair", args: []string{"login"}, wantErrStr: `invalid argument "login", expected NAME=VALUE`},
		{name: "bad number", args: []string{"login=lots"}, wantErrStr: `invalid weighting login="lots"`},
		{name: "sum is not 100", args: []string{"login=50", "forum=20"}, wantErrStr: "weights: weightings must sum to 100"},
		{name: "unknown indicator", args: []string{"login=50", "quiz=50"}, wantErrStr: "weighting_quiz: unknown indicator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"setweights", "-course", courseID, "-user", "1"}, tt.args...)
			err := f.run(args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantErrStr, err.Error())
		})
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.run("setweights", "-course", courseID, "-user", "1", "login=70", "forum=30"))

	var got []engagement.IndicatorWeight
	f.decode(t, &got)
	require.Len(t, got, 3)
	pcts := make(map[string]float64)
	for _, w := range got {
		pcts[w.Indicator] = w.Percentage()
	}
	assert.Equal(t, map[string]float64{"assessment": 0, "forum": 30, "login": 70}, pcts)

	records := f.recorder.Records(core.TopicSettingsUpdated)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].Event.(core.SettingsUpdated).UserID)
}

func Test_commandLine_settings(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.run("settings", "-course", courseID))
	var form engagement.EditForm
	f.decode(t, &form)
	assert.True(t, form.Defaulted)
	assert.Equal(t, map[string]float64{"login": 33, "forum": 33, "assessment": 34}, form.Weights)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.run("setsettings", "-course", courseID, "-user", "1", engagement.SettingQuerySpecifyDatetime+"=1"))
	form = engagement.EditForm{}
	f.decode(t, &form)
	assert.Equal(t, map[string]string{engagement.SettingQuerySpecifyDatetime: "1"}, form.Generic)

	err := f.run("setsettings", "-course", courseID, "-user", "1", "colour=blue")
	assert.True(t, core.IsValidationError(err))

	f.cli.jsonOutput = false
	require.NoError(t, f.run("settings", "-course", courseID))
	assert.Contains(t, f.out.String(), "weighting_login")
	assert.Contains(t, f.out.String(), engagement.SettingQuerySpecifyDatetime)
}

func Test_commandLine_rank(t *testing.T) {
	f := setup(t)

	scores := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(scores, []byte(`[
		{"student_id": 10, "raw": {"login": 1, "forum": 9}},
		{"student_id": 11, "raw": {"login": 8, "forum": 0}},
		{"student_id": 12, "raw": {"login": 5, "forum": 5}}
	]`), 0o600))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.run("setweights", "-course", courseID, "-user", "1", "login=70", "forum=30"))

	tests := []struct {
		name string
		args []string
		want []int64
	}{
		{name: "by total", want: []int64{11, 12, 10}},
		{name: "by total ascending", args: []string{"-dir", "asc"}, want: []int64{10, 12, 11}},
		{name: "by indicator", args: []string{"-sort", "forum"}, want: []int64{10, 12, 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"rank", "-course", courseID, "-user", "1", "-scores", scores}, tt.args...)
			require.NoError(t, f.run(args...))

			var ranked []engagement.StudentScores
			f.decode(t, &ranked)
			ids := make([]int64, 0, len(ranked))
			for _, s := range ranked {
				ids = append(ids, s.StudentID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	assert.Error(t, f.run("rank", "-course", courseID, "-user", "1", "-scores", scores, "-dir", "up"))
	assert.True(t, core.IsValidationError(f.run("rank", "-course", courseID, "-user", "1", "-scores", scores, "-sort", "quiz")))
	assert.Len(t, f.recorder.Records(core.TopicReportViewed), len(tests))
}

func Test_commandLine_mail(t *testing.T) {
	f := setup(t)
	f.email.FailFor(bob.Email, fmt.Errorf("mailbox full"))

	require.NoError(t, f.run(
		"mail", "-course", courseID, "-sender", "1", "-to", "2, 3,99",
		"-subject", "Hello {#FIRSTNAME#}", "-body", "See you in class",
	))
	var got []sendRow
	f.decode(t, &got)
	require.Len(t, got, 3)
	assert.Equal(t, sendRow{SendResult: mailer.SendResult{RecipientID: 2, Destination: ann.Email, Sent: true}}, got[0])
	assert.False(t, got[1].Sent)
	assert.Equal(t, "mailbox full", got[1].Error)
	assert.Equal(t, int64(99), got[2].RecipientID)
	assert.NotEmpty(t, got[2].Error)

	sent := f.email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hello Ann", sent[0].Subject)

	err := f.run("mail", "-course", courseID, "-sender", "1", "-to", "2", "-body", "no subject")
	assert.True(t, core.IsValidationError(err))
	assert.Error(t, f.run("mail", "-course", courseID, "-sender", "1", "-to", "two", "-subject", "s", "-body", "b"))

	require.NoError(t, f.run("mailerlog", "-course", courseID, "-user", "1"))
	var view mailer.LogView
	f.decode(t, &view)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, tina.ID, view.Messages[0].Sender.ID)
	require.Len(t, view.Messages[0].Recipients, 1)
	assert.Equal(t, ann.ID, view.Messages[0].Recipients[0].ID)

	require.NoError(t, f.run("mailerlog", "-course", courseID, "-user", "1", "-recipient", "2"))
	view = mailer.LogView{}
	f.decode(t, &view)
	require.NotNil(t, view.Recipient)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "Hello Ann", view.Messages[0].Subject)
	assert.Equal(t, 1, view.Messages[0].RecipientCount)

	f.cli.jsonOutput = false
	require.NoError(t, f.run("mailerlog", "-course", courseID, "-user", "1"))
	assert.Contains(t, f.out.String(), "Ann Lee")
	assert.Contains(t, f.out.String(), "Tina Tran")
}

func Test_commandLine_savedMessages(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.run("savemessage", "-user", "1", "-summary", "Reminder", "-text", "Quiz on Friday"))
	require.NoError(t, f.run("savemessage", "-user", "1", "-summary", "Absence", "-text", "We missed you"))
	assert.True(t, core.IsValidationError(f.run("savemessage", "-user", "1", "-text", "no summary")))

	require.NoError(t, f.run("savedmessages", "-user", "1"))
	var got []mailer.SavedMessage
	f.decode(t, &got)
	require.Len(t, got, 2)
	assert.Equal(t, "Absence", got[0].Summary)
	assert.Equal(t, "Quiz on Friday", got[1].Text)
}
