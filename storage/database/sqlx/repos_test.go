package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/engagement"
	"github.com/trezcool/engagement/core/mailer"
	"github.com/trezcool/engagement/core/user"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func TestEngagementRepository_QueryWeights(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEngagementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryWeights)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "indicator", "weight", "config_data"}).
			AddRow(7, "login", 0.7, []byte(`{"indicator":"login","version":1}`)).
			AddRow(7, "forum", 0.3, nil))

	weights, err := repo.QueryWeights(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.Equal(t, engagement.IndicatorWeight{
		CourseID: 7, Indicator: "login", Weight: 0.7, ConfigData: []byte(`{"indicator":"login","version":1}`),
	}, weights[0])
	assert.Equal(t, "forum", weights[1].Indicator)
	assert.Nil(t, weights[1].ConfigData)
}

func TestEngagementRepository_QueryWeights_StoreError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEngagementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryWeights)).WillReturnError(errors.New("connection reset"))

	_, err := repo.QueryWeights(context.Background(), 7)
	assert.True(t, core.IsStoreError(err))
}

func TestEngagementRepository_UpsertWeight(t *testing.T) {
	tests := []struct {
		name       string
		configData []byte
		arg        interface{}
	}{
		{name: "with config data", configData: []byte("cfg"), arg: []byte("cfg")},
		{name: "keeps stored config data", configData: nil, arg: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewEngagementRepository(db)

			mock.ExpectExec(regexp.QuoteMeta(upsertWeight)).
				WithArgs(int64(7), "login", 0.5, tt.arg).
				WillReturnResult(sqlmock.NewResult(0, 1))

			w := engagement.IndicatorWeight{CourseID: 7, Indicator: "login", Weight: 0.5, ConfigData: tt.configData}
			assert.NoError(t, repo.UpsertWeight(context.Background(), w))
		})
	}
}

func TestEngagementRepository_UsesServiceExecutor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEngagementRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertGenericSetting)).
		WithArgs(int64(7), engagement.SettingQueryStartDatetime, "2024-01-01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := core.RunInTx(context.Background(), db, func(tx core.DBExecutor) error {
		s := engagement.GenericSetting{CourseID: 7, Name: engagement.SettingQueryStartDatetime, Value: "2024-01-01"}
		return repo.UpsertGenericSetting(context.Background(), s, tx)
	})
	assert.NoError(t, err)
}

func TestEngagementRepository_QueryGenericSettings(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEngagementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryGenericSettings)).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "name", "value"}).
			AddRow(7, engagement.SettingQueryStartDatetime, "2024-01-01"))

	settings, err := repo.QueryGenericSettings(context.Background(), 7, engagement.GenericSettingNames)
	require.NoError(t, err)
	assert.Equal(t, []engagement.GenericSetting{
		{CourseID: 7, Name: engagement.SettingQueryStartDatetime, Value: "2024-01-01"},
	}, settings)

	settings, err = repo.QueryGenericSettings(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestMailerRepository_QueryLog(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "subject", "body", "type", "send_id", "time_sent", "destination", "recipient_id", "sender_id", "course_id"}

	tests := []struct {
		name     string
		filter   mailer.LogFilter
		ordering []core.DBOrdering
		query    string
		args     []driver.Value
	}{
		{
			name:     "course",
			filter:   mailer.LogFilter{CourseID: 7},
			ordering: []core.DBOrdering{{Field: mailer.FieldTimeSent}, {Field: mailer.FieldRecipientFirstName, Ascending: true}},
			query:    queryLog + "\nWHERE s.course_id = $1\nORDER BY s.time_sent DESC, u.first_name ASC",
			args:     []driver.Value{int64(7)},
		},
		{
			name:     "message",
			filter:   mailer.LogFilter{CourseID: 7, MessageID: "m1"},
			ordering: []core.DBOrdering{{Field: mailer.FieldRecipientFirstName, Ascending: true}},
			query:    queryLog + "\nWHERE s.course_id = $1 AND s.message_id = $2\nORDER BY u.first_name ASC",
			args:     []driver.Value{int64(7), "m1"},
		},
		{
			name:   "recipient without ordering",
			filter: mailer.LogFilter{CourseID: 7, RecipientID: 3},
			query:  queryLog + "\nWHERE s.course_id = $1 AND s.recipient_id = $2",
			args:   []driver.Value{int64(7), int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewMailerRepository(db)

			mock.ExpectQuery("^" + regexp.QuoteMeta(tt.query) + "$").
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(cols).
					AddRow("m1", "Hi {#FIRSTNAME#}", "Body", "email", "s1", now, "ann@example.com", 3, nil, 7))

			entries, err := repo.QueryLog(context.Background(), tt.filter, tt.ordering)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, mailer.Message{ID: "m1", Subject: "Hi {#FIRSTNAME#}", Body: "Body", Type: "email"}, entries[0].Message)
			assert.Equal(t, mailer.SendLog{
				ID: "s1", MessageID: "m1", TimeSent: now, Destination: "ann@example.com", RecipientID: 3, CourseID: 7,
			}, entries[0].Send)
		})
	}
}

func TestMailerRepository_QueryLog_UnknownOrdering(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewMailerRepository(db)

	_, err := repo.QueryLog(context.Background(), mailer.LogFilter{CourseID: 7}, []core.DBOrdering{{Field: "subject; DROP TABLE users"}})
	assert.Error(t, err)
}

func TestMailerRepository_CreateSendLog(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMailerRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(insertSendLog)).
		WithArgs("s1", "m1", now, "ann@example.com", int64(3), int64(9), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateSendLog(context.Background(), mailer.SendLog{
		ID: "s1", MessageID: "m1", TimeSent: now, Destination: "ann@example.com", RecipientID: 3, SenderID: 9, CourseID: 7,
	})
	assert.NoError(t, err)
}

func TestUserRepository_GetUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	cols := []string{"id", "first_name", "last_name", "email"}

	mock.ExpectQuery(regexp.QuoteMeta(getUser)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "Ann", "Lee", "ann@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta(getUser)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(cols))

	usr, err := repo.GetUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, user.User{ID: 3, FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}, usr)

	_, err = repo.GetUser(context.Background(), 4)
	assert.True(t, core.IsNotFound(err))
}

func TestUserRepository_QueryUsersByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryUsersByID)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email"}).
			AddRow(3, "Ann", "Lee", "ann@example.com").
			AddRow(4, "Bob", "Ray", "bob@example.com"))

	users, err := repo.QueryUsersByID(context.Background(), []int64{3, 4})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = repo.QueryUsersByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
