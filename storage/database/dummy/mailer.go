package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/mailer"
)

type mailerRepository struct {
	db    *mailerTables
	users *userTable
}

var _ mailer.Repository = (*mailerRepository)(nil) // interface compliance check

func NewMailerRepository(db *DB) *mailerRepository {
	return &mailerRepository{db: db.mailer, users: db.user}
}

func (repo *mailerRepository) CreateMessage(_ context.Context, msg mailer.Message, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.messages[msg.ID]; ok {
		return core.NewStoreError(errors.Errorf("duplicate message id %s", msg.ID), "inserting message")
	}
	repo.db.messages[msg.ID] = msg
	return nil
}

func (repo *mailerRepository) CreateSendLog(_ context.Context, log mailer.SendLog, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.messages[log.MessageID]; !ok {
		return core.NewStoreError(errors.Errorf("unknown message id %s", log.MessageID), "inserting send log")
	}
	repo.db.sends = append(repo.db.sends, log)
	return nil
}

func (repo *mailerRepository) CreateSavedMessage(_ context.Context, msg mailer.SavedMessage, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.saved = append(repo.db.saved, msg)
	return nil
}

func (repo *mailerRepository) QuerySavedMessages(_ context.Context, userID int64, _ ...core.DBExecutor) ([]mailer.SavedMessage, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]mailer.SavedMessage, 0)
	for _, msg := range repo.db.saved {
		if msg.UserID == userID {
			msgs = append(msgs, msg)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Summary < msgs[j].Summary })
	return msgs, nil
}

func (repo *mailerRepository) QueryLog(_ context.Context, filter mailer.LogFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]mailer.LogEntry, error) {
	for _, ord := range ordering {
		if ord.Field != mailer.FieldTimeSent && ord.Field != mailer.FieldRecipientFirstName {
			return nil, errors.Errorf("unknown message log ordering %q", ord.Field)
		}
	}

	repo.db.RLock()
	var entries []mailer.LogEntry
	for _, send := range repo.db.sends {
		if send.CourseID != filter.CourseID ||
			(filter.MessageID != "" && send.MessageID != filter.MessageID) ||
			(filter.RecipientID != 0 && send.RecipientID != filter.RecipientID) {
			continue
		}
		entries = append(entries, mailer.LogEntry{Message: repo.db.messages[send.MessageID], Send: send})
	}
	repo.db.RUnlock()

	firstNames := repo.firstNames()
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Send, entries[j].Send
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case mailer.FieldTimeSent:
				cmp = a.TimeSent.Compare(b.TimeSent)
			case mailer.FieldRecipientFirstName:
				cmp = strings.Compare(firstNames[a.RecipientID], firstNames[b.RecipientID])
			}
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	if entries == nil {
		entries = []mailer.LogEntry{}
	}
	return entries, nil
}

func (repo *mailerRepository) firstNames() map[int64]string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	names := make(map[int64]string, len(repo.users.table))
	for id, usr := range repo.users.table {
		names[id] = usr.FirstName
	}
	return names
}
