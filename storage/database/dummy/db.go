package dummydb

import (
	"sync"

	"github.com/trezcool/engagement/core/engagement"
	"github.com/trezcool/engagement/core/mailer"
	"github.com/trezcool/engagement/core/user"
)

type (
	// DB is an in-memory stand-in for the SQL database. Rows keep their insertion order.
	DB struct {
		user       *userTable
		engagement *engagementTables
		mailer     *mailerTables
	}

	userTable struct {
		sync.RWMutex
		table map[int64]*user.User
		pk    int64
	}

	engagementTables struct {
		sync.RWMutex
		weights []*engagement.IndicatorWeight
		generic []*engagement.GenericSetting
	}

	mailerTables struct {
		sync.RWMutex
		messages map[string]mailer.Message
		sends    []mailer.SendLog
		saved    []mailer.SavedMessage
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int64]*user.User)},
		engagement: &engagementTables{},
		mailer:     &mailerTables{messages: make(map[string]mailer.Message)},
	}
	return db, nil
}
