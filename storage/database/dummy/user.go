package dummydb

import (
	"context"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

// CreateUser stores usr, assigning the next id when usr.ID is 0.
func (repo *userRepository) CreateUser(usr user.User) user.User {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr.ID == 0 {
		repo.db.pk++
		usr.ID = repo.db.pk
	} else if usr.ID > repo.db.pk {
		repo.db.pk = usr.ID
	}
	u := usr
	repo.db.table[usr.ID] = &u
	return usr
}

func (repo *userRepository) GetUser(_ context.Context, id int64, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return *usr, nil
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids []int64, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.table[id]; ok && !seen[id] {
			seen[id] = true
			users = append(users, *usr)
		}
	}
	return users, nil
}
