package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/user"
)

const (
	getUser        = `SELECT id, first_name, last_name, email FROM users WHERE id = $1`
	queryUsersByID = `SELECT id, first_name, last_name, email FROM users WHERE id = ANY($1)`
)

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repo{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (r userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return core.NewStoreError(err, msg)
}

func (r userRepository) GetUser(ctx context.Context, id int64, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	if err := sqlx.GetContext(ctx, r.getExec(exec), &usr, getUser, id); err != nil {
		return user.User{}, r.trapNoRowsErr(err, "finding user by ID")
	}
	return usr, nil
}

func (r userRepository) QueryUsersByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &users, queryUsersByID, pq.Array(ids)); err != nil {
		return nil, core.NewStoreError(err, "querying users")
	}
	return users, nil
}
