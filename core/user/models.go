package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/trezcool/engagement/core"
)

var ErrNotFound = core.NewNotFoundError("user")

// User is the host LMS account of a student or a staff member.
type User struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) MailAddress() mail.Address {
	return mail.Address{Name: u.FullName(), Address: u.Email}
}

type Repository interface {
	GetUser(ctx context.Context, id int64, exec ...core.DBExecutor) (User, error)
	// QueryUsersByID returns the users found among ids, in no particular order.
	QueryUsersByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) ([]User, error)
}
