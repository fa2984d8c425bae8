package mailer

import (
	"strings"

	"github.com/trezcool/engagement/core/user"
)

const (
	VarFirstName = "{#FIRSTNAME#}"
	VarLastName  = "{#LASTNAME#}"
	VarFullName  = "{#FULLNAME#}"
)

// Variables returns the supported variables and what they are replaced with.
func Variables() map[string]string {
	return map[string]string{
		VarFirstName: "Recipient's first name",
		VarLastName:  "Recipient's last name",
		VarFullName:  "Recipient's full name",
	}
}

// ReplaceVariables fills text's variables with usr's details.
func ReplaceVariables(text string, usr user.User) string {
	return strings.NewReplacer(
		VarFirstName, usr.FirstName,
		VarLastName, usr.LastName,
		VarFullName, usr.FullName(),
	).Replace(text)
}
