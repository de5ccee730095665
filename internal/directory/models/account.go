package models

import (
	"strings"

	id "larch/pkg/domain"
)

// Account is a directory record for either internal staff or an external
// party. Both directories share this shape.
type Account struct {
	ID        id.UserID
	Email     string
	FirstName string
	LastName  string
	Type      id.AccountType
}

// FullName joins the name parts, falling back to the email address when the
// directory holds no name.
func (a Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Email
	}
	return name
}
