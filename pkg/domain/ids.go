// Package domain holds identifier and enumeration types shared by every
// layer. Construct values via the Parse helpers at trust boundaries; direct
// conversion bypasses validation.
package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"

	dErrors "larch/pkg/domain-errors"
)

// ApplicationID identifies a felling licence application aggregate.
type ApplicationID uuid.UUID

// UserID identifies an account in either the internal or external directory.
type UserID uuid.UUID

// CorrelationID is the external public register's identifier for a case. The
// register assigns it on first (consultation) publication.
type CorrelationID uuid.UUID

func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }
func NewUserID() UserID               { return UserID(uuid.New()) }
func NewCorrelationID() CorrelationID { return CorrelationID(uuid.New()) }

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id CorrelationID) String() string { return uuid.UUID(id).String() }

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CorrelationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ApplicationID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id UserID) Value() (driver.Value, error)        { return uuid.UUID(id).Value() }
func (id CorrelationID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *ApplicationID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *UserID) Scan(src any) error        { return (*uuid.UUID)(id).Scan(src) }
func (id *CorrelationID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseApplicationID constructs an ApplicationID from external input.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid application id")
	}
	return ApplicationID(u), nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(u), nil
}
