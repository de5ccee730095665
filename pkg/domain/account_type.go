package domain

import dErrors "larch/pkg/domain-errors"

// AccountType classifies a directory account. It drives the two privilege
// checks the lifecycle rules need: administrator escalation and approval
// capability.
type AccountType string

const (
	AccountAdministrator   AccountType = "Administrator"
	AccountAdminOfficer    AccountType = "AdminOfficer"
	AccountWoodlandOfficer AccountType = "WoodlandOfficer"
	AccountFieldManager    AccountType = "FieldManager"
	AccountExternal        AccountType = "External"
)

var validAccountTypes = map[AccountType]bool{
	AccountAdministrator:   true,
	AccountAdminOfficer:    true,
	AccountWoodlandOfficer: true,
	AccountFieldManager:    true,
	AccountExternal:        true,
}

// ParseAccountType constructs an AccountType from external input.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !validAccountTypes[t] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid account type %q", s)
	}
	return t, nil
}

// CanApprove reports whether accounts of this type may hold the FieldManager
// role and record decisions.
func (t AccountType) CanApprove() bool {
	return t == AccountFieldManager || t == AccountAdministrator
}

// IsAdministrator reports whether the account may use administrator-only
// transitions such as reverting a withdrawal.
func (t AccountType) IsAdministrator() bool {
	return t == AccountAdministrator
}
