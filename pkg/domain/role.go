package domain

import dErrors "larch/pkg/domain-errors"

// AssignedRole names a party's relationship to one application.
type AssignedRole string

const (
	RoleAuthor          AssignedRole = "Author"
	RoleApplicant       AssignedRole = "Applicant"
	RoleAdminOfficer    AssignedRole = "AdminOfficer"
	RoleWoodlandOfficer AssignedRole = "WoodlandOfficer"
	RoleFieldManager    AssignedRole = "FieldManager"
)

var validRoles = map[AssignedRole]bool{
	RoleAuthor:          true,
	RoleApplicant:       true,
	RoleAdminOfficer:    true,
	RoleWoodlandOfficer: true,
	RoleFieldManager:    true,
}

// ExclusiveRoles lists the case-handling roles for which at most one open
// assignment may exist per application. Author and Applicant record the
// external party and are exempt.
var ExclusiveRoles = map[AssignedRole]bool{
	RoleAdminOfficer:    true,
	RoleWoodlandOfficer: true,
	RoleFieldManager:    true,
}

// ParseAssignedRole constructs an AssignedRole from external input.
func ParseAssignedRole(s string) (AssignedRole, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := AssignedRole(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid role %q", s)
	}
	return r, nil
}

func (r AssignedRole) IsValid() bool {
	return validRoles[r]
}

// IsExclusive reports whether the role is subject to the single open
// assignment invariant.
func (r AssignedRole) IsExclusive() bool {
	return ExclusiveRoles[r]
}

// IsExternal reports whether the role records the external party rather than
// case-handling staff.
func (r AssignedRole) IsExternal() bool {
	return r == RoleAuthor || r == RoleApplicant
}

func (r AssignedRole) String() string {
	return string(r)
}
