package domain

import dErrors "larch/pkg/domain-errors"

// FellingStatus is a stage in a felling licence application's lifecycle.
// Invariant: the value must be one of the supported statuses.
type FellingStatus string

const (
	StatusDraft                    FellingStatus = "Draft"
	StatusSubmitted                FellingStatus = "Submitted"
	StatusAdminOfficerReview       FellingStatus = "AdminOfficerReview"
	StatusWithApplicant            FellingStatus = "WithApplicant"
	StatusWoodlandOfficerReview    FellingStatus = "WoodlandOfficerReview"
	StatusSentForApproval          FellingStatus = "SentForApproval"
	StatusApproved                 FellingStatus = "Approved"
	StatusRefused                  FellingStatus = "Refused"
	StatusReferredToLocalAuthority FellingStatus = "ReferredToLocalAuthority"
	StatusWithdrawn                FellingStatus = "Withdrawn"
	StatusReturnedToApplicant      FellingStatus = "ReturnedToApplicant"
)

// validStatuses is the single source of truth for supported statuses.
var validStatuses = map[FellingStatus]bool{
	StatusDraft:                    true,
	StatusSubmitted:                true,
	StatusAdminOfficerReview:       true,
	StatusWithApplicant:            true,
	StatusWoodlandOfficerReview:    true,
	StatusSentForApproval:          true,
	StatusApproved:                 true,
	StatusRefused:                  true,
	StatusReferredToLocalAuthority: true,
	StatusWithdrawn:                true,
	StatusReturnedToApplicant:      true,
}

// CompletedStatuses lists the statuses from which no ordinary transition is
// available. Membership is passed explicitly to the eligibility checker
// rather than consulted as ambient state.
var CompletedStatuses = map[FellingStatus]bool{
	StatusWithdrawn: true,
	StatusApproved:  true,
	StatusRefused:   true,
}

// DecisionStatuses lists the outcomes an approver may record.
var DecisionStatuses = map[FellingStatus]bool{
	StatusApproved:                 true,
	StatusRefused:                  true,
	StatusReferredToLocalAuthority: true,
}

// ReviewStatuses lists the internal review stages the revert transition may
// step back to.
var ReviewStatuses = map[FellingStatus]bool{
	StatusAdminOfficerReview:    true,
	StatusWoodlandOfficerReview: true,
}

// ParseFellingStatus constructs a FellingStatus from external input.
func ParseFellingStatus(s string) (FellingStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := FellingStatus(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid status %q", s)
	}
	return st, nil
}

func (s FellingStatus) IsValid() bool {
	return validStatuses[s]
}

// IsCompleted reports whether the status belongs to the completed set.
func (s FellingStatus) IsCompleted() bool {
	return CompletedStatuses[s]
}

// IsDecision reports whether the status is a recorded approver outcome.
func (s FellingStatus) IsDecision() bool {
	return DecisionStatuses[s]
}

func (s FellingStatus) String() string {
	return string(s)
}
