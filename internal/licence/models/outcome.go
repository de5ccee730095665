package models

import "fmt"

// SubFailureKind names a secondary step that did not complete. These are the
// outcome kinds callers branch on; Detail carries context for humans.
type SubFailureKind string

const (
	CouldNotSendNotificationToApplicant     SubFailureKind = "CouldNotSendNotificationToApplicant"
	CouldNotSendNotificationToStaff         SubFailureKind = "CouldNotSendNotificationToStaff"
	CouldNotSendNotificationToWoodlandOwner SubFailureKind = "CouldNotSendNotificationToWoodlandOwner"
	CouldNotPublishToDecisionPublicRegister SubFailureKind = "CouldNotPublishToDecisionPublicRegister"
	CouldNotStoreDecisionDetailsLocally     SubFailureKind = "CouldNotStoreDecisionDetailsLocally"
	CouldNotRemoveFromConsultationRegister  SubFailureKind = "CouldNotRemoveFromConsultationPublicRegister"
	CouldNotRemoveFromDecisionRegister      SubFailureKind = "CouldNotRemoveFromDecisionPublicRegister"
)

// SubFailure is one named non-blocking failure.
type SubFailure struct {
	Kind   SubFailureKind
	Detail string
}

func (f SubFailure) String() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// TransitionOutcome is the aggregate result returned for one transition
// request. IsSuccess reflects only whether the primary status/assignment
// mutation committed; sub-failures enumerate secondary steps that did not
// complete. Created fresh per invocation and never persisted.
type TransitionOutcome struct {
	committed   bool
	subFailures []SubFailure
}

// NewCommittedOutcome marks the primary mutation as committed.
func NewCommittedOutcome() *TransitionOutcome {
	return &TransitionOutcome{committed: true}
}

// AddSubFailure appends a named non-blocking failure, preserving order.
func (o *TransitionOutcome) AddSubFailure(kind SubFailureKind, detail string) {
	o.subFailures = append(o.subFailures, SubFailure{Kind: kind, Detail: detail})
}

// IsSuccess reports whether the primary mutation committed.
func (o *TransitionOutcome) IsSuccess() bool {
	return o.committed
}

// HasWarnings reports whether any secondary step failed.
func (o *TransitionOutcome) HasWarnings() bool {
	return len(o.subFailures) > 0
}

// SubFailures returns the ordered list of non-blocking failures.
func (o *TransitionOutcome) SubFailures() []SubFailure {
	return append([]SubFailure(nil), o.subFailures...)
}

// HasSubFailure reports whether a failure of the given kind was recorded.
func (o *TransitionOutcome) HasSubFailure(kind SubFailureKind) bool {
	for _, f := range o.subFailures {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
