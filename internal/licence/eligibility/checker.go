// Package eligibility decides whether a requested transition is legal and
// whether the acting user may request it. The checker is a pure function
// over an application snapshot: no I/O, no clock, no logger. The decision is
// only valid for the snapshot it was computed against.
package eligibility

import (
	"time"

	"larch/internal/licence/models"
	id "larch/pkg/domain"
)

// TransitionKind names a requested change.
type TransitionKind string

const (
	TransitionAssignRole            TransitionKind = "AssignRole"
	TransitionRecordDecision        TransitionKind = "RecordDecision"
	TransitionReturnToPreviousStage TransitionKind = "ReturnToPreviousStage"
	TransitionReturnToApplicant     TransitionKind = "ReturnToApplicant"
	TransitionWithdraw              TransitionKind = "Withdraw"
	TransitionRevertWithdrawal      TransitionKind = "RevertWithdrawal"
)

// DenialReason is the named reason returned with a denied decision.
type DenialReason string

const (
	ReasonNone                             DenialReason = ""
	ReasonNoStatusRecorded                 DenialReason = "NoStatusRecorded"
	ReasonApplicationCompleted             DenialReason = "ApplicationCompleted"
	ReasonIncorrectFellingApplicationState DenialReason = "IncorrectFellingApplicationState"
	ReasonUserNotAssignedFieldManager      DenialReason = "UserNotAssignedFieldManager"
	ReasonApproverReviewMissing            DenialReason = "ApproverReviewMissing"
	ReasonRequestedStatusNotADecision      DenialReason = "RequestedStatusNotADecision"
	ReasonTargetUserCannotApprove          DenialReason = "TargetUserCannotApprove"
	ReasonTargetUserIsCreator              DenialReason = "TargetUserIsCreator"
	ReasonPriorStatusNotReviewStage        DenialReason = "PriorStatusNotReviewStage"
	ReasonNotAdministrator                 DenialReason = "NotAdministrator"
	ReasonUnknownTransition                DenialReason = "UnknownTransition"
)

// Actor is the identity and account classification of a user named in a
// request, resolved by the caller through the directory.
type Actor struct {
	ID          id.UserID
	AccountType id.AccountType
}

// Request carries everything a decision needs. Only the fields relevant to
// the Kind are consulted.
type Request struct {
	Application *models.Application
	ActingUser  Actor
	Kind        TransitionKind

	// RequestedStatus is the outcome for RecordDecision requests.
	RequestedStatus id.FellingStatus

	// TargetRole and TargetUser describe the assignment for AssignRole.
	TargetRole id.AssignedRole
	TargetUser Actor
}

// Decision is the checker's answer.
type Decision struct {
	Allowed bool
	Reason  DenialReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenialReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Rules is the explicit status membership configuration. Tests can narrow or
// extend the sets without touching package state.
type Rules struct {
	Completed map[id.FellingStatus]bool
	Decisions map[id.FellingStatus]bool
	Reviews   map[id.FellingStatus]bool
}

// DefaultRules mirrors the supported lifecycle.
func DefaultRules() Rules {
	return Rules{
		Completed: id.CompletedStatuses,
		Decisions: id.DecisionStatuses,
		Reviews:   id.ReviewStatuses,
	}
}

// Checker evaluates transition requests against a rule set.
type Checker struct {
	rules Rules
}

func NewChecker(rules Rules) *Checker {
	return &Checker{rules: rules}
}

// Check returns Allowed, or Denied with a named reason. It never mutates the
// application.
func (c *Checker) Check(req Request) Decision {
	current, ok := req.Application.CurrentStatus()
	if !ok {
		return deny(ReasonNoStatusRecorded)
	}

	switch req.Kind {
	case TransitionAssignRole:
		return c.checkAssignRole(req, current)
	case TransitionRecordDecision:
		return c.checkRecordDecision(req, current)
	case TransitionReturnToPreviousStage:
		return c.checkReturnToPreviousStage(req, current)
	case TransitionReturnToApplicant:
		return c.checkReturnToApplicant(current)
	case TransitionWithdraw:
		return c.checkWithdraw(current)
	case TransitionRevertWithdrawal:
		return c.checkRevertWithdrawal(req, current)
	default:
		return deny(ReasonUnknownTransition)
	}
}

// checkAssignRole guards progressing an application to a review stage by
// assigning a case handler. Completed applications take no further staff.
// The FieldManager role has two extra guards: the target needs approval
// capability, and the application's own creator may never approve it.
func (c *Checker) checkAssignRole(req Request, current id.FellingStatus) Decision {
	if c.rules.Completed[current] {
		return deny(ReasonApplicationCompleted)
	}
	if req.TargetRole == id.RoleFieldManager {
		if !req.TargetUser.AccountType.CanApprove() {
			return deny(ReasonTargetUserCannotApprove)
		}
		if req.TargetUser.ID == req.Application.CreatedByID {
			return deny(ReasonTargetUserIsCreator)
		}
	}
	return allow()
}

// checkRecordDecision allows Approve/Refuse/Refer only from SentForApproval,
// only by the open FieldManager, and only once an approver review exists.
func (c *Checker) checkRecordDecision(req Request, current id.FellingStatus) Decision {
	if !c.rules.Decisions[req.RequestedStatus] {
		return deny(ReasonRequestedStatusNotADecision)
	}
	if current != id.StatusSentForApproval {
		return deny(ReasonIncorrectFellingApplicationState)
	}
	if !req.Application.HoldsOpenAssignment(id.RoleFieldManager, req.ActingUser.ID) {
		return deny(ReasonUserNotAssignedFieldManager)
	}
	if req.Application.ApproverReview == nil {
		return deny(ReasonApproverReviewMissing)
	}
	return allow()
}

// checkReturnToPreviousStage allows the field manager to send the case back
// one step, but only to a review stage.
func (c *Checker) checkReturnToPreviousStage(req Request, current id.FellingStatus) Decision {
	if current != id.StatusSentForApproval {
		return deny(ReasonIncorrectFellingApplicationState)
	}
	previous, ok := req.Application.NthMostRecentStatus(1)
	if !ok || !c.rules.Reviews[previous] {
		return deny(ReasonPriorStatusNotReviewStage)
	}
	if !req.Application.HoldsOpenAssignment(id.RoleFieldManager, req.ActingUser.ID) {
		return deny(ReasonUserNotAssignedFieldManager)
	}
	return allow()
}

func (c *Checker) checkReturnToApplicant(current id.FellingStatus) Decision {
	if c.rules.Completed[current] {
		return deny(ReasonApplicationCompleted)
	}
	return allow()
}

func (c *Checker) checkWithdraw(current id.FellingStatus) Decision {
	if c.rules.Completed[current] {
		return deny(ReasonApplicationCompleted)
	}
	return allow()
}

// checkRevertWithdrawal is the single administrator-only escape from the
// Withdrawn status. Assignment state is irrelevant here.
func (c *Checker) checkRevertWithdrawal(req Request, current id.FellingStatus) Decision {
	if current != id.StatusWithdrawn {
		return deny(ReasonIncorrectFellingApplicationState)
	}
	if !req.ActingUser.AccountType.IsAdministrator() {
		return deny(ReasonNotAdministrator)
	}
	return allow()
}

// EligibleForAutomaticWithdrawal is the time-based rule evaluated by the
// scheduled sweep rather than per request. There is no acting user.
func EligibleForAutomaticWithdrawal(app *models.Application, threshold time.Duration, now time.Time) bool {
	current, ok := app.CurrentStatus()
	if !ok || current != id.StatusWithApplicant {
		return false
	}
	since, ok := app.CurrentStatusSince()
	if !ok {
		return false
	}
	return now.Sub(since) > threshold
}
