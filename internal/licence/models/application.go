// Package models holds the felling licence application aggregate. The status
// ledger and assignment registry are append-only: history entries are never
// mutated or removed, and every "current" view is derived.
package models

import (
	"sort"
	"time"

	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

// StatusEntry is one appended status record. CreatedBy is zero for system
// transitions such as the automatic withdrawal sweep.
type StatusEntry struct {
	Status    id.FellingStatus
	CreatedAt time.Time
	CreatedBy id.UserID
}

// AssignmentEntry binds a role to a user over a half-open interval. A nil
// UnassignedAt means the entry is the current binding for its role.
type AssignmentEntry struct {
	Role         id.AssignedRole
	UserID       id.UserID
	AssignedAt   time.Time
	UnassignedAt *time.Time
}

// Open reports whether the entry is still the current binding.
func (e AssignmentEntry) Open() bool {
	return e.UnassignedAt == nil
}

// Application is the aggregate root owned by the transition orchestrator for
// the duration of one transition and persisted between operations.
type Application struct {
	ID          id.ApplicationID
	Reference   string
	OwnerID     id.UserID
	CreatedByID id.UserID
	Region      string

	StatusHistory     []StatusEntry
	AssignmentHistory []AssignmentEntry
	PublicRegister    PublicRegisterState
	ApproverReview    *ApproverReview

	// Version is the optimistic concurrency token checked on Save. A
	// transition decided against a stale snapshot must be rejected, not
	// silently applied.
	Version int64
}

// ApproverReview records the field manager's pre-decision review. Its
// presence is a prerequisite for recording a decision.
type ApproverReview struct {
	CompletedByID             id.UserID
	CompletedAt               time.Time
	PublishToDecisionRegister bool
}

// AppendStatus appends a new ledger entry. It performs no legality check;
// transition rules belong to the eligibility checker.
func (a *Application) AppendStatus(status id.FellingStatus, actingUser id.UserID, now time.Time) error {
	if !status.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid status %q", status)
	}
	a.StatusHistory = append(a.StatusHistory, StatusEntry{
		Status:    status,
		CreatedAt: now,
		CreatedBy: actingUser,
	})
	return nil
}

// CurrentStatus is the entry with the maximum creation timestamp. Ties go to
// the later appended entry. Returns false when no status has been recorded.
func (a *Application) CurrentStatus() (id.FellingStatus, bool) {
	entry, ok := a.currentStatusEntry()
	if !ok {
		return "", false
	}
	return entry.Status, true
}

// CurrentStatusSince returns the timestamp of the current status entry, used
// for time-in-status threshold checks.
func (a *Application) CurrentStatusSince() (time.Time, bool) {
	entry, ok := a.currentStatusEntry()
	if !ok {
		return time.Time{}, false
	}
	return entry.CreatedAt, true
}

func (a *Application) currentStatusEntry() (StatusEntry, bool) {
	if len(a.StatusHistory) == 0 {
		return StatusEntry{}, false
	}
	best := a.StatusHistory[0]
	for _, e := range a.StatusHistory[1:] {
		if !e.CreatedAt.Before(best.CreatedAt) {
			best = e
		}
	}
	return best, true
}

// NthMostRecentStatus walks the distinct status sequence backwards from the
// current entry: n=0 is the current status, n=1 the status one position back.
// Consecutive entries with the same value collapse into one position.
func (a *Application) NthMostRecentStatus(n int) (id.FellingStatus, bool) {
	if n < 0 || len(a.StatusHistory) == 0 {
		return "", false
	}
	ordered := make([]StatusEntry, len(a.StatusHistory))
	copy(ordered, a.StatusHistory)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	var distinct []id.FellingStatus
	for _, e := range ordered {
		if len(distinct) == 0 || distinct[len(distinct)-1] != e.Status {
			distinct = append(distinct, e.Status)
		}
	}
	if n >= len(distinct) {
		return "", false
	}
	return distinct[n], true
}

// OpenAssignment opens a new assignment entry. For exclusive roles any
// existing open entry for the role is closed first, as a single atomic
// replace; the previous holder is returned so callers can notify them.
func (a *Application) OpenAssignment(role id.AssignedRole, user id.UserID, now time.Time) (previous id.UserID, err error) {
	if !role.IsValid() {
		return id.UserID{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid role %q", role)
	}
	if user.IsNil() {
		return id.UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if role.IsExclusive() {
		for i := range a.AssignmentHistory {
			e := &a.AssignmentHistory[i]
			if e.Role == role && e.Open() {
				previous = e.UserID
				closedAt := now
				e.UnassignedAt = &closedAt
			}
		}
	}
	a.AssignmentHistory = append(a.AssignmentHistory, AssignmentEntry{
		Role:       role,
		UserID:     user,
		AssignedAt: now,
	})
	return previous, nil
}

// CloseAssignment closes the open entry for (role, user). Closed entries are
// immutable; closing an already-closed or absent entry is a no-op reported
// via NotFound.
func (a *Application) CloseAssignment(role id.AssignedRole, user id.UserID, now time.Time) error {
	for i := range a.AssignmentHistory {
		e := &a.AssignmentHistory[i]
		if e.Role == role && e.UserID == user && e.Open() {
			closedAt := now
			e.UnassignedAt = &closedAt
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeNotFound, "no open %s assignment for user %s", role, user)
}

// CurrentHolder returns the user with an open assignment for the role.
func (a *Application) CurrentHolder(role id.AssignedRole) (id.UserID, bool) {
	for i := len(a.AssignmentHistory) - 1; i >= 0; i-- {
		e := a.AssignmentHistory[i]
		if e.Role == role && e.Open() {
			return e.UserID, true
		}
	}
	return id.UserID{}, false
}

// HoldsOpenAssignment reports whether the user currently holds the role.
func (a *Application) HoldsOpenAssignment(role id.AssignedRole, user id.UserID) bool {
	for _, e := range a.AssignmentHistory {
		if e.Role == role && e.UserID == user && e.Open() {
			return true
		}
	}
	return false
}

// HistoryForRole returns every entry for the role in append order.
func (a *Application) HistoryForRole(role id.AssignedRole) []AssignmentEntry {
	var entries []AssignmentEntry
	for _, e := range a.AssignmentHistory {
		if e.Role == role {
			entries = append(entries, e)
		}
	}
	return entries
}

// AssignedStaff returns the users holding open case-handling assignments,
// excluding the external Author and Applicant entries. Each user appears
// once.
func (a *Application) AssignedStaff() []id.UserID {
	seen := make(map[id.UserID]bool)
	var staff []id.UserID
	for _, e := range a.AssignmentHistory {
		if e.Role.IsExternal() || !e.Open() || seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		staff = append(staff, e.UserID)
	}
	return staff
}

// CanBeReturnedToApplicant reports whether the application is still live
// enough to hand back to the applicant.
func (a *Application) CanBeReturnedToApplicant() bool {
	current, ok := a.CurrentStatus()
	if !ok {
		return false
	}
	return !current.IsCompleted()
}

// Clone deep-copies the aggregate so stores can hand out snapshots without
// aliasing history slices.
func (a *Application) Clone() *Application {
	clone := *a
	clone.StatusHistory = append([]StatusEntry(nil), a.StatusHistory...)
	clone.AssignmentHistory = make([]AssignmentEntry, len(a.AssignmentHistory))
	for i, e := range a.AssignmentHistory {
		clone.AssignmentHistory[i] = e
		if e.UnassignedAt != nil {
			t := *e.UnassignedAt
			clone.AssignmentHistory[i].UnassignedAt = &t
		}
	}
	clone.PublicRegister = a.PublicRegister.clone()
	if a.ApproverReview != nil {
		review := *a.ApproverReview
		clone.ApproverReview = &review
	}
	return &clone
}
