package transition

import (
	"context"
	"time"

	"larch/internal/licence/eligibility"
	"larch/internal/licence/models"
	"larch/internal/notify"
	"larch/internal/register"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
	audit "larch/pkg/platform/audit"
)

// runState carries facts across the steps of one transition so the audit
// event can report what actually happened.
type runState struct {
	previousStatus  id.FellingStatus
	previousHolder  id.UserID
	notified        int
	registerOutcome register.Outcome
}

type mutateFn func(s *Service, cmd Command, app *models.Application, now time.Time, run *runState) error

type effectFn func(ctx context.Context, s *Service, cmd Command, app *models.Application, outcome *models.TransitionOutcome, run *runState)

type eventFn func(cmd Command, app *models.Application, run *runState) (audit.Event, bool)

// definition is one edge of the state machine: the primary mutation plus
// its ordered side-effect script. New transitions are added by registering
// a new table entry.
type definition struct {
	mutate  mutateFn
	effects []effectFn
	event   eventFn
}

func transitionTable() map[eligibility.TransitionKind]definition {
	return map[eligibility.TransitionKind]definition{
		eligibility.TransitionRecordDecision: {
			mutate: mutateRecordDecision,
			effects: []effectFn{
				effectNotifyDecision,
				effectPublishDecisionRegister,
			},
			event: eventRecordDecision,
		},
		eligibility.TransitionAssignRole: {
			mutate: mutateAssignRole,
			effects: []effectFn{
				effectNotifyAssignee,
			},
			event: eventAssignRole,
		},
		eligibility.TransitionReturnToPreviousStage: {
			mutate: mutateReturnToPreviousStage,
			effects: []effectFn{
				effectNotifyStaffReturned,
			},
			event: eventReturnToPreviousStage,
		},
		eligibility.TransitionReturnToApplicant: {
			mutate: mutateReturnToApplicant,
			effects: []effectFn{
				effectNotifyApplicantReturned,
			},
			event: eventReturnToApplicant,
		},
		eligibility.TransitionWithdraw: {
			mutate: mutateWithdraw,
			effects: []effectFn{
				effectRemoveFromConsultation,
				effectNotifyApplicantWithdrawn,
			},
			event: eventWithdraw,
		},
		eligibility.TransitionRevertWithdrawal: {
			mutate: mutateRevertWithdrawal,
			effects: []effectFn{
				effectNotifyApplicantWithdrawalReverted,
			},
			event: eventRevertWithdrawal,
		},
	}
}

// roleEntryStatus maps an exclusive-role assignment to the review stage the
// application progresses to when that role is taken up.
var roleEntryStatus = map[id.AssignedRole]id.FellingStatus{
	id.RoleAdminOfficer:    id.StatusAdminOfficerReview,
	id.RoleWoodlandOfficer: id.StatusWoodlandOfficerReview,
	id.RoleFieldManager:    id.StatusSentForApproval,
}

func mutateRecordDecision(_ *Service, cmd Command, app *models.Application, now time.Time, _ *runState) error {
	return app.AppendStatus(cmd.RequestedStatus, cmd.ActingUser.ID, now)
}

func mutateAssignRole(_ *Service, cmd Command, app *models.Application, now time.Time, run *runState) error {
	previous, err := app.OpenAssignment(cmd.TargetRole, cmd.TargetUser.ID, now)
	if err != nil {
		return err
	}
	run.previousHolder = previous
	next, ok := roleEntryStatus[cmd.TargetRole]
	if !ok {
		return nil
	}
	if current, has := app.CurrentStatus(); has && current == next {
		return nil
	}
	return app.AppendStatus(next, cmd.ActingUser.ID, now)
}

func mutateReturnToPreviousStage(_ *Service, cmd Command, app *models.Application, now time.Time, run *runState) error {
	previous, ok := app.NthMostRecentStatus(1)
	if !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "no prior status to return to")
	}
	run.previousStatus = previous
	return app.AppendStatus(previous, cmd.ActingUser.ID, now)
}

func mutateReturnToApplicant(_ *Service, cmd Command, app *models.Application, now time.Time, _ *runState) error {
	return app.AppendStatus(id.StatusWithApplicant, cmd.ActingUser.ID, now)
}

func mutateWithdraw(_ *Service, cmd Command, app *models.Application, now time.Time, _ *runState) error {
	return app.AppendStatus(id.StatusWithdrawn, cmd.ActingUser.ID, now)
}

func mutateRevertWithdrawal(_ *Service, cmd Command, app *models.Application, now time.Time, run *runState) error {
	// The status recorded immediately before withdrawal.
	previous, ok := app.NthMostRecentStatus(1)
	if !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "no pre-withdrawal status recorded")
	}
	run.previousStatus = previous
	return app.AppendStatus(previous, cmd.ActingUser.ID, now)
}

// effectNotifyDecision fans the decision out to the applicant, the assigned
// internal staff, and the woodland-owner contact when distinct from the
// applicant.
func effectNotifyDecision(ctx context.Context, s *Service, cmd Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	data := map[string]any{
		"reference": app.Reference,
		"decision":  cmd.RequestedStatus.String(),
	}
	var deliveries []notify.Delivery
	if applicant := s.resolveAccount(ctx, app.CreatedByID, models.CouldNotSendNotificationToApplicant, "applicant", outcome); applicant != nil {
		deliveries = append(deliveries, notify.Delivery{
			Message:     notify.Message{Template: notify.TemplateApplicationDecision, Recipient: *applicant, Data: data},
			FailureKind: models.CouldNotSendNotificationToApplicant,
			RoleLabel:   "applicant",
		})
	}
	if app.OwnerID != app.CreatedByID && !app.OwnerID.IsNil() {
		if owner := s.resolveAccount(ctx, app.OwnerID, models.CouldNotSendNotificationToWoodlandOwner, "woodland owner", outcome); owner != nil {
			deliveries = append(deliveries, notify.Delivery{
				Message:     notify.Message{Template: notify.TemplateApplicationDecision, Recipient: *owner, Data: data},
				FailureKind: models.CouldNotSendNotificationToWoodlandOwner,
				RoleLabel:   "woodland owner",
			})
		}
	}
	deliveries = append(deliveries, s.staffDeliveries(ctx, app, notify.TemplateApplicationDecision, data, outcome)...)
	run.notified = s.dispatch(ctx, outcome, deliveries)
}

// effectPublishDecisionRegister publishes to the decision phase only when
// the approver review asked for it.
func effectPublishDecisionRegister(ctx context.Context, s *Service, _ Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	if s.registers == nil {
		return
	}
	if app.ApproverReview == nil || !app.ApproverReview.PublishToDecisionRegister {
		return
	}
	result := s.registers.PublishToDecision(ctx, app, outcome)
	run.registerOutcome = result
	switch result {
	case register.OutcomeFailure:
		outcome.AddSubFailure(models.CouldNotPublishToDecisionPublicRegister, "decision register publish failed")
	case register.OutcomeFailedToSaveDecisionDetailsLocally:
		outcome.AddSubFailure(models.CouldNotStoreDecisionDetailsLocally, "decision register details not stored locally")
	}
}

func effectNotifyAssignee(ctx context.Context, s *Service, cmd Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	assignee := s.resolveAccount(ctx, cmd.TargetUser.ID, models.CouldNotSendNotificationToStaff, "assignee", outcome)
	if assignee == nil {
		return
	}
	run.notified = s.dispatch(ctx, outcome, []notify.Delivery{{
		Message: notify.Message{
			Template:  notify.TemplateRoleAssigned,
			Recipient: *assignee,
			Data: map[string]any{
				"reference": app.Reference,
				"role":      cmd.TargetRole.String(),
			},
		},
		FailureKind: models.CouldNotSendNotificationToStaff,
		RoleLabel:   "assignee",
	}})
}

func effectNotifyStaffReturned(ctx context.Context, s *Service, cmd Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	data := map[string]any{
		"reference": app.Reference,
		"status":    run.previousStatus.String(),
		"case_note": cmd.CaseNote,
	}
	run.notified = s.dispatch(ctx, outcome, s.staffDeliveries(ctx, app, notify.TemplateReturnedToReviewStage, data, outcome))
}

func effectNotifyApplicantReturned(ctx context.Context, s *Service, cmd Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	applicant := s.resolveAccount(ctx, app.CreatedByID, models.CouldNotSendNotificationToApplicant, "applicant", outcome)
	if applicant == nil {
		return
	}
	run.notified = s.dispatch(ctx, outcome, []notify.Delivery{{
		Message: notify.Message{
			Template:  notify.TemplateReturnedToApplicant,
			Recipient: *applicant,
			Data: map[string]any{
				"reference": app.Reference,
				"case_note": cmd.CaseNote,
			},
		},
		FailureKind: models.CouldNotSendNotificationToApplicant,
		RoleLabel:   "applicant",
	}})
}

// effectRemoveFromConsultation takes a withdrawn case off the consultation
// phase. Failure is non-blocking here; the scheduled sweep variant of
// withdrawal escalates the same step to a rollback instead.
func effectRemoveFromConsultation(ctx context.Context, s *Service, _ Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	if s.registers == nil {
		return
	}
	result := s.registers.RemoveFromConsultation(ctx, app)
	run.registerOutcome = result
	if result == register.OutcomeFailure {
		outcome.AddSubFailure(models.CouldNotRemoveFromConsultationRegister, "consultation register removal failed")
	}
}

func effectNotifyApplicantWithdrawn(ctx context.Context, s *Service, _ Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	applicant := s.resolveAccount(ctx, app.CreatedByID, models.CouldNotSendNotificationToApplicant, "applicant", outcome)
	if applicant == nil {
		return
	}
	run.notified = s.dispatch(ctx, outcome, []notify.Delivery{{
		Message: notify.Message{
			Template:  notify.TemplateApplicationWithdrawn,
			Recipient: *applicant,
			Data:      map[string]any{"reference": app.Reference},
		},
		FailureKind: models.CouldNotSendNotificationToApplicant,
		RoleLabel:   "applicant",
	}})
}

func effectNotifyApplicantWithdrawalReverted(ctx context.Context, s *Service, _ Command, app *models.Application, outcome *models.TransitionOutcome, run *runState) {
	applicant := s.resolveAccount(ctx, app.CreatedByID, models.CouldNotSendNotificationToApplicant, "applicant", outcome)
	if applicant == nil {
		return
	}
	run.notified = s.dispatch(ctx, outcome, []notify.Delivery{{
		Message: notify.Message{
			Template:  notify.TemplateWithdrawalReverted,
			Recipient: *applicant,
			Data: map[string]any{
				"reference": app.Reference,
				"status":    run.previousStatus.String(),
			},
		},
		FailureKind: models.CouldNotSendNotificationToApplicant,
		RoleLabel:   "applicant",
	}})
}

var decisionEvents = map[id.FellingStatus]audit.EventName{
	id.StatusApproved:                 audit.EventApplicationApproved,
	id.StatusRefused:                  audit.EventApplicationRefused,
	id.StatusReferredToLocalAuthority: audit.EventApplicationReferredLRA,
}

func eventRecordDecision(cmd Command, app *models.Application, run *runState) (audit.Event, bool) {
	name, ok := decisionEvents[cmd.RequestedStatus]
	if !ok {
		return audit.Event{}, false
	}
	return audit.Event{
		Name:          name,
		ApplicationID: app.ID,
		ActorID:       cmd.ActingUser.ID,
		Data: map[string]any{
			"owner_id":         app.OwnerID.String(),
			"creator_id":       app.CreatedByID.String(),
			"notifications":    run.notified,
			"register_outcome": string(run.registerOutcome),
		},
	}, true
}

func eventAssignRole(cmd Command, app *models.Application, run *runState) (audit.Event, bool) {
	data := map[string]any{
		"role":        cmd.TargetRole.String(),
		"assigned_to": cmd.TargetUser.ID.String(),
	}
	if !run.previousHolder.IsNil() {
		data["previous_holder"] = run.previousHolder.String()
	}
	return audit.Event{
		Name:          audit.EventApplicationAssigned,
		ApplicationID: app.ID,
		ActorID:       cmd.ActingUser.ID,
		Data:          data,
	}, true
}

func eventReturnToPreviousStage(cmd Command, app *models.Application, run *runState) (audit.Event, bool) {
	return audit.Event{
		Name:          audit.EventApplicationReverted,
		ApplicationID: app.ID,
		ActorID:       cmd.ActingUser.ID,
		Data:          map[string]any{"to_status": run.previousStatus.String()},
	}, true
}

func eventReturnToApplicant(cmd Command, app *models.Application, _ *runState) (audit.Event, bool) {
	return audit.Event{
		Name:          audit.EventReturnedToApplicant,
		ApplicationID: app.ID,
		ActorID:       cmd.ActingUser.ID,
	}, true
}

func eventWithdraw(cmd Command, app *models.Application, run *runState) (audit.Event, bool) {
	return audit.Event{
		Name:          audit.EventApplicationWithdrawn,
		ApplicationID: app.ID,
		ActorID:       cmd.ActingUser.ID,
		Data:          map[string]any{"register_outcome": string(run.registerOutcome)},
	}, true
}

func eventRevertWithdrawal(cmd Command, app *models.Application, run *runState) (audit.Event, bool) {
	return audit.Event{
		Name:          audit.EventWithdrawalReverted,
		ApplicationID: app.ID,
		ActorID:       cmd.ActingUser.ID,
		Data:          map[string]any{"restored_status": run.previousStatus.String()},
	}, true
}
