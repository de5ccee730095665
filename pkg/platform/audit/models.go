package audit

import (
	"context"
	"time"

	id "larch/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: recorded decisions, withdrawals, register publications.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events operators must act on, including any
	// local/external register divergence.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and visibility.
	// These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions on an
// application. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Name          EventName
	Category      EventCategory
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	// ActorID is the user who requested the transition. Zero for the
	// automatic withdrawal sweep, which has no human actor.
	ActorID id.UserID
	// Data carries event-specific detail (owner id, notification flags,
	// register sync outcome). Values must be JSON-serialisable.
	Data map[string]any
}

// EventName identifies an audit event kind.
type EventName string

const (
	EventApplicationAssigned    EventName = "felling_application_assigned"
	EventApplicationApproved    EventName = "felling_application_approved"
	EventApplicationRefused     EventName = "felling_application_refused"
	EventApplicationReferredLRA EventName = "felling_application_referred_to_local_authority"
	EventApplicationReverted    EventName = "felling_application_reverted_to_review"
	EventReturnedToApplicant    EventName = "felling_application_returned_to_applicant"
	EventApplicationWithdrawn   EventName = "felling_application_withdrawn"
	EventWithdrawalReverted     EventName = "felling_application_withdrawal_reverted"
	EventAutomaticWithdrawal    EventName = "felling_application_withdrawn_automatically"

	EventDecisionRegisterPublished   EventName = "decision_register_published"
	EventDecisionRegisterPublishFail EventName = "decision_register_publish_failed"
	EventDecisionRegisterLocalFail   EventName = "decision_register_local_save_failed"
	EventConsultationPublished       EventName = "consultation_register_published"
	EventConsultationRemoved         EventName = "consultation_register_removed"
	EventConsultationRemovalFailed   EventName = "consultation_register_removal_failed"
	EventDecisionRegisterRemoved     EventName = "decision_register_removed"
	EventDecisionRegisterRemovalFail EventName = "decision_register_removal_failed"
)

// eventCategories maps each audit event to its category. Decisions and
// withdrawals carry regulatory weight; register divergence events are routed
// to security so operators get alerted; the rest is operational.
var eventCategories = map[EventName]EventCategory{
	EventApplicationApproved:    CategoryCompliance,
	EventApplicationRefused:     CategoryCompliance,
	EventApplicationReferredLRA: CategoryCompliance,
	EventApplicationWithdrawn:   CategoryCompliance,
	EventAutomaticWithdrawal:    CategoryCompliance,
	EventWithdrawalReverted:     CategoryCompliance,

	EventDecisionRegisterPublishFail: CategorySecurity,
	EventDecisionRegisterLocalFail:   CategorySecurity,
	EventConsultationRemovalFailed:   CategorySecurity,
	EventDecisionRegisterRemovalFail: CategorySecurity,

	EventApplicationAssigned:       CategoryOperations,
	EventApplicationReverted:       CategoryOperations,
	EventReturnedToApplicant:       CategoryOperations,
	EventDecisionRegisterPublished: CategoryOperations,
	EventConsultationPublished:     CategoryOperations,
	EventConsultationRemoved:       CategoryOperations,
	EventDecisionRegisterRemoved:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e EventName) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]Event, error)
}
