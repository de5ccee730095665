package models

import (
	"time"

	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

// PublicRegisterState is the local cached view of the application's presence
// on the external public register. It is mutated only by the register
// synchronizer, and only after the external call has been confirmed. Every
// timestamp field may be set at most once.
type PublicRegisterState struct {
	// CorrelationID is the external register's case identifier, assigned on
	// consultation publication. Nil until then.
	CorrelationID *id.CorrelationID

	ConsultationPublishedAt *time.Time
	ConsultationExpiresAt   *time.Time
	ConsultationRemovedAt   *time.Time

	DecisionPublishedAt *time.Time
	DecisionExpiresAt   *time.Time
	DecisionRemovedAt   *time.Time

	// ExemptFromConsultation is set by the woodland officer during review;
	// while true no decision-phase publication may be attempted.
	ExemptFromConsultation bool
}

// OnConsultationRegister reports whether the case is currently listed in the
// consultation phase.
func (s *PublicRegisterState) OnConsultationRegister() bool {
	return s.ConsultationPublishedAt != nil && s.ConsultationRemovedAt == nil
}

// OnDecisionRegister reports whether the case is currently listed in the
// decision phase.
func (s *PublicRegisterState) OnDecisionRegister() bool {
	return s.DecisionPublishedAt != nil && s.DecisionRemovedAt == nil
}

// RecordConsultationPublished records a confirmed consultation publication.
func (s *PublicRegisterState) RecordConsultationPublished(correlationID id.CorrelationID, publishedAt, expiresAt time.Time) error {
	if s.ConsultationPublishedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "consultation publication already recorded")
	}
	s.CorrelationID = &correlationID
	s.ConsultationPublishedAt = &publishedAt
	s.ConsultationExpiresAt = &expiresAt
	return nil
}

// RecordConsultationRemoved records a confirmed consultation removal.
func (s *PublicRegisterState) RecordConsultationRemoved(removedAt time.Time) error {
	if s.ConsultationPublishedAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "consultation publication not recorded")
	}
	if s.ConsultationRemovedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "consultation removal already recorded")
	}
	s.ConsultationRemovedAt = &removedAt
	return nil
}

// RecordDecisionPublished records a confirmed decision publication.
func (s *PublicRegisterState) RecordDecisionPublished(publishedAt, expiresAt time.Time) error {
	if s.ExemptFromConsultation {
		return dErrors.New(dErrors.CodeInvariantViolation, "application is exempt from public register publication")
	}
	if s.DecisionPublishedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "decision publication already recorded")
	}
	s.DecisionPublishedAt = &publishedAt
	s.DecisionExpiresAt = &expiresAt
	return nil
}

// RecordDecisionRemoved records a confirmed decision removal.
func (s *PublicRegisterState) RecordDecisionRemoved(removedAt time.Time) error {
	if s.DecisionPublishedAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "decision publication not recorded")
	}
	if s.DecisionRemovedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "decision removal already recorded")
	}
	s.DecisionRemovedAt = &removedAt
	return nil
}

func (s PublicRegisterState) clone() PublicRegisterState {
	clone := s
	clone.CorrelationID = cloneID(s.CorrelationID)
	clone.ConsultationPublishedAt = cloneTime(s.ConsultationPublishedAt)
	clone.ConsultationExpiresAt = cloneTime(s.ConsultationExpiresAt)
	clone.ConsultationRemovedAt = cloneTime(s.ConsultationRemovedAt)
	clone.DecisionPublishedAt = cloneTime(s.DecisionPublishedAt)
	clone.DecisionExpiresAt = cloneTime(s.DecisionExpiresAt)
	clone.DecisionRemovedAt = cloneTime(s.DecisionRemovedAt)
	return clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneID(v *id.CorrelationID) *id.CorrelationID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
