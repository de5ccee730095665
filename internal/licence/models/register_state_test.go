package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

type RegisterStateSuite struct {
	suite.Suite
	state PublicRegisterState
	now   time.Time
}

func TestRegisterStateSuite(t *testing.T) {
	suite.Run(t, new(RegisterStateSuite))
}

func (s *RegisterStateSuite) SetupTest() {
	s.state = PublicRegisterState{}
	s.now = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
}

func (s *RegisterStateSuite) TestConsultationLifecycle() {
	correlationID := id.NewCorrelationID()

	s.Run("publication records correlation id and timestamps once", func() {
		err := s.state.RecordConsultationPublished(correlationID, s.now, s.now.AddDate(0, 1, 0))
		s.Require().NoError(err)
		s.True(s.state.OnConsultationRegister())
		s.Equal(correlationID, *s.state.CorrelationID)

		err = s.state.RecordConsultationPublished(correlationID, s.now, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("removal requires prior publication and records once", func() {
		err := s.state.RecordConsultationRemoved(s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.False(s.state.OnConsultationRegister())

		err = s.state.RecordConsultationRemoved(s.now.Add(2 * time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *RegisterStateSuite) TestRemovalWithoutPublication() {
	err := s.state.RecordConsultationRemoved(s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	err = s.state.RecordDecisionRemoved(s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *RegisterStateSuite) TestDecisionPublicationBlockedWhileExempt() {
	s.state.ExemptFromConsultation = true
	err := s.state.RecordDecisionPublished(s.now, s.now.AddDate(0, 0, 28))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Nil(s.state.DecisionPublishedAt)
}

func (s *RegisterStateSuite) TestDecisionLifecycle() {
	err := s.state.RecordDecisionPublished(s.now, s.now.AddDate(0, 0, 28))
	s.Require().NoError(err)
	s.True(s.state.OnDecisionRegister())

	err = s.state.RecordDecisionPublished(s.now, s.now)
	s.Require().Error(err)

	err = s.state.RecordDecisionRemoved(s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(s.state.OnDecisionRegister())
}
