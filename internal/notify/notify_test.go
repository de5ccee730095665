package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/models"
	id "larch/pkg/domain"
)

type fakeSender struct {
	failFor map[string]error
	sent    []Message
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	if err, ok := f.failFor[msg.Recipient.Email]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type DispatcherSuite struct {
	suite.Suite
	sender *fakeSender
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.sender = &fakeSender{failFor: make(map[string]error)}
}

func (s *DispatcherSuite) delivery(email string, kind models.SubFailureKind, label string) Delivery {
	return Delivery{
		Message: Message{
			Template:  TemplateApplicationDecision,
			Recipient: dirmodels.Account{ID: id.NewUserID(), Email: email},
		},
		FailureKind: kind,
		RoleLabel:   label,
	}
}

func (s *DispatcherSuite) TestAllSendsSucceed() {
	dispatcher := NewDispatcher(s.sender, nil)
	outcome := models.NewCommittedOutcome()

	sent := dispatcher.Dispatch(context.Background(), outcome, []Delivery{
		s.delivery("applicant@estate.test", models.CouldNotSendNotificationToApplicant, "applicant"),
		s.delivery("officer@forestry.test", models.CouldNotSendNotificationToStaff, "assigned staff"),
	})

	s.Equal(2, sent)
	s.True(outcome.IsSuccess())
	s.False(outcome.HasWarnings())
}

func (s *DispatcherSuite) TestOneFailureDoesNotAbortTheRest() {
	s.sender.failFor["applicant@estate.test"] = errors.New("smtp unavailable")
	dispatcher := NewDispatcher(s.sender, nil)
	outcome := models.NewCommittedOutcome()

	sent := dispatcher.Dispatch(context.Background(), outcome, []Delivery{
		s.delivery("applicant@estate.test", models.CouldNotSendNotificationToApplicant, "applicant"),
		s.delivery("officer@forestry.test", models.CouldNotSendNotificationToStaff, "assigned staff"),
		s.delivery("owner@estate.test", models.CouldNotSendNotificationToWoodlandOwner, "woodland owner"),
	})

	s.Equal(2, sent)
	s.True(outcome.IsSuccess(), "primary mutation result is unaffected")

	failures := outcome.SubFailures()
	s.Require().Len(failures, 1)
	s.Equal(models.CouldNotSendNotificationToApplicant, failures[0].Kind)
	s.Contains(failures[0].Detail, "applicant notification failed")
}

func (s *DispatcherSuite) TestFailureOrderIsPreserved() {
	s.sender.failFor["applicant@estate.test"] = errors.New("bounce")
	s.sender.failFor["owner@estate.test"] = errors.New("bounce")
	dispatcher := NewDispatcher(s.sender, nil)
	outcome := models.NewCommittedOutcome()

	dispatcher.Dispatch(context.Background(), outcome, []Delivery{
		s.delivery("applicant@estate.test", models.CouldNotSendNotificationToApplicant, "applicant"),
		s.delivery("owner@estate.test", models.CouldNotSendNotificationToWoodlandOwner, "woodland owner"),
	})

	failures := outcome.SubFailures()
	s.Require().Len(failures, 2)
	s.Equal(models.CouldNotSendNotificationToApplicant, failures[0].Kind)
	s.Equal(models.CouldNotSendNotificationToWoodlandOwner, failures[1].Kind)
}
