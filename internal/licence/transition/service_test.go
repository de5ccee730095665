package transition_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/eligibility"
	"larch/internal/licence/models"
	"larch/internal/licence/transition"
	"larch/internal/licence/transition/mocks"
	"larch/internal/notify"
	"larch/internal/register"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

type fakeRepo struct {
	apps    map[id.ApplicationID]*models.Application
	saveErr error
	saves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{apps: map[id.ApplicationID]*models.Application{}}
}

func (r *fakeRepo) Get(_ context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	app, ok := r.apps[applicationID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return app.Clone(), nil
}

func (r *fakeRepo) Save(_ context.Context, app *models.Application) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.apps[app.ID] = app.Clone()
	return nil
}

func (r *fakeRepo) ListByStatus(context.Context, id.FellingStatus) ([]*models.Application, error) {
	return nil, errors.New("not implemented")
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

// failingSender fails sends addressed to the listed recipients and delivers
// the rest.
type failingSender struct {
	failFor map[string]bool
	sent    []notify.Message
}

func (s *failingSender) Send(_ context.Context, msg notify.Message) error {
	if s.failFor[msg.Recipient.Email] {
		return errors.New("delivery failed")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type TransitionSuite struct {
	suite.Suite
	ctx  context.Context
	ctrl *gomock.Controller

	repo      *fakeRepo
	registers *mocks.MockRegisterSynchronizer
	directory *mocks.MockAccountResolver
	sender    *failingSender
	now       time.Time

	applicant    id.UserID
	fieldManager id.UserID
	admin        eligibility.Actor
}

func TestTransitionSuite(t *testing.T) {
	suite.Run(t, new(TransitionSuite))
}

func (s *TransitionSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.repo = newFakeRepo()
	s.registers = mocks.NewMockRegisterSynchronizer(s.ctrl)
	s.directory = mocks.NewMockAccountResolver(s.ctrl)
	s.sender = &failingSender{failFor: map[string]bool{}}
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.applicant = id.NewUserID()
	s.fieldManager = id.NewUserID()
	s.admin = eligibility.Actor{ID: id.NewUserID(), AccountType: id.AccountAdministrator}
}

func (s *TransitionSuite) newService() *transition.Service {
	svc, err := transition.New(s.repo, nil, fixedClock{at: s.now},
		transition.WithRegisterSynchronizer(s.registers),
		transition.WithDispatcher(notify.NewDispatcher(s.sender, nil), s.directory),
	)
	s.Require().NoError(err)
	return svc
}

// sentForApproval seeds an application ready for a decision: prior review
// stage, open FieldManager assignment, approver review recorded.
func (s *TransitionSuite) sentForApproval(publish bool) *models.Application {
	app := &models.Application{
		ID:          id.NewApplicationID(),
		Reference:   "FLA-2026-0042",
		OwnerID:     s.applicant,
		CreatedByID: s.applicant,
		Region:      "North",
	}
	s.Require().NoError(app.AppendStatus(id.StatusWoodlandOfficerReview, s.fieldManager, s.now.Add(-72*time.Hour)))
	s.Require().NoError(app.AppendStatus(id.StatusSentForApproval, s.fieldManager, s.now.Add(-24*time.Hour)))
	_, err := app.OpenAssignment(id.RoleFieldManager, s.fieldManager, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	completedAt := s.now.Add(-12 * time.Hour)
	app.ApproverReview = &models.ApproverReview{
		CompletedByID:             s.fieldManager,
		CompletedAt:               completedAt,
		PublishToDecisionRegister: publish,
	}
	correlationID := id.NewCorrelationID()
	app.PublicRegister.CorrelationID = &correlationID
	s.repo.apps[app.ID] = app
	return app
}

func (s *TransitionSuite) fieldManagerActor() eligibility.Actor {
	return eligibility.Actor{ID: s.fieldManager, AccountType: id.AccountFieldManager}
}

func (s *TransitionSuite) expectApplicantLookup() {
	s.directory.EXPECT().GetAccount(gomock.Any(), s.applicant).
		Return(&dirmodels.Account{ID: s.applicant, Email: "applicant@example.test", Type: id.AccountExternal}, nil)
}

func (s *TransitionSuite) expectStaffLookup() {
	s.directory.EXPECT().GetAccountsByIds(gomock.Any(), gomock.Any()).
		Return([]*dirmodels.Account{{ID: s.fieldManager, Email: "fm@example.test", Type: id.AccountFieldManager}}, nil)
}

func (s *TransitionSuite) TestApproveEndToEnd() {
	app := s.sentForApproval(true)
	s.expectApplicantLookup()
	s.expectStaffLookup()
	s.registers.EXPECT().PublishToDecision(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(register.OutcomeSuccess)
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID:   app.ID,
		ActingUser:      s.fieldManagerActor(),
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: id.StatusApproved,
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())
	s.Empty(outcome.SubFailures())

	stored, err := s.repo.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	current, ok := stored.CurrentStatus()
	s.Require().True(ok)
	s.Equal(id.StatusApproved, current)
	s.Len(s.sender.sent, 2)
}

func (s *TransitionSuite) TestApproveWithApplicantNotificationFailure() {
	app := s.sentForApproval(true)
	s.expectApplicantLookup()
	s.expectStaffLookup()
	s.sender.failFor["applicant@example.test"] = true
	s.registers.EXPECT().PublishToDecision(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(register.OutcomeSuccess)
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID:   app.ID,
		ActingUser:      s.fieldManagerActor(),
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: id.StatusApproved,
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())
	failures := outcome.SubFailures()
	s.Require().Len(failures, 1)
	s.Equal(models.CouldNotSendNotificationToApplicant, failures[0].Kind)

	stored, err := s.repo.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	current, _ := stored.CurrentStatus()
	s.Equal(id.StatusApproved, current)
}

func (s *TransitionSuite) TestApproveWithLocalRegisterSaveFailure() {
	app := s.sentForApproval(true)
	s.expectApplicantLookup()
	s.expectStaffLookup()
	s.registers.EXPECT().PublishToDecision(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(register.OutcomeFailedToSaveDecisionDetailsLocally)
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID:   app.ID,
		ActingUser:      s.fieldManagerActor(),
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: id.StatusRefused,
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())
	s.True(outcome.HasSubFailure(models.CouldNotStoreDecisionDetailsLocally))
	s.False(outcome.HasSubFailure(models.CouldNotPublishToDecisionPublicRegister))
}

func (s *TransitionSuite) TestDecisionSkipsRegisterWhenNotRequested() {
	app := s.sentForApproval(false)
	s.expectApplicantLookup()
	s.expectStaffLookup()
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID:   app.ID,
		ActingUser:      s.fieldManagerActor(),
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: id.StatusApproved,
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())
	s.Empty(outcome.SubFailures())
}

func (s *TransitionSuite) TestDecisionDeniedOutsideSentForApproval() {
	app := s.sentForApproval(true)
	s.Require().NoError(app.AppendStatus(id.StatusWoodlandOfficerReview, s.fieldManager, s.now.Add(-time.Hour)))
	s.repo.apps[app.ID] = app
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID:   app.ID,
		ActingUser:      s.fieldManagerActor(),
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: id.StatusApproved,
	})

	s.Require().Error(err)
	s.Nil(outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.ErrorContains(err, string(eligibility.ReasonIncorrectFellingApplicationState))
	s.Zero(s.repo.saves)
}

func (s *TransitionSuite) TestDecisionConflictOnSave() {
	app := s.sentForApproval(true)
	s.repo.saveErr = dErrors.New(dErrors.CodeConflict, "version mismatch")
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID:   app.ID,
		ActingUser:      s.fieldManagerActor(),
		Kind:            eligibility.TransitionRecordDecision,
		RequestedStatus: id.StatusApproved,
	})

	s.Require().Error(err)
	s.Nil(outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *TransitionSuite) TestAssignRoleProgressesStatus() {
	app := s.sentForApproval(true)
	officer := id.NewUserID()
	s.directory.EXPECT().GetAccount(gomock.Any(), officer).
		Return(&dirmodels.Account{ID: officer, Email: "wo@example.test", Type: id.AccountWoodlandOfficer}, nil)
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID: app.ID,
		ActingUser:    s.admin,
		Kind:          eligibility.TransitionAssignRole,
		TargetRole:    id.RoleWoodlandOfficer,
		TargetUser:    eligibility.Actor{ID: officer, AccountType: id.AccountWoodlandOfficer},
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())

	stored, err := s.repo.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	current, _ := stored.CurrentStatus()
	s.Equal(id.StatusWoodlandOfficerReview, current)
	holder, ok := stored.CurrentHolder(id.RoleWoodlandOfficer)
	s.Require().True(ok)
	s.Equal(officer, holder)
	s.Len(s.sender.sent, 1)
	s.Equal(notify.TemplateRoleAssigned, s.sender.sent[0].Template)
}

func (s *TransitionSuite) TestAssignFieldManagerToCreatorDenied() {
	app := s.sentForApproval(true)
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID: app.ID,
		ActingUser:    s.admin,
		Kind:          eligibility.TransitionAssignRole,
		TargetRole:    id.RoleFieldManager,
		TargetUser:    eligibility.Actor{ID: s.applicant, AccountType: id.AccountFieldManager},
	})

	s.Require().Error(err)
	s.Nil(outcome)
	s.ErrorContains(err, string(eligibility.ReasonTargetUserIsCreator))
}

func (s *TransitionSuite) TestReturnToPreviousStage() {
	app := s.sentForApproval(true)
	s.expectStaffLookup()
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID: app.ID,
		ActingUser:    s.fieldManagerActor(),
		Kind:          eligibility.TransitionReturnToPreviousStage,
		CaseNote:      "amend felling area",
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())

	stored, err := s.repo.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	current, _ := stored.CurrentStatus()
	s.Equal(id.StatusWoodlandOfficerReview, current)
}

func (s *TransitionSuite) TestReturnToApplicant() {
	app := s.sentForApproval(true)
	s.expectApplicantLookup()
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID: app.ID,
		ActingUser:    s.fieldManagerActor(),
		Kind:          eligibility.TransitionReturnToApplicant,
		CaseNote:      "missing maps",
	})

	s.Require().NoError(err)
	s.True(outcome.IsSuccess())

	stored, err := s.repo.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	current, _ := stored.CurrentStatus()
	s.Equal(id.StatusWithApplicant, current)
}

func (s *TransitionSuite) TestWithdrawRemovesFromConsultationRegister() {
	app := s.sentForApproval(true)
	s.expectApplicantLookup()
	svc := s.newService()

	s.Run("removal failure is non-blocking", func() {
		s.registers.EXPECT().RemoveFromConsultation(gomock.Any(), gomock.Any()).
			Return(register.OutcomeFailure)

		outcome, err := svc.Execute(s.ctx, transition.Command{
			ApplicationID: app.ID,
			ActingUser:    s.fieldManagerActor(),
			Kind:          eligibility.TransitionWithdraw,
		})

		s.Require().NoError(err)
		s.True(outcome.IsSuccess())
		s.True(outcome.HasSubFailure(models.CouldNotRemoveFromConsultationRegister))

		stored, err := s.repo.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		current, _ := stored.CurrentStatus()
		s.Equal(id.StatusWithdrawn, current)
	})
}

func (s *TransitionSuite) TestRevertWithdrawal() {
	app := s.sentForApproval(true)
	s.Require().NoError(app.AppendStatus(id.StatusWithdrawn, s.applicant, s.now.Add(-time.Hour)))
	s.repo.apps[app.ID] = app
	svc := s.newService()

	s.Run("denied for non-administrators", func() {
		outcome, err := svc.Execute(s.ctx, transition.Command{
			ApplicationID: app.ID,
			ActingUser:    s.fieldManagerActor(),
			Kind:          eligibility.TransitionRevertWithdrawal,
		})

		s.Require().Error(err)
		s.Nil(outcome)
		s.ErrorContains(err, string(eligibility.ReasonNotAdministrator))
	})

	s.Run("administrator restores the pre-withdrawal status", func() {
		s.expectApplicantLookup()

		outcome, err := svc.Execute(s.ctx, transition.Command{
			ApplicationID: app.ID,
			ActingUser:    s.admin,
			Kind:          eligibility.TransitionRevertWithdrawal,
		})

		s.Require().NoError(err)
		s.True(outcome.IsSuccess())

		stored, err := s.repo.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		current, _ := stored.CurrentStatus()
		s.Equal(id.StatusSentForApproval, current)
	})
}

func (s *TransitionSuite) TestUnknownApplication() {
	svc := s.newService()

	outcome, err := svc.Execute(s.ctx, transition.Command{
		ApplicationID: id.NewApplicationID(),
		ActingUser:    s.admin,
		Kind:          eligibility.TransitionWithdraw,
	})

	s.Require().Error(err)
	s.Nil(outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
