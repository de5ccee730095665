package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"larch/internal/licence/models"
	id "larch/pkg/domain"
)

type CheckerSuite struct {
	suite.Suite
	checker *Checker
	base    time.Time
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) SetupTest() {
	s.checker = NewChecker(DefaultRules())
	s.base = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
}

func (s *CheckerSuite) newApplication(statuses ...id.FellingStatus) *models.Application {
	app := &models.Application{
		ID:          id.NewApplicationID(),
		Reference:   "FLA-2026-0002",
		OwnerID:     id.NewUserID(),
		CreatedByID: id.NewUserID(),
	}
	for i, status := range statuses {
		s.Require().NoError(app.AppendStatus(status, id.NewUserID(), s.base.Add(time.Duration(i)*time.Hour)))
	}
	return app
}

func (s *CheckerSuite) assignFieldManager(app *models.Application, user id.UserID) {
	_, err := app.OpenAssignment(id.RoleFieldManager, user, s.base)
	s.Require().NoError(err)
}

func (s *CheckerSuite) TestAssignRole() {
	s.Run("denied on completed application", func() {
		for _, status := range []id.FellingStatus{id.StatusWithdrawn, id.StatusApproved, id.StatusRefused} {
			app := s.newApplication(id.StatusSubmitted, status)
			decision := s.checker.Check(Request{
				Application: app,
				Kind:        TransitionAssignRole,
				TargetRole:  id.RoleAdminOfficer,
				TargetUser:  Actor{ID: id.NewUserID(), AccountType: id.AccountAdminOfficer},
			})
			s.False(decision.Allowed)
			s.Equal(ReasonApplicationCompleted, decision.Reason)
		}
	})

	s.Run("field manager requires approval capability", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview)
		decision := s.checker.Check(Request{
			Application: app,
			Kind:        TransitionAssignRole,
			TargetRole:  id.RoleFieldManager,
			TargetUser:  Actor{ID: id.NewUserID(), AccountType: id.AccountAdminOfficer},
		})
		s.False(decision.Allowed)
		s.Equal(ReasonTargetUserCannotApprove, decision.Reason)
	})

	s.Run("field manager may never be the creator, independent of other state", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview)
		decision := s.checker.Check(Request{
			Application: app,
			Kind:        TransitionAssignRole,
			TargetRole:  id.RoleFieldManager,
			TargetUser:  Actor{ID: app.CreatedByID, AccountType: id.AccountFieldManager},
		})
		s.False(decision.Allowed)
		s.Equal(ReasonTargetUserIsCreator, decision.Reason)
	})

	s.Run("allowed for capable non-creator", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview)
		decision := s.checker.Check(Request{
			Application: app,
			Kind:        TransitionAssignRole,
			TargetRole:  id.RoleFieldManager,
			TargetUser:  Actor{ID: id.NewUserID(), AccountType: id.AccountFieldManager},
		})
		s.True(decision.Allowed)
	})
}

func (s *CheckerSuite) TestRecordDecision() {
	fieldManager := id.NewUserID()

	s.Run("denied when current status is not SentForApproval, regardless of role", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview)
		s.assignFieldManager(app, fieldManager)
		app.ApproverReview = &models.ApproverReview{CompletedByID: fieldManager, CompletedAt: s.base}

		decision := s.checker.Check(Request{
			Application:     app,
			ActingUser:      Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
			Kind:            TransitionRecordDecision,
			RequestedStatus: id.StatusApproved,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonIncorrectFellingApplicationState, decision.Reason)
	})

	s.Run("denied when acting user does not hold FieldManager", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview, id.StatusSentForApproval)
		app.ApproverReview = &models.ApproverReview{CompletedByID: fieldManager, CompletedAt: s.base}

		decision := s.checker.Check(Request{
			Application:     app,
			ActingUser:      Actor{ID: id.NewUserID(), AccountType: id.AccountFieldManager},
			Kind:            TransitionRecordDecision,
			RequestedStatus: id.StatusRefused,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonUserNotAssignedFieldManager, decision.Reason)
	})

	s.Run("denied without an approver review record", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview, id.StatusSentForApproval)
		s.assignFieldManager(app, fieldManager)

		decision := s.checker.Check(Request{
			Application:     app,
			ActingUser:      Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
			Kind:            TransitionRecordDecision,
			RequestedStatus: id.StatusApproved,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonApproverReviewMissing, decision.Reason)
	})

	s.Run("requested outcome must be a decision status", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview, id.StatusSentForApproval)
		s.assignFieldManager(app, fieldManager)
		app.ApproverReview = &models.ApproverReview{CompletedByID: fieldManager, CompletedAt: s.base}

		decision := s.checker.Check(Request{
			Application:     app,
			ActingUser:      Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
			Kind:            TransitionRecordDecision,
			RequestedStatus: id.StatusWithApplicant,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonRequestedStatusNotADecision, decision.Reason)
	})

	s.Run("allowed for each decision outcome", func() {
		for _, outcome := range []id.FellingStatus{id.StatusApproved, id.StatusRefused, id.StatusReferredToLocalAuthority} {
			app := s.newApplication(id.StatusWoodlandOfficerReview, id.StatusSentForApproval)
			s.assignFieldManager(app, fieldManager)
			app.ApproverReview = &models.ApproverReview{CompletedByID: fieldManager, CompletedAt: s.base}

			decision := s.checker.Check(Request{
				Application:     app,
				ActingUser:      Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
				Kind:            TransitionRecordDecision,
				RequestedStatus: outcome,
			})
			s.True(decision.Allowed, "outcome %s", outcome)
		}
	})
}

func (s *CheckerSuite) TestReturnToPreviousStage() {
	fieldManager := id.NewUserID()

	s.Run("allowed when prior status is a review stage", func() {
		app := s.newApplication(id.StatusWoodlandOfficerReview, id.StatusSentForApproval)
		s.assignFieldManager(app, fieldManager)

		decision := s.checker.Check(Request{
			Application: app,
			ActingUser:  Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
			Kind:        TransitionReturnToPreviousStage,
		})
		s.True(decision.Allowed)
	})

	s.Run("denied when prior status is not a review stage", func() {
		app := s.newApplication(id.StatusWithApplicant, id.StatusSentForApproval)
		s.assignFieldManager(app, fieldManager)

		decision := s.checker.Check(Request{
			Application: app,
			ActingUser:  Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
			Kind:        TransitionReturnToPreviousStage,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonPriorStatusNotReviewStage, decision.Reason)
	})

	s.Run("denied outside SentForApproval", func() {
		app := s.newApplication(id.StatusAdminOfficerReview)
		s.assignFieldManager(app, fieldManager)

		decision := s.checker.Check(Request{
			Application: app,
			ActingUser:  Actor{ID: fieldManager, AccountType: id.AccountFieldManager},
			Kind:        TransitionReturnToPreviousStage,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonIncorrectFellingApplicationState, decision.Reason)
	})
}

func (s *CheckerSuite) TestReturnToApplicant() {
	s.Run("allowed while application is live", func() {
		app := s.newApplication(id.StatusAdminOfficerReview)
		decision := s.checker.Check(Request{Application: app, Kind: TransitionReturnToApplicant})
		s.True(decision.Allowed)
	})

	s.Run("denied once completed", func() {
		app := s.newApplication(id.StatusApproved)
		decision := s.checker.Check(Request{Application: app, Kind: TransitionReturnToApplicant})
		s.False(decision.Allowed)
		s.Equal(ReasonApplicationCompleted, decision.Reason)
	})
}

func (s *CheckerSuite) TestRevertWithdrawal() {
	s.Run("administrator only", func() {
		app := s.newApplication(id.StatusWithApplicant, id.StatusWithdrawn)
		for _, accountType := range []id.AccountType{id.AccountAdminOfficer, id.AccountWoodlandOfficer, id.AccountFieldManager, id.AccountExternal} {
			decision := s.checker.Check(Request{
				Application: app,
				ActingUser:  Actor{ID: id.NewUserID(), AccountType: accountType},
				Kind:        TransitionRevertWithdrawal,
			})
			s.False(decision.Allowed, "account type %s", accountType)
			s.Equal(ReasonNotAdministrator, decision.Reason)
		}

		decision := s.checker.Check(Request{
			Application: app,
			ActingUser:  Actor{ID: id.NewUserID(), AccountType: id.AccountAdministrator},
			Kind:        TransitionRevertWithdrawal,
		})
		s.True(decision.Allowed)
	})

	s.Run("only from Withdrawn", func() {
		app := s.newApplication(id.StatusWithApplicant)
		decision := s.checker.Check(Request{
			Application: app,
			ActingUser:  Actor{ID: id.NewUserID(), AccountType: id.AccountAdministrator},
			Kind:        TransitionRevertWithdrawal,
		})
		s.False(decision.Allowed)
		s.Equal(ReasonIncorrectFellingApplicationState, decision.Reason)
	})
}

func (s *CheckerSuite) TestAutomaticWithdrawalEligibility() {
	threshold := 14 * 24 * time.Hour

	s.Run("eligible past threshold in WithApplicant", func() {
		app := s.newApplication(id.StatusWithApplicant)
		s.True(EligibleForAutomaticWithdrawal(app, threshold, s.base.Add(threshold+time.Hour)))
	})

	s.Run("not eligible under threshold", func() {
		app := s.newApplication(id.StatusWithApplicant)
		s.False(EligibleForAutomaticWithdrawal(app, threshold, s.base.Add(threshold-time.Hour)))
	})

	s.Run("not eligible in other statuses", func() {
		app := s.newApplication(id.StatusAdminOfficerReview)
		s.False(EligibleForAutomaticWithdrawal(app, threshold, s.base.Add(30*24*time.Hour)))
	})
}
