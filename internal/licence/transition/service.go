// Package transition drives the application state machine. Each supported
// transition is a table entry pairing the primary mutation with an ordered
// side-effect script; the mutation is committed first and the script runs
// after, contributing non-blocking failures to the returned outcome.
package transition

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/eligibility"
	"larch/internal/licence/metrics"
	"larch/internal/licence/models"
	"larch/internal/licence/ports"
	"larch/internal/notify"
	"larch/internal/register"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mock.go -package=mocks

// RegisterSynchronizer is the register coordination consumed by transition
// scripts.
type RegisterSynchronizer interface {
	PublishToDecision(ctx context.Context, app *models.Application, outcome *models.TransitionOutcome) register.Outcome
	RemoveFromConsultation(ctx context.Context, app *models.Application) register.Outcome
	RemoveFromDecision(ctx context.Context, app *models.Application) register.Outcome
}

// AccountResolver supplies directory accounts for notification fan-out.
type AccountResolver interface {
	GetAccount(ctx context.Context, userID id.UserID) (*dirmodels.Account, error)
	GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*dirmodels.Account, error)
}

// Command is one transition request against one application.
type Command struct {
	ApplicationID id.ApplicationID
	ActingUser    eligibility.Actor
	Kind          eligibility.TransitionKind

	// RequestedStatus is the decision outcome for RecordDecision commands.
	RequestedStatus id.FellingStatus

	// TargetRole and TargetUser describe the assignment for AssignRole.
	TargetRole id.AssignedRole
	TargetUser eligibility.Actor

	// CaseNote is free text carried into the notification for return
	// transitions.
	CaseNote string
}

// Service orchestrates transitions. The repository Save call is the commit
// point: everything before it can abort the operation, nothing after it can.
type Service struct {
	repo      ports.Repository
	checker   *eligibility.Checker
	clock     ports.Clock
	registers RegisterSynchronizer
	directory AccountResolver

	dispatcher *notify.Dispatcher
	publisher  ports.AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	table map[eligibility.TransitionKind]definition
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRegisterSynchronizer(r RegisterSynchronizer) Option {
	return func(s *Service) { s.registers = r }
}

func WithDispatcher(d *notify.Dispatcher, resolver AccountResolver) Option {
	return func(s *Service) {
		s.dispatcher = d
		s.directory = resolver
	}
}

func New(repo ports.Repository, checker *eligibility.Checker, clock ports.Clock, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "application repository is required")
	}
	if checker == nil {
		checker = eligibility.NewChecker(eligibility.DefaultRules())
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	s := &Service{
		repo:    repo,
		checker: checker,
		clock:   clock,
		tracer:  otel.Tracer("larch/transition"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.table = transitionTable()
	return s, nil
}

// Execute runs one transition end to end. A non-nil outcome means the
// primary mutation committed; inspect it for non-blocking sub-failures. A
// nil outcome with an error means nothing was written.
func (s *Service) Execute(ctx context.Context, cmd Command) (*models.TransitionOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "transition.Execute",
		trace.WithAttributes(
			attribute.String("application_id", cmd.ApplicationID.String()),
			attribute.String("kind", string(cmd.Kind)),
		))
	defer span.End()

	def, ok := s.table[cmd.Kind]
	if !ok {
		s.observe(cmd.Kind, "rejected")
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unsupported transition %q", cmd.Kind)
	}

	app, err := s.repo.Get(ctx, cmd.ApplicationID)
	if err != nil {
		s.observe(cmd.Kind, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "load application")
	}

	decision := s.checker.Check(eligibility.Request{
		Application:     app,
		ActingUser:      cmd.ActingUser,
		Kind:            cmd.Kind,
		RequestedStatus: cmd.RequestedStatus,
		TargetRole:      cmd.TargetRole,
		TargetUser:      cmd.TargetUser,
	})
	if !decision.Allowed {
		s.observe(cmd.Kind, "denied")
		if s.logger != nil {
			s.logger.InfoContext(ctx, "transition denied",
				"application_id", cmd.ApplicationID,
				"kind", string(cmd.Kind),
				"reason", string(decision.Reason))
		}
		return nil, dErrors.Newf(dErrors.CodeForbidden, "transition denied: %s", decision.Reason)
	}

	now := s.clock.Now()
	run := &runState{}
	if err := def.mutate(s, cmd, app, now, run); err != nil {
		s.observe(cmd.Kind, "error")
		return nil, err
	}
	if err := s.repo.Save(ctx, app); err != nil {
		s.observe(cmd.Kind, "conflict")
		// A concurrent transition won; the eligibility decision no longer
		// holds for the stored aggregate. The caller retries from a fresh
		// read.
		return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "save application")
	}

	outcome := models.NewCommittedOutcome()
	for _, effect := range def.effects {
		effect(ctx, s, cmd, app, outcome, run)
	}

	if event, ok := def.event(cmd, app, run); ok {
		ports.LogAudit(ctx, s.logger, s.publisher, event)
	}

	if outcome.HasWarnings() {
		s.observe(cmd.Kind, "committed_with_warnings")
		for _, f := range outcome.SubFailures() {
			if s.metrics != nil {
				s.metrics.ObserveSubFailure(string(f.Kind))
			}
		}
	} else {
		s.observe(cmd.Kind, "committed")
	}
	return outcome, nil
}

func (s *Service) observe(kind eligibility.TransitionKind, result string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(kind), result)
	}
}

// resolveAccount looks a user up in the directory, recording the given
// sub-failure on a miss.
func (s *Service) resolveAccount(ctx context.Context, userID id.UserID, kind models.SubFailureKind, label string, outcome *models.TransitionOutcome) *dirmodels.Account {
	if s.directory == nil {
		return nil
	}
	account, err := s.directory.GetAccount(ctx, userID)
	if err != nil {
		outcome.AddSubFailure(kind, label+" account could not be resolved")
		if s.logger != nil {
			s.logger.WarnContext(ctx, "notification recipient lookup failed",
				"user_id", userID, "role", label, "error", err)
		}
		return nil
	}
	return account
}

func (s *Service) dispatch(ctx context.Context, outcome *models.TransitionOutcome, deliveries []notify.Delivery) int {
	if s.dispatcher == nil || len(deliveries) == 0 {
		return 0
	}
	return s.dispatcher.Dispatch(ctx, outcome, deliveries)
}

// staffDeliveries builds one delivery per currently assigned staff member.
func (s *Service) staffDeliveries(ctx context.Context, app *models.Application, template notify.Template, data map[string]any, outcome *models.TransitionOutcome) []notify.Delivery {
	if s.directory == nil {
		return nil
	}
	staff := app.AssignedStaff()
	if len(staff) == 0 {
		return nil
	}
	accounts, err := s.directory.GetAccountsByIds(ctx, staff)
	if err != nil {
		outcome.AddSubFailure(models.CouldNotSendNotificationToStaff, "assigned staff could not be resolved")
		return nil
	}
	deliveries := make([]notify.Delivery, 0, len(accounts))
	for _, account := range accounts {
		deliveries = append(deliveries, notify.Delivery{
			Message: notify.Message{
				Template:  template,
				Recipient: *account,
				Data:      data,
			},
			FailureKind: models.CouldNotSendNotificationToStaff,
			RoleLabel:   "assigned staff",
		})
	}
	return deliveries
}
