package register

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/models"
	"larch/internal/licence/ports"
	"larch/internal/notify"
	"larch/internal/register/metrics"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
	audit "larch/pkg/platform/audit"
)

// AccountResolver resolves assigned staff for success notifications.
type AccountResolver interface {
	GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*dirmodels.Account, error)
}

// Service carries out register synchronization. It is the only component
// that mutates PublicRegisterState, and it does so only after the external
// call has succeeded.
type Service struct {
	client    Client
	repo      ports.Repository
	clock     ports.Clock
	directory AccountResolver

	dispatcher *notify.Dispatcher
	publisher  ports.AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	// consultationPeriod and decisionPeriod are the fixed listing windows
	// used to compute expiry timestamps on publication.
	consultationPeriod time.Duration
	decisionPeriod     time.Duration
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

func WithDispatcher(d *notify.Dispatcher, resolver AccountResolver) Option {
	return func(s *Service) {
		s.dispatcher = d
		s.directory = resolver
	}
}

func New(client Client, repo ports.Repository, clock ports.Clock, consultationPeriod, decisionPeriod time.Duration, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "register client is required")
	}
	if repo == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "application repository is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	s := &Service{
		client:             client,
		repo:               repo,
		clock:              clock,
		consultationPeriod: consultationPeriod,
		decisionPeriod:     decisionPeriod,
		tracer:             otel.Tracer("larch/register"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) observe(operation string, outcome Outcome) Outcome {
	if s.metrics != nil {
		s.metrics.ObserveOutcome(operation, string(outcome))
	}
	return outcome
}

// PublishToDecision lists the recorded decision on the register's decision
// phase. outcome may be nil when no transition outcome is being aggregated.
func (s *Service) PublishToDecision(ctx context.Context, app *models.Application, outcome *models.TransitionOutcome) Outcome {
	ctx, span := s.tracer.Start(ctx, "register.PublishToDecision",
		trace.WithAttributes(attribute.String("application_id", app.ID.String())))
	defer span.End()

	const op = "publish_decision"

	if app.PublicRegister.ExemptFromConsultation {
		// The reviewer exempted this case; no external call is made.
		return s.observe(op, OutcomeExempt)
	}
	if app.PublicRegister.CorrelationID == nil {
		// A decision cannot be published without a prior consultation
		// record. Logged, not retried automatically.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "decision publish with no consultation correlation id",
				"application_id", app.ID, "reference", app.Reference)
		}
		return s.observe(op, OutcomeFailure)
	}
	current, ok := app.CurrentStatus()
	if !ok || !current.IsDecision() {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "decision publish outside a decision status",
				"application_id", app.ID, "status", string(current))
		}
		return s.observe(op, OutcomeFailure)
	}

	publishedAt := s.clock.Now()
	if err := s.client.AddToDecision(ctx, *app.PublicRegister.CorrelationID, app.Reference, current, publishedAt); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "decision register publish failed",
				"application_id", app.ID, "error", err)
		}
		ports.LogAudit(ctx, nil, s.publisher, audit.Event{
			Name:          audit.EventDecisionRegisterPublishFail,
			ApplicationID: app.ID,
			Data:          map[string]any{"error": err.Error()},
		})
		return s.observe(op, OutcomeFailure)
	}

	expiresAt := publishedAt.Add(s.decisionPeriod)
	if err := app.PublicRegister.RecordDecisionPublished(publishedAt, expiresAt); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "decision publication could not be recorded",
				"application_id", app.ID, "error", err)
		}
		return s.observe(op, OutcomeFailure)
	}
	if err := s.repo.Save(ctx, app); err != nil {
		// The register now lists a case the local system cannot track or
		// later auto-remove. Surfaced as its own outcome, never merged
		// with ordinary failure.
		if s.metrics != nil {
			s.metrics.IncrementLocalSaveFailure()
		}
		ports.LogAudit(ctx, s.logger, s.publisher, audit.Event{
			Name:          audit.EventDecisionRegisterLocalFail,
			ApplicationID: app.ID,
			Data:          map[string]any{"error": err.Error(), "expires_at": expiresAt},
		})
		return s.observe(op, OutcomeFailedToSaveDecisionDetailsLocally)
	}

	s.notifyAssignedStaff(ctx, app, outcome)
	ports.LogAudit(ctx, nil, s.publisher, audit.Event{
		Name:          audit.EventDecisionRegisterPublished,
		ApplicationID: app.ID,
		Data:          map[string]any{"status": string(current), "expires_at": expiresAt},
	})
	return s.observe(op, OutcomeSuccess)
}

// PublishToConsultation lists the case for public consultation and records
// the correlation id the register assigns.
func (s *Service) PublishToConsultation(ctx context.Context, app *models.Application) Outcome {
	ctx, span := s.tracer.Start(ctx, "register.PublishToConsultation",
		trace.WithAttributes(attribute.String("application_id", app.ID.String())))
	defer span.End()

	const op = "publish_consultation"

	if app.PublicRegister.ExemptFromConsultation {
		return s.observe(op, OutcomeExempt)
	}
	if app.PublicRegister.ConsultationPublishedAt != nil {
		return s.observe(op, OutcomeSuccess)
	}

	publishedAt := s.clock.Now()
	correlationID, err := s.client.AddToConsultation(ctx, ConsultationCase{
		Reference:   app.Reference,
		Region:      app.Region,
		PublishedAt: publishedAt,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "consultation register publish failed",
				"application_id", app.ID, "error", err)
		}
		return s.observe(op, OutcomeFailure)
	}

	if err := app.PublicRegister.RecordConsultationPublished(correlationID, publishedAt, publishedAt.Add(s.consultationPeriod)); err != nil {
		return s.observe(op, OutcomeFailure)
	}
	if err := s.repo.Save(ctx, app); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementLocalSaveFailure()
		}
		ports.LogAudit(ctx, s.logger, s.publisher, audit.Event{
			Name:          audit.EventDecisionRegisterLocalFail,
			ApplicationID: app.ID,
			Data:          map[string]any{"error": err.Error(), "phase": "consultation"},
		})
		return s.observe(op, OutcomeFailedToSaveDecisionDetailsLocally)
	}

	ports.LogAudit(ctx, nil, s.publisher, audit.Event{
		Name:          audit.EventConsultationPublished,
		ApplicationID: app.ID,
		Data:          map[string]any{"correlation_id": correlationID.String()},
	})
	return s.observe(op, OutcomeSuccess)
}

// RemoveFromConsultation mirrors publication: the external removal happens
// first, and only a confirmed removal is recorded locally. On external
// failure local state is untouched so the case stays eligible for a later
// attempt.
func (s *Service) RemoveFromConsultation(ctx context.Context, app *models.Application) Outcome {
	ctx, span := s.tracer.Start(ctx, "register.RemoveFromConsultation",
		trace.WithAttributes(attribute.String("application_id", app.ID.String())))
	defer span.End()

	const op = "remove_consultation"

	if !app.PublicRegister.OnConsultationRegister() {
		return s.observe(op, OutcomeSuccess)
	}

	removedAt := s.clock.Now()
	if err := s.client.RemoveFromConsultation(ctx, *app.PublicRegister.CorrelationID, app.Reference, removedAt); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "consultation register removal failed",
				"application_id", app.ID, "error", err)
		}
		ports.LogAudit(ctx, nil, s.publisher, audit.Event{
			Name:          audit.EventConsultationRemovalFailed,
			ApplicationID: app.ID,
			Data:          map[string]any{"error": err.Error()},
		})
		return s.observe(op, OutcomeFailure)
	}

	if err := app.PublicRegister.RecordConsultationRemoved(removedAt); err != nil {
		return s.observe(op, OutcomeFailure)
	}
	if err := s.repo.Save(ctx, app); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "consultation removal could not be saved",
				"application_id", app.ID, "error", err)
		}
		return s.observe(op, OutcomeFailure)
	}

	ports.LogAudit(ctx, nil, s.publisher, audit.Event{
		Name:          audit.EventConsultationRemoved,
		ApplicationID: app.ID,
	})
	return s.observe(op, OutcomeSuccess)
}

// RemoveFromDecision follows the same external-first rule for the decision
// phase.
func (s *Service) RemoveFromDecision(ctx context.Context, app *models.Application) Outcome {
	ctx, span := s.tracer.Start(ctx, "register.RemoveFromDecision",
		trace.WithAttributes(attribute.String("application_id", app.ID.String())))
	defer span.End()

	const op = "remove_decision"

	if !app.PublicRegister.OnDecisionRegister() {
		return s.observe(op, OutcomeSuccess)
	}

	removedAt := s.clock.Now()
	if err := s.client.RemoveFromDecision(ctx, *app.PublicRegister.CorrelationID, app.Reference, removedAt); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "decision register removal failed",
				"application_id", app.ID, "error", err)
		}
		ports.LogAudit(ctx, nil, s.publisher, audit.Event{
			Name:          audit.EventDecisionRegisterRemovalFail,
			ApplicationID: app.ID,
			Data:          map[string]any{"error": err.Error()},
		})
		return s.observe(op, OutcomeFailure)
	}

	if err := app.PublicRegister.RecordDecisionRemoved(removedAt); err != nil {
		return s.observe(op, OutcomeFailure)
	}
	if err := s.repo.Save(ctx, app); err != nil {
		return s.observe(op, OutcomeFailure)
	}

	ports.LogAudit(ctx, nil, s.publisher, audit.Event{
		Name:          audit.EventDecisionRegisterRemoved,
		ApplicationID: app.ID,
	})
	return s.observe(op, OutcomeSuccess)
}

// notifyAssignedStaff tells currently assigned case handlers about the
// decision publication. Best-effort; failures land on the outcome.
func (s *Service) notifyAssignedStaff(ctx context.Context, app *models.Application, outcome *models.TransitionOutcome) {
	if s.dispatcher == nil || s.directory == nil {
		return
	}
	staff := app.AssignedStaff()
	if len(staff) == 0 {
		return
	}
	accounts, err := s.directory.GetAccountsByIds(ctx, staff)
	if err != nil {
		if outcome != nil {
			outcome.AddSubFailure(models.CouldNotSendNotificationToStaff, "assigned staff could not be resolved")
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "staff lookup for register notification failed",
				"application_id", app.ID, "error", err)
		}
		return
	}

	if outcome == nil {
		outcome = models.NewCommittedOutcome()
	}
	deliveries := make([]notify.Delivery, 0, len(accounts))
	for _, account := range accounts {
		deliveries = append(deliveries, notify.Delivery{
			Message: notify.Message{
				Template:  notify.TemplateDecisionPublished,
				Recipient: *account,
				Data: map[string]any{
					"reference": app.Reference,
				},
			},
			FailureKind: models.CouldNotSendNotificationToStaff,
			RoleLabel:   "assigned staff",
		})
	}
	s.dispatcher.Dispatch(ctx, outcome, deliveries)
}
