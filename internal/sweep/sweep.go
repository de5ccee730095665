// Package sweep withdraws applications that have sat with the applicant past
// a configured threshold. Unlike interactive transitions, the register
// removal here is escalated to blocking: status append, external removal and
// local removal timestamp commit or roll back as one unit, because a
// "withdrawn locally, still published externally" divergence has no later
// repair path.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/eligibility"
	"larch/internal/licence/models"
	"larch/internal/licence/ports"
	"larch/internal/notify"
	"larch/internal/register"
	"larch/internal/sweep/metrics"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
	audit "larch/pkg/platform/audit"
)

// Transactor runs a function inside one all-or-nothing unit of work.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ConsultationRemover is the register operation the sweep depends on.
type ConsultationRemover interface {
	RemoveFromConsultation(ctx context.Context, app *models.Application) register.Outcome
}

// AccountResolver resolves the applicant for the post-commit notification.
type AccountResolver interface {
	GetAccount(ctx context.Context, userID id.UserID) (*dirmodels.Account, error)
}

// Result summarises one sweep run.
type Result struct {
	Examined  int
	Withdrawn int
	Skipped   int
	Failed    int
}

// Sweeper is the scheduled, non-interactive withdrawal caller.
type Sweeper struct {
	repo      ports.Repository
	tx        Transactor
	registers ConsultationRemover
	clock     ports.Clock
	threshold time.Duration

	directory  AccountResolver
	dispatcher *notify.Dispatcher
	publisher  ports.AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures the Sweeper.
type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Sweeper) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func WithDispatcher(d *notify.Dispatcher, resolver AccountResolver) Option {
	return func(s *Sweeper) {
		s.dispatcher = d
		s.directory = resolver
	}
}

func New(repo ports.Repository, tx Transactor, registers ConsultationRemover, clock ports.Clock, threshold time.Duration, opts ...Option) (*Sweeper, error) {
	if repo == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "application repository is required")
	}
	if tx == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transactor is required")
	}
	if registers == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "register synchronizer is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if threshold <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "withdrawal threshold must be positive")
	}
	s := &Sweeper{
		repo:      repo,
		tx:        tx,
		registers: registers,
		clock:     clock,
		threshold: threshold,
		tracer:    otel.Tracer("larch/sweep"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run processes the batch sequentially, one transaction per application. A
// failed application is rolled back and the sweep moves on; only listing
// failures abort the run.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "sweep.Run")
	defer span.End()

	var result Result
	apps, err := s.repo.ListByStatus(ctx, id.StatusWithApplicant)
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "list applications awaiting applicant")
	}

	now := s.clock.Now()
	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Examined++
		if !eligibility.EligibleForAutomaticWithdrawal(app, s.threshold, now) {
			result.Skipped++
			s.observe("skipped")
			continue
		}
		if err := s.withdraw(ctx, app.ID); err != nil {
			result.Failed++
			s.observe("failed")
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "automatic withdrawal rolled back",
					"application_id", app.ID, "error", err)
			}
			continue
		}
		result.Withdrawn++
		s.observe("withdrawn")
	}
	if s.metrics != nil {
		s.metrics.ObserveRun()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "withdrawal sweep finished",
			"examined", result.Examined,
			"withdrawn", result.Withdrawn,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}
	return result, nil
}

// withdraw runs the all-or-nothing unit for one application, then fires the
// post-commit notification and audit event.
func (s *Sweeper) withdraw(ctx context.Context, applicationID id.ApplicationID) error {
	ctx, span := s.tracer.Start(ctx, "sweep.withdraw",
		trace.WithAttributes(attribute.String("application_id", applicationID.String())))
	defer span.End()

	var withdrawn *models.Application
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		app, err := s.repo.Get(txCtx, applicationID)
		if err != nil {
			return err
		}
		// Re-check against the transactional read; the batch listing may
		// be stale by now.
		if !eligibility.EligibleForAutomaticWithdrawal(app, s.threshold, s.clock.Now()) {
			return dErrors.New(dErrors.CodeConflict, "application no longer eligible for automatic withdrawal")
		}
		if err := app.AppendStatus(id.StatusWithdrawn, id.UserID{}, s.clock.Now()); err != nil {
			return err
		}
		if err := s.repo.Save(txCtx, app); err != nil {
			return err
		}
		if outcome := s.registers.RemoveFromConsultation(txCtx, app); outcome != register.OutcomeSuccess {
			return dErrors.Newf(dErrors.CodeInternal, "consultation register removal returned %s", outcome)
		}
		withdrawn = app
		return nil
	})
	if err != nil {
		return err
	}

	ports.LogAudit(ctx, s.logger, s.publisher, audit.Event{
		Name:          audit.EventAutomaticWithdrawal,
		ApplicationID: withdrawn.ID,
		Data:          map[string]any{"threshold": s.threshold.String()},
	})
	s.notifyApplicant(ctx, withdrawn)
	return nil
}

// notifyApplicant is best-effort: the withdrawal is already committed and a
// send failure must not undo it.
func (s *Sweeper) notifyApplicant(ctx context.Context, app *models.Application) {
	if s.dispatcher == nil || s.directory == nil {
		return
	}
	applicant, err := s.directory.GetAccount(ctx, app.CreatedByID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "applicant lookup for withdrawal notice failed",
				"application_id", app.ID, "error", err)
		}
		return
	}
	outcome := models.NewCommittedOutcome()
	s.dispatcher.Dispatch(ctx, outcome, []notify.Delivery{{
		Message: notify.Message{
			Template:  notify.TemplateApplicationWithdrawn,
			Recipient: *applicant,
			Data:      map[string]any{"reference": app.Reference},
		},
		FailureKind: models.CouldNotSendNotificationToApplicant,
		RoleLabel:   "applicant",
	}})
}

func (s *Sweeper) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveApplication(result)
	}
}
