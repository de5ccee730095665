// Package notify fans a transition's recipient list out to the delivery
// collaborator. Sends are independent and best-effort: one failed send never
// aborts the rest, it is folded into the transition outcome as a named
// non-blocking failure.
package notify

import (
	"context"
	"log/slog"

	dirmodels "larch/internal/directory/models"
	"larch/internal/licence/models"
)

// Template names the rendered message a recipient gets. Content rendering
// and mail delivery live behind the Sender collaborator.
type Template string

const (
	TemplateApplicationDecision    Template = "application_decision"
	TemplateReturnedToApplicant    Template = "returned_to_applicant"
	TemplateReturnedToReviewStage  Template = "returned_to_review_stage"
	TemplateRoleAssigned           Template = "role_assigned"
	TemplateApplicationWithdrawn   Template = "application_withdrawn"
	TemplateWithdrawalReverted     Template = "withdrawal_reverted"
	TemplateDecisionPublished      Template = "decision_register_published"
)

// Message is one send request.
type Message struct {
	Template  Template
	Recipient dirmodels.Account
	CC        []dirmodels.Account
	Data      map[string]any
}

// Sender delivers one message. Implementations own rendering, transport and
// their timeout behaviour; cancellation arrives through ctx.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Delivery pairs a message with the outcome kind recorded if it fails.
type Delivery struct {
	Message     Message
	FailureKind models.SubFailureKind
	// RoleLabel names the recipient's relationship for logs.
	RoleLabel string
}

// Dispatcher sends deliveries one by one and records failures on the
// outcome.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Dispatch attempts every delivery in order. Failures are recorded as
// "<role> notification failed" sub-failures; the returned count is the
// number of successful sends.
func (d *Dispatcher) Dispatch(ctx context.Context, outcome *models.TransitionOutcome, deliveries []Delivery) int {
	sent := 0
	for _, delivery := range deliveries {
		if err := d.sender.Send(ctx, delivery.Message); err != nil {
			outcome.AddSubFailure(delivery.FailureKind, delivery.RoleLabel+" notification failed")
			if d.logger != nil {
				d.logger.WarnContext(ctx, "notification send failed",
					"template", string(delivery.Message.Template),
					"role", delivery.RoleLabel,
					"recipient", delivery.Message.Recipient.Email,
					"error", err,
				)
			}
			continue
		}
		sent++
	}
	return sent
}
