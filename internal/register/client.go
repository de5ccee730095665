// Package register keeps the local view of an application's presence on the
// external public register consistent with the register itself, across the
// independent consultation and decision phases. The register has its own
// source of truth: local state is only written after a confirmed external
// call.
package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	id "larch/pkg/domain"
)

// Outcome classifies one synchronization attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeFailure Outcome = "Failure"
	OutcomeExempt  Outcome = "Exempt"
	// OutcomeFailedToSaveDecisionDetailsLocally is distinct from plain
	// failure: the external register now holds state the local system
	// cannot track or later auto-remove. Operators must see it as such.
	OutcomeFailedToSaveDecisionDetailsLocally Outcome = "FailedToSaveDecisionDetailsLocally"
)

// ConsultationCase is the payload for a first (consultation) publication.
type ConsultationCase struct {
	Reference   string
	Region      string
	PublishedAt time.Time
}

// Client is the external register collaborator.
type Client interface {
	AddToConsultation(ctx context.Context, c ConsultationCase) (id.CorrelationID, error)
	AddToDecision(ctx context.Context, correlationID id.CorrelationID, reference string, status id.FellingStatus, publishedAt time.Time) error
	RemoveFromConsultation(ctx context.Context, correlationID id.CorrelationID, reference string, removedAt time.Time) error
	RemoveFromDecision(ctx context.Context, correlationID id.CorrelationID, reference string, removedAt time.Time) error
}

// HTTPClient talks JSON to the register service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode register request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("register call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("register call %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode register response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) AddToConsultation(ctx context.Context, cc ConsultationCase) (id.CorrelationID, error) {
	var resp struct {
		CaseID string `json:"case_id"`
	}
	err := c.post(ctx, "/consultation/cases", map[string]any{
		"reference":    cc.Reference,
		"region":       cc.Region,
		"published_at": cc.PublishedAt,
	}, &resp)
	if err != nil {
		return id.CorrelationID{}, err
	}
	parsed, err := id.ParseUserID(resp.CaseID)
	if err != nil {
		return id.CorrelationID{}, fmt.Errorf("register returned invalid case id %q", resp.CaseID)
	}
	return id.CorrelationID(parsed), nil
}

func (c *HTTPClient) AddToDecision(ctx context.Context, correlationID id.CorrelationID, reference string, status id.FellingStatus, publishedAt time.Time) error {
	return c.post(ctx, "/decision/cases", map[string]any{
		"case_id":      correlationID.String(),
		"reference":    reference,
		"status":       status.String(),
		"published_at": publishedAt,
	}, nil)
}

func (c *HTTPClient) RemoveFromConsultation(ctx context.Context, correlationID id.CorrelationID, reference string, removedAt time.Time) error {
	return c.post(ctx, "/consultation/cases/remove", map[string]any{
		"case_id":    correlationID.String(),
		"reference":  reference,
		"removed_at": removedAt,
	}, nil)
}

func (c *HTTPClient) RemoveFromDecision(ctx context.Context, correlationID id.CorrelationID, reference string, removedAt time.Time) error {
	return c.post(ctx, "/decision/cases/remove", map[string]any{
		"case_id":    correlationID.String(),
		"reference":  reference,
		"removed_at": removedAt,
	}, nil)
}
