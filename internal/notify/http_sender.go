package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSender delivers messages through the notification service, which owns
// template rendering and mail transport.
type HTTPSender struct {
	baseURL string
	http    *http.Client
}

// SenderOption configures the HTTPSender.
type SenderOption func(*HTTPSender)

func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *HTTPSender) { s.http = c }
}

func NewHTTPSender(baseURL string, opts ...SenderOption) *HTTPSender {
	s := &HTTPSender{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"template":  string(msg.Template),
		"recipient": msg.Recipient.Email,
		"data":      msg.Data,
	}
	if len(msg.CC) > 0 {
		cc := make([]string, 0, len(msg.CC))
		for _, recipient := range msg.CC {
			cc = append(cc, recipient.Email)
		}
		payload["cc"] = cc
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}
