// Package mailer delivers transactional email through the Brevo API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.brevo.com/v3/smtp/email"

// Message is a single outbound email with both HTML and plain-text bodies.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Mailer struct {
	apiKey    string
	fromEmail string
	fromName  string
	apiURL    string
	client    *http.Client
	logger    *slog.Logger
}

func New(apiKey, fromEmail, fromName string, logger *slog.Logger) *Mailer {
	return &Mailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		apiURL:    defaultAPIURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// SetTestTransport redirects API calls to a test server.
func (m *Mailer) SetTestTransport(url string) {
	m.apiURL = url
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      address   `json:"sender"`
	To          []address `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent,omitempty"`
	TextContent string    `json:"textContent,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Send dispatches one email. Any failure is returned to the caller, which
// must not update idempotency markers so the send is retried next run.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{
		Sender:      address{Email: m.fromEmail, Name: m.fromName},
		To:          []address{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiResp sendResponse
		if json.Unmarshal(respBody, &apiResp) == nil && apiResp.Code != "" {
			return fmt.Errorf("brevo error %d: %s — %s", resp.StatusCode, apiResp.Code, apiResp.Message)
		}
		return fmt.Errorf("brevo error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp sendResponse
	_ = json.Unmarshal(respBody, &apiResp)
	m.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "message_id", apiResp.MessageID)
	return nil
}
