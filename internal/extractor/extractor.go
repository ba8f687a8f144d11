package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/summitline/keel/internal/anthropic"
)

// completionTimeout bounds each model call so a wedged request cannot stall
// the enclosing chat turn or scheduler run.
const completionTimeout = 30 * time.Second

// Completer is the language-model capability the extractor depends on.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

type Extractor struct {
	llm    Completer
	logger *slog.Logger
	now    func() time.Time
}

func New(llm Completer, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger, now: time.Now}
}

// SetClock overrides the extractor's clock for tests.
func (e *Extractor) SetClock(now func() time.Time) {
	e.now = now
}

type commitmentResponse struct {
	Commitments []ExtractedCommitment `json:"commitments"`
}

// Extract derives structured commitments from a conversation. Assistant
// messages are scanned for an explicit commitment table first; when a coach
// has logged commitments that way the table is authoritative and the model is
// not consulted. Otherwise a single structured-output completion runs over
// the whole transcript.
//
// A malformed model response degrades to an empty result; transport and API
// errors propagate so the caller can log them at the chat-turn boundary.
func (e *Extractor) Extract(ctx context.Context, msgs []ConversationMessage) ([]ExtractedCommitment, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	var fromTables []ExtractedCommitment
	for _, m := range msgs {
		if m.Role != "assistant" {
			continue
		}
		fromTables = append(fromTables, ParseTable(m.Text, e.now())...)
	}
	if len(fromTables) > 0 {
		e.logger.Info("commitments taken from table", "count", len(fromTables))
		return fromTables, nil
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	prompt := fmt.Sprintf(commitmentUserPrompt, renderTranscript(msgs))
	raw, err := e.llm.Complete(ctx, commitmentSystemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, 4096)
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	items, err := parseCommitmentJSON(raw)
	if err != nil {
		e.logger.Warn("discarding malformed extraction response", "error", err)
		return nil, nil
	}

	e.logger.Info("extraction complete", "count", len(items))
	return items, nil
}

// parseCommitmentJSON decodes the model's JSON response strictly; the caller
// decides whether a failure degrades or propagates.
func parseCommitmentJSON(raw string) ([]ExtractedCommitment, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var resp commitmentResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	items := resp.Commitments[:0:len(resp.Commitments)]
	for _, c := range resp.Commitments {
		if strings.TrimSpace(c.Description) == "" {
			continue
		}
		if c.Priority != PriorityLow && c.Priority != PriorityMedium && c.Priority != PriorityHigh {
			c.Priority = PriorityMedium
		}
		items = append(items, c)
	}
	return items, nil
}

func renderTranscript(msgs []ConversationMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		role := "Client"
		if m.Role == "assistant" {
			role = "Coach"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, m.Text)
	}
	return sb.String()
}
