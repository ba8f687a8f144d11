package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/summitline/keel/internal/anthropic"
)

type patternResponse struct {
	Patterns []BehavioralPattern `json:"patterns"`
}

// AnalyzePatterns asks the model for behavioral patterns recurring across
// several session transcripts. Malformed responses degrade to an empty
// result; API errors propagate.
func (e *Extractor) AnalyzePatterns(ctx context.Context, transcripts []string) ([]BehavioralPattern, error) {
	if len(transcripts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	var sb strings.Builder
	for i, tr := range transcripts {
		fmt.Fprintf(&sb, "Session %d:\n%s\n\n", i+1, tr)
	}

	prompt := fmt.Sprintf(patternUserPrompt, sb.String())
	raw, err := e.llm.Complete(ctx, patternSystemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, 4096)
	if err != nil {
		return nil, fmt.Errorf("llm pattern analysis: %w", err)
	}

	var resp patternResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		e.logger.Warn("discarding malformed pattern response", "error", err)
		return nil, nil
	}

	e.logger.Info("pattern analysis complete", "sessions", len(transcripts), "patterns", len(resp.Patterns))
	return resp.Patterns, nil
}

// SummarizeSession produces a per-session insight. A malformed response
// degrades to nil; API errors propagate.
func (e *Extractor) SummarizeSession(ctx context.Context, msgs []ConversationMessage) (*SessionInsight, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	prompt := fmt.Sprintf(insightUserPrompt, renderTranscript(msgs))
	raw, err := e.llm.Complete(ctx, insightSystemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, 2048)
	if err != nil {
		return nil, fmt.Errorf("llm session insight: %w", err)
	}

	var insight SessionInsight
	if err := json.Unmarshal([]byte(raw), &insight); err != nil {
		e.logger.Warn("discarding malformed insight response", "error", err)
		return nil, nil
	}

	return &insight, nil
}
