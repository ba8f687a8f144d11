package extractor

import "time"

// ConversationMessage is a single turn in a coaching conversation.
type ConversationMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Priority levels assigned to extracted commitments.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ExtractedCommitment is the extractor's output shape. DueDate is the raw
// string as extracted; deadline resolution happens downstream.
type ExtractedCommitment struct {
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

// BehavioralPattern is a recurring behavior surfaced across several sessions.
type BehavioralPattern struct {
	Pattern    string `json:"pattern"`
	Evidence   string `json:"evidence"`
	Frequency  int    `json:"frequency"`
	Suggestion string `json:"suggestion"`
}

// SessionInsight is a per-session summary of a single conversation.
type SessionInsight struct {
	Summary    string   `json:"summary"`
	KeyTopics  []string `json:"key_topics"`
	Wins       []string `json:"wins"`
	Challenges []string `json:"challenges"`
}
