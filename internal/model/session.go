package model

import "time"

// InputType classifies a user turn.
type InputType string

const (
	InputTypeText  InputType = "text"
	InputTypeVoice InputType = "voice"
	InputTypeFile  InputType = "file"
)

// UserInput is one recorded turn in a session. FileName and ExtractedText
// are set only for file turns.
type UserInput struct {
	MessageID     string    `json:"message_id"`
	Message       string    `json:"message"`
	MessageType   InputType `json:"message_type"`
	Timestamp     time.Time `json:"timestamp"`
	InputLanguage string    `json:"input_language"`
	FileName      string    `json:"file_name,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
}

// Session is the persisted per-conversation record. UserInputs is
// append-only; insertion order is chronological order.
type Session struct {
	SessionID   string      `json:"session_id"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUpdated time.Time   `json:"last_updated"`
	UserInputs  []UserInput `json:"user_inputs"`
}

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	SessionID     string     `json:"session_id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUpdated   time.Time  `json:"last_updated"`
	InputCount    int        `json:"input_count"`
	LastInputTime *time.Time `json:"last_input_time"`
}
