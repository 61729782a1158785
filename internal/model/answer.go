package model

// Mode tags which pipeline produced an answer.
type Mode string

const (
	ModeOnlineRAG      Mode = "online_with_rag"
	ModeOnlineNoRAG    Mode = "online_no_rag"
	ModeOffline        Mode = "offline"
	ModeFileExtraction Mode = "file_extraction"
	ModeError          Mode = "error"
)

// AnswerResult is produced fresh per request and never persisted.
type AnswerResult struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
	Mode    Mode   `json:"mode"`
}

// Passage is one retrieved nearest-neighbor hit.
type Passage struct {
	Text     string            `json:"text"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
