package model

// SpeechJob is a fire-and-forget playback request. Consumers synthesize and
// play the text; nothing reports back to the producer.
type SpeechJob struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	Offline bool   `json:"offline"`
}
