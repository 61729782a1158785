package speech

import (
	"context"
	"errors"
)

// ErrAudioConversion marks a failed format conversion. Without valid audio no
// transcription can proceed, so this one surfaces as a request failure
// instead of degrading.
var ErrAudioConversion = errors.New("audio conversion failed")

// Transcriber converts recorded speech to text. The orchestrating layer
// picks the cloud or local implementation once per request.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer renders text to playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
