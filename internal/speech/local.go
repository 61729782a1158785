package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// LocalTranscriber shells out to a whisper.cpp binary for offline
// speech-to-text.
type LocalTranscriber struct {
	binPath   string
	modelPath string
}

func NewLocalTranscriber(binPath, modelPath string) *LocalTranscriber {
	return &LocalTranscriber{binPath: binPath, modelPath: modelPath}
}

func (t *LocalTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binPath,
		"-m", t.modelPath,
		"-f", audioPath,
		"-nt",         // no timestamps
		"--no-prints", // transcript only on stdout
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("local transcription failed: %w: %s", err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// LocalSynthesizer shells out to piper for offline text-to-speech, returning
// WAV bytes.
type LocalSynthesizer struct {
	binPath   string
	modelPath string
}

func NewLocalSynthesizer(binPath, modelPath string) *LocalSynthesizer {
	return &LocalSynthesizer{binPath: binPath, modelPath: modelPath}
}

func (s *LocalSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis input is empty")
	}

	out, err := os.CreateTemp("", "medassist-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create tts output file failed: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()
	defer os.Remove(outPath)

	// Voice selection is baked into the piper model; voiceID is ignored.
	cmd := exec.CommandContext(ctx, s.binPath,
		"--model", s.modelPath,
		"--output_file", outPath,
	)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("local synthesis failed: %w: %s", err, stderr.String())
	}

	audio, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read tts output failed: %w", err)
	}
	return audio, nil
}
