package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Player plays synthesized audio on the host through an external player.
// Used only by the fire-and-forget playback worker.
type Player struct {
	playerBin string
}

func NewPlayer(playerBin string) *Player {
	if playerBin == "" {
		playerBin = "ffplay"
	}
	return &Player{playerBin: playerBin}
}

func (p *Player) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("no audio to play")
	}

	f, err := os.CreateTemp("", "medassist-play-*")
	if err != nil {
		return fmt.Errorf("create playback temp file failed: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(audio); err != nil {
		_ = f.Close()
		return fmt.Errorf("write playback temp file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close playback temp file failed: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.playerBin, "-nodisp", "-autoexit", "-loglevel", "quiet", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio playback failed: %w: %s", err, stderr.String())
	}
	return nil
}
