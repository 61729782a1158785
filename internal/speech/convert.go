package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Converter normalizes uploaded audio to 16kHz mono PCM WAV, the format both
// transcribers expect.
type Converter struct {
	ffmpegBin string
}

func NewConverter(ffmpegBin string) *Converter {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Converter{ffmpegBin: ffmpegBin}
}

// ToWAV converts inputPath into a 16kHz mono pcm_s16le WAV at outputPath.
// Failure is fatal for the request: there is no transcript without audio.
func (c *Converter) ToWAV(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegBin,
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 500 {
			detail = detail[len(detail)-500:]
		}
		return fmt.Errorf("%w: %v: %s", ErrAudioConversion, err, detail)
	}
	return nil
}
