package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"medassist/internal/vision"
)

// LocalExtractor runs tesseract for offline OCR. When tesseract reads
// nothing and an image labeler is configured, it falls back to a content
// hint so the file pipeline has something to say about the upload.
type LocalExtractor struct {
	tesseractBin string
	labeler      *vision.Labeler
}

func NewLocalExtractor(tesseractBin string, labeler *vision.Labeler) *LocalExtractor {
	if tesseractBin == "" {
		tesseractBin = "tesseract"
	}
	return &LocalExtractor{tesseractBin: tesseractBin, labeler: labeler}
}

func (e *LocalExtractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, e.tesseractBin, imagePath, "stdout")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("local ocr failed: %w: %s", err, stderr.String())
	}

	text := strings.TrimSpace(stdout.String())
	if text != "" || e.labeler == nil {
		return text, nil
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", nil
	}
	label := e.labeler.BestLabel(imageData)
	if label == "" {
		return "", nil
	}
	log.Info().Str("label", label).Msg("no ocr text, using image classification hint")
	return fmt.Sprintf("[image appears to show: %s]", label), nil
}
