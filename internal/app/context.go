package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"medassist/internal/model"
)

const (
	historyHeader    = "Previous conversation history:\n"
	historyFooter    = "---\n\n"
	filePreviewRunes = 300
)

// FormatHistory renders up to limit recent turns as a prompt prefix. Returns
// an empty string when the session has no history or the store read fails;
// a degraded prompt beats a failed request here.
func (s *SessionService) FormatHistory(ctx context.Context, sessionID string, limit int) string {
	inputs, err := s.GetUserInputs(ctx, sessionID, limit)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("history unavailable, answering without it")
		return ""
	}
	return formatInputs(inputs)
}

func formatInputs(inputs []model.UserInput) string {
	if len(inputs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(historyHeader)
	for _, input := range inputs {
		stamp := ""
		if !input.Timestamp.IsZero() {
			stamp = input.Timestamp.Format("2006-01-02 15:04")
		}

		switch input.MessageType {
		case model.InputTypeVoice:
			fmt.Fprintf(&b, "[%s] User said (voice): %s\n", stamp, input.Message)
		case model.InputTypeFile:
			fmt.Fprintf(&b, "[%s] User uploaded '%s' and asked: %s\n", stamp, input.FileName, input.Message)
			if preview := previewText(input.ExtractedText); preview != "" {
				fmt.Fprintf(&b, "File content: %s\n", preview)
			}
		default:
			fmt.Fprintf(&b, "[%s] User: %s\n", stamp, input.Message)
		}
		b.WriteString("\n")
	}
	b.WriteString(historyFooter)
	return b.String()
}

func previewText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= filePreviewRunes {
		return text
	}
	return string(runes[:filePreviewRunes]) + "..."
}
