package language

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"medassist/internal/ai"
)

var languageNames = map[string]string{
	English: "English",
	Hindi:   "Hindi",
}

// Translator performs bidirectional translation through the cloud chat
// model. Online use only. On any failure it returns the input unchanged:
// an untranslated answer beats no answer.
type Translator struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.ChatConfig
}

func NewTranslator(client *ai.OpenAICompatibleClient, cfg ai.ChatConfig) *Translator {
	return &Translator{client: client, cfg: cfg}
}

func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if strings.TrimSpace(text) == "" || sourceLang == targetLang {
		return text
	}

	source := displayName(sourceLang)
	target := displayName(targetLang)
	prompt := fmt.Sprintf(
		"Translate the following %s text to %s. Reply with the translation only, no commentary.\n\n%s",
		source, target, text,
	)

	translated, err := t.client.Complete(ctx, t.cfg, []ai.ChatMessage{
		{Role: "user", Content: prompt},
	}, 0)
	if err != nil {
		log.Error().Err(err).Str("source", sourceLang).Str("target", targetLang).Msg("translation failed, returning original text")
		return text
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return text
	}
	return translated
}

func displayName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
