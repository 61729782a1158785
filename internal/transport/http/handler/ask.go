package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"medassist/internal/app"
	"medassist/internal/language"
	"medassist/internal/model"
	"medassist/internal/speech"
	"medassist/internal/transport/http/response"
)

type AskHandler struct {
	sessions   *app.SessionService
	answers    *app.AnswerService
	translator *language.Translator
	prober     app.Prober
	cloudTTS   speech.Synthesizer
	localTTS   speech.Synthesizer
	voices     VoiceConfig
}

// VoiceConfig maps a detected input language to a synthesis voice.
type VoiceConfig struct {
	Default string
	Hindi   string
}

func (v VoiceConfig) For(lang string) string {
	if lang == language.Hindi && v.Hindi != "" {
		return v.Hindi
	}
	return v.Default
}

type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	UseRAG    *bool  `json:"use_rag"`
	SessionID string `json:"session_id"`
	Voice     string `json:"voice"`
}

type AskResponse struct {
	SessionID          string `json:"session_id"`
	Question           string `json:"question"`
	TranslatedQuestion string `json:"translated_question,omitempty"`
	Answer             string `json:"answer"`
	AudioBase64        string `json:"audio_base64,omitempty"`
	Mode               string `json:"mode"`
	Context            string `json:"context,omitempty"`
	InputLanguage      string `json:"input_language"`
}

func NewAskHandler(sessions *app.SessionService, answers *app.AnswerService, translator *language.Translator, prober app.Prober, cloudTTS, localTTS speech.Synthesizer, voices VoiceConfig) *AskHandler {
	return &AskHandler{
		sessions:   sessions,
		answers:    answers,
		translator: translator,
		prober:     prober,
		cloudTTS:   cloudTTS,
		localTTS:   localTTS,
		voices:     voices,
	}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, app.ErrQuestionEmpty.Error())
		return
	}

	ctx := c.Request.Context()
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = h.sessions.NewSessionID()
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	lang := language.Detect(question)
	if _, err := h.sessions.SaveUserInput(ctx, sessionID, model.UserInput{
		Message:       question,
		MessageType:   model.InputTypeText,
		InputLanguage: lang,
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("save user input failed, continuing")
	}

	online := h.prober.IsOnline()
	translated := question
	if lang == language.Hindi && online && h.translator != nil {
		translated = h.translator.Translate(ctx, question, language.Hindi, language.English)
	}

	result := h.answers.GetAnswer(ctx, translated, useRAG, sessionID)

	resp := AskResponse{
		SessionID:     sessionID,
		Question:      question,
		Answer:        result.Answer,
		Mode:          string(result.Mode),
		Context:       result.Context,
		InputLanguage: lang,
	}
	if translated != question {
		resp.TranslatedQuestion = translated
	}
	if req.Voice != "" && result.Mode != model.ModeError {
		resp.AudioBase64 = synthesizeBase64(ctx, h.cloudTTS, h.localTTS, online, result.Answer, pickVoice(req.Voice, lang, h.voices))
	}

	response.OK(c, resp)
}

// pickVoice honors an explicit voice, otherwise maps the detected input
// language to the configured one.
func pickVoice(requested, lang string, voices VoiceConfig) string {
	if requested != "" && requested != "auto" {
		return requested
	}
	return voices.For(lang)
}

// synthesizeBase64 renders the answer to audio with the mode-matching
// synthesizer. Synthesis failure degrades to empty audio, never a failed
// request.
func synthesizeBase64(ctx context.Context, cloud, local speech.Synthesizer, online bool, text, voiceID string) string {
	synth := cloud
	if !online || synth == nil {
		synth = local
	}
	if synth == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	audio, err := synth.Synthesize(ctx, text, voiceID)
	if err != nil {
		log.Warn().Err(err).Msg("answer synthesis failed, returning text only")
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}
