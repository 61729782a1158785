package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"medassist/internal/app"
	"medassist/internal/language"
	"medassist/internal/model"
	"medassist/internal/speech"
	"medassist/internal/transport/http/response"
)

const maxAudioSize = 25 << 20 // 25 MB

type TranscribeHandler struct {
	sessions   *app.SessionService
	answers    *app.AnswerService
	translator *language.Translator
	prober     app.Prober
	converter  *speech.Converter
	cloudSTT   speech.Transcriber
	localSTT   speech.Transcriber
	speaker    speech.Dispatcher
	voices     VoiceConfig
}

type TranscribeResponse struct {
	SessionID            string `json:"session_id"`
	Transcript           string `json:"transcript"`
	TranslatedTranscript string `json:"translated_transcript,omitempty"`
	Answer               string `json:"answer"`
	Context              string `json:"context,omitempty"`
	Mode                 string `json:"mode"`
	InputLanguage        string `json:"input_language"`
}

func NewTranscribeHandler(sessions *app.SessionService, answers *app.AnswerService, translator *language.Translator, prober app.Prober, converter *speech.Converter, cloudSTT, localSTT speech.Transcriber, speaker speech.Dispatcher, voices VoiceConfig) *TranscribeHandler {
	return &TranscribeHandler{
		sessions:   sessions,
		answers:    answers,
		translator: translator,
		prober:     prober,
		converter:  converter,
		cloudSTT:   cloudSTT,
		localSTT:   localSTT,
		speaker:    speaker,
		voices:     voices,
	}
}

// Transcribe accepts an audio upload, answers the transcribed question, and
// fires off spoken playback of the answer in the background.
func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	audioHeader, err := c.FormFile("file")
	if err != nil {
		// Older clients send the upload as "audio".
		audioHeader, err = c.FormFile("audio")
	}
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing audio file (form field 'file')")
		return
	}
	if audioHeader.Size > maxAudioSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "audio too large (max 25MB)")
		return
	}

	useRAG := true
	if raw := c.PostForm("use_rag"); raw != "" {
		if parsed, parseErr := strconv.ParseBool(raw); parseErr == nil {
			useRAG = parsed
		}
	}
	speak := true
	if raw := c.PostForm("speak"); raw != "" {
		if parsed, parseErr := strconv.ParseBool(raw); parseErr == nil {
			speak = parsed
		}
	}

	ctx := c.Request.Context()
	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		sessionID = h.sessions.NewSessionID()
	}

	rawPath, wavPath, err := prepareAudioPaths(audioHeader.Filename)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}
	defer os.Remove(rawPath)
	defer os.Remove(wavPath)

	if err := c.SaveUploadedFile(audioHeader, rawPath); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}
	if err := h.converter.ToWAV(ctx, rawPath, wavPath); err != nil {
		log.Error().Err(err).Msg("audio conversion failed")
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "could not decode audio")
		return
	}

	online := h.prober.IsOnline()
	transcriber := h.localSTT
	if online && h.cloudSTT != nil {
		transcriber = h.cloudSTT
	}
	if transcriber == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, "no transcription backend configured")
		return
	}

	transcript, err := transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "transcription failed")
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no speech detected in audio")
		return
	}

	lang := language.Detect(transcript)
	if _, err := h.sessions.SaveUserInput(ctx, sessionID, model.UserInput{
		Message:       transcript,
		MessageType:   model.InputTypeVoice,
		InputLanguage: lang,
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("save user input failed, continuing")
	}

	translated := transcript
	if lang == language.Hindi && online && h.translator != nil {
		translated = h.translator.Translate(ctx, transcript, language.Hindi, language.English)
	}

	result := h.answers.GetAnswer(ctx, translated, useRAG, sessionID)

	if speak && h.speaker != nil && result.Mode != model.ModeError {
		h.speaker.Dispatch(model.SpeechJob{
			Text:    result.Answer,
			VoiceID: h.voices.For(lang),
			Offline: !online,
		})
	}

	resp := TranscribeResponse{
		SessionID:     sessionID,
		Transcript:    transcript,
		Answer:        result.Answer,
		Context:       result.Context,
		Mode:          string(result.Mode),
		InputLanguage: lang,
	}
	if translated != transcript {
		resp.TranslatedTranscript = translated
	}
	response.OK(c, resp)
}

func prepareAudioPaths(name string) (rawPath, wavPath string, err error) {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".webm"
	}
	rawFile, err := os.CreateTemp("", "audio-*"+ext)
	if err != nil {
		return "", "", err
	}
	rawPath = rawFile.Name()
	_ = rawFile.Close()

	wavFile, err := os.CreateTemp("", "audio-*.wav")
	if err != nil {
		os.Remove(rawPath)
		return "", "", err
	}
	wavPath = wavFile.Name()
	_ = wavFile.Close()
	return rawPath, wavPath, nil
}
