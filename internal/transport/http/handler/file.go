package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"medassist/internal/app"
	"medassist/internal/language"
	"medassist/internal/model"
	"medassist/internal/ocr"
	"medassist/internal/pkg/docextract"
	"medassist/internal/speech"
	"medassist/internal/transport/http/response"
)

const (
	maxUploadSize   = 15 << 20 // 15 MB
	defaultQuestion = "Please analyze and summarize the content of this file."
)

type FileHandler struct {
	sessions   *app.SessionService
	answers    *app.AnswerService
	translator *language.Translator
	prober     app.Prober
	cloudOCR   ocr.TextExtractor
	localOCR   ocr.TextExtractor
	cloudTTS   speech.Synthesizer
	localTTS   speech.Synthesizer
	voices     VoiceConfig
}

type FileAskResponse struct {
	SessionID          string `json:"session_id"`
	Question           string `json:"question"`
	TranslatedQuestion string `json:"translated_question,omitempty"`
	Answer             string `json:"answer"`
	AudioBase64        string `json:"audio_base64,omitempty"`
	Mode               string `json:"mode"`
	Context            string `json:"context,omitempty"`
	InputLanguage      string `json:"input_language"`
	FileName           string `json:"file_name"`
	ExtractedText      string `json:"extracted_text,omitempty"`
	ExtractedChars     int    `json:"extracted_chars"`
}

func NewFileHandler(sessions *app.SessionService, answers *app.AnswerService, translator *language.Translator, prober app.Prober, cloudOCR, localOCR ocr.TextExtractor, cloudTTS, localTTS speech.Synthesizer, voices VoiceConfig) *FileHandler {
	return &FileHandler{
		sessions:   sessions,
		answers:    answers,
		translator: translator,
		prober:     prober,
		cloudOCR:   cloudOCR,
		localOCR:   localOCR,
		cloudTTS:   cloudTTS,
		localTTS:   localTTS,
		voices:     voices,
	}
}

func (h *FileHandler) AskWithFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing uploaded file (form field 'file')")
		return
	}
	if fileHeader.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 15MB)")
		return
	}

	rawQuestion := strings.TrimSpace(c.PostForm("question"))
	question := rawQuestion
	if question == "" {
		question = defaultQuestion
	}
	useRAG := true
	if raw := c.PostForm("use_rag"); raw != "" {
		if parsed, parseErr := strconv.ParseBool(raw); parseErr == nil {
			useRAG = parsed
		}
	}

	ctx := c.Request.Context()
	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		sessionID = h.sessions.NewSessionID()
	}

	tmpFile, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		return
	}

	online := h.prober.IsOnline()
	extracted, err := h.extractText(c, tmpPath, fileHeader.Filename, online)
	if errors.Is(err, errUnsupportedFileType) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unsupported file type")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("file_name", fileHeader.Filename).Msg("text extraction failed")
		extracted = ""
	}

	fileMessage := "\U0001F4CE File: " + fileHeader.Filename
	if rawQuestion != "" {
		fileMessage = "\U0001F4CE " + fileHeader.Filename + "\n" + rawQuestion
	}

	lang := language.Detect(question)
	if _, err := h.sessions.SaveUserInput(ctx, sessionID, model.UserInput{
		Message:       fileMessage,
		MessageType:   model.InputTypeFile,
		InputLanguage: lang,
		FileName:      fileHeader.Filename,
		ExtractedText: extracted,
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("save user input failed, continuing")
	}

	translated := question
	if lang == language.Hindi && online && h.translator != nil {
		translated = h.translator.Translate(ctx, question, language.Hindi, language.English)
	}

	result := h.answers.GetFileAnswer(ctx, translated, extracted, useRAG, sessionID)

	resp := FileAskResponse{
		SessionID:      sessionID,
		Question:       question,
		Answer:         result.Answer,
		Mode:           string(result.Mode),
		Context:        result.Context,
		InputLanguage:  lang,
		FileName:       fileHeader.Filename,
		ExtractedText:  extracted,
		ExtractedChars: utf8.RuneCountInString(extracted),
	}
	if translated != question {
		resp.TranslatedQuestion = translated
	}
	if voice := c.PostForm("voice"); voice != "" && result.Mode != model.ModeError {
		resp.AudioBase64 = synthesizeBase64(ctx, h.cloudTTS, h.localTTS, online, result.Answer, pickVoice(voice, lang, h.voices))
	}

	response.OK(c, resp)
}

var errUnsupportedFileType = errors.New("unsupported file type")

// extractText picks an extraction backend by file type.
func (h *FileHandler) extractText(c *gin.Context, path, name string, online bool) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		return docextract.ExtractPDFText(f)
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tiff":
		extractor := h.localOCR
		if online && h.cloudOCR != nil {
			extractor = h.cloudOCR
		}
		if extractor == nil {
			return "", nil
		}
		return extractor.ExtractText(c.Request.Context(), path)
	case ".txt", ".md", ".csv":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return "", errUnsupportedFileType
	}
}
