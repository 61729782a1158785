package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"medassist/internal/model"
)

const noExtractAnswer = "I couldn't extract any readable content from the uploaded file. Please try a clearer image or a text-based document."

// fileQueryKeywords mark questions that are about the uploaded file itself
// rather than a medical question that happens to arrive with an attachment.
var fileQueryKeywords = []string{
	"file", "document", "image", "text", "content", "extract",
	"what does", "what is in", "analyze", "summarize", "tell me about",
	"information from", "show me", "read", "content of",
}

// medicalKeywords override the file classification: a medical question stays
// on the retrieval path even when phrased around the upload.
var medicalKeywords = []string{
	"medical", "doctor", "medicine", "health", "symptom",
	"disease", "treatment", "diagnosis",
}

// IsFileQuery reports whether the question asks about the uploaded file:
// either it uses file-centric phrasing, or content was actually extracted.
func IsFileQuery(question, extractedText string) bool {
	if containsAny(strings.ToLower(question), fileQueryKeywords) {
		return true
	}
	return strings.TrimSpace(extractedText) != ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// GetFileAnswer answers a question that arrived with an uploaded file. File
// centric questions are summarized directly from the extracted text; anything
// else goes through the regular pipeline with the file content appended.
func (s *AnswerService) GetFileAnswer(ctx context.Context, question, extractedText string, useRAG bool, sessionID string) (result model.AnswerResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("file answer pipeline panicked")
			result = errorResult()
		}
	}()

	if containsAny(strings.ToLower(question), medicalKeywords) || !IsFileQuery(question, extractedText) {
		fullQuestion := question
		if strings.TrimSpace(extractedText) != "" {
			fullQuestion = question + "\n\nFile content:\n" + extractedText
		}
		return s.GetAnswer(ctx, fullQuestion, useRAG, sessionID)
	}

	if strings.TrimSpace(extractedText) == "" {
		return model.AnswerResult{Answer: noExtractAnswer, Context: "", Mode: model.ModeFileExtraction}
	}

	chatHistory := ""
	if strings.TrimSpace(sessionID) != "" {
		chatHistory = s.history.FormatHistory(ctx, sessionID, fileHistoryLimit)
	}

	prompted := question + "\n\nFile content to analyze:\n" + extractedText
	if chatHistory != "" {
		prompted = chatHistory + "User uploaded file and asked: " + prompted
	}

	answer, err := s.generate(ctx, assistantPrompt(prompted))
	if err != nil {
		log.Error().Err(err).Msg("file summarization failed")
		return errorResult()
	}

	fullContext := extractedText
	if chatHistory != "" {
		fullContext = chatHistory + "File content: " + extractedText
	}
	return model.AnswerResult{Answer: answer, Context: fullContext, Mode: model.ModeFileExtraction}
}

// generate picks the generation backend by connectivity. The file path skips
// retrieval entirely but still degrades to the local model when offline.
func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	if s.prober.IsOnline() {
		return s.cloud.Generate(ctx, prompt, assistantTemperature)
	}
	return s.local.Generate(ctx, prompt)
}
