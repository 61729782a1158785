package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"medassist/internal/language"
	"medassist/internal/model"
	"medassist/internal/retrieval"
)

const (
	apologyAnswer   = "I apologize, but I encountered an error processing your question."
	ragContextLabel = "Relevant medical information:\n"

	ragTemperature       = 0.3
	assistantTemperature = 0.6

	answerHistoryLimit = 8
	fileHistoryLimit   = 5
)

// Prober reports whether the upstream cloud services are reachable.
type Prober interface {
	IsOnline() bool
}

// Retriever fetches passages relevant to a query from the vector index.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]model.Passage, error)
}

// CloudModel generates an answer with the hosted LLM.
type CloudModel interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// LocalModel generates an answer with the on-device LLM.
type LocalModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HistoryProvider renders conversation history as a prompt prefix.
type HistoryProvider interface {
	FormatHistory(ctx context.Context, sessionID string, limit int) string
}

// AnswerService routes each question to one of the answering modes based on
// connectivity and the caller's retrieval preference.
type AnswerService struct {
	prober    Prober
	retriever Retriever
	cloud     CloudModel
	local     LocalModel
	history   HistoryProvider
	topK      int
}

func NewAnswerService(prober Prober, retriever Retriever, cloud CloudModel, local LocalModel, history HistoryProvider, topK int) *AnswerService {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &AnswerService{
		prober:    prober,
		retriever: retriever,
		cloud:     cloud,
		local:     local,
		history:   history,
		topK:      topK,
	}
}

// GetAnswer answers a question. Any failure along the way collapses to the
// apology result so a caller always gets a well-formed answer back.
func (s *AnswerService) GetAnswer(ctx context.Context, question string, useRAG bool, sessionID string) (result model.AnswerResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("answer pipeline panicked")
			result = errorResult()
		}
	}()

	online := s.prober.IsOnline()

	chatHistory := ""
	if strings.TrimSpace(sessionID) != "" {
		chatHistory = s.history.FormatHistory(ctx, sessionID, answerHistoryLimit)
	}

	switch {
	case online && useRAG:
		return s.answerWithRAG(ctx, question, chatHistory)
	case online:
		return s.answerOnline(ctx, question, chatHistory)
	default:
		return s.answerOffline(ctx, question, chatHistory)
	}
}

func (s *AnswerService) answerWithRAG(ctx context.Context, question, chatHistory string) model.AnswerResult {
	passages, err := s.retriever.Search(ctx, question, s.topK)
	if err != nil {
		log.Error().Err(err).Msg("retrieval failed")
		return errorResult()
	}
	ragContext := retrieval.JoinPassages(passages)

	var fullContext string
	switch {
	case strings.TrimSpace(chatHistory) != "" && strings.TrimSpace(ragContext) != "":
		fullContext = chatHistory + ragContextLabel + ragContext
	case strings.TrimSpace(chatHistory) != "":
		fullContext = chatHistory
	case strings.TrimSpace(ragContext) != "":
		fullContext = ragContextLabel + ragContext
	}

	answer, err := s.cloud.Generate(ctx, ragPrompt(question, fullContext), ragTemperature)
	if err != nil {
		log.Error().Err(err).Msg("cloud generation failed")
		return errorResult()
	}
	return model.AnswerResult{Answer: answer, Context: fullContext, Mode: model.ModeOnlineRAG}
}

func (s *AnswerService) answerOnline(ctx context.Context, question, chatHistory string) model.AnswerResult {
	prompted := question
	if chatHistory != "" {
		prompted = chatHistory + "Current question: " + question
	}

	answer, err := s.cloud.Generate(ctx, assistantPrompt(prompted), assistantTemperature)
	if err != nil {
		log.Error().Err(err).Msg("cloud generation failed")
		return errorResult()
	}
	return model.AnswerResult{Answer: answer, Context: chatHistory, Mode: model.ModeOnlineNoRAG}
}

func (s *AnswerService) answerOffline(ctx context.Context, question, chatHistory string) model.AnswerResult {
	answer, err := s.local.Generate(ctx, strings.TrimSpace(question))
	if err != nil {
		log.Error().Err(err).Msg("local generation failed")
		return errorResult()
	}
	return model.AnswerResult{Answer: answer, Context: chatHistory, Mode: model.ModeOffline}
}

// ragPrompt builds the context-grounded prompt. Devanagari retrieval context
// confuses the English-tuned generation, so it is dropped rather than quoted.
func ragPrompt(question, context string) string {
	if language.ContainsDevanagari(context) {
		return "You are a helpful medical assistant. Respond calmly and clearly to the user's question.\nQuestion: " + question
	}
	if strings.TrimSpace(context) == "" {
		context = "[No relevant context]"
	}
	return "You are a helpful medical assistant. Try to answer the user's question using the provided context below.\n" +
		"If relevant information is present in the context, prioritize it. If not, fall back on your general medical knowledge to give a calm, empathetic, and helpful answer.\n\n" +
		"Context:\n" + context + "\n\nQuestion: " + question
}

func assistantPrompt(question string) string {
	return "You are a kind, empathetic medical assistant. Respond calmly and clearly.\nQuestion: " + question
}

func errorResult() model.AnswerResult {
	return model.AnswerResult{Answer: apologyAnswer, Context: "", Mode: model.ModeError}
}
