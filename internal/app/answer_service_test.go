package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/model"
)

type stubProber struct{ online bool }

func (s stubProber) IsOnline() bool { return s.online }

type stubRetriever struct {
	passages []model.Passage
	err      error
	calls    int
}

func (s *stubRetriever) Search(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	s.calls++
	return s.passages, s.err
}

type stubCloud struct {
	answer  string
	err     error
	prompts []string
	temps   []float64
}

func (s *stubCloud) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.temps = append(s.temps, temperature)
	return s.answer, s.err
}

type stubLocal struct {
	answer  string
	err     error
	prompts []string
}

func (s *stubLocal) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

type stubHistory struct{ history string }

func (s stubHistory) FormatHistory(ctx context.Context, sessionID string, limit int) string {
	return s.history
}

func newTestService(online bool, retriever *stubRetriever, cloud *stubCloud, local *stubLocal, history string) *AnswerService {
	return NewAnswerService(stubProber{online: online}, retriever, cloud, local, stubHistory{history: history}, 5)
}

func TestGetAnswerOnlineWithRAG(t *testing.T) {
	retriever := &stubRetriever{passages: []model.Passage{
		{Text: "Aspirin thins the blood.", Score: 0.9},
		{Text: "Ibuprofen reduces inflammation.", Score: 0.8},
	}}
	cloud := &stubCloud{answer: "Here is what I found."}
	local := &stubLocal{}
	svc := newTestService(true, retriever, cloud, local, "")

	result := svc.GetAnswer(context.Background(), "What does aspirin do?", true, "s1")

	assert.Equal(t, model.ModeOnlineRAG, result.Mode)
	assert.Equal(t, "Here is what I found.", result.Answer)
	assert.Contains(t, result.Context, "Aspirin thins the blood.")
	assert.Contains(t, result.Context, "Ibuprofen reduces inflammation.")
	assert.Equal(t, 1, retriever.calls)
	require.Len(t, cloud.temps, 1)
	assert.InDelta(t, 0.3, cloud.temps[0], 0.001)
	assert.Empty(t, local.prompts)
}

func TestGetAnswerRAGCombinesHistoryAndPassages(t *testing.T) {
	history := "Previous conversation history:\n[2026-01-02 10:00] User: hi\n---\n\n"
	retriever := &stubRetriever{passages: []model.Passage{{Text: "passage text"}}}
	cloud := &stubCloud{answer: "ok"}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, history)

	result := svc.GetAnswer(context.Background(), "q", true, "s1")

	assert.Contains(t, result.Context, history)
	assert.Contains(t, result.Context, "Relevant medical information:\npassage text")
}

func TestGetAnswerRAGHistoryOnlyContext(t *testing.T) {
	history := "Previous conversation history:\n[2026-01-02 10:00] User: hi\n---\n\n"
	retriever := &stubRetriever{}
	cloud := &stubCloud{answer: "ok"}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, history)

	result := svc.GetAnswer(context.Background(), "q", true, "s1")

	assert.Equal(t, history, result.Context, "no passages means no dangling label")
	assert.NotContains(t, result.Context, "Relevant medical information:")
}

func TestGetAnswerRAGPassagesOnlyKeepLabel(t *testing.T) {
	retriever := &stubRetriever{passages: []model.Passage{{Text: "aspirin thins blood"}}}
	cloud := &stubCloud{answer: "ok"}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, "")

	result := svc.GetAnswer(context.Background(), "q", true, "s1")

	assert.Equal(t, "Relevant medical information:\naspirin thins blood", result.Context)
}

func TestGetAnswerOnlineNoRAG(t *testing.T) {
	retriever := &stubRetriever{}
	cloud := &stubCloud{answer: "plain answer"}
	history := "Previous conversation history:\n[2026-01-02 10:00] User: hi\n---\n\n"
	svc := newTestService(true, retriever, cloud, &stubLocal{}, history)

	result := svc.GetAnswer(context.Background(), "What is a fever?", false, "s1")

	assert.Equal(t, model.ModeOnlineNoRAG, result.Mode)
	assert.Equal(t, "plain answer", result.Answer)
	assert.Equal(t, history, result.Context)
	assert.Zero(t, retriever.calls)
	require.Len(t, cloud.prompts, 1)
	assert.Contains(t, cloud.prompts[0], "Current question: What is a fever?")
	assert.InDelta(t, 0.6, cloud.temps[0], 0.001)
}

func TestGetAnswerNoSessionSkipsHistory(t *testing.T) {
	cloud := &stubCloud{answer: "a"}
	svc := newTestService(true, &stubRetriever{}, cloud, &stubLocal{}, "should not appear")

	result := svc.GetAnswer(context.Background(), "q", false, "")

	assert.Empty(t, result.Context)
	require.Len(t, cloud.prompts, 1)
	assert.NotContains(t, cloud.prompts[0], "should not appear")
	assert.NotContains(t, cloud.prompts[0], "Current question:")
}

func TestGetAnswerOffline(t *testing.T) {
	retriever := &stubRetriever{}
	cloud := &stubCloud{}
	local := &stubLocal{answer: "offline answer"}
	history := "Previous conversation history:\n[2026-01-02 10:00] User: hi\n---\n\n"
	svc := newTestService(false, retriever, cloud, local, history)

	result := svc.GetAnswer(context.Background(), "  What is a fever?  ", true, "s1")

	assert.Equal(t, model.ModeOffline, result.Mode)
	assert.Equal(t, "offline answer", result.Answer)
	assert.Equal(t, history, result.Context)
	assert.Zero(t, retriever.calls, "offline must never hit retrieval")
	assert.Empty(t, cloud.prompts)
	require.Len(t, local.prompts, 1)
	assert.Equal(t, "What is a fever?", local.prompts[0], "offline prompt is the bare trimmed question")
}

func TestGetAnswerFailuresCollapseToApology(t *testing.T) {
	tests := []struct {
		name      string
		online    bool
		useRAG    bool
		retriever *stubRetriever
		cloud     *stubCloud
		local     *stubLocal
	}{
		{
			name:      "retrieval error",
			online:    true,
			useRAG:    true,
			retriever: &stubRetriever{err: errors.New("index down")},
			cloud:     &stubCloud{answer: "unused"},
			local:     &stubLocal{},
		},
		{
			name:      "cloud error",
			online:    true,
			useRAG:    false,
			retriever: &stubRetriever{},
			cloud:     &stubCloud{err: errors.New("api down")},
			local:     &stubLocal{},
		},
		{
			name:      "local error",
			online:    false,
			useRAG:    false,
			retriever: &stubRetriever{},
			cloud:     &stubCloud{},
			local:     &stubLocal{err: errors.New("llama down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.online, tt.retriever, tt.cloud, tt.local, "")
			result := svc.GetAnswer(context.Background(), "q", tt.useRAG, "s1")

			assert.Equal(t, model.ModeError, result.Mode)
			assert.Equal(t, "I apologize, but I encountered an error processing your question.", result.Answer)
			assert.Empty(t, result.Context)
		})
	}
}

func TestGetAnswerRecoversFromPanic(t *testing.T) {
	svc := NewAnswerService(stubProber{online: true}, nil, &stubCloud{}, &stubLocal{}, stubHistory{}, 5)

	// nil retriever panics on the RAG path; the boundary must hold.
	result := svc.GetAnswer(context.Background(), "q", true, "s1")

	assert.Equal(t, model.ModeError, result.Mode)
	assert.Equal(t, apologyAnswer, result.Answer)
}

func TestRagPromptDropsDevanagariContext(t *testing.T) {
	retriever := &stubRetriever{passages: []model.Passage{{Text: "बुखार का इलाज"}}}
	cloud := &stubCloud{answer: "ok"}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, "")

	svc.GetAnswer(context.Background(), "fever treatment", true, "s1")

	require.Len(t, cloud.prompts, 1)
	assert.NotContains(t, cloud.prompts[0], "बुखार")
	assert.Contains(t, cloud.prompts[0], "Respond calmly and clearly")
}

func TestRagPromptEmptyContextPlaceholder(t *testing.T) {
	prompt := ragPrompt("q", "   ")
	assert.Contains(t, prompt, "[No relevant context]")
}
