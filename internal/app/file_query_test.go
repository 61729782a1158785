package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/model"
)

func TestIsFileQuery(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		extracted string
		want      bool
	}{
		{"keyword match", "Please summarize this document", "", true},
		{"keyword read", "read this for me", "", true},
		{"extracted text alone", "hello there", "some content", true},
		{"no signal", "hello there", "", false},
		{"keyword wins even with medical wording", "summarize my health document", "text", true},
		{"case insensitive", "What Is In this IMAGE?", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFileQuery(tt.question, tt.extracted))
		})
	}
}

func TestGetFileAnswerSummarizesFile(t *testing.T) {
	cloud := &stubCloud{answer: "The report lists three findings."}
	retriever := &stubRetriever{}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, "")

	result := svc.GetFileAnswer(context.Background(), "summarize this file", "finding one\nfinding two", true, "s1")

	assert.Equal(t, model.ModeFileExtraction, result.Mode)
	assert.Equal(t, "The report lists three findings.", result.Answer)
	assert.Equal(t, "finding one\nfinding two", result.Context)
	assert.Zero(t, retriever.calls, "file summarization bypasses retrieval")
	require.Len(t, cloud.prompts, 1)
	assert.Contains(t, cloud.prompts[0], "File content to analyze:\nfinding one")
}

func TestGetFileAnswerIncludesHistory(t *testing.T) {
	history := "Previous conversation history:\n[2026-01-02 10:00] User: hi\n---\n\n"
	cloud := &stubCloud{answer: "ok"}
	svc := newTestService(true, &stubRetriever{}, cloud, &stubLocal{}, history)

	result := svc.GetFileAnswer(context.Background(), "summarize this file", "body", true, "s1")

	require.Len(t, cloud.prompts, 1)
	assert.Contains(t, cloud.prompts[0], "User uploaded file and asked:")
	assert.Contains(t, result.Context, "File content: body")
}

func TestGetFileAnswerEmptyExtraction(t *testing.T) {
	cloud := &stubCloud{answer: "unused"}
	svc := newTestService(true, &stubRetriever{}, cloud, &stubLocal{}, "")

	result := svc.GetFileAnswer(context.Background(), "summarize this file", "   ", true, "s1")

	assert.Equal(t, model.ModeFileExtraction, result.Mode)
	assert.Contains(t, result.Answer, "couldn't extract")
	assert.Empty(t, cloud.prompts)
}

func TestGetFileAnswerMedicalQuestionUsesStandardPath(t *testing.T) {
	retriever := &stubRetriever{passages: []model.Passage{{Text: "context"}}}
	cloud := &stubCloud{answer: "medical answer"}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, "")

	result := svc.GetFileAnswer(context.Background(), "what treatment does this suggest", "lab report", true, "s1")

	assert.Equal(t, model.ModeOnlineRAG, result.Mode)
	assert.Equal(t, 1, retriever.calls)
	require.Len(t, cloud.prompts, 1)
	assert.Contains(t, cloud.prompts[0], "File content:\nlab report", "file content rides along on the standard path")
}

func TestGetFileAnswerMedicalOverrideBeatsFileKeyword(t *testing.T) {
	retriever := &stubRetriever{passages: []model.Passage{{Text: "context"}}}
	cloud := &stubCloud{answer: "medical answer"}
	svc := newTestService(true, retriever, cloud, &stubLocal{}, "")

	result := svc.GetFileAnswer(context.Background(), "analyze my symptoms", "report text", true, "s1")

	assert.Equal(t, model.ModeOnlineRAG, result.Mode, "medical wording routes standard even with file keywords")
	assert.Equal(t, 1, retriever.calls)
}

func TestGetFileAnswerOfflineUsesLocalModel(t *testing.T) {
	local := &stubLocal{answer: "local summary"}
	cloud := &stubCloud{}
	svc := newTestService(false, &stubRetriever{}, cloud, local, "")

	result := svc.GetFileAnswer(context.Background(), "summarize this file", "body", true, "s1")

	assert.Equal(t, model.ModeFileExtraction, result.Mode)
	assert.Equal(t, "local summary", result.Answer)
	assert.Empty(t, cloud.prompts)
	require.Len(t, local.prompts, 1)
}
