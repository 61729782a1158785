package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/app"
	"medassist/internal/model"
	"medassist/internal/repository"
)

func newFileRouter(t *testing.T) (*gin.Engine, *app.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := repository.NewFileSessionStore(t.TempDir())
	require.NoError(t, err)
	sessions := app.NewSessionService(store, nil)

	answers := app.NewAnswerService(
		fixedProber{online: true},
		noRetriever{},
		fixedCloud{answer: "cloud answer"},
		fixedLocal{answer: "local answer"},
		sessions,
		5,
	)

	h := NewFileHandler(sessions, answers, nil, fixedProber{online: true}, nil, nil, nil, nil, VoiceConfig{Default: "alloy"})
	router := gin.New()
	router.POST("/api/v1/ask_with_file", h.AskWithFile)
	return router, sessions
}

func postFile(t *testing.T, router *gin.Engine, fileName, fileBody string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(fileBody))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask_with_file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(rec, req)
	return rec
}

func TestAskWithFileSavesTurnWithQuestion(t *testing.T) {
	router, sessions := newFileRouter(t)

	rec := postFile(t, router, "notes.txt", "lab values", map[string]string{
		"question":   "what is this document about",
		"session_id": "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	inputs, err := sessions.GetUserInputs(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "\U0001F4CE notes.txt\nwhat is this document about", inputs[0].Message)
	assert.Equal(t, model.InputTypeFile, inputs[0].MessageType)
	assert.Equal(t, "notes.txt", inputs[0].FileName)
	assert.Equal(t, "lab values", inputs[0].ExtractedText)
}

func TestAskWithFileSavesTurnWithoutQuestion(t *testing.T) {
	router, sessions := newFileRouter(t)

	rec := postFile(t, router, "notes.txt", "lab values", map[string]string{"session_id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	inputs, err := sessions.GetUserInputs(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "\U0001F4CE File: notes.txt", inputs[0].Message)

	var body struct {
		Data FileAskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Please analyze and summarize the content of this file.", body.Data.Question)
	assert.Equal(t, "lab values", body.Data.ExtractedText)
}

func TestAskWithFileRejectsUnsupportedType(t *testing.T) {
	router, _ := newFileRouter(t)

	rec := postFile(t, router, "binary.exe", "MZ", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
