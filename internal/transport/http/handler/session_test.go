package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/app"
	"medassist/internal/model"
	"medassist/internal/repository"
	"medassist/internal/transport/http/response"
)

func newSessionRouter(t *testing.T) (*gin.Engine, *app.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := repository.NewFileSessionStore(t.TempDir())
	require.NoError(t, err)
	sessions := app.NewSessionService(store, nil)
	h := NewSessionHandler(sessions)

	router := gin.New()
	router.POST("/api/v1/sessions", h.Create)
	router.GET("/api/v1/sessions", h.List)
	router.DELETE("/api/v1/sessions/:id", h.Delete)
	router.GET("/api/v1/history/:id", h.History)
	router.GET("/api/v1/history/:id/export", h.Export)
	return router, sessions
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var body response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSessionCreate(t *testing.T) {
	router, _ := newSessionRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, response.CodeOK, body.Code)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["session_id"])
}

func TestSessionHistoryAndList(t *testing.T) {
	router, sessions := newSessionRouter(t)
	ctx := context.Background()

	_, err := sessions.SaveUserInput(ctx, "s1", model.UserInput{Message: "hello", MessageType: model.InputTypeText, InputLanguage: "en"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/s1", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "s1", data["session_id"])
	assert.Equal(t, float64(1), data["count"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	data = body.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}

func TestSessionHistoryAbsentSessionIsEmpty(t *testing.T) {
	router, _ := newSessionRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/nope", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
}

func TestSessionExport(t *testing.T) {
	router, sessions := newSessionRouter(t)
	ctx := context.Background()

	_, err := sessions.SaveUserInput(ctx, "s1", model.UserInput{Message: "first", MessageType: model.InputTypeText})
	require.NoError(t, err)
	_, err = sessions.SaveUserInput(ctx, "s1", model.UserInput{Message: "second", MessageType: model.InputTypeText})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/s1/export", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "s1.json")

	var body struct {
		SessionID  string            `json:"session_id"`
		UserInputs []model.UserInput `json:"user_inputs"`
		Count      int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body.SessionID)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "first", body.UserInputs[0].Message)
}

func TestSessionExportAbsentSessionIs404(t *testing.T) {
	router, _ := newSessionRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/nope/export", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionDelete(t *testing.T) {
	router, sessions := newSessionRouter(t)
	ctx := context.Background()

	_, err := sessions.SaveUserInput(ctx, "s1", model.UserInput{Message: "hello", MessageType: model.InputTypeText})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s1", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s1", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
