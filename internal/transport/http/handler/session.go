package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"medassist/internal/app"
	"medassist/internal/transport/http/response"
)

const defaultHistoryLimit = 50

type SessionHandler struct {
	sessions *app.SessionService
}

func NewSessionHandler(sessions *app.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Create(c *gin.Context) {
	response.OK(c, gin.H{"session_id": h.sessions.NewSessionID()})
}

func (h *SessionHandler) List(c *gin.Context) {
	summaries, err := h.sessions.ListSessions(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list sessions failed")
		return
	}
	response.OK(c, gin.H{"sessions": summaries, "count": len(summaries)})
}

func (h *SessionHandler) History(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil && parsed > 0 {
			limit = parsed
		}
	}

	inputs, err := h.sessions.GetUserInputs(c.Request.Context(), sessionID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "user_inputs": inputs, "count": len(inputs)})
}

// Export streams the full session history as a JSON attachment.
func (h *SessionHandler) Export(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	inputs, err := h.sessions.GetUserInputs(c.Request.Context(), sessionID, 0)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "export session failed")
		return
	}
	if len(inputs) == 0 {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", sessionID))
	c.JSON(http.StatusOK, gin.H{
		"session_id":  sessionID,
		"user_inputs": inputs,
		"count":       len(inputs),
	})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	existed, err := h.sessions.DeleteSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete session failed")
		return
	}
	if !existed {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}
