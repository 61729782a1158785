package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"medassist/internal/model"
	"medassist/internal/repository"
)

// HistoryCache is the optional read cache in front of the session store.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string, limit int) ([]model.UserInput, bool, error)
	SetHistory(ctx context.Context, sessionID string, limit int, inputs []model.UserInput) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// SessionService owns session lifecycle and turn persistence. The cache is
// nil-safe: every cache failure degrades to a store read.
type SessionService struct {
	store repository.SessionStore
	cache HistoryCache
}

func NewSessionService(store repository.SessionStore, cache HistoryCache) *SessionService {
	return &SessionService{store: store, cache: cache}
}

// NewSessionID mints a fresh session identifier. No storage is touched until
// the first turn is saved.
func (s *SessionService) NewSessionID() string {
	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Msg("created new session")
	return sessionID
}

// SaveUserInput appends one turn. Persistence failures are returned but
// callers treat them as non-fatal: the request proceeds, only history
// retention is lost for that turn.
func (s *SessionService) SaveUserInput(ctx context.Context, sessionID string, input model.UserInput) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidInput
	}

	if s.cache != nil {
		_ = s.cache.MarkDirty(ctx, sessionID)
		_ = s.cache.DeleteHistory(ctx, sessionID)
	}

	messageID, err := s.store.SaveUserInput(ctx, sessionID, input)
	if err != nil {
		return "", err
	}
	log.Info().
		Str("session_id", sessionID).
		Str("message_type", string(input.MessageType)).
		Msg("saved user input")
	return messageID, nil
}

// GetUserInputs returns up to limit most recent turns, oldest first. Absent
// sessions yield an empty slice.
func (s *SessionService) GetUserInputs(ctx context.Context, sessionID string, limit int) ([]model.UserInput, error) {
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, sessionID); err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, sessionID, limit); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	inputs, err := s.store.GetUserInputs(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, sessionID); err == nil && !dirty {
			_ = s.cache.SetHistory(ctx, sessionID, limit, inputs)
		}
	}
	return inputs, nil
}

func (s *SessionService) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	return s.store.ListSessions(ctx)
}

// DeleteSession removes the stored record and reports whether one existed.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, ErrInvalidInput
	}
	existed, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		_ = s.cache.DeleteHistory(ctx, sessionID)
	}
	if existed {
		log.Info().Str("session_id", sessionID).Msg("deleted session")
	}
	return existed, nil
}
