package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"medassist/internal/model"
)

// FileSessionStore keeps one JSON document per session under dir. Writes go
// through a per-session mutex and land via temp-file + rename, so a record is
// always either the old or the new complete document.
type FileSessionStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileSessionStore(dir string) (*FileSessionStore, error) {
	if dir == "" {
		dir = "chat_sessions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir failed: %w", err)
	}
	return &FileSessionStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileSessionStore) SaveUserInput(ctx context.Context, sessionID string, input model.UserInput) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("session id is empty")
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	session, err := s.readSession(sessionID)
	if err != nil {
		// Unreadable record: start fresh rather than refuse the turn.
		log.Error().Err(err).Str("session_id", sessionID).Msg("load session file failed, reinitializing")
		session = nil
	}
	if session == nil {
		session = &model.Session{
			SessionID: sessionID,
			CreatedAt: now,
		}
	}

	input.MessageID = uuid.NewString()
	input.Timestamp = now
	session.UserInputs = append(session.UserInputs, input)
	session.LastUpdated = now

	if err := s.writeSession(session); err != nil {
		return "", err
	}
	return input.MessageID, nil
}

func (s *FileSessionStore) GetUserInputs(ctx context.Context, sessionID string, limit int) ([]model.UserInput, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.readSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []model.UserInput{}, nil
	}
	return tailInputs(session.UserInputs, limit), nil
}

func (s *FileSessionStore) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir failed: %w", err)
	}

	summaries := make([]model.SessionSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			log.Error().Err(err).Str("file", entry.Name()).Msg("read session file failed")
			continue
		}
		var session model.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			log.Error().Err(err).Str("file", entry.Name()).Msg("parse session file failed")
			continue
		}

		summary := model.SessionSummary{
			SessionID:   session.SessionID,
			CreatedAt:   session.CreatedAt,
			LastUpdated: session.LastUpdated,
			InputCount:  len(session.UserInputs),
		}
		if n := len(session.UserInputs); n > 0 {
			ts := session.UserInputs[n-1].Timestamp
			summary.LastInputTime = &ts
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

func (s *FileSessionStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete session file failed: %w", err)
	}
	return true, nil
}

func (s *FileSessionStore) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *FileSessionStore) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// readSession returns nil, nil when no record exists.
func (s *FileSessionStore) readSession(sessionID string) (*model.Session, error) {
	raw, err := os.ReadFile(s.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file failed: %w", err)
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("parse session file failed: %w", err)
	}
	return &session, nil
}

func (s *FileSessionStore) writeSession(session *model.Session) error {
	payload, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, session.SessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file failed: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp session file failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp session file failed: %w", err)
	}
	if err := os.Rename(tmpPath, s.sessionPath(session.SessionID)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace session file failed: %w", err)
	}
	return nil
}
