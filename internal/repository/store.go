package repository

import (
	"context"

	"medassist/internal/model"
)

// SessionStore is the durable record of per-conversation user turns. Each
// session is an independent unit of storage keyed by its id: concurrent
// appends to different sessions never interfere, and a read always sees a
// complete prior write from the same process.
//
// SaveUserInput assigns the turn's message id and timestamp; callers fill in
// the rest. A session record is created on the first saved turn, never
// before.
type SessionStore interface {
	SaveUserInput(ctx context.Context, sessionID string, input model.UserInput) (string, error)
	GetUserInputs(ctx context.Context, sessionID string, limit int) ([]model.UserInput, error)
	ListSessions(ctx context.Context) ([]model.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

func tailInputs(inputs []model.UserInput, limit int) []model.UserInput {
	if limit <= 0 || limit >= len(inputs) {
		return inputs
	}
	return inputs[len(inputs)-limit:]
}
