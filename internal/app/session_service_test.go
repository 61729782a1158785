package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/model"
)

type memStore struct {
	inputs map[string][]model.UserInput
}

func newMemStore() *memStore {
	return &memStore{inputs: map[string][]model.UserInput{}}
}

func (m *memStore) SaveUserInput(ctx context.Context, sessionID string, input model.UserInput) (string, error) {
	input.MessageID = uuid.NewString()
	input.Timestamp = time.Now()
	m.inputs[sessionID] = append(m.inputs[sessionID], input)
	return input.MessageID, nil
}

func (m *memStore) GetUserInputs(ctx context.Context, sessionID string, limit int) ([]model.UserInput, error) {
	inputs := m.inputs[sessionID]
	if limit > 0 && limit < len(inputs) {
		inputs = inputs[len(inputs)-limit:]
	}
	out := make([]model.UserInput, len(inputs))
	copy(out, inputs)
	return out, nil
}

func (m *memStore) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	summaries := make([]model.SessionSummary, 0, len(m.inputs))
	for id := range m.inputs {
		summaries = append(summaries, model.SessionSummary{SessionID: id, InputCount: len(m.inputs[id])})
	}
	return summaries, nil
}

func (m *memStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	_, ok := m.inputs[sessionID]
	delete(m.inputs, sessionID)
	return ok, nil
}

type recordingCache struct {
	histories map[string][]model.UserInput
	dirty     map[string]bool
	deletes   int
	sets      int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{histories: map[string][]model.UserInput{}, dirty: map[string]bool{}}
}

func (c *recordingCache) key(sessionID string, limit int) string {
	return fmt.Sprintf("%s:%d", sessionID, limit)
}

func (c *recordingCache) GetHistory(ctx context.Context, sessionID string, limit int) ([]model.UserInput, bool, error) {
	inputs, ok := c.histories[c.key(sessionID, limit)]
	return inputs, ok, nil
}

func (c *recordingCache) SetHistory(ctx context.Context, sessionID string, limit int, inputs []model.UserInput) error {
	c.sets++
	c.histories[c.key(sessionID, limit)] = inputs
	return nil
}

func (c *recordingCache) DeleteHistory(ctx context.Context, sessionID string) error {
	c.deletes++
	c.histories = map[string][]model.UserInput{}
	return nil
}

func (c *recordingCache) MarkDirty(ctx context.Context, sessionID string) error {
	c.dirty[sessionID] = true
	return nil
}

func (c *recordingCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	return c.dirty[sessionID], nil
}

func TestSessionServiceSaveRejectsEmptyID(t *testing.T) {
	svc := NewSessionService(newMemStore(), nil)

	_, err := svc.SaveUserInput(context.Background(), "   ", model.UserInput{Message: "hi", MessageType: model.InputTypeText})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSessionServiceSaveInvalidatesCache(t *testing.T) {
	store := newMemStore()
	c := newRecordingCache()
	svc := NewSessionService(store, c)

	_, err := svc.SaveUserInput(context.Background(), "s1", model.UserInput{Message: "hi", MessageType: model.InputTypeText})

	require.NoError(t, err)
	assert.True(t, c.dirty["s1"])
	assert.Equal(t, 1, c.deletes)
}

func TestSessionServiceGetUserInputsCachesCleanReads(t *testing.T) {
	store := newMemStore()
	c := newRecordingCache()
	svc := NewSessionService(store, c)

	_, err := store.SaveUserInput(context.Background(), "s1", model.UserInput{Message: "hi", MessageType: model.InputTypeText})
	require.NoError(t, err)

	inputs, err := svc.GetUserInputs(context.Background(), "s1", 8)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, 1, c.sets)

	// Second read is served from the cache.
	store.inputs["s1"] = nil
	inputs, err = svc.GetUserInputs(context.Background(), "s1", 8)
	require.NoError(t, err)
	assert.Len(t, inputs, 1)
}

func TestSessionServiceDirtyMarkerBypassesCache(t *testing.T) {
	store := newMemStore()
	c := newRecordingCache()
	svc := NewSessionService(store, c)

	_, err := svc.SaveUserInput(context.Background(), "s1", model.UserInput{Message: "hi", MessageType: model.InputTypeText})
	require.NoError(t, err)

	inputs, err := svc.GetUserInputs(context.Background(), "s1", 8)
	require.NoError(t, err)
	assert.Len(t, inputs, 1)
	assert.Zero(t, c.sets, "dirty sessions are not cached")
}

func TestSessionServiceDeleteSession(t *testing.T) {
	store := newMemStore()
	svc := NewSessionService(store, nil)

	_, err := store.SaveUserInput(context.Background(), "s1", model.UserInput{Message: "hi"})
	require.NoError(t, err)

	existed, err := svc.DeleteSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = svc.DeleteSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSessionServiceNewSessionIDUnique(t *testing.T) {
	svc := NewSessionService(newMemStore(), nil)

	a := svc.NewSessionID()
	b := svc.NewSessionID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
