package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"medassist/internal/model"
)

// SessionRecord and UserInputRecord are the relational shape of the session
// store for deployments that prefer a database over per-session files.
type SessionRecord struct {
	SessionID   string    `gorm:"primaryKey;size:64"`
	CreatedAt   time.Time `gorm:"not null"`
	LastUpdated time.Time `gorm:"not null;index"`
}

type UserInputRecord struct {
	MessageID     string    `gorm:"primaryKey;size:64"`
	SessionID     string    `gorm:"size:64;not null;index"`
	Message       string    `gorm:"type:text;not null"`
	MessageType   string    `gorm:"size:16;not null"`
	Timestamp     time.Time `gorm:"not null;index"`
	InputLanguage string    `gorm:"size:16"`
	FileName      string    `gorm:"size:256"`
	ExtractedText string    `gorm:"type:text"`
}

// SQLSessionStore implements SessionStore on gorm. Per-session atomicity
// comes from wrapping each append in a transaction.
type SQLSessionStore struct {
	db *gorm.DB
}

func NewSQLSessionStore(db *gorm.DB) (*SQLSessionStore, error) {
	if err := db.AutoMigrate(&SessionRecord{}, &UserInputRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate session tables failed: %w", err)
	}
	return &SQLSessionStore{db: db}, nil
}

func (s *SQLSessionStore) SaveUserInput(ctx context.Context, sessionID string, input model.UserInput) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is empty")
	}

	now := time.Now()
	messageID := uuid.NewString()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session SessionRecord
		err := tx.Where("session_id = ?", sessionID).First(&session).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			session = SessionRecord{SessionID: sessionID, CreatedAt: now, LastUpdated: now}
			if err := tx.Create(&session).Error; err != nil {
				return fmt.Errorf("create session record failed: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load session record failed: %w", err)
		default:
			if err := tx.Model(&SessionRecord{}).
				Where("session_id = ?", sessionID).
				Update("last_updated", now).Error; err != nil {
				return fmt.Errorf("touch session record failed: %w", err)
			}
		}

		record := UserInputRecord{
			MessageID:     messageID,
			SessionID:     sessionID,
			Message:       input.Message,
			MessageType:   string(input.MessageType),
			Timestamp:     now,
			InputLanguage: input.InputLanguage,
			FileName:      input.FileName,
			ExtractedText: input.ExtractedText,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("create user input record failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (s *SQLSessionStore) GetUserInputs(ctx context.Context, sessionID string, limit int) ([]model.UserInput, error) {
	var records []UserInputRecord
	q := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC, message_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list user inputs failed: %w", err)
	}

	// Reverse into chronological order.
	inputs := make([]model.UserInput, len(records))
	for i, record := range records {
		inputs[len(records)-1-i] = model.UserInput{
			MessageID:     record.MessageID,
			Message:       record.Message,
			MessageType:   model.InputType(record.MessageType),
			Timestamp:     record.Timestamp,
			InputLanguage: record.InputLanguage,
			FileName:      record.FileName,
			ExtractedText: record.ExtractedText,
		}
	}
	return inputs, nil
}

func (s *SQLSessionStore) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	var sessions []SessionRecord
	if err := s.db.WithContext(ctx).Order("last_updated DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		var count int64
		if err := s.db.WithContext(ctx).Model(&UserInputRecord{}).
			Where("session_id = ?", session.SessionID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count user inputs failed: %w", err)
		}

		summary := model.SessionSummary{
			SessionID:   session.SessionID,
			CreatedAt:   session.CreatedAt,
			LastUpdated: session.LastUpdated,
			InputCount:  int(count),
		}
		if count > 0 {
			var last UserInputRecord
			if err := s.db.WithContext(ctx).
				Where("session_id = ?", session.SessionID).
				Order("timestamp DESC, message_id DESC").
				First(&last).Error; err == nil {
				ts := last.Timestamp
				summary.LastInputTime = &ts
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *SQLSessionStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	existed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("session_id = ?", sessionID).Delete(&SessionRecord{})
		if result.Error != nil {
			return fmt.Errorf("delete session record failed: %w", result.Error)
		}
		existed = result.RowsAffected > 0
		if err := tx.Where("session_id = ?", sessionID).Delete(&UserInputRecord{}).Error; err != nil {
			return fmt.Errorf("delete user input records failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}
