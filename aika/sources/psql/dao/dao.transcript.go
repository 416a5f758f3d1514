package dao

import (
	"context"

	"aika/aika/chat"
	"aika/aika/sources/psql/models"
	"aika/aika/utils/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TranscriptDAO archives finalized bubbles. It implements
// chat.TranscriptArchiver.
type TranscriptDAO struct {
	DB *gorm.DB
}

func NewTranscriptDAO(db *gorm.DB) *TranscriptDAO {
	return &TranscriptDAO{DB: db}
}

func (dao *TranscriptDAO) SaveMessages(ctx context.Context, msgs []chat.ChatMessage) error {
	defer logging.LogDuration(ctx, "SaveMessages")()
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]models.TranscriptMessage, 0, len(msgs))
	for _, m := range msgs {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			id = uuid.New()
		}
		row := models.TranscriptMessage{
			ID:             id,
			SessionID:      m.SessionID,
			ConversationID: m.ConversationID,
			Role:           string(m.Role),
			Content:        m.Content,
			IsContinuation: m.IsContinuation,
			IsError:        m.IsError,
			Timestamp:      m.Timestamp,
		}
		if meta := m.TurnMetadata; meta != nil {
			row.Intent = meta.Intent
			row.EscalationTriggered = meta.EscalationTriggered
			row.CaseID = meta.CaseID
			row.ProcessingTimeMs = meta.ProcessingTimeMs
			if meta.RiskAssessment != nil {
				row.RiskLevel = string(meta.RiskAssessment.RiskLevel)
				row.RiskScore = meta.RiskAssessment.RiskScore
			}
		}
		rows = append(rows, row)
	}
	return dao.DB.WithContext(ctx).Create(&rows).Error
}

// GetConversation returns the archived bubbles of one conversation in
// order.
func (dao *TranscriptDAO) GetConversation(ctx context.Context, conversationID string) ([]models.TranscriptMessage, error) {
	var rows []models.TranscriptMessage
	err := dao.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListConversations returns the distinct conversation ids of a session,
// most recent first.
func (dao *TranscriptDAO) ListConversations(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := dao.DB.WithContext(ctx).
		Model(&models.TranscriptMessage{}).
		Where("session_id = ?", sessionID).
		Group("conversation_id").
		Order("MAX(timestamp) DESC").
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteConversation removes an archived conversation.
func (dao *TranscriptDAO) DeleteConversation(ctx context.Context, conversationID string) error {
	return dao.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.TranscriptMessage{}).Error
}
