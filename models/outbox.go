package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"gorm.io/gorm"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and published after commit by the dispatcher.
type OutboxEvent struct {
	ID               int             `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	BusinessId       string          `gorm:"size:64;not null;index" json:"business_id"`
	EventType        OutboxEventType `gorm:"size:40;not null;index" json:"event_type"`
	ReferenceId      int             `gorm:"index" json:"reference_id"`
	ReferenceType    string          `gorm:"size:40" json:"reference_type"`
	Payload          []byte          `gorm:"type:blob" json:"payload"`
	OccurredAt       time.Time       `gorm:"not null" json:"occurred_at"`
	PublishStatus    string          `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time      `json:"published_at"`
	PubSubMessageId  *string         `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int             `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time      `gorm:"index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time      `json:"locked_at"`
	LockedBy         *string         `gorm:"size:100" json:"locked_by"`
	LastPublishError *string         `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToPubSubMessage(record OutboxEvent) config.PubSubMessage {
	return config.PubSubMessage{
		ID:            record.ID,
		BusinessId:    record.BusinessId,
		EventType:     string(record.EventType),
		ReferenceId:   record.ReferenceId,
		ReferenceType: record.ReferenceType,
		OccurredAt:    record.OccurredAt,
		Payload:       json.RawMessage(record.Payload),
		CorrelationId: record.CorrelationId,
	}
}

// PublishEvent stages an outbox row on tx. Nothing leaves the process until
// the transaction commits and the dispatcher picks the row up.
func PublishEvent(ctx context.Context, tx *gorm.DB, businessId string, eventType OutboxEventType, refType string, refId int, obj interface{}) error {
	if !config.OutboxEnabled() {
		return nil
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	record := OutboxEvent{
		BusinessId:    businessId,
		EventType:     eventType,
		ReferenceId:   refId,
		ReferenceType: refType,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return utils.NewCorrelationId()
}

// ListOutboxEvents returns staged events for a reference, oldest first.
func ListOutboxEvents(ctx context.Context, businessId string, refType string, refId int) ([]*OutboxEvent, error) {
	var events []*OutboxEvent
	err := config.GetDB().WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, refType, refId).
		Order("id").
		Find(&events).Error
	return events, err
}
