package workflow

import (
	"context"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inboundKey names one consumed message within a business.
type inboundKey struct {
	BusinessId string
	EventType  string
	MessageId  string
}

func (k inboundKey) scope(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.InboundEvent{}).
		Where("business_id = ? AND event_type = ? AND message_id = ?", k.BusinessId, k.EventType, k.MessageId)
}

// claimInboundEvent marks the message PROCESSING on tx and reports whether an
// earlier delivery already applied it.
func claimInboundEvent(tx *gorm.DB, key inboundKey, contractorId int) (applied bool, err error) {
	row := models.InboundEvent{
		BusinessId:   key.BusinessId,
		EventType:    key.EventType,
		MessageId:    key.MessageId,
		ContractorId: contractorId,
		Status:       models.InboundEventProcessing,
		Attempts:     1,
	}
	if err := tx.Create(&row).Error; err == nil {
		return false, nil
	} else if !utils.IsDuplicateKeyError(err) {
		return false, err
	}

	var existing models.InboundEvent
	if err := key.scope(tx).Take(&existing).Error; err != nil {
		return false, err
	}
	if existing.Status == models.InboundEventApplied {
		return true, nil
	}
	return false, key.scope(tx).Updates(map[string]interface{}{
		"status":   models.InboundEventProcessing,
		"attempts": gorm.Expr("attempts + 1"),
	}).Error
}

func markInboundEventApplied(tx *gorm.DB, key inboundKey) error {
	return key.scope(tx).Updates(map[string]interface{}{
		"status":     models.InboundEventApplied,
		"applied_at": time.Now().UTC(),
		"last_error": nil,
	}).Error
}

// recordInboundFailure runs after the delivery's transaction rolled back, so
// the attempt and its cause survive for the next delivery and for ops.
func recordInboundFailure(ctx context.Context, db *gorm.DB, key inboundKey, contractorId int, cause error) error {
	msg := cause.Error()
	row := models.InboundEvent{
		BusinessId:   key.BusinessId,
		EventType:    key.EventType,
		MessageId:    key.MessageId,
		ContractorId: contractorId,
		Status:       models.InboundEventFailed,
		Attempts:     1,
		LastError:    &msg,
	}
	return db.WithContext(context.WithoutCancel(ctx)).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_id"}, {Name: "event_type"}, {Name: "message_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     models.InboundEventFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}),
	}).Create(&row).Error
}
