package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"gorm.io/gorm"
)

type History struct {
	ID            int           `gorm:"primary_key" json:"id"`
	BusinessId    string        `gorm:"size:64;index;not null" json:"businessId"`
	ActionType    HistoryAction `gorm:"size:10;not null" json:"actionType"`
	Before        string        `gorm:"type:text" json:"before"`
	After         string        `gorm:"type:text" json:"after"`
	Description   string        `gorm:"type:text;not null" json:"description"`
	ReferenceID   int           `gorm:"index" json:"referenceId"`
	ReferenceType string        `gorm:"size:64;index" json:"referenceType"`
	Actor         string        `gorm:"size:100" json:"actor"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"createdAt"`
}

// createHistory appends an audit row on tx. actor falls back to the session
// username when the caller has none.
func createHistory(tx *gorm.DB,
	actionType HistoryAction,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string,
	actor string) error {

	ctx := tx.Statement.Context
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok {
		return errors.New("business id is required")
	}
	if actor == "" {
		actor, _ = utils.GetUsernameFromContext(ctx)
	}

	history := History{
		BusinessId:    businessId,
		ActionType:    actionType,
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		Actor:         actor,
	}
	if before != nil {
		b, _ := json.Marshal(before)
		history.Before = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		history.After = string(a)
	}
	return tx.Create(&history).Error
}

func ListHistory(ctx context.Context, referenceType string, referenceId int) ([]*History, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok {
		return nil, errors.New("business id is required")
	}
	var results []*History
	err := config.GetDB().WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, referenceType, referenceId).
		Order("id").
		Find(&results).Error
	return results, err
}
