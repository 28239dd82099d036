package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Anomaly is an open or resolved discrepancy for one contractor/material.
// OpenKey is set only while unresolved; its unique index keeps at most one
// open anomaly per pair.
type Anomaly struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	BusinessId         string          `gorm:"size:64;not null;index:idx_anomaly_list,priority:1" json:"businessId"`
	ContractorId       int             `gorm:"not null;index:idx_anomaly_list,priority:2" json:"contractorId"`
	MaterialId         int             `gorm:"not null" json:"materialId"`
	AnomalyType        AnomalyType     `gorm:"size:30;not null" json:"anomalyType"`
	ExpectedQuantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"expectedQuantity"`
	ActualQuantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"actualQuantity"`
	VariancePercentage decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"variancePercentage"`
	Source             AnomalySource   `gorm:"size:20;not null" json:"source"`
	ReconciliationId   *int            `gorm:"index" json:"reconciliationId"`
	IsResolved         bool            `gorm:"not null;default:false;index" json:"isResolved"`
	ResolvedAt         *time.Time      `json:"resolvedAt"`
	ResolvedBy         *string         `gorm:"size:100" json:"resolvedBy"`
	ResolutionNotes    *string         `gorm:"type:text" json:"resolutionNotes"`
	OpenKey            *string         `gorm:"size:191;uniqueIndex" json:"-"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"createdAt"`

	ContractorName string `gorm:"-" json:"contractorName,omitempty"`
	MaterialName   string `gorm:"-" json:"materialName,omitempty"`
}

type NewAnomaly struct {
	ContractorId       int
	MaterialId         int
	AnomalyType        AnomalyType
	ExpectedQuantity   decimal.Decimal
	ActualQuantity     decimal.Decimal
	VariancePercentage decimal.Decimal
	Source             AnomalySource
	ReconciliationId   *int
}

type ResolveAnomalyInput struct {
	ResolvedBy string `json:"resolvedBy"`
	Notes      string `json:"notes"`
}

type AnomalyFilter struct {
	Resolved     *bool
	ContractorId int
}

func anomalyOpenKey(businessId string, contractorId int, materialId int) string {
	return fmt.Sprintf("%s:%d:%d", businessId, contractorId, materialId)
}

func findOpenAnomaly(tx *gorm.DB, businessId string, contractorId int, materialId int) (*Anomaly, error) {
	var existing Anomaly
	err := tx.Where("business_id = ? AND open_key = ?", businessId, anomalyOpenKey(businessId, contractorId, materialId)).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// RaiseAnomaly records an unresolved anomaly on tx unless one is already open
// for the pair, in which case the open one is returned untouched and created
// is false.
func RaiseAnomaly(ctx context.Context, tx *gorm.DB, businessId string, input NewAnomaly) (anomaly *Anomaly, created bool, err error) {
	if !input.AnomalyType.IsValid() {
		return nil, false, newValidationError("anomalyType", "is invalid")
	}
	tx = tx.WithContext(ctx)

	existing, err := findOpenAnomaly(tx, businessId, input.ContractorId, input.MaterialId)
	if err != nil || existing != nil {
		return existing, false, err
	}

	openKey := anomalyOpenKey(businessId, input.ContractorId, input.MaterialId)
	record := Anomaly{
		BusinessId:         businessId,
		ContractorId:       input.ContractorId,
		MaterialId:         input.MaterialId,
		AnomalyType:        input.AnomalyType,
		ExpectedQuantity:   input.ExpectedQuantity,
		ActualQuantity:     input.ActualQuantity,
		VariancePercentage: input.VariancePercentage,
		Source:             input.Source,
		ReconciliationId:   input.ReconciliationId,
		OpenKey:            &openKey,
	}
	if err := tx.Create(&record).Error; err != nil {
		if !utils.IsDuplicateKeyError(err) {
			return nil, false, err
		}
		// lost a race with another raise for the same pair
		existing, ferr := findOpenAnomaly(tx, businessId, input.ContractorId, input.MaterialId)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := PublishEvent(ctx, tx, businessId, EventAnomalyRaised, "anomalies", record.ID, record); err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

func GetAnomaly(ctx context.Context, id int) (*Anomaly, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	anomaly, err := utils.FetchModel[Anomaly](ctx, config.GetDB(), businessId, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, &NotFoundError{Entity: "anomaly", Id: id}
		}
		return nil, err
	}
	return anomaly, nil
}

// ResolveAnomaly closes an open anomaly. The status check and the write are
// one conditional update, so of two concurrent resolves exactly one wins.
func ResolveAnomaly(ctx context.Context, id int, input *ResolveAnomalyInput) (*Anomaly, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if input == nil {
		input = &ResolveAnomalyInput{}
	}
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	var anomaly Anomaly
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		updates := map[string]interface{}{
			"is_resolved":      true,
			"resolved_at":      now,
			"open_key":         nil,
			"resolved_by":      utils.NilIfEmpty(input.ResolvedBy),
			"resolution_notes": utils.NilIfEmpty(input.Notes),
		}
		result := tx.Model(&Anomaly{}).
			Where("id = ? AND business_id = ? AND is_resolved = ?", id, businessId, false).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if err := tx.Where("business_id = ? AND id = ?", businessId, id).Take(&anomaly).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "anomaly", Id: id}
			}
			return err
		}
		if result.RowsAffected == 0 {
			return &AlreadyResolvedError{AnomalyId: id}
		}

		if err := createHistory(tx, HistoryActionResolve, anomaly.ID, "anomalies", nil, anomaly, "anomaly resolved", input.ResolvedBy); err != nil {
			return err
		}
		return PublishEvent(ctx, tx, businessId, EventAnomalyResolved, "anomalies", anomaly.ID, anomaly)
	})
	if err != nil {
		return nil, err
	}
	return &anomaly, nil
}

// ListAnomalies returns anomalies newest first.
func ListAnomalies(ctx context.Context, filter AnomalyFilter) ([]*Anomaly, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	q := config.GetDB().WithContext(ctx).Where("business_id = ?", businessId)
	if filter.Resolved != nil {
		q = q.Where("is_resolved = ?", *filter.Resolved)
	}
	if filter.ContractorId > 0 {
		q = q.Where("contractor_id = ?", filter.ContractorId)
	}
	var results []*Anomaly
	err = q.Order("created_at DESC").Order("id DESC").Find(&results).Error
	return results, err
}

// ParseResolvedFilter turns "true"/"false"/"" into the optional filter value.
func ParseResolvedFilter(raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1":
		return utils.NewTrue(), nil
	case "false", "0":
		return utils.NewFalse(), nil
	}
	return nil, newValidationError("resolved", "must be true or false")
}
