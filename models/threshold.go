package models

import (
	"context"
	"errors"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VarianceThresholdSetting holds a business's global default percentage.
type VarianceThresholdSetting struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"size:64;not null;uniqueIndex" json:"businessId"`
	Percentage decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"percentage"`
	UpdatedBy  string          `gorm:"size:100" json:"updatedBy"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// VarianceThresholdOverride replaces the global default for a contractor,
// a material or a contractor/material pair. Ids not used by the kind are 0.
type VarianceThresholdOverride struct {
	ID           int                   `gorm:"primary_key" json:"id"`
	BusinessId   string                `gorm:"size:64;not null;uniqueIndex:uniq_threshold_override" json:"businessId"`
	Kind         ThresholdOverrideKind `gorm:"size:30;not null;uniqueIndex:uniq_threshold_override" json:"kind"`
	ContractorId int                   `gorm:"not null;default:0;uniqueIndex:uniq_threshold_override" json:"contractorId"`
	MaterialId   int                   `gorm:"not null;default:0;uniqueIndex:uniq_threshold_override" json:"materialId"`
	Percentage   decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"percentage"`
	UpdatedBy    string                `gorm:"size:100" json:"updatedBy"`
	CreatedAt    time.Time             `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time             `gorm:"autoUpdateTime" json:"updatedAt"`
}

type ResolvedThreshold struct {
	Percentage decimal.Decimal `json:"percentage"`
	Source     ThresholdSource `json:"source"`
}

// thresholdLookup is one level of the hierarchy. ok=false passes to the next.
type thresholdLookup func(tx *gorm.DB, businessId string, contractorId int, materialId int) (decimal.Decimal, bool, error)

type thresholdStrategy struct {
	source ThresholdSource
	lookup thresholdLookup
}

// Most specific first; the first strategy that finds a value wins.
var thresholdStrategies = []thresholdStrategy{
	{ThresholdSourceContractorMaterial, overrideLookup(ThresholdOverrideContractorMaterial, true, true)},
	{ThresholdSourceMaterial, overrideLookup(ThresholdOverrideMaterial, false, true)},
	{ThresholdSourceContractor, overrideLookup(ThresholdOverrideContractor, true, false)},
}

func overrideLookup(kind ThresholdOverrideKind, byContractor bool, byMaterial bool) thresholdLookup {
	return func(tx *gorm.DB, businessId string, contractorId int, materialId int) (decimal.Decimal, bool, error) {
		q := VarianceThresholdOverride{Kind: kind}
		if byContractor {
			q.ContractorId = contractorId
		}
		if byMaterial {
			q.MaterialId = materialId
		}
		var row VarianceThresholdOverride
		err := tx.Where("business_id = ? AND kind = ? AND contractor_id = ? AND material_id = ?",
			businessId, q.Kind, q.ContractorId, q.MaterialId).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		if err != nil {
			return decimal.Zero, false, err
		}
		return row.Percentage, true, nil
	}
}

func globalThreshold(tx *gorm.DB, businessId string) (decimal.Decimal, error) {
	var setting VarianceThresholdSetting
	err := tx.Where("business_id = ?", businessId).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return config.DefaultVarianceThreshold(), nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return setting.Percentage, nil
}

// ResolveThreshold returns the percentage that applies to a contractor and
// material right now. It always reads the current configuration.
// tx may be nil outside a transaction.
func ResolveThreshold(ctx context.Context, tx *gorm.DB, businessId string, contractorId int, materialId int) (ResolvedThreshold, error) {
	if tx == nil {
		tx = config.GetDB()
	}
	tx = tx.WithContext(ctx)
	for _, s := range thresholdStrategies {
		pct, ok, err := s.lookup(tx, businessId, contractorId, materialId)
		if err != nil {
			return ResolvedThreshold{}, err
		}
		if ok {
			return ResolvedThreshold{Percentage: pct, Source: s.source}, nil
		}
	}
	pct, err := globalThreshold(tx, businessId)
	if err != nil {
		return ResolvedThreshold{}, err
	}
	return ResolvedThreshold{Percentage: pct, Source: ThresholdSourceGlobal}, nil
}

type GlobalThresholdInput struct {
	Percentage decimal.Decimal `json:"percentage"`
	UpdatedBy  string          `json:"updatedBy"`
}

func SetGlobalThreshold(ctx context.Context, input *GlobalThresholdInput) (*VarianceThresholdSetting, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if input.Percentage.IsNegative() {
		return nil, newValidationError("percentage", "must not be negative")
	}

	var setting VarianceThresholdSetting
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("business_id = ?", businessId).Take(&setting).Error
		before := setting
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			setting = VarianceThresholdSetting{BusinessId: businessId, Percentage: input.Percentage, UpdatedBy: input.UpdatedBy}
			if err := tx.Create(&setting).Error; err != nil {
				return err
			}
			return createHistory(tx, HistoryActionCreate, setting.ID, "variance_threshold_settings", nil, setting, "global threshold set", input.UpdatedBy)
		case err != nil:
			return err
		}
		if err := tx.Model(&setting).Updates(map[string]interface{}{
			"percentage": input.Percentage,
			"updated_by": input.UpdatedBy,
		}).Error; err != nil {
			return err
		}
		setting.Percentage = input.Percentage
		setting.UpdatedBy = input.UpdatedBy
		return createHistory(tx, HistoryActionUpdate, setting.ID, "variance_threshold_settings", before, setting, "global threshold changed", input.UpdatedBy)
	})
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

type ThresholdOverrideInput struct {
	Kind         ThresholdOverrideKind `json:"kind"`
	ContractorId int                   `json:"contractorId"`
	MaterialId   int                   `json:"materialId"`
	Percentage   decimal.Decimal       `json:"percentage"`
	UpdatedBy    string                `json:"updatedBy"`
}

func (input *ThresholdOverrideInput) validate() error {
	if !input.Kind.IsValid() {
		return newValidationError("kind", "must be one of CONTRACTOR_MATERIAL MATERIAL CONTRACTOR")
	}
	if input.Percentage.IsNegative() {
		return newValidationError("percentage", "must not be negative")
	}
	needsContractor := input.Kind != ThresholdOverrideMaterial
	needsMaterial := input.Kind != ThresholdOverrideContractor
	if needsContractor && input.ContractorId <= 0 {
		return newValidationError("contractorId", "is required for "+string(input.Kind))
	}
	if !needsContractor && input.ContractorId != 0 {
		return newValidationError("contractorId", "must be empty for "+string(input.Kind))
	}
	if needsMaterial && input.MaterialId <= 0 {
		return newValidationError("materialId", "is required for "+string(input.Kind))
	}
	if !needsMaterial && input.MaterialId != 0 {
		return newValidationError("materialId", "must be empty for "+string(input.Kind))
	}
	return nil
}

// UpsertThresholdOverride creates or replaces the override for its scope.
func UpsertThresholdOverride(ctx context.Context, input *ThresholdOverrideInput) (*VarianceThresholdOverride, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var override VarianceThresholdOverride
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ContractorId != 0 {
			var n int64
			if err := tx.Model(&Contractor{}).Where("business_id = ? AND id = ?", businessId, input.ContractorId).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return &NotFoundError{Entity: "contractor", Id: input.ContractorId}
			}
		}
		if input.MaterialId != 0 {
			var n int64
			if err := tx.Model(&Material{}).Where("business_id = ? AND id = ?", businessId, input.MaterialId).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return &NotFoundError{Entity: "material", Id: input.MaterialId}
			}
		}

		err := forUpdate(tx).Where("business_id = ? AND kind = ? AND contractor_id = ? AND material_id = ?",
			businessId, input.Kind, input.ContractorId, input.MaterialId).Take(&override).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			override = VarianceThresholdOverride{
				BusinessId:   businessId,
				Kind:         input.Kind,
				ContractorId: input.ContractorId,
				MaterialId:   input.MaterialId,
				Percentage:   input.Percentage,
				UpdatedBy:    input.UpdatedBy,
			}
			if err := tx.Create(&override).Error; err != nil {
				return err
			}
			return createHistory(tx, HistoryActionCreate, override.ID, "variance_threshold_overrides", nil, override, "threshold override created", input.UpdatedBy)
		case err != nil:
			return err
		}
		before := override
		if err := tx.Model(&override).Updates(map[string]interface{}{
			"percentage": input.Percentage,
			"updated_by": input.UpdatedBy,
		}).Error; err != nil {
			return err
		}
		override.Percentage = input.Percentage
		override.UpdatedBy = input.UpdatedBy
		return createHistory(tx, HistoryActionUpdate, override.ID, "variance_threshold_overrides", before, override, "threshold override changed", input.UpdatedBy)
	})
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func DeleteThresholdOverride(ctx context.Context, id int) (*VarianceThresholdOverride, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var override VarianceThresholdOverride
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ? AND id = ?", businessId, id).Take(&override).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "threshold override", Id: id}
			}
			return err
		}
		if err := tx.Where("business_id = ? AND id = ?", businessId, id).Delete(&VarianceThresholdOverride{}).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionDelete, override.ID, "variance_threshold_overrides", override, nil, "threshold override deleted", "")
	})
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func ListThresholdOverrides(ctx context.Context) ([]*VarianceThresholdOverride, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var rows []*VarianceThresholdOverride
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("kind, contractor_id, material_id").
		Find(&rows).Error
	return rows, err
}
