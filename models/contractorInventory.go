package models

import (
	"context"
	"errors"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractorInventory is the system-of-record quantity of one material held
// by one contractor. A missing row means zero.
type ContractorInventory struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"size:64;not null;uniqueIndex:uniq_contractor_material" json:"businessId"`
	ContractorId int             `gorm:"not null;uniqueIndex:uniq_contractor_material" json:"contractorId"`
	MaterialId   int             `gorm:"not null;uniqueIndex:uniq_contractor_material" json:"materialId"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ContractorInventoryMovement is the append-only trail of ledger writes.
type ContractorInventoryMovement struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	BusinessId     string                `gorm:"size:64;not null;index:idx_movement_pair,priority:1" json:"businessId"`
	ContractorId   int                   `gorm:"not null;index:idx_movement_pair,priority:2" json:"contractorId"`
	MaterialId     int                   `gorm:"not null;index:idx_movement_pair,priority:3" json:"materialId"`
	QuantityBefore decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"quantityBefore"`
	QuantityAfter  decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"quantityAfter"`
	ReferenceType  MovementReferenceType `gorm:"size:20;not null" json:"referenceType"`
	ReferenceId    int                   `gorm:"index" json:"referenceId"`
	CreatedAt      time.Time             `gorm:"autoCreateTime" json:"createdAt"`
}

// LedgerReference names the document that caused a ledger write.
type LedgerReference struct {
	Type MovementReferenceType
	Id   int
}

// GetSystemQuantity reads the ledger quantity for one pair on tx.
func GetSystemQuantity(tx *gorm.DB, businessId string, contractorId int, materialId int) (decimal.Decimal, error) {
	row, err := findInventoryRow(tx, businessId, contractorId, materialId, false)
	if err != nil {
		return decimal.Zero, err
	}
	if row == nil {
		return decimal.Zero, nil
	}
	return row.Quantity, nil
}

func findInventoryRow(tx *gorm.DB, businessId string, contractorId int, materialId int, lock bool) (*ContractorInventory, error) {
	q := tx
	if lock {
		q = forUpdate(tx)
	}
	var row ContractorInventory
	err := q.Where("business_id = ? AND contractor_id = ? AND material_id = ?", businessId, contractorId, materialId).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SetInventoryQuantity overwrites the ledger quantity and records a movement.
// It returns the quantity before the write.
func SetInventoryQuantity(tx *gorm.DB, businessId string, contractorId int, materialId int, quantity decimal.Decimal, ref LedgerReference) (decimal.Decimal, error) {
	return writeInventory(tx, businessId, contractorId, materialId, ref, func(decimal.Decimal) decimal.Decimal {
		return quantity
	})
}

// ChangeInventoryQuantity adds delta (negative for consumption) and returns
// the quantity after the write. The ledger may go below zero; callers raise
// NEGATIVE_INVENTORY for that.
func ChangeInventoryQuantity(tx *gorm.DB, businessId string, contractorId int, materialId int, delta decimal.Decimal, ref LedgerReference) (decimal.Decimal, error) {
	before, err := writeInventory(tx, businessId, contractorId, materialId, ref, func(current decimal.Decimal) decimal.Decimal {
		return current.Add(delta)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return before.Add(delta), nil
}

func writeInventory(tx *gorm.DB, businessId string, contractorId int, materialId int, ref LedgerReference, next func(decimal.Decimal) decimal.Decimal) (decimal.Decimal, error) {
	row, err := findInventoryRow(tx, businessId, contractorId, materialId, true)
	if err != nil {
		return decimal.Zero, err
	}

	before := decimal.Zero
	if row != nil {
		before = row.Quantity
	}
	after := next(before)

	if row == nil {
		row = &ContractorInventory{
			BusinessId:   businessId,
			ContractorId: contractorId,
			MaterialId:   materialId,
			Quantity:     after,
		}
		if err := tx.Create(row).Error; err != nil {
			return decimal.Zero, err
		}
	} else {
		if err := tx.Model(&ContractorInventory{}).
			Where("id = ? AND business_id = ?", row.ID, businessId).
			Update("quantity", after).Error; err != nil {
			return decimal.Zero, err
		}
	}

	movement := ContractorInventoryMovement{
		BusinessId:     businessId,
		ContractorId:   contractorId,
		MaterialId:     materialId,
		QuantityBefore: before,
		QuantityAfter:  after,
		ReferenceType:  ref.Type,
		ReferenceId:    ref.Id,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return decimal.Zero, err
	}
	return before, nil
}

// ListContractorInventory returns the ledger rows of one contractor by material.
func ListContractorInventory(ctx context.Context, contractorId int) ([]*ContractorInventory, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var rows []*ContractorInventory
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ? AND contractor_id = ?", businessId, contractorId).
		Order("material_id").
		Find(&rows).Error
	return rows, err
}

// ListNegativeInventories returns every pair whose ledger is below zero.
func ListNegativeInventories(ctx context.Context, businessId string) ([]*ContractorInventory, error) {
	var rows []*ContractorInventory
	err := config.GetDB().WithContext(ctx).
		Where("business_id = ? AND quantity < 0", businessId).
		Order("contractor_id, material_id").
		Find(&rows).Error
	return rows, err
}

func ListInventoryMovements(ctx context.Context, contractorId int, materialId int) ([]*ContractorInventoryMovement, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var rows []*ContractorInventoryMovement
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ? AND contractor_id = ? AND material_id = ?", businessId, contractorId, materialId).
		Order("id").
		Find(&rows).Error
	return rows, err
}

// ListNegativeInventoryBusinesses returns every business holding at least one
// negative ledger row. Used by the sweep, which runs outside any tenant.
func ListNegativeInventoryBusinesses(ctx context.Context) ([]string, error) {
	var ids []string
	err := config.GetDB().WithContext(ctx).
		Model(&ContractorInventory{}).
		Where("quantity < 0").
		Distinct("business_id").
		Order("business_id").
		Pluck("business_id", &ids).Error
	return ids, err
}
