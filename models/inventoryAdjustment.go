package models

import (
	"context"
	"errors"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdjustmentItem sets one material's ledger quantity to Quantity.
type AdjustmentItem struct {
	MaterialId int
	Quantity   decimal.Decimal
}

type AdjustmentResult struct {
	MaterialId     int             `json:"materialId"`
	QuantityBefore decimal.Decimal `json:"quantityBefore"`
	QuantityAfter  decimal.Decimal `json:"quantityAfter"`
}

// ApplyInventoryAdjustments overwrites the ledger for each item, in order.
//
// With a non-nil tx the writes join the caller's transaction and the caller
// must roll back on error; with tx == nil the batch runs in its own
// transaction. Either way a failing item yields *PartialFailureError and no
// write from the batch survives.
func ApplyInventoryAdjustments(ctx context.Context, tx *gorm.DB, businessId string, contractorId int, ref LedgerReference, items []AdjustmentItem) ([]AdjustmentResult, error) {
	if businessId == "" {
		return nil, errBusinessIdRequired
	}
	if tx == nil {
		var results []AdjustmentResult
		err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			results, err = applyAdjustments(tx, businessId, contractorId, ref, items)
			return err
		})
		if err != nil {
			return nil, err
		}
		return results, nil
	}
	return applyAdjustments(tx.WithContext(ctx), businessId, contractorId, ref, items)
}

func applyAdjustments(tx *gorm.DB, businessId string, contractorId int, ref LedgerReference, items []AdjustmentItem) ([]AdjustmentResult, error) {
	results := make([]AdjustmentResult, 0, len(items))
	for _, item := range items {
		if item.Quantity.IsNegative() {
			return nil, &PartialFailureError{
				MaterialId: item.MaterialId,
				Err:        errors.New("adjusted quantity must not be negative"),
			}
		}
		before, err := SetInventoryQuantity(tx, businessId, contractorId, item.MaterialId, item.Quantity, ref)
		if err != nil {
			return nil, &PartialFailureError{MaterialId: item.MaterialId, Err: err}
		}
		results = append(results, AdjustmentResult{
			MaterialId:     item.MaterialId,
			QuantityBefore: before,
			QuantityAfter:  item.Quantity,
		})
	}
	return results, nil
}
