package workflow

import (
	"context"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SweepResult struct {
	BusinessId string
	Checked    int
	Raised     int
}

// SweepNegativeInventory raises NEGATIVE_INVENTORY for every ledger row of a
// business that is below zero and has no open anomaly. Each pair is
// re-read under the contractor lock before raising.
func SweepNegativeInventory(ctx context.Context, logger *logrus.Logger, businessId string) (SweepResult, error) {
	result := SweepResult{BusinessId: businessId}
	ctx = utils.SetBusinessIdInContext(ctx, businessId)

	rows, err := models.ListNegativeInventories(ctx, businessId)
	if err != nil {
		return result, err
	}
	db := config.GetDB()
	for _, row := range rows {
		result.Checked++
		var created bool
		err := utils.RunWithContractorLock(ctx, db, businessId, row.ContractorId, func(tx *gorm.DB) error {
			qty, err := models.GetSystemQuantity(tx, businessId, row.ContractorId, row.MaterialId)
			if err != nil || !qty.IsNegative() {
				return err
			}
			_, created, err = models.RaiseAnomaly(ctx, tx, businessId, models.NewAnomaly{
				ContractorId:       row.ContractorId,
				MaterialId:         row.MaterialId,
				AnomalyType:        models.AnomalyTypeNegativeInventory,
				ExpectedQuantity:   decimal.Zero,
				ActualQuantity:     qty,
				VariancePercentage: models.ComputeVariance(decimal.Zero, qty, decimal.Zero).VariancePercentage,
				Source:             models.AnomalySourceSweep,
			})
			return err
		})
		if err != nil {
			config.LogError(logger, "AnomalySweep.go", "SweepNegativeInventory", "raising anomaly", row, err)
			return result, err
		}
		if created {
			result.Raised++
		}
	}
	return result, nil
}

// SweepAllBusinesses runs SweepNegativeInventory for each business that has a
// negative ledger row.
func SweepAllBusinesses(ctx context.Context, logger *logrus.Logger) ([]SweepResult, error) {
	businessIds, err := models.ListNegativeInventoryBusinesses(utils.SetSkipTenantScopeInContext(ctx, true))
	if err != nil {
		return nil, err
	}
	results := make([]SweepResult, 0, len(businessIds))
	for _, businessId := range businessIds {
		r, err := SweepNegativeInventory(ctx, logger, businessId)
		results = append(results, r)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
