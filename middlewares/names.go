package middlewares

import (
	"context"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
)

// AttachReconciliationNames fills the display names of a reconciliation and
// its lines through the request loaders.
func AttachReconciliationNames(ctx context.Context, recs ...*models.Reconciliation) error {
	for _, rec := range recs {
		contractor, err := GetContractor(ctx, rec.ContractorId)
		if err != nil {
			return err
		}
		rec.ContractorName = contractor.Name

		ids := make([]int, 0, len(rec.LineItems))
		for _, li := range rec.LineItems {
			ids = append(ids, li.MaterialId)
		}
		materials, errs := GetMaterials(ctx, ids)
		for i := range rec.LineItems {
			if errs != nil && errs[i] != nil {
				return errs[i]
			}
			rec.LineItems[i].MaterialName = materials[i].Name
		}
	}
	return nil
}

func AttachAnomalyNames(ctx context.Context, anomalies []*models.Anomaly) error {
	contractorIds := make([]int, 0, len(anomalies))
	materialIds := make([]int, 0, len(anomalies))
	for _, a := range anomalies {
		contractorIds = append(contractorIds, a.ContractorId)
		materialIds = append(materialIds, a.MaterialId)
	}
	contractors, errs := GetContractors(ctx, contractorIds)
	if err := firstError(errs); err != nil {
		return err
	}
	materials, errs := GetMaterials(ctx, materialIds)
	if err := firstError(errs); err != nil {
		return err
	}
	for i, a := range anomalies {
		a.ContractorName = contractors[i].Name
		a.MaterialName = materials[i].Name
	}
	return nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
