package middlewares

import (
	"context"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type contractorReader struct {
	db *gorm.DB
}

func (r *contractorReader) getContractors(ctx context.Context, ids []int) []*dataloader.Result[*models.Contractor] {
	businessId, err := businessIdOf(ctx)
	if err != nil {
		return handleError[*models.Contractor](len(ids), err)
	}
	results, err := utils.FetchModelsByIds[models.Contractor](ctx, r.db, businessId, ids)
	if err != nil {
		return handleError[*models.Contractor](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetContractor(ctx context.Context, id int) (*models.Contractor, error) {
	loaders := For(ctx)
	return loaders.ContractorLoader.Load(ctx, id)()
}

func GetContractors(ctx context.Context, ids []int) ([]*models.Contractor, []error) {
	loaders := For(ctx)
	return loaders.ContractorLoader.LoadMany(ctx, ids)()
}
