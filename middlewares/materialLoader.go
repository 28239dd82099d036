package middlewares

import (
	"context"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type materialReader struct {
	db *gorm.DB
}

func (r *materialReader) getMaterials(ctx context.Context, ids []int) []*dataloader.Result[*models.Material] {
	businessId, err := businessIdOf(ctx)
	if err != nil {
		return handleError[*models.Material](len(ids), err)
	}
	results, err := utils.FetchModelsByIds[models.Material](ctx, r.db, businessId, ids)
	if err != nil {
		return handleError[*models.Material](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetMaterial(ctx context.Context, id int) (*models.Material, error) {
	loaders := For(ctx)
	return loaders.MaterialLoader.Load(ctx, id)()
}

func GetMaterials(ctx context.Context, ids []int) ([]*models.Material, []error) {
	loaders := For(ctx)
	return loaders.MaterialLoader.LoadMany(ctx, ids)()
}
