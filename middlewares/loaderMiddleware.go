package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

var errNoBusiness = errors.New("business id is required")

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	ContractorLoader *dataloader.Loader[int, *models.Contractor]
	MaterialLoader   *dataloader.Loader[int, *models.Material]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	contractorReader := &contractorReader{db: conn}
	materialReader := &materialReader{db: conn}

	return &Loaders{
		ContractorLoader: dataloader.NewBatchedLoader(contractorReader.getContractors, dataloader.WithWait[int, *models.Contractor](time.Millisecond)),
		MaterialLoader:   dataloader.NewBatchedLoader(materialReader.getMaterials, dataloader.WithWait[int, *models.Material](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders, or fresh ones when the request did not
// pass through LoaderMiddleware.
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return loaders
	}
	return NewLoaders(config.GetDB())
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults orders rows to match ids; ids with no row get the
// type's placeholder.
func generateLoaderResults[T models.Data](results []*T, ids []int) []*dataloader.Result[*T] {
	resultMap := make(map[int]*T, len(results))
	for _, result := range results {
		resultMap[(*result).GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data, ok := resultMap[id]
		if !ok {
			var zero T
			placeholder := zero.GetDefault(id).(T)
			data = &placeholder
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: data})
	}
	return loaderResults
}

func businessIdOf(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok {
		return "", errNoBusiness
	}
	return businessId, nil
}
