package models

import (
	"context"
	"errors"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errBusinessIdRequired = errors.New("business id is required")

func requireBusinessId(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok {
		return "", errBusinessIdRequired
	}
	return businessId, nil
}

// withOperationTimeout bounds one mutating operation.
func withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.OperationTimeout())
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect supports row locks.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == config.DriverMySQL {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, utils.ErrorRecordNotFound)
}
