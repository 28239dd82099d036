package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// FetchModel loads one row by id inside businessId.
// (may return ErrorRecordNotFound)
func FetchModel[T any](ctx context.Context, db *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	q := db.WithContext(ctx).Where("business_id = ?", businessId)
	for _, field := range associations {
		q = q.Preload(field)
	}
	var result T
	if err := q.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FetchModelsByIds loads every row whose id is in ids; missing ids are skipped.
func FetchModelsByIds[T any](ctx context.Context, db *gorm.DB, businessId string, ids []int) ([]*T, error) {
	var results []*T
	if len(ids) == 0 {
		return results, nil
	}
	err := db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessId, UniqueSlice(ids)).
		Find(&results).Error
	return results, err
}
