package utils

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"gorm.io/gorm"
)

var sequenceMu sync.Mutex

func GetTypeName[T any]() string {
	var v T
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func sequenceKey[T any](businessId string) string {
	return businessId + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
}

// GetSequence returns the next sequence_no for T within businessId.
// Redis holds the counter when available; the table's max(sequence_no) seeds
// it and is the fallback when redis is disabled. tx must be the caller's
// transaction so the max is read on the same connection.
func GetSequence[T any](ctx context.Context, tx *gorm.DB, businessId string) (int64, error) {
	sequenceMu.Lock()
	defer sequenceMu.Unlock()

	key := sequenceKey[T](businessId)
	for {
		seqNo, err := config.GetRedisCounter(ctx, key)
		if err != nil {
			return 0, err
		}
		if seqNo <= 1 {
			maxSeq, err := maxSequence[T](ctx, tx, businessId)
			if err != nil {
				return 0, err
			}
			seqNo = maxSeq + 1
			if err := config.SetRedisValue(ctx, key, strconv.FormatInt(seqNo, 10), 0); err != nil {
				return 0, err
			}
		}
		taken, err := ResourceCountWhere[T](ctx, tx, businessId, "sequence_no = ?", seqNo)
		if err != nil {
			return 0, err
		}
		if taken == 0 {
			return seqNo, nil
		}
		// counter drifted behind the table; reseed on the next pass
		if err := config.RemoveRedisKey(ctx, key); err != nil {
			return 0, err
		}
	}
}

func maxSequence[T any](ctx context.Context, tx *gorm.DB, businessId string) (int64, error) {
	var model T
	var dbSeq *int64
	if err := tx.WithContext(ctx).Model(&model).Select("max(sequence_no)").
		Where("business_id = ?", businessId).
		Scan(&dbSeq).Error; err != nil {
		return 0, err
	}
	if dbSeq == nil {
		return 0, nil
	}
	return *dbSeq, nil
}
