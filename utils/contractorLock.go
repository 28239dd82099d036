package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// keyedLocks hands out one single-slot channel per key so waiters can give up
// when their context expires.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var contractorLocks = &keyedLocks{slots: map[string]chan struct{}{}}

func (k *keyedLocks) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	slot, ok := k.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[key] = slot
	}
	k.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ErrLockNotAcquired
	}
}

func ContractorLockKey(businessId string, contractorId int) string {
	return fmt.Sprintf("contractor:%s:%d", businessId, contractorId)
}

// RunWithContractorLock runs fn in a transaction while holding the
// contractor's lock. Reconciliation review, adjustment application and
// consumption checks for one contractor never interleave.
//
// Layers: an in-process slot, an optional redislock, and on MySQL a GET_LOCK
// held on the same connection as the transaction.
func RunWithContractorLock(ctx context.Context, db *gorm.DB, businessId string, contractorId int, fn func(tx *gorm.DB) error) error {
	key := ContractorLockKey(businessId, contractorId)
	wait := config.LockWait()

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	release, err := contractorLocks.acquire(lockCtx, key)
	if err != nil {
		return err
	}
	defer release()

	if config.RedisLockEnabled() {
		if locker := config.GetRedisLock(); locker != nil {
			lock, err := locker.Obtain(lockCtx, key, wait+config.OperationTimeout(), &redislock.Options{
				RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
			})
			switch {
			case errors.Is(err, redislock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
				return ErrLockNotAcquired
			case err != nil:
				config.LogError(config.GetLogger(), "ContractorLock", "RunWithContractorLock", "redis lock unavailable, continuing", key, err)
			default:
				defer func() { _ = lock.Release(context.Background()) }()
			}
		}
	}

	if db.Dialector.Name() == config.DriverMySQL {
		return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
			if err := acquireAdvisoryLock(conn, key, wait); err != nil {
				return err
			}
			defer releaseAdvisoryLock(conn, key)
			return conn.Transaction(fn)
		})
	}
	return db.WithContext(ctx).Transaction(fn)
}

// GET_LOCK is connection-scoped; conn must be the connection the transaction runs on.
func acquireAdvisoryLock(conn *gorm.DB, key string, wait time.Duration) error {
	var ok *int
	if err := conn.Raw("SELECT GET_LOCK(?, ?)", key, int(wait.Seconds())).Scan(&ok).Error; err != nil {
		return err
	}
	if ok == nil || *ok != 1 {
		return ErrLockNotAcquired
	}
	return nil
}

func releaseAdvisoryLock(conn *gorm.DB, key string) {
	var released *int
	_ = conn.Raw("SELECT RELEASE_LOCK(?)", key).Scan(&released).Error
}
