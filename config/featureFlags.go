package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OutboxEnabled controls whether domain events are written to the outbox.
//
// Set via env:
// - OUTBOX_ENABLED=false (default true)
func OutboxEnabled() bool {
	return boolFromEnv("OUTBOX_ENABLED", true)
}

// RedisLockEnabled adds a redislock around the per-contractor database lock so
// concurrent instances fail fast instead of queueing on the advisory lock.
//
// Set via env:
// - REDIS_LOCK_ENABLED=true (default false)
func RedisLockEnabled() bool {
	return boolFromEnv("REDIS_LOCK_ENABLED", false)
}

// AuthRequired rejects requests without a valid session token. Local
// development and tests turn it off.
//
// Set via env:
// - AUTH_REQUIRED=false (default true)
func AuthRequired() bool {
	return boolFromEnv("AUTH_REQUIRED", true)
}

// OperationTimeout bounds every mutating operation (submit, review, resolve).
func OperationTimeout() time.Duration {
	return time.Duration(intFromEnv("OPERATION_TIMEOUT_SECONDS", 15)) * time.Second
}

// LockWait is how long a caller waits for the per-contractor lock.
func LockWait() time.Duration {
	return time.Duration(intFromEnv("LOCK_WAIT_SECONDS", 10)) * time.Second
}

// DefaultVarianceThreshold is used when a business has no global setting row.
//
// Set via env:
// - DEFAULT_VARIANCE_THRESHOLD=5 (percent)
func DefaultVarianceThreshold() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("DEFAULT_VARIANCE_THRESHOLD"))
	if raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
			return d
		}
	}
	return decimal.NewFromInt(5)
}

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}
