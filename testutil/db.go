// Package testutil opens throwaway sqlite databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const BusinessId = "biz-test"

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory database, installs it as the global
// handle and restores the previous one when the test ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := config.OpenDatabase(config.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(prev)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Context returns a request context for the test business.
func Context() context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), BusinessId)
	return utils.SetUsernameInContext(ctx, "tester")
}

type Fixture struct {
	Contractor *models.Contractor
	Materials  []*models.Material
}

// Seed creates one contractor and n materials in the test business.
func Seed(t *testing.T, ctx context.Context, n int) Fixture {
	t.Helper()
	contractor, err := models.CreateContractor(ctx, &models.NewContractor{Code: "C-001", Name: "Acme Fabrication"})
	if err != nil {
		t.Fatalf("create contractor: %v", err)
	}
	fx := Fixture{Contractor: contractor}
	for i := 1; i <= n; i++ {
		m, err := models.CreateMaterial(ctx, &models.NewMaterial{
			Code: fmt.Sprintf("M-%03d", i),
			Name: fmt.Sprintf("Material %d", i),
			Unit: "kg",
		})
		if err != nil {
			t.Fatalf("create material %d: %v", i, err)
		}
		fx.Materials = append(fx.Materials, m)
	}
	return fx
}

// SetLedger writes an opening ledger quantity.
func SetLedger(t *testing.T, db *gorm.DB, contractorId int, materialId int, qty string) {
	t.Helper()
	_, err := models.SetInventoryQuantity(db.WithContext(Context()), BusinessId, contractorId, materialId,
		decimal.RequireFromString(qty), models.LedgerReference{Type: models.MovementReferenceOpening})
	if err != nil {
		t.Fatalf("set ledger: %v", err)
	}
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func DecPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
