// seed-dev fills a development database with contractors, materials and
// opening ledger balances, and optionally registers session tokens in Redis.
//
// Usage:
//
//	DB_DRIVER=sqlite go run ./cmd/seed-dev -business-id dev -contractors 2 -materials 5 -opening 100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedOptions struct {
	BusinessId  string
	Contractors int
	Materials   int
	Opening     decimal.Decimal
}

type seedSummary struct {
	Contractors []int
	Materials   []int
	LedgerRows  int
}

func main() {
	businessID := flag.String("business-id", "dev-business", "Business id to seed")
	contractors := flag.Int("contractors", 2, "Number of contractors")
	materials := flag.Int("materials", 5, "Number of materials")
	opening := flag.String("opening", "100", "Opening ledger quantity per contractor and material")
	withTokens := flag.Bool("tokens", false, "Register dev-auditor and dev-contractor session tokens in Redis")
	flag.Parse()

	openingQty, err := decimal.NewFromString(strings.TrimSpace(*opening))
	if err != nil || openingQty.IsNegative() {
		fmt.Fprintln(os.Stderr, "--opening must be a non-negative number")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)
	ctx = utils.SetUsernameInContext(ctx, "Seed")

	summary, err := seed(ctx, db, seedOptions{
		BusinessId:  *businessID,
		Contractors: *contractors,
		Materials:   *materials,
		Opening:     openingQty,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("business=%s contractors=%v materials=%v ledger_rows=%d\n",
		*businessID, summary.Contractors, summary.Materials, summary.LedgerRows)

	if *withTokens {
		redisCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		config.ConnectRedisWithRetry(redisCtx)
		if err := registerDevTokens(redisCtx); err != nil {
			fmt.Fprintf(os.Stderr, "register tokens: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("tokens: dev-auditor-token (AUDITOR), dev-contractor-token (CONTRACTOR)")
	}
}

// seed is rerunnable: existing codes are reused and ledger rows are reset to
// the opening quantity.
func seed(ctx context.Context, db *gorm.DB, opts seedOptions) (seedSummary, error) {
	var summary seedSummary
	for i := 1; i <= opts.Contractors; i++ {
		code := fmt.Sprintf("C-%03d", i)
		var existing models.Contractor
		err := db.WithContext(ctx).Where("business_id = ? AND code = ?", opts.BusinessId, code).Take(&existing).Error
		switch {
		case err == nil:
			summary.Contractors = append(summary.Contractors, existing.ID)
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return summary, err
		}
		c, err := models.CreateContractor(ctx, &models.NewContractor{Code: code, Name: fmt.Sprintf("Contractor %d", i)})
		if err != nil {
			return summary, err
		}
		summary.Contractors = append(summary.Contractors, c.ID)
	}

	for i := 1; i <= opts.Materials; i++ {
		code := fmt.Sprintf("M-%03d", i)
		var existing models.Material
		err := db.WithContext(ctx).Where("business_id = ? AND code = ?", opts.BusinessId, code).Take(&existing).Error
		switch {
		case err == nil:
			summary.Materials = append(summary.Materials, existing.ID)
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return summary, err
		}
		m, err := models.CreateMaterial(ctx, &models.NewMaterial{Code: code, Name: fmt.Sprintf("Material %d", i), Unit: "kg"})
		if err != nil {
			return summary, err
		}
		summary.Materials = append(summary.Materials, m.ID)
	}

	for _, contractorId := range summary.Contractors {
		err := utils.RunWithContractorLock(ctx, db, opts.BusinessId, contractorId, func(tx *gorm.DB) error {
			for _, materialId := range summary.Materials {
				if _, err := models.SetInventoryQuantity(tx, opts.BusinessId, contractorId, materialId, opts.Opening,
					models.LedgerReference{Type: models.MovementReferenceOpening}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return summary, err
		}
		summary.LedgerRows += len(summary.Materials)
	}
	return summary, nil
}

func registerDevTokens(ctx context.Context) error {
	if config.GetRedisDB() == nil {
		return errors.New("REDIS_ADDRESS is not set")
	}
	users := map[string]string{
		"dev-auditor":    "AUDITOR",
		"dev-contractor": "CONTRACTOR",
	}
	for username, role := range users {
		if err := config.SetRedisValue(ctx, "Token:"+username+"-token", username, 0); err != nil {
			return err
		}
		if err := config.SetRedisValue(ctx, "Role:"+username, role, 0); err != nil {
			return err
		}
	}
	return nil
}
