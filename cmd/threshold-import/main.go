// threshold-import loads variance thresholds for one business from a YAML file:
//
//	global: 5
//	overrides:
//	  - kind: CONTRACTOR_MATERIAL
//	    contractor_id: 1
//	    material_id: 3
//	    percentage: 2.5
//	  - kind: MATERIAL
//	    material_id: 4
//	    percentage: "1.25"
//
// Usage:
//
//	go run ./cmd/threshold-import -business-id <id> -file thresholds.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type thresholdFile struct {
	Global    *string             `yaml:"global"`
	Overrides []thresholdOverride `yaml:"overrides"`
}

type thresholdOverride struct {
	Kind         string `yaml:"kind"`
	ContractorId int    `yaml:"contractor_id"`
	MaterialId   int    `yaml:"material_id"`
	Percentage   string `yaml:"percentage"`
}

type importResult struct {
	GlobalSet bool
	Overrides int
}

func main() {
	businessID := flag.String("business-id", "", "Required: business id")
	file := flag.String("file", "", "Required: YAML file with thresholds")
	updatedBy := flag.String("updated-by", "threshold-import", "Actor recorded in history")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" || strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--business-id and --file are required")
		os.Exit(1)
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
		os.Exit(1)
	}
	parsed, err := parseThresholdFile(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *file, err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)
	ctx = utils.SetUsernameInContext(ctx, *updatedBy)
	result, err := importThresholds(ctx, parsed, *updatedBy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed after %d overrides: %v\n", result.Overrides, err)
		os.Exit(1)
	}
	fmt.Printf("business=%s global_set=%t overrides=%d\n", *businessID, result.GlobalSet, result.Overrides)
}

func parseThresholdFile(raw []byte) (*thresholdFile, error) {
	var f thresholdFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Global == nil && len(f.Overrides) == 0 {
		return nil, fmt.Errorf("file sets neither global nor overrides")
	}
	return &f, nil
}

// importThresholds applies the file in order and stops at the first error.
// Rows already written stay written.
func importThresholds(ctx context.Context, f *thresholdFile, updatedBy string) (importResult, error) {
	var result importResult
	if f.Global != nil {
		pct, err := decimal.NewFromString(strings.TrimSpace(*f.Global))
		if err != nil {
			return result, fmt.Errorf("global: %w", err)
		}
		if _, err := models.SetGlobalThreshold(ctx, &models.GlobalThresholdInput{Percentage: pct, UpdatedBy: updatedBy}); err != nil {
			return result, fmt.Errorf("global: %w", err)
		}
		result.GlobalSet = true
	}
	for i, o := range f.Overrides {
		pct, err := decimal.NewFromString(strings.TrimSpace(o.Percentage))
		if err != nil {
			return result, fmt.Errorf("overrides[%d].percentage: %w", i, err)
		}
		_, err = models.UpsertThresholdOverride(ctx, &models.ThresholdOverrideInput{
			Kind:         models.ThresholdOverrideKind(strings.ToUpper(strings.TrimSpace(o.Kind))),
			ContractorId: o.ContractorId,
			MaterialId:   o.MaterialId,
			Percentage:   pct,
			UpdatedBy:    updatedBy,
		})
		if err != nil {
			return result, fmt.Errorf("overrides[%d]: %w", i, err)
		}
		result.Overrides++
	}
	return result, nil
}
