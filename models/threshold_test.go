package models_test

import (
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/testutil"
)

func TestResolveThresholdHierarchy(t *testing.T) {
	testutil.NewDB(t)
	t.Setenv("DEFAULT_VARIANCE_THRESHOLD", "")
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 2)
	c, m1, m2 := fx.Contractor.ID, fx.Materials[0].ID, fx.Materials[1].ID

	resolve := func() models.ResolvedThreshold {
		t.Helper()
		got, err := models.ResolveThreshold(ctx, nil, testutil.BusinessId, c, m1)
		if err != nil {
			t.Fatalf("ResolveThreshold: %v", err)
		}
		return got
	}
	expect := func(pct string, source models.ThresholdSource) {
		t.Helper()
		got := resolve()
		if !got.Percentage.Equal(dec(pct)) || got.Source != source {
			t.Fatalf("threshold = %s/%s, want %s/%s", got.Percentage, got.Source, pct, source)
		}
	}

	expect("5", models.ThresholdSourceGlobal)

	if _, err := models.SetGlobalThreshold(ctx, &models.GlobalThresholdInput{Percentage: dec("7.5"), UpdatedBy: "admin"}); err != nil {
		t.Fatalf("SetGlobalThreshold: %v", err)
	}
	expect("7.5", models.ThresholdSourceGlobal)

	upsert := func(in models.ThresholdOverrideInput) *models.VarianceThresholdOverride {
		t.Helper()
		o, err := models.UpsertThresholdOverride(ctx, &in)
		if err != nil {
			t.Fatalf("UpsertThresholdOverride(%s): %v", in.Kind, err)
		}
		return o
	}

	contractorOnly := upsert(models.ThresholdOverrideInput{Kind: models.ThresholdOverrideContractor, ContractorId: c, Percentage: dec("12")})
	expect("12", models.ThresholdSourceContractor)

	materialOnly := upsert(models.ThresholdOverrideInput{Kind: models.ThresholdOverrideMaterial, MaterialId: m1, Percentage: dec("8")})
	expect("8", models.ThresholdSourceMaterial)

	pair := upsert(models.ThresholdOverrideInput{Kind: models.ThresholdOverrideContractorMaterial, ContractorId: c, MaterialId: m1, Percentage: dec("2")})
	expect("2", models.ThresholdSourceContractorMaterial)

	// the pair override for m1 does not leak to m2
	got, err := models.ResolveThreshold(ctx, nil, testutil.BusinessId, c, m2)
	if err != nil {
		t.Fatalf("ResolveThreshold m2: %v", err)
	}
	if !got.Percentage.Equal(dec("12")) || got.Source != models.ThresholdSourceContractor {
		t.Fatalf("m2 threshold = %s/%s", got.Percentage, got.Source)
	}

	// upsert replaces in place
	again := upsert(models.ThresholdOverrideInput{Kind: models.ThresholdOverrideContractorMaterial, ContractorId: c, MaterialId: m1, Percentage: dec("3")})
	if again.ID != pair.ID {
		t.Fatalf("upsert created a second row: %d vs %d", again.ID, pair.ID)
	}
	expect("3", models.ThresholdSourceContractorMaterial)

	for _, o := range []*models.VarianceThresholdOverride{pair, materialOnly, contractorOnly} {
		if _, err := models.DeleteThresholdOverride(ctx, o.ID); err != nil {
			t.Fatalf("DeleteThresholdOverride: %v", err)
		}
	}
	expect("7.5", models.ThresholdSourceGlobal)

	rows, err := models.ListThresholdOverrides(ctx)
	if err != nil {
		t.Fatalf("ListThresholdOverrides: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("overrides left: %d", len(rows))
	}
	if _, err := models.DeleteThresholdOverride(ctx, pair.ID); !models.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestGlobalThresholdFromEnvironment(t *testing.T) {
	testutil.NewDB(t)
	t.Setenv("DEFAULT_VARIANCE_THRESHOLD", "10")
	ctx := testutil.Context()

	got, err := models.ResolveThreshold(ctx, nil, testutil.BusinessId, 1, 1)
	if err != nil {
		t.Fatalf("ResolveThreshold: %v", err)
	}
	if !got.Percentage.Equal(dec("10")) || got.Source != models.ThresholdSourceGlobal {
		t.Fatalf("threshold = %s/%s, want 10/GLOBAL", got.Percentage, got.Source)
	}
}

func TestThresholdOverrideValidation(t *testing.T) {
	testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 1)
	c, m := fx.Contractor.ID, fx.Materials[0].ID

	tests := []struct {
		name  string
		input models.ThresholdOverrideInput
		field string
	}{
		{"unknown kind", models.ThresholdOverrideInput{Kind: "REGION", ContractorId: c, Percentage: dec("1")}, "kind"},
		{"negative", models.ThresholdOverrideInput{Kind: models.ThresholdOverrideContractor, ContractorId: c, Percentage: dec("-1")}, "percentage"},
		{"pair without material", models.ThresholdOverrideInput{Kind: models.ThresholdOverrideContractorMaterial, ContractorId: c, Percentage: dec("1")}, "materialId"},
		{"material with contractor", models.ThresholdOverrideInput{Kind: models.ThresholdOverrideMaterial, ContractorId: c, MaterialId: m, Percentage: dec("1")}, "contractorId"},
		{"contractor with material", models.ThresholdOverrideInput{Kind: models.ThresholdOverrideContractor, ContractorId: c, MaterialId: m, Percentage: dec("1")}, "materialId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			_, err := models.UpsertThresholdOverride(ctx, &in)
			verr, ok := err.(*models.ValidationError)
			if !ok || verr.Field != tt.field {
				t.Fatalf("expected ValidationError on %s, got %v", tt.field, err)
			}
		})
	}

	_, err := models.UpsertThresholdOverride(ctx, &models.ThresholdOverrideInput{Kind: models.ThresholdOverrideMaterial, MaterialId: 999, Percentage: dec("1")})
	if !models.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError for unknown material, got %v", err)
	}
	if _, err := models.SetGlobalThreshold(ctx, &models.GlobalThresholdInput{Percentage: dec("-0.5")}); !models.IsValidationError(err) {
		t.Fatalf("expected ValidationError for negative global, got %v", err)
	}
}
