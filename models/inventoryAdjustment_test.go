package models_test

import (
	"errors"
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/testutil"
)

func TestApplyInventoryAdjustments(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 2)
	c, m1, m2 := fx.Contractor.ID, fx.Materials[0].ID, fx.Materials[1].ID
	testutil.SetLedger(t, db, c, m1, "40")

	ref := models.LedgerReference{Type: models.MovementReferenceReconciliation, Id: 1}
	results, err := models.ApplyInventoryAdjustments(ctx, nil, testutil.BusinessId, c, ref, []models.AdjustmentItem{
		{MaterialId: m1, Quantity: dec("35")},
		{MaterialId: m2, Quantity: dec("12.5")},
	})
	if err != nil {
		t.Fatalf("ApplyInventoryAdjustments: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !results[0].QuantityBefore.Equal(dec("40")) || !results[0].QuantityAfter.Equal(dec("35")) {
		t.Fatalf("m1 result = %+v", results[0])
	}
	// no ledger row yet reads as zero
	if !results[1].QuantityBefore.IsZero() || !results[1].QuantityAfter.Equal(dec("12.5")) {
		t.Fatalf("m2 result = %+v", results[1])
	}

	movements, err := models.ListInventoryMovements(ctx, c, m1)
	if err != nil {
		t.Fatalf("ListInventoryMovements: %v", err)
	}
	last := movements[len(movements)-1]
	if last.ReferenceType != models.MovementReferenceReconciliation || last.ReferenceId != 1 {
		t.Fatalf("movement reference = %s/%d", last.ReferenceType, last.ReferenceId)
	}
}

func TestApplyInventoryAdjustmentsRollsBackWholeBatch(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 2)
	c, m1, m2 := fx.Contractor.ID, fx.Materials[0].ID, fx.Materials[1].ID
	testutil.SetLedger(t, db, c, m1, "40")
	testutil.SetLedger(t, db, c, m2, "10")

	_, err := models.ApplyInventoryAdjustments(ctx, nil, testutil.BusinessId, c,
		models.LedgerReference{Type: models.MovementReferenceReconciliation, Id: 9},
		[]models.AdjustmentItem{
			{MaterialId: m1, Quantity: dec("1")},
			{MaterialId: m2, Quantity: dec("-3")},
		})
	var partial *models.PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if partial.MaterialId != m2 {
		t.Fatalf("failed material = %d, want %d", partial.MaterialId, m2)
	}

	if got := ledgerQty(t, ctx, c, m1); !dec(got).Equal(dec("40")) {
		t.Fatalf("m1 ledger = %s, first write should have rolled back", got)
	}
	movements, err := models.ListInventoryMovements(ctx, c, m1)
	if err != nil {
		t.Fatalf("ListInventoryMovements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements = %d, want only the opening balance", len(movements))
	}
}

func TestApplyInventoryAdjustmentsRequiresBusiness(t *testing.T) {
	testutil.NewDB(t)
	_, err := models.ApplyInventoryAdjustments(testutil.Context(), nil, "", 1, models.LedgerReference{}, nil)
	if err == nil {
		t.Fatal("expected an error without a business id")
	}
}
