package workflow

import (
	"context"
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/testutil"
)

func TestSweepNegativeInventory(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 3)
	c := fx.Contractor.ID
	m1, m2, m3 := fx.Materials[0].ID, fx.Materials[1].ID, fx.Materials[2].ID
	testutil.SetLedger(t, db, c, m1, "-4")
	testutil.SetLedger(t, db, c, m2, "-1.5")
	testutil.SetLedger(t, db, c, m3, "9")

	// m2 already has an open anomaly
	if _, _, err := models.RaiseAnomaly(ctx, db, testutil.BusinessId, models.NewAnomaly{
		ContractorId: c, MaterialId: m2, AnomalyType: models.AnomalyTypeShortage,
		ExpectedQuantity: testutil.Dec("1"), ActualQuantity: testutil.Dec("0"), VariancePercentage: testutil.Dec("100"),
		Source: models.AnomalySourceReconciliation,
	}); err != nil {
		t.Fatalf("RaiseAnomaly: %v", err)
	}

	results, err := SweepAllBusinesses(context.Background(), config.GetLogger())
	if err != nil {
		t.Fatalf("SweepAllBusinesses: %v", err)
	}
	if len(results) != 1 || results[0].BusinessId != testutil.BusinessId {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Checked != 2 || results[0].Raised != 1 {
		t.Fatalf("checked %d raised %d, want 2 and 1", results[0].Checked, results[0].Raised)
	}

	open := openAnomalies(t)
	var swept *models.Anomaly
	for _, a := range open {
		if a.MaterialId == m1 {
			swept = a
		}
	}
	if swept == nil || swept.AnomalyType != models.AnomalyTypeNegativeInventory || swept.Source != models.AnomalySourceSweep {
		t.Fatalf("sweep anomaly for m1 = %+v", swept)
	}
	if !swept.ActualQuantity.Equal(testutil.Dec("-4")) {
		t.Fatalf("actual = %s, want -4", swept.ActualQuantity)
	}

	// a second sweep finds nothing new
	again, err := SweepNegativeInventory(context.Background(), config.GetLogger(), testutil.BusinessId)
	if err != nil {
		t.Fatalf("SweepNegativeInventory: %v", err)
	}
	if again.Raised != 0 {
		t.Fatalf("second sweep raised %d", again.Raised)
	}
}
