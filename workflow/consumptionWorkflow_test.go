package workflow

import (
	"encoding/json"
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/testutil"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
)

func consumedMessage(t *testing.T, id int, p ConsumptionPayload) config.PubSubMessage {
	t.Helper()
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return config.PubSubMessage{
		ID:         id,
		BusinessId: testutil.BusinessId,
		EventType:  string(models.EventMaterialConsumed),
		Payload:    body,
	}
}

func ledger(t *testing.T, contractorId, materialId int) decimal.Decimal {
	t.Helper()
	rows, err := models.ListContractorInventory(testutil.Context(), contractorId)
	if err != nil {
		t.Fatalf("ListContractorInventory: %v", err)
	}
	for _, r := range rows {
		if r.MaterialId == materialId {
			return r.Quantity
		}
	}
	return decimal.Zero
}

func openAnomalies(t *testing.T) []*models.Anomaly {
	t.Helper()
	rows, err := models.ListAnomalies(testutil.Context(), models.AnomalyFilter{Resolved: utils.NewFalse()})
	if err != nil {
		t.Fatalf("ListAnomalies: %v", err)
	}
	return rows
}

func TestConsumptionWithinToleranceDrawsLedger(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 1)
	c, m := fx.Contractor.ID, fx.Materials[0].ID
	testutil.SetLedger(t, db, c, m, "10")

	msg := consumedMessage(t, 1, ConsumptionPayload{
		ContractorId: c, MaterialId: m,
		ExpectedQuantity: testutil.Dec("4"), ConsumedQuantity: testutil.Dec("4.1"), ReferenceId: 55,
	})
	if err := ProcessMessage(ctx, config.GetLogger(), msg, "delivery-1"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if got := ledger(t, c, m); !got.Equal(testutil.Dec("5.9")) {
		t.Fatalf("ledger = %s, want 5.9", got)
	}
	if n := len(openAnomalies(t)); n != 0 {
		t.Fatalf("expected no anomaly, got %d", n)
	}
}

func TestConsumptionRedeliveryIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 1)
	c, m := fx.Contractor.ID, fx.Materials[0].ID
	testutil.SetLedger(t, db, c, m, "10")

	msg := consumedMessage(t, 7, ConsumptionPayload{
		ContractorId: c, MaterialId: m,
		ExpectedQuantity: testutil.Dec("3"), ConsumedQuantity: testutil.Dec("3"),
	})
	for i := 0; i < 3; i++ {
		if err := ProcessMessage(ctx, config.GetLogger(), msg, "ignored"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if got := ledger(t, c, m); !got.Equal(testutil.Dec("7")) {
		t.Fatalf("ledger = %s, want 7 after redelivery", got)
	}
}

func TestConsumptionBelowZeroRaisesNegativeInventory(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 1)
	c, m := fx.Contractor.ID, fx.Materials[0].ID
	testutil.SetLedger(t, db, c, m, "5")

	msg := consumedMessage(t, 2, ConsumptionPayload{
		ContractorId: c, MaterialId: m,
		ExpectedQuantity: testutil.Dec("8"), ConsumedQuantity: testutil.Dec("8"),
	})
	if err := ProcessMessage(ctx, config.GetLogger(), msg, ""); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if got := ledger(t, c, m); !got.Equal(testutil.Dec("-3")) {
		t.Fatalf("ledger = %s, want -3", got)
	}
	open := openAnomalies(t)
	if len(open) != 1 {
		t.Fatalf("open anomalies = %d, want 1", len(open))
	}
	a := open[0]
	if a.AnomalyType != models.AnomalyTypeNegativeInventory || a.Source != models.AnomalySourceConsumption {
		t.Fatalf("anomaly = %s/%s", a.AnomalyType, a.Source)
	}
	if !a.ExpectedQuantity.Equal(testutil.Dec("5")) || !a.ActualQuantity.Equal(testutil.Dec("-3")) {
		t.Fatalf("anomaly quantities = %s -> %s", a.ExpectedQuantity, a.ActualQuantity)
	}
}

func TestConsumptionOverThresholdRaisesAnomaly(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		consumed string
		want     models.AnomalyType
	}{
		{"over-consumption", "10", "15", models.AnomalyTypeExcess},
		{"under-consumption", "10", "2", models.AnomalyTypeShortage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			ctx := testutil.Context()
			fx := testutil.Seed(t, ctx, 1)
			c, m := fx.Contractor.ID, fx.Materials[0].ID
			testutil.SetLedger(t, db, c, m, "100")

			msg := consumedMessage(t, 3, ConsumptionPayload{
				ContractorId: c, MaterialId: m,
				ExpectedQuantity: testutil.Dec(tt.expected), ConsumedQuantity: testutil.Dec(tt.consumed),
			})
			if err := ProcessMessage(ctx, config.GetLogger(), msg, ""); err != nil {
				t.Fatalf("ProcessMessage: %v", err)
			}
			open := openAnomalies(t)
			if len(open) != 1 || open[0].AnomalyType != tt.want {
				t.Fatalf("open anomalies = %+v, want one %s", open, tt.want)
			}
			if !open[0].ExpectedQuantity.Equal(testutil.Dec(tt.expected)) || !open[0].ActualQuantity.Equal(testutil.Dec(tt.consumed)) {
				t.Fatalf("anomaly quantities = %s/%s", open[0].ExpectedQuantity, open[0].ActualQuantity)
			}
		})
	}
}

func TestIssueAddsToLedger(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 1)
	c, m := fx.Contractor.ID, fx.Materials[0].ID
	testutil.SetLedger(t, db, c, m, "1")

	body, _ := json.Marshal(IssuePayload{ContractorId: c, MaterialId: m, Quantity: testutil.Dec("24"), ReferenceId: 9})
	msg := config.PubSubMessage{ID: 11, BusinessId: testutil.BusinessId, EventType: string(models.EventMaterialIssued), Payload: body}
	if err := ProcessMessage(ctx, config.GetLogger(), msg, ""); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if got := ledger(t, c, m); !got.Equal(testutil.Dec("25")) {
		t.Fatalf("ledger = %s, want 25", got)
	}
	movements, err := models.ListInventoryMovements(ctx, c, m)
	if err != nil {
		t.Fatalf("ListInventoryMovements: %v", err)
	}
	last := movements[len(movements)-1]
	if last.ReferenceType != models.MovementReferenceIssue || last.ReferenceId != 9 {
		t.Fatalf("movement = %+v", last)
	}
}

func TestProcessMessageRejectsPermanently(t *testing.T) {
	testutil.NewDB(t)
	ctx := testutil.Context()

	tests := []struct {
		name string
		msg  config.PubSubMessage
	}{
		{"unknown event", config.PubSubMessage{ID: 1, BusinessId: testutil.BusinessId, EventType: "SOMETHING_ELSE"}},
		{"own outbound event", config.PubSubMessage{ID: 1, BusinessId: testutil.BusinessId, EventType: string(models.EventAnomalyRaised)}},
		{"bad json", config.PubSubMessage{ID: 1, BusinessId: testutil.BusinessId, EventType: string(models.EventMaterialConsumed), Payload: []byte(`{`)}},
		{"missing contractor", consumedMessage(t, 1, ConsumptionPayload{MaterialId: 1, ConsumedQuantity: testutil.Dec("1")})},
		{"negative consumption", consumedMessage(t, 1, ConsumptionPayload{ContractorId: 1, MaterialId: 1, ConsumedQuantity: testutil.Dec("-1")})},
		{"no message id", consumedMessage(t, 0, ConsumptionPayload{ContractorId: 1, MaterialId: 1, ConsumedQuantity: testutil.Dec("1")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProcessMessage(ctx, config.GetLogger(), tt.msg, "")
			if err == nil || !IsPermanent(err) {
				t.Fatalf("expected a permanent error, got %v", err)
			}
		})
	}
}
