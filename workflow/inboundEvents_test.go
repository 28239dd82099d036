package workflow

import (
	"errors"
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/testutil"
	"gorm.io/gorm"
)

func inboundRow(t *testing.T, db *gorm.DB, key inboundKey) models.InboundEvent {
	t.Helper()
	var row models.InboundEvent
	if err := key.scope(db.WithContext(testutil.Context())).Take(&row).Error; err != nil {
		t.Fatalf("load inbound event %+v: %v", key, err)
	}
	return row
}

func TestClaimInboundEvent(t *testing.T) {
	db := testutil.NewDB(t)
	tx := db.WithContext(testutil.Context())
	key := inboundKey{BusinessId: testutil.BusinessId, EventType: "MATERIAL_CONSUMED", MessageId: "m-1"}

	applied, err := claimInboundEvent(tx, key, 7)
	if err != nil || applied {
		t.Fatalf("first claim: applied=%v err=%v", applied, err)
	}
	if err := markInboundEventApplied(tx, key); err != nil {
		t.Fatalf("markInboundEventApplied: %v", err)
	}
	applied, err = claimInboundEvent(tx, key, 7)
	if err != nil || !applied {
		t.Fatalf("after apply: applied=%v err=%v", applied, err)
	}
	row := inboundRow(t, db, key)
	if row.Status != models.InboundEventApplied || row.AppliedAt == nil || row.Attempts != 1 || row.ContractorId != 7 {
		t.Fatalf("row = %+v", row)
	}

	// same message id under another event type is independent
	other := inboundKey{BusinessId: testutil.BusinessId, EventType: "MATERIAL_ISSUED", MessageId: "m-1"}
	applied, err = claimInboundEvent(tx, other, 7)
	if err != nil || applied {
		t.Fatalf("other event type: applied=%v err=%v", applied, err)
	}
}

func TestRecordInboundFailureThenRetake(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	key := inboundKey{BusinessId: testutil.BusinessId, EventType: "MATERIAL_CONSUMED", MessageId: "m-2"}

	if err := recordInboundFailure(ctx, db, key, 3, errors.New("ledger unavailable")); err != nil {
		t.Fatalf("recordInboundFailure: %v", err)
	}
	if err := recordInboundFailure(ctx, db, key, 3, errors.New("still unavailable")); err != nil {
		t.Fatalf("recordInboundFailure again: %v", err)
	}
	row := inboundRow(t, db, key)
	if row.Status != models.InboundEventFailed || row.Attempts != 2 || row.LastError == nil || *row.LastError != "still unavailable" {
		t.Fatalf("failed row = %+v", row)
	}

	tx := db.WithContext(ctx)
	applied, err := claimInboundEvent(tx, key, 3)
	if err != nil || applied {
		t.Fatalf("retake after failure: applied=%v err=%v", applied, err)
	}
	if err := markInboundEventApplied(tx, key); err != nil {
		t.Fatalf("markInboundEventApplied: %v", err)
	}
	row = inboundRow(t, db, key)
	if row.Status != models.InboundEventApplied || row.Attempts != 3 || row.LastError != nil {
		t.Fatalf("applied row = %+v", row)
	}
}

func TestProcessMessageRecordsFailedDelivery(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := testutil.Context()
	fx := testutil.Seed(t, ctx, 1)
	c, m := fx.Contractor.ID, fx.Materials[0].ID
	testutil.SetLedger(t, db, c, m, "10")

	ledgerDown := errors.New("ledger unavailable")
	const callback = "test:fail_movement"
	if err := db.Callback().Create().Before("gorm:create").Register(callback, func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.ContractorInventoryMovement); ok {
			_ = tx.AddError(ledgerDown)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	msg := consumedMessage(t, 41, ConsumptionPayload{
		ContractorId: c, MaterialId: m,
		ExpectedQuantity: testutil.Dec("4"), ConsumedQuantity: testutil.Dec("4"), ReferenceId: 9,
	})
	if err := ProcessMessage(ctx, config.GetLogger(), msg, "delivery-1"); !errors.Is(err, ledgerDown) {
		t.Fatalf("expected ledger failure, got %v", err)
	}
	key := inboundKey{BusinessId: testutil.BusinessId, EventType: msg.EventType, MessageId: "41"}
	row := inboundRow(t, db, key)
	if row.Status != models.InboundEventFailed || row.Attempts != 1 || row.ContractorId != c {
		t.Fatalf("failed row = %+v", row)
	}
	if got := ledger(t, c, m); !got.Equal(testutil.Dec("10")) {
		t.Fatalf("ledger = %s after failed delivery, want 10", got)
	}

	if err := db.Callback().Create().Remove(callback); err != nil {
		t.Fatalf("remove callback: %v", err)
	}
	if err := ProcessMessage(ctx, config.GetLogger(), msg, "delivery-2"); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if err := ProcessMessage(ctx, config.GetLogger(), msg, "delivery-3"); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if got := ledger(t, c, m); !got.Equal(testutil.Dec("6")) {
		t.Fatalf("ledger = %s, want 6 after exactly one draw", got)
	}
	row = inboundRow(t, db, key)
	if row.Status != models.InboundEventApplied || row.Attempts != 2 || row.LastError != nil {
		t.Fatalf("applied row = %+v", row)
	}
}
