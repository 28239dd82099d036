package workflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrUnhandledEvent is returned for event types this service does not consume.
var ErrUnhandledEvent = errors.New("unhandled event type")

// IsPermanent reports whether redelivering the message cannot help.
func IsPermanent(err error) bool {
	var malformed *ErrMalformedPayload
	return errors.As(err, &malformed) || errors.Is(err, ErrUnhandledEvent)
}

// messageKey identifies a delivery: the producer's record id when present,
// otherwise the broker's delivery id.
func messageKey(m config.PubSubMessage, deliveryId string) string {
	if m.ID > 0 {
		return strconv.Itoa(m.ID)
	}
	return deliveryId
}

// ProcessMessage applies one inbound event. The ledger write, any anomaly it
// raises and the APPLIED inbound record commit together under the contractor
// lock, so a redelivered message is a no-op.
func ProcessMessage(ctx context.Context, logger *logrus.Logger, m config.PubSubMessage, deliveryId string) error {
	var (
		contractorId int
		handle       func(tx *gorm.DB) error
	)
	switch models.OutboxEventType(m.EventType) {
	case models.EventMaterialConsumed:
		p, err := decodeConsumption(m)
		if err != nil {
			return err
		}
		contractorId = p.ContractorId
		handle = func(tx *gorm.DB) error { return ProcessConsumptionWorkflow(ctx, tx, logger, m, p) }
	case models.EventMaterialIssued:
		p, err := decodeIssue(m)
		if err != nil {
			return err
		}
		contractorId = p.ContractorId
		handle = func(tx *gorm.DB) error { return ProcessIssueWorkflow(ctx, tx, logger, m, p) }
	default:
		return ErrUnhandledEvent
	}

	messageId := messageKey(m, deliveryId)
	if messageId == "" {
		return &ErrMalformedPayload{EventType: m.EventType, Reason: "message id is required"}
	}
	key := inboundKey{BusinessId: m.BusinessId, EventType: m.EventType, MessageId: messageId}

	ctx = utils.SetBusinessIdInContext(ctx, m.BusinessId)
	db := config.GetDB()
	err := utils.RunWithContractorLock(ctx, db, m.BusinessId, contractorId, func(tx *gorm.DB) error {
		applied, err := claimInboundEvent(tx, key, contractorId)
		if err != nil || applied {
			return err
		}
		if err := handle(tx); err != nil {
			return err
		}
		return markInboundEventApplied(tx, key)
	})
	if err != nil && !errors.Is(err, utils.ErrLockNotAcquired) {
		if recErr := recordInboundFailure(ctx, db, key, contractorId, err); recErr != nil {
			config.LogError(logger, "MainWorkflow.go", "ProcessMessage", "recordInboundFailure", key, recErr)
		}
	}
	return err
}
