package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConsumptionPayload is the body of a MATERIAL_CONSUMED event: a production
// run used ConsumedQuantity where the bill of materials said ExpectedQuantity.
type ConsumptionPayload struct {
	ContractorId     int             `json:"contractor_id"`
	MaterialId       int             `json:"material_id"`
	ExpectedQuantity decimal.Decimal `json:"expected_quantity"`
	ConsumedQuantity decimal.Decimal `json:"consumed_quantity"`
	ReferenceId      int             `json:"reference_id"`
}

// IssuePayload is the body of a MATERIAL_ISSUED event: stock handed to a
// contractor.
type IssuePayload struct {
	ContractorId int             `json:"contractor_id"`
	MaterialId   int             `json:"material_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReferenceId  int             `json:"reference_id"`
}

// ErrMalformedPayload marks messages that can never succeed; the push
// handler acks them instead of asking for redelivery.
type ErrMalformedPayload struct {
	EventType string
	Reason    string
}

func (e *ErrMalformedPayload) Error() string {
	return fmt.Sprintf("malformed %s payload: %s", e.EventType, e.Reason)
}

func decodeConsumption(m config.PubSubMessage) (*ConsumptionPayload, error) {
	var p ConsumptionPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: err.Error()}
	}
	switch {
	case p.ContractorId <= 0:
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: "contractor_id is required"}
	case p.MaterialId <= 0:
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: "material_id is required"}
	case p.ConsumedQuantity.IsNegative() || p.ExpectedQuantity.IsNegative():
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: "quantities must not be negative"}
	}
	return &p, nil
}

func decodeIssue(m config.PubSubMessage) (*IssuePayload, error) {
	var p IssuePayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: err.Error()}
	}
	switch {
	case p.ContractorId <= 0:
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: "contractor_id is required"}
	case p.MaterialId <= 0:
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: "material_id is required"}
	case !p.Quantity.IsPositive():
		return nil, &ErrMalformedPayload{EventType: m.EventType, Reason: "quantity must be positive"}
	}
	return &p, nil
}

// ProcessConsumptionWorkflow draws the consumed quantity from the ledger and
// raises an anomaly when the ledger goes negative or the consumption strays
// from the expected quantity by more than the resolved threshold. At most one
// anomaly is open per pair, so a negative ledger takes precedence.
func ProcessConsumptionWorkflow(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, m config.PubSubMessage, p *ConsumptionPayload) error {
	businessId := m.BusinessId
	ref := models.LedgerReference{Type: models.MovementReferenceConsumption, Id: p.ReferenceId}

	after, err := models.ChangeInventoryQuantity(tx, businessId, p.ContractorId, p.MaterialId, p.ConsumedQuantity.Neg(), ref)
	if err != nil {
		config.LogError(logger, "ConsumptionWorkflow.go", "ProcessConsumptionWorkflow", "ChangeInventoryQuantity", p, err)
		return err
	}
	before := after.Add(p.ConsumedQuantity)

	if after.IsNegative() {
		shortfall := models.ComputeVariance(before, after, decimal.Zero)
		_, _, err := models.RaiseAnomaly(ctx, tx, businessId, models.NewAnomaly{
			ContractorId:       p.ContractorId,
			MaterialId:         p.MaterialId,
			AnomalyType:        models.AnomalyTypeNegativeInventory,
			ExpectedQuantity:   before,
			ActualQuantity:     after,
			VariancePercentage: shortfall.VariancePercentage,
			Source:             models.AnomalySourceConsumption,
		})
		return err
	}

	threshold, err := models.ResolveThreshold(ctx, tx, businessId, p.ContractorId, p.MaterialId)
	if err != nil {
		return err
	}
	result := models.ComputeVariance(p.ExpectedQuantity, p.ConsumedQuantity, threshold.Percentage)
	if !result.IsAnomaly {
		return nil
	}
	_, _, err = models.RaiseAnomaly(ctx, tx, businessId, models.NewAnomaly{
		ContractorId:       p.ContractorId,
		MaterialId:         p.MaterialId,
		AnomalyType:        models.ClassifyAnomaly(p.ExpectedQuantity, result.Variance),
		ExpectedQuantity:   p.ExpectedQuantity,
		ActualQuantity:     p.ConsumedQuantity,
		VariancePercentage: result.VariancePercentage,
		Source:             models.AnomalySourceConsumption,
	})
	return err
}

// ProcessIssueWorkflow adds issued stock to the contractor's ledger.
func ProcessIssueWorkflow(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, m config.PubSubMessage, p *IssuePayload) error {
	ref := models.LedgerReference{Type: models.MovementReferenceIssue, Id: p.ReferenceId}
	if _, err := models.ChangeInventoryQuantity(tx, m.BusinessId, p.ContractorId, p.MaterialId, p.Quantity, ref); err != nil {
		config.LogError(logger, "ConsumptionWorkflow.go", "ProcessIssueWorkflow", "ChangeInventoryQuantity", p, err)
		return err
	}
	return nil
}
