package models

type PeriodType string

const (
	PeriodTypeWeekly  PeriodType = "WEEKLY"
	PeriodTypeMonthly PeriodType = "MONTHLY"
	PeriodTypeAdHoc   PeriodType = "AD_HOC"
)

func (e PeriodType) IsValid() bool {
	switch e {
	case PeriodTypeWeekly, PeriodTypeMonthly, PeriodTypeAdHoc:
		return true
	}
	return false
}

// ReconciliationStatus moves SUBMITTED -> ACCEPTED | DISPUTED and never back.
// DRAFT is reserved; reconciliations are persisted already SUBMITTED.
type ReconciliationStatus string

const (
	ReconciliationStatusDraft     ReconciliationStatus = "DRAFT"
	ReconciliationStatusSubmitted ReconciliationStatus = "SUBMITTED"
	ReconciliationStatusAccepted  ReconciliationStatus = "ACCEPTED"
	ReconciliationStatusDisputed  ReconciliationStatus = "DISPUTED"
)

func (e ReconciliationStatus) IsValid() bool {
	switch e {
	case ReconciliationStatusDraft, ReconciliationStatusSubmitted, ReconciliationStatusAccepted, ReconciliationStatusDisputed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (e ReconciliationStatus) IsTerminal() bool {
	return e == ReconciliationStatusAccepted || e == ReconciliationStatusDisputed
}

type AnomalyType string

const (
	AnomalyTypeShortage          AnomalyType = "SHORTAGE"
	AnomalyTypeExcess            AnomalyType = "EXCESS"
	AnomalyTypeNegativeInventory AnomalyType = "NEGATIVE_INVENTORY"
)

func (e AnomalyType) IsValid() bool {
	switch e {
	case AnomalyTypeShortage, AnomalyTypeExcess, AnomalyTypeNegativeInventory:
		return true
	}
	return false
}

type AnomalySource string

const (
	AnomalySourceReconciliation AnomalySource = "RECONCILIATION"
	AnomalySourceConsumption    AnomalySource = "CONSUMPTION"
	AnomalySourceSweep          AnomalySource = "SWEEP"
)

// ThresholdSource names which rule produced a threshold.
type ThresholdSource string

const (
	ThresholdSourceContractorMaterial ThresholdSource = "CONTRACTOR_MATERIAL"
	ThresholdSourceMaterial           ThresholdSource = "MATERIAL"
	ThresholdSourceContractor         ThresholdSource = "CONTRACTOR"
	ThresholdSourceGlobal             ThresholdSource = "GLOBAL"
)

// ThresholdOverrideKind is the scope of a stored override row.
type ThresholdOverrideKind string

const (
	ThresholdOverrideContractorMaterial ThresholdOverrideKind = "CONTRACTOR_MATERIAL"
	ThresholdOverrideMaterial           ThresholdOverrideKind = "MATERIAL"
	ThresholdOverrideContractor         ThresholdOverrideKind = "CONTRACTOR"
)

func (e ThresholdOverrideKind) IsValid() bool {
	switch e {
	case ThresholdOverrideContractorMaterial, ThresholdOverrideMaterial, ThresholdOverrideContractor:
		return true
	}
	return false
}

type MovementReferenceType string

const (
	MovementReferenceReconciliation MovementReferenceType = "RECONCILIATION"
	MovementReferenceConsumption    MovementReferenceType = "CONSUMPTION"
	MovementReferenceIssue          MovementReferenceType = "ISSUE"
	MovementReferenceOpening        MovementReferenceType = "OPENING"
)

type OutboxEventType string

const (
	EventReconciliationSubmitted OutboxEventType = "RECONCILIATION_SUBMITTED"
	EventReconciliationReviewed  OutboxEventType = "RECONCILIATION_REVIEWED"
	EventAnomalyRaised           OutboxEventType = "ANOMALY_RAISED"
	EventAnomalyResolved         OutboxEventType = "ANOMALY_RESOLVED"
	EventInventoryAdjusted       OutboxEventType = "INVENTORY_ADJUSTED"

	// inbound
	EventMaterialConsumed OutboxEventType = "MATERIAL_CONSUMED"
	EventMaterialIssued   OutboxEventType = "MATERIAL_ISSUED"
)

type HistoryAction string

const (
	HistoryActionCreate  HistoryAction = "CREATE"
	HistoryActionReview  HistoryAction = "REVIEW"
	HistoryActionResolve HistoryAction = "RESOLVE"
	HistoryActionAdjust  HistoryAction = "ADJUST"
	HistoryActionUpdate  HistoryAction = "UPDATE"
	HistoryActionDelete  HistoryAction = "DELETE"
)
