package models

import "time"

type InboundEventStatus string

const (
	InboundEventProcessing InboundEventStatus = "PROCESSING"
	InboundEventApplied    InboundEventStatus = "APPLIED"
	InboundEventFailed     InboundEventStatus = "FAILED"
)

// InboundEvent is one consumed MATERIAL_* message. A row reaches APPLIED in
// the same transaction as the ledger write it guards; FAILED rows are kept
// for ops and are taken over by the next delivery.
type InboundEvent struct {
	ID           int                `gorm:"primary_key" json:"id"`
	BusinessId   string             `gorm:"size:64;not null;index:uniq_inbound_event,unique" json:"businessId"`
	EventType    string             `gorm:"size:50;not null;index:uniq_inbound_event,unique" json:"eventType"`
	MessageId    string             `gorm:"size:191;not null;index:uniq_inbound_event,unique" json:"messageId"`
	ContractorId int                `gorm:"index" json:"contractorId"`
	Status       InboundEventStatus `gorm:"size:20;not null;index" json:"status"`
	Attempts     int                `gorm:"not null;default:0" json:"attempts"`
	LastError    *string            `gorm:"type:text" json:"lastError"`
	AppliedAt    *time.Time         `json:"appliedAt"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}
