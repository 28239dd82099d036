package models

import (
	"log"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"gorm.io/gorm"
)

// MigrateTable migrates the global database and exits on failure.
func MigrateTable() {
	if err := AutoMigrateAll(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&Contractor{}, &Material{},
		&ContractorInventory{}, &ContractorInventoryMovement{},
		&VarianceThresholdSetting{}, &VarianceThresholdOverride{},
		&Reconciliation{}, &ReconciliationLineItem{},
		&Anomaly{},
		&History{},
		&OutboxEvent{},
		&InboundEvent{},
	)
}
