package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const reconciliationNumberPrefix = "REC-"

type Reconciliation struct {
	ID                   int                      `gorm:"primary_key" json:"id"`
	BusinessId           string                   `gorm:"size:64;not null;uniqueIndex:uniq_reconciliation_number;index:idx_reconciliation_status,priority:1" json:"businessId"`
	ReconciliationNumber string                   `gorm:"size:30;not null;uniqueIndex:uniq_reconciliation_number" json:"reconciliationNumber"`
	SequenceNo           int64                    `gorm:"not null" json:"sequenceNo"`
	ContractorId         int                      `gorm:"not null;index" json:"contractorId"`
	PeriodType           PeriodType               `gorm:"size:10;not null" json:"periodType"`
	PeriodStart          time.Time                `gorm:"not null" json:"periodStart"`
	PeriodEnd            time.Time                `gorm:"not null" json:"periodEnd"`
	ReportedBy           string                   `gorm:"size:100;not null" json:"reportedBy"`
	Notes                *string                  `gorm:"type:text" json:"notes"`
	Status               ReconciliationStatus     `gorm:"size:20;not null;index:idx_reconciliation_status,priority:2" json:"status"`
	ReviewedBy           *string                  `gorm:"size:100" json:"reviewedBy"`
	ReviewNotes          *string                  `gorm:"type:text" json:"reviewNotes"`
	ReviewedAt           *time.Time               `json:"reviewedAt"`
	InventoryAdjusted    bool                     `gorm:"not null;default:false" json:"inventoryAdjusted"`
	CreatedAt            time.Time                `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time                `gorm:"autoUpdateTime" json:"updatedAt"`
	LineItems            []ReconciliationLineItem `gorm:"foreignKey:ReconciliationId" json:"lineItems"`

	ContractorName string `gorm:"-" json:"contractorName,omitempty"`
}

// ReconciliationLineItem columns from SystemQuantity to IsAnomaly are a
// snapshot taken at submission. Nothing updates them afterwards.
type ReconciliationLineItem struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ReconciliationId   int             `gorm:"not null;index" json:"reconciliationId"`
	LineNo             int             `gorm:"not null" json:"lineNo"`
	MaterialId         int             `gorm:"not null" json:"materialId"`
	SystemQuantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"systemQuantity"`
	ReportedQuantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"reportedQuantity"`
	Variance           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"variance"`
	VariancePercentage decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"variancePercentage"`
	ThresholdUsed      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"thresholdUsed"`
	ThresholdSource    ThresholdSource `gorm:"size:30;not null" json:"thresholdSource"`
	IsAnomaly          bool            `gorm:"not null" json:"isAnomaly"`
	Notes              *string         `gorm:"type:text" json:"notes"`

	MaterialName string `gorm:"-" json:"materialName,omitempty"`
}

type NewReconciliationItem struct {
	MaterialId       int              `json:"materialId" validate:"required,gt=0"`
	ReportedQuantity *decimal.Decimal `json:"reportedQuantity"`
	Notes            string           `json:"notes"`
}

type NewReconciliation struct {
	ContractorId int                     `json:"contractorId" validate:"required,gt=0"`
	PeriodType   PeriodType              `json:"periodType" validate:"required,oneof=WEEKLY MONTHLY AD_HOC"`
	PeriodStart  *Date                   `json:"periodStart"`
	PeriodEnd    *Date                   `json:"periodEnd"`
	ReportedBy   string                  `json:"reportedBy" validate:"required,max=100"`
	Notes        string                  `json:"notes"`
	Items        []NewReconciliationItem `json:"items" validate:"dive"`
}

type ReviewInput struct {
	Status          ReconciliationStatus `json:"status" validate:"required,oneof=ACCEPTED DISPUTED"`
	ReviewedBy      string               `json:"reviewedBy" validate:"required,max=100"`
	Notes           string               `json:"notes"`
	AdjustInventory bool                 `json:"adjustInventory"`
}

// validate normalizes input in place: strings are trimmed and items without
// a reported quantity are dropped.
func (input *NewReconciliation) validate() error {
	input.ReportedBy = strings.TrimSpace(input.ReportedBy)
	if problem := utils.ValidateStruct(input); problem != nil {
		return newValidationError(problem.Field, problem.Message)
	}
	if input.PeriodStart == nil || input.PeriodStart.IsZero() {
		return newValidationError("periodStart", "is required")
	}
	if input.PeriodEnd == nil || input.PeriodEnd.IsZero() {
		return newValidationError("periodEnd", "is required")
	}
	if input.PeriodStart.After(input.PeriodEnd.Time) {
		return newValidationError("periodEnd", "must not be before periodStart")
	}

	items := make([]NewReconciliationItem, 0, len(input.Items))
	seen := make(map[int]bool, len(input.Items))
	for i, item := range input.Items {
		if item.ReportedQuantity == nil {
			continue
		}
		if item.ReportedQuantity.IsNegative() {
			return newValidationError(fmt.Sprintf("items[%d].reportedQuantity", i), "must not be negative")
		}
		if seen[item.MaterialId] {
			return newValidationError(fmt.Sprintf("items[%d].materialId", i), "is reported more than once")
		}
		seen[item.MaterialId] = true
		items = append(items, item)
	}
	if len(items) == 0 {
		return newValidationError("items", "at least one item must carry a reported quantity")
	}
	input.Items = items
	return nil
}

func (input *ReviewInput) validate() error {
	input.ReviewedBy = strings.TrimSpace(input.ReviewedBy)
	if problem := utils.ValidateStruct(input); problem != nil {
		return newValidationError(problem.Field, problem.Message)
	}
	return nil
}

func formatReconciliationNumber(seq int64) string {
	return fmt.Sprintf("%s%06d", reconciliationNumberPrefix, seq)
}

// CreateReconciliation submits a counted inventory. Each line's system
// quantity is read once inside the transaction and that same value feeds the
// variance, so the stored snapshot and the computed result always agree.
func CreateReconciliation(ctx context.Context, input *NewReconciliation) (*Reconciliation, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return nil, newValidationError("", "input is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	// a concurrent submit on another instance can take the same number
	const attempts = 3
	for i := 1; ; i++ {
		reconciliation, err := submitReconciliation(ctx, businessId, input)
		if err == nil {
			return reconciliation, nil
		}
		if i >= attempts || !utils.IsDuplicateKeyError(err) {
			return nil, err
		}
	}
}

func submitReconciliation(ctx context.Context, businessId string, input *NewReconciliation) (*Reconciliation, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var contractorCount int64
	if err := tx.Model(&Contractor{}).Where("business_id = ? AND id = ?", businessId, input.ContractorId).Count(&contractorCount).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if contractorCount == 0 {
		tx.Rollback()
		return nil, &NotFoundError{Entity: "contractor", Id: input.ContractorId}
	}

	materialIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		materialIds = append(materialIds, item.MaterialId)
	}
	if missing, err := firstMissingMaterial(tx, businessId, materialIds); err != nil {
		tx.Rollback()
		return nil, err
	} else if missing != 0 {
		tx.Rollback()
		return nil, &NotFoundError{Entity: "material", Id: missing}
	}

	lineItems := make([]ReconciliationLineItem, 0, len(input.Items))
	for i, item := range input.Items {
		system, err := GetSystemQuantity(tx, businessId, input.ContractorId, item.MaterialId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		threshold, err := ResolveThreshold(ctx, tx, businessId, input.ContractorId, item.MaterialId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		result := ComputeVariance(system, *item.ReportedQuantity, threshold.Percentage)
		lineItems = append(lineItems, ReconciliationLineItem{
			LineNo:             i + 1,
			MaterialId:         item.MaterialId,
			SystemQuantity:     system,
			ReportedQuantity:   *item.ReportedQuantity,
			Variance:           result.Variance,
			VariancePercentage: result.VariancePercentage,
			ThresholdUsed:      threshold.Percentage,
			ThresholdSource:    threshold.Source,
			IsAnomaly:          result.IsAnomaly,
			Notes:              utils.NilIfEmpty(item.Notes),
		})
	}

	seqNo, err := utils.GetSequence[Reconciliation](ctx, tx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	reconciliation := Reconciliation{
		BusinessId:           businessId,
		ReconciliationNumber: formatReconciliationNumber(seqNo),
		SequenceNo:           seqNo,
		ContractorId:         input.ContractorId,
		PeriodType:           input.PeriodType,
		PeriodStart:          input.PeriodStart.Time,
		PeriodEnd:            input.PeriodEnd.Time,
		ReportedBy:           input.ReportedBy,
		Notes:                utils.NilIfEmpty(input.Notes),
		Status:               ReconciliationStatusSubmitted,
		LineItems:            lineItems,
	}
	if err := tx.Create(&reconciliation).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	description := fmt.Sprintf("%s submitted with %d line(s)", reconciliation.ReconciliationNumber, len(lineItems))
	if err := createHistory(tx, HistoryActionCreate, reconciliation.ID, "reconciliations", nil, reconciliation, description, input.ReportedBy); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishEvent(ctx, tx, businessId, EventReconciliationSubmitted, "reconciliations", reconciliation.ID, reconciliation); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &reconciliation, nil
}

func firstMissingMaterial(tx *gorm.DB, businessId string, ids []int) (int, error) {
	var found []int
	if err := tx.Model(&Material{}).Where("business_id = ? AND id IN ?", businessId, ids).Pluck("id", &found).Error; err != nil {
		return 0, err
	}
	present := make(map[int]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			return id, nil
		}
	}
	return 0, nil
}

// ReviewReconciliation moves a SUBMITTED reconciliation to ACCEPTED or
// DISPUTED. The status change, the optional ledger write-back and the anomaly
// raises commit together under the contractor lock.
func ReviewReconciliation(ctx context.Context, id int, input *ReviewInput) (*Reconciliation, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return nil, newValidationError("", "input is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	db := config.GetDB()
	header, err := utils.FetchModel[Reconciliation](ctx, db, businessId, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, &NotFoundError{Entity: "reconciliation", Id: id}
		}
		return nil, err
	}
	if header.Status != ReconciliationStatusSubmitted {
		return nil, &InvalidStateError{ReconciliationId: id, Status: header.Status, Action: "review"}
	}

	adjust := input.Status == ReconciliationStatusAccepted && input.AdjustInventory

	var reconciliation Reconciliation
	err = utils.RunWithContractorLock(ctx, db, businessId, header.ContractorId, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&Reconciliation{}).
			Where("id = ? AND business_id = ? AND status = ?", id, businessId, ReconciliationStatusSubmitted).
			Updates(map[string]interface{}{
				"status":             input.Status,
				"reviewed_by":        input.ReviewedBy,
				"review_notes":       utils.NilIfEmpty(input.Notes),
				"reviewed_at":        now,
				"inventory_adjusted": adjust,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// another reviewer got here first
			var current Reconciliation
			if err := tx.Select("status").Where("id = ? AND business_id = ?", id, businessId).Take(&current).Error; err != nil {
				return err
			}
			return &InvalidStateError{ReconciliationId: id, Status: current.Status, Action: "review"}
		}

		if err := loadReconciliation(tx, businessId, id, &reconciliation); err != nil {
			return err
		}

		if adjust {
			items := make([]AdjustmentItem, 0, len(reconciliation.LineItems))
			for _, li := range reconciliation.LineItems {
				items = append(items, AdjustmentItem{MaterialId: li.MaterialId, Quantity: li.ReportedQuantity})
			}
			ref := LedgerReference{Type: MovementReferenceReconciliation, Id: reconciliation.ID}
			results, err := ApplyInventoryAdjustments(ctx, tx, businessId, reconciliation.ContractorId, ref, items)
			if err != nil {
				return err
			}
			description := fmt.Sprintf("%s ledger set to reported counts for %d materials", reconciliation.ReconciliationNumber, len(results))
			if err := createHistory(tx, HistoryActionAdjust, reconciliation.ID, "reconciliations", nil, results, description, input.ReviewedBy); err != nil {
				return err
			}
			if err := PublishEvent(ctx, tx, businessId, EventInventoryAdjusted, "reconciliations", reconciliation.ID, results); err != nil {
				return err
			}
		}

		for _, li := range reconciliation.LineItems {
			if !li.IsAnomaly {
				continue
			}
			recId := reconciliation.ID
			if _, _, err := RaiseAnomaly(ctx, tx, businessId, NewAnomaly{
				ContractorId:       reconciliation.ContractorId,
				MaterialId:         li.MaterialId,
				AnomalyType:        ClassifyAnomaly(li.SystemQuantity, li.Variance),
				ExpectedQuantity:   li.SystemQuantity,
				ActualQuantity:     li.ReportedQuantity,
				VariancePercentage: li.VariancePercentage,
				Source:             AnomalySourceReconciliation,
				ReconciliationId:   &recId,
			}); err != nil {
				return err
			}
		}

		before := *header
		before.LineItems = nil
		description := fmt.Sprintf("%s %s by %s", reconciliation.ReconciliationNumber, strings.ToLower(string(input.Status)), input.ReviewedBy)
		if adjust {
			description += ", inventory adjusted"
		}
		if err := createHistory(tx, HistoryActionReview, reconciliation.ID, "reconciliations", before, reconciliation, description, input.ReviewedBy); err != nil {
			return err
		}
		return PublishEvent(ctx, tx, businessId, EventReconciliationReviewed, "reconciliations", reconciliation.ID, reconciliation)
	})
	if err != nil {
		var partial *PartialFailureError
		if errors.As(err, &partial) {
			config.LogError(config.GetLogger(), "Reconciliation", "ReviewReconciliation", "adjustment rolled back", map[string]int{"reconciliation_id": id, "material_id": partial.MaterialId}, err)
		}
		return nil, err
	}
	return &reconciliation, nil
}

func loadReconciliation(tx *gorm.DB, businessId string, id int, dest *Reconciliation) error {
	err := tx.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no")
	}).Where("id = ? AND business_id = ?", id, businessId).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "reconciliation", Id: id}
	}
	return err
}

// GetReconciliation returns the reconciliation with its line items in order.
func GetReconciliation(ctx context.Context, id int) (*Reconciliation, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var reconciliation Reconciliation
	if err := loadReconciliation(config.GetDB().WithContext(ctx), businessId, id, &reconciliation); err != nil {
		return nil, err
	}
	return &reconciliation, nil
}

// ListPendingReconciliations returns SUBMITTED reconciliations, newest first.
func ListPendingReconciliations(ctx context.Context) ([]*Reconciliation, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var results []*Reconciliation
	err = config.GetDB().WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no")
		}).
		Where("business_id = ? AND status = ?", businessId, ReconciliationStatusSubmitted).
		Order("id DESC").
		Find(&results).Error
	return results, err
}

type ReconciliationsConnection struct {
	Edges    []*Reconciliation `json:"edges"`
	PageInfo PageInfo          `json:"pageInfo"`
}

type ReconciliationFilter struct {
	ContractorId int
	Status       ReconciliationStatus
}

// PaginateReconciliations pages newest first; after is the EndCursor of the
// previous page.
func PaginateReconciliations(ctx context.Context, limit int, after *string, filter ReconciliationFilter) (*ReconciliationsConnection, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	afterId, err := DecodeCursor(after)
	if err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, newValidationError("status", "is invalid")
	}
	limit = normalizeLimit(limit)

	q := config.GetDB().WithContext(ctx).Where("business_id = ?", businessId)
	if filter.ContractorId > 0 {
		q = q.Where("contractor_id = ?", filter.ContractorId)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if afterId > 0 {
		q = q.Where("id < ?", afterId)
	}

	var rows []*Reconciliation
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	conn := &ReconciliationsConnection{Edges: rows}
	if len(rows) > limit {
		conn.Edges = rows[:limit]
		conn.PageInfo.HasNextPage = true
	}
	if len(conn.Edges) > 0 {
		conn.PageInfo.StartCursor = EncodeCursor(conn.Edges[0].ID)
		conn.PageInfo.EndCursor = EncodeCursor(conn.Edges[len(conn.Edges)-1].ID)
	}
	return conn, nil
}
