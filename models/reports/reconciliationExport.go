package reports

import (
	"bytes"
	"fmt"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExcelRow is one data row; values are written left to right from column A.
type ExcelRow interface {
	GetCellValues() []interface{}
}

type lineItemRow struct {
	item         models.ReconciliationLineItem
	materialName string
	verified     bool
}

func (r lineItemRow) GetCellValues() []interface{} {
	return []interface{}{
		r.item.LineNo,
		r.materialName,
		r.item.SystemQuantity.InexactFloat64(),
		r.item.ReportedQuantity.InexactFloat64(),
		r.item.Variance.InexactFloat64(),
		r.item.VariancePercentage.InexactFloat64(),
		r.item.ThresholdUsed.InexactFloat64(),
		string(r.item.ThresholdSource),
		r.item.IsAnomaly,
		r.verified,
	}
}

type anomalyRow struct {
	anomaly *models.Anomaly
}

func (r anomalyRow) GetCellValues() []interface{} {
	resolvedAt := ""
	if r.anomaly.ResolvedAt != nil {
		resolvedAt = r.anomaly.ResolvedAt.Format("2006-01-02 15:04:05")
	}
	return []interface{}{
		r.anomaly.ID,
		nameOrId(r.anomaly.ContractorName, r.anomaly.ContractorId),
		nameOrId(r.anomaly.MaterialName, r.anomaly.MaterialId),
		string(r.anomaly.AnomalyType),
		r.anomaly.ExpectedQuantity.InexactFloat64(),
		r.anomaly.ActualQuantity.InexactFloat64(),
		r.anomaly.VariancePercentage.InexactFloat64(),
		string(r.anomaly.Source),
		r.anomaly.IsResolved,
		resolvedAt,
		r.anomaly.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ExportReconciliation renders a reconciliation and its line items to xlsx.
// Each line carries a Verified column recomputed from its stored snapshot.
func ExportReconciliation(rec *models.Reconciliation) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"

	header := [][2]interface{}{
		{"Reconciliation", rec.ReconciliationNumber},
		{"Contractor", nameOrId(rec.ContractorName, rec.ContractorId)},
		{"Period", fmt.Sprintf("%s %s to %s", rec.PeriodType, rec.PeriodStart.Format("2006-01-02"), rec.PeriodEnd.Format("2006-01-02"))},
		{"Reported By", rec.ReportedBy},
		{"Status", string(rec.Status)},
	}
	for i, kv := range header {
		row := i + 1
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), kv[0]); err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), kv[1]); err != nil {
			return nil, "", err
		}
	}

	rows := make([]ExcelRow, 0, len(rec.LineItems))
	for i := range rec.LineItems {
		li := rec.LineItems[i]
		rows = append(rows, lineItemRow{item: li, materialName: nameOrId(li.MaterialName, li.MaterialId), verified: models.VerifyLineItem(&li)})
	}
	headings := []string{"Line", "Material", "System Qty", "Reported Qty", "Variance", "Variance %", "Threshold %", "Threshold Source", "Anomaly", "Verified"}
	if err := writeTable(f, sheet, len(header)+2, headings, rows); err != nil {
		return nil, "", err
	}

	data, err := toBytes(f)
	if err != nil {
		return nil, "", err
	}
	return data, rec.ReconciliationNumber + ".xlsx", nil
}

func ExportAnomalies(anomalies []*models.Anomaly) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	rows := make([]ExcelRow, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, anomalyRow{anomaly: a})
	}
	headings := []string{"Id", "Contractor", "Material", "Type", "Expected", "Actual", "Variance %", "Source", "Resolved", "Resolved At", "Created At"}
	if err := writeTable(f, "Sheet1", 1, headings, rows); err != nil {
		return nil, err
	}
	return toBytes(f)
}

func nameOrId(name string, id int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func writeTable(f *excelize.File, sheet string, startRow int, headings []string, rows []ExcelRow) error {
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, startRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, value := range row.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(c+1, startRow+r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func toBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
