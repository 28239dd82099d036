package models

import "github.com/shopspring/decimal"

// PercentagePlaces is the precision variance percentages are stored at.
const PercentagePlaces = 4

var hundred = decimal.NewFromInt(100)

type VarianceResult struct {
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variancePercentage"`
	IsAnomaly          bool            `json:"isAnomaly"`
}

// ComputeVariance compares a reported count to the system quantity.
//
// variance = reported - system. The percentage is |variance| / |system| * 100
// rounded to PercentagePlaces; a zero baseline gives 100 when anything was
// reported and 0 otherwise. A line is anomalous when the exact percentage is
// strictly greater than threshold, so rounding never moves a line across it.
func ComputeVariance(system decimal.Decimal, reported decimal.Decimal, threshold decimal.Decimal) VarianceResult {
	variance := reported.Sub(system)

	var pct decimal.Decimal
	var anomalous bool
	switch {
	case system.IsZero() && reported.IsZero():
		pct = decimal.Zero
		anomalous = pct.GreaterThan(threshold)
	case system.IsZero():
		pct = hundred
		anomalous = pct.GreaterThan(threshold)
	default:
		pct = variance.Abs().Div(system.Abs()).Mul(hundred).Round(PercentagePlaces)
		// |v| / |s| * 100 > t  <=>  |v| * 100 > t * |s|, without a division
		anomalous = variance.Abs().Mul(hundred).GreaterThan(threshold.Mul(system.Abs()))
	}

	return VarianceResult{
		Variance:           variance,
		VariancePercentage: pct,
		IsAnomaly:          anomalous,
	}
}

// ClassifyAnomaly names the kind of discrepancy an anomalous line represents.
func ClassifyAnomaly(system decimal.Decimal, variance decimal.Decimal) AnomalyType {
	switch {
	case system.IsNegative():
		return AnomalyTypeNegativeInventory
	case variance.IsNegative():
		return AnomalyTypeShortage
	default:
		return AnomalyTypeExcess
	}
}

// VerifyLineItem recomputes a stored line from its own snapshot columns and
// reports whether the stored results still agree.
func VerifyLineItem(item *ReconciliationLineItem) bool {
	want := ComputeVariance(item.SystemQuantity, item.ReportedQuantity, item.ThresholdUsed)
	return want.Variance.Equal(item.Variance) &&
		want.VariancePercentage.Equal(item.VariancePercentage) &&
		want.IsAnomaly == item.IsAnomaly
}
