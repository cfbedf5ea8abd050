package domain

import "github.com/shopspring/decimal"

// Aggregate folds per-canopy intersection areas into canopy statistics.
// Bins are half-open [low, high), the last one included, so a canopy value
// equal to the final edge is counted in the totals but in no class. Rows with
// a non-positive area are ignored.
func Aggregate(areas []CanopyArea, threshold decimal.Decimal, edges []decimal.Decimal) *StatsResult {
	result := &StatsResult{
		AreaByClass: make([]AreaClass, 0, max(len(edges)-1, 0)),
		BinEdges:    make([]float64, len(edges)),
		Threshold:   threshold.InexactFloat64(),
	}
	for i, e := range edges {
		result.BinEdges[i] = e.InexactFloat64()
	}
	for i := 0; i+1 < len(edges); i++ {
		result.AreaByClass = append(result.AreaByClass, AreaClass{
			Min: result.BinEdges[i],
			Max: result.BinEdges[i+1],
		})
	}

	var weighted float64
	for _, a := range areas {
		if a.AreaM2 <= 0 {
			continue
		}
		pct := a.CanopyPct.InexactFloat64()

		result.TotalAreaM2 += a.AreaM2
		weighted += a.AreaM2 * pct
		result.PixelCount += a.CellCount

		if a.CanopyPct.GreaterThanOrEqual(threshold) {
			result.AreaAboveThresholdM2 += a.AreaM2
		}

		for i := 0; i+1 < len(edges); i++ {
			if a.CanopyPct.GreaterThanOrEqual(edges[i]) && a.CanopyPct.LessThan(edges[i+1]) {
				result.AreaByClass[i].AreaM2 += a.AreaM2
			}
		}
	}

	if result.TotalAreaM2 > 0 {
		result.MeanCanopy = weighted / result.TotalAreaM2
	}

	return result
}
