package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
)

func rec(customer, part, week string, qty float64) domain.NormalizedConsumptionRecord {
	return domain.NormalizedConsumptionRecord{
		InvoiceDate:  time.Now().UTC(),
		CustomerCode: customer,
		PartNum:      part,
		WeekKey:      week,
		Qty:          qty,
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	_, err := New(Config{}).Analyze(nil, nil)
	assert.Error(t, err)
}

func TestWeeklyStats_Aggregation(t *testing.T) {
	records := []domain.NormalizedConsumptionRecord{
		rec("C1", "P1", "2025-W01", 10),
		rec("C1", "P1", "2025-W01", 5), // same customer, summed
		rec("C2", "P1", "2025-W01", 25),
		rec("C1", "P1", "2025-W02", 8),
	}

	result, err := New(Config{}).Analyze(records, nil)
	require.NoError(t, err)
	require.Len(t, result.WeeklyStats, 2)

	w1 := result.WeeklyStats[0]
	assert.Equal(t, "2025-W01", w1.WeekKey)
	assert.Equal(t, 40.0, w1.TotalQty)
	assert.Equal(t, 2, w1.CustomerCount)
	assert.Equal(t, 20.0, w1.MeanQty)
	assert.Equal(t, 25.0, w1.MaxQty)
	assert.Equal(t, 15.0, w1.MinQty)
	// Sample stddev of {15, 25} is sqrt(50) ~ 7.0711.
	assert.InDelta(t, 7.0711, w1.StdDev, 1e-3)
	assert.InDelta(t, 0.3536, w1.VolatilityScore, 1e-3)

	// A single customer gives zero spread, not NaN.
	w2 := result.WeeklyStats[1]
	assert.Equal(t, "2025-W02", w2.WeekKey)
	assert.Equal(t, 0.0, w2.StdDev)
	assert.Equal(t, 0.0, w2.VolatilityScore)

	assert.Equal(t, "2025-W01", result.WeekStart)
	assert.Equal(t, "2025-W02", result.WeekEnd)
	assert.Equal(t, 4, result.TotalRecords)
}

// TestAnalyze_Deterministic runs the same input twice and expects identical
// ordering everywhere.
func TestAnalyze_Deterministic(t *testing.T) {
	records := []domain.NormalizedConsumptionRecord{
		rec("C1", "P2", "2025-W01", 10),
		rec("C2", "P1", "2025-W01", 30),
		rec("C1", "P1", "2025-W02", 7),
		rec("C3", "P2", "2025-W02", 12),
	}

	a := New(Config{})
	first, err := a.Analyze(records, nil)
	require.NoError(t, err)
	second, err := a.Analyze(records, nil)
	require.NoError(t, err)

	assert.Equal(t, first.WeeklyStats, second.WeeklyStats)
	assert.Equal(t, first.VolatilityRanking, second.VolatilityRanking)
	assert.Equal(t, first.CustomerInstability, second.CustomerInstability)
}

func TestVolatilityRanking_OrdersDescending(t *testing.T) {
	// P1 has an even split (low volatility), P2 a lopsided one.
	records := []domain.NormalizedConsumptionRecord{
		rec("C1", "P1", "2025-W01", 10),
		rec("C2", "P1", "2025-W01", 10),
		rec("C1", "P2", "2025-W01", 1),
		rec("C2", "P2", "2025-W01", 99),
	}

	result, err := New(Config{}).Analyze(records, nil)
	require.NoError(t, err)
	require.Len(t, result.VolatilityRanking, 2)
	assert.Equal(t, "P2", result.VolatilityRanking[0].PartNum)
	assert.Equal(t, "P1", result.VolatilityRanking[1].PartNum)
	assert.Equal(t, 0.0, result.VolatilityRanking[1].AvgVolatility)
}

func TestCustomerInstability(t *testing.T) {
	// C1 orders the same amount every week, C2 swings wildly.
	records := []domain.NormalizedConsumptionRecord{
		rec("C1", "P1", "2025-W01", 10),
		rec("C1", "P1", "2025-W02", 10),
		rec("C1", "P1", "2025-W03", 10),
		rec("C2", "P1", "2025-W01", 1),
		rec("C2", "P1", "2025-W02", 100),
		rec("C2", "P1", "2025-W03", 2),
	}

	result, err := New(Config{}).Analyze(records, nil)
	require.NoError(t, err)
	require.Len(t, result.CustomerInstability, 2)
	assert.Equal(t, "C2", result.CustomerInstability[0].CustomerCode)
	assert.Equal(t, "C1", result.CustomerInstability[1].CustomerCode)
	assert.Equal(t, 0.0, result.CustomerInstability[1].Instability)
}

func TestClassifyRisk_Levels(t *testing.T) {
	// Steady demand of 10/week for each part across 4 weeks.
	var records []domain.NormalizedConsumptionRecord
	for _, part := range []string{"P1", "P2", "P3", "P4"} {
		for _, wk := range []string{"2025-W01", "2025-W02", "2025-W03", "2025-W04"} {
			records = append(records, rec("C1", part, wk, 10))
		}
	}

	stocks := []domain.StockPosition{
		{PartNum: "P1", OnHand: 120, SafetyStock: 20}, // 10 weeks cover
		{PartNum: "P2", OnHand: 60},                   // 6 weeks
		{PartNum: "P3", OnHand: 30},                   // 3 weeks
		{PartNum: "P4", OnHand: 5},                    // 0.5 weeks
		{PartNum: "P9", OnHand: 100},                  // no demand data, skipped
	}

	result, err := New(Config{}).Analyze(records, stocks)
	require.NoError(t, err)
	require.Len(t, result.InventoryRisks, 4)

	byPart := make(map[string]domain.InventoryRisk)
	for _, r := range result.InventoryRisks {
		byPart[r.PartNum] = r
	}
	assert.Equal(t, domain.RiskLow, byPart["P1"].RiskLevel)
	assert.Equal(t, domain.RiskMedium, byPart["P2"].RiskLevel)
	assert.Equal(t, domain.RiskHigh, byPart["P3"].RiskLevel)
	assert.Equal(t, domain.RiskCritical, byPart["P4"].RiskLevel)

	assert.Equal(t, 10.0, byPart["P1"].AvgWeeklyQty)
	assert.Equal(t, 40.0, byPart["P1"].ProjectedQty)
	assert.InDelta(t, 10.0, byPart["P1"].WeeksOfCover, 1e-9)

	// Most severe first.
	assert.Equal(t, domain.RiskCritical, result.InventoryRisks[0].RiskLevel)
}

func TestClassifyRisk_LeadTimeEatsCover(t *testing.T) {
	records := []domain.NormalizedConsumptionRecord{
		rec("C1", "P1", "2025-W01", 10),
		rec("C1", "P1", "2025-W02", 10),
	}
	stocks := []domain.StockPosition{
		// 9 weeks raw cover, but 6 weeks of lead time leave only 3 effective.
		{PartNum: "P1", OnHand: 90, LeadTimeWeeks: 6},
	}

	result, err := New(Config{}).Analyze(records, stocks)
	require.NoError(t, err)
	require.Len(t, result.InventoryRisks, 1)
	assert.Equal(t, domain.RiskHigh, result.InventoryRisks[0].RiskLevel)
}

func TestBuildPartSeries(t *testing.T) {
	records := []domain.NormalizedConsumptionRecord{
		rec("C1", "P2", "2025-W02", 5),
		rec("C1", "P1", "2025-W03", 7),
		rec("C2", "P1", "2025-W01", 3),
		rec("C2", "P1", "2025-W03", 2),
	}

	series := BuildPartSeries(records)
	require.Len(t, series, 2)

	assert.Equal(t, "P1", series[0].PartNum)
	require.Len(t, series[0].Series, 2)
	assert.Equal(t, domain.SeriesPoint{WeekKey: "2025-W01", Qty: 3}, series[0].Series[0])
	assert.Equal(t, domain.SeriesPoint{WeekKey: "2025-W03", Qty: 9}, series[0].Series[1])

	assert.Equal(t, "P2", series[1].PartNum)
}
