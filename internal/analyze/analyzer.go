// Package analyze aggregates normalized consumption records into per-part
// weekly statistics, volatility rankings and inventory-risk classification.
// All functions are pure aggregation: no I/O, no shared state, deterministic
// for identical inputs.
package analyze

import (
	"fmt"
	"math"
	"sort"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
)

// Config carries the policy knobs of the analyzer. Thresholds are expressed
// in weeks of stock cover; fewer weeks of cover means higher risk.
type Config struct {
	// ProjectionWeeks is how many weeks ahead demand is projected when
	// classifying inventory risk.
	ProjectionWeeks int
	// RecentWeeks bounds the averaging window for projected demand.
	RecentWeeks int
	// Weeks-of-cover cutoffs: cover >= LowMin is low risk, >= MediumMin is
	// medium, >= HighMin is high, anything below is critical.
	LowMin    float64
	MediumMin float64
	HighMin   float64
}

// DefaultConfig returns the stock policy used when none is configured.
func DefaultConfig() Config {
	return Config{
		ProjectionWeeks: 4,
		RecentWeeks:     8,
		LowMin:          8,
		MediumMin:       4,
		HighMin:         2,
	}
}

type Analyzer struct {
	cfg Config
}

func New(cfg Config) *Analyzer {
	if cfg.ProjectionWeeks <= 0 {
		cfg.ProjectionWeeks = 4
	}
	if cfg.RecentWeeks <= 0 {
		cfg.RecentWeeks = 8
	}
	if cfg.LowMin <= 0 {
		cfg.LowMin = 8
	}
	if cfg.MediumMin <= 0 {
		cfg.MediumMin = 4
	}
	if cfg.HighMin <= 0 {
		cfg.HighMin = 2
	}
	return &Analyzer{cfg: cfg}
}

// Analyze aggregates records into the full analysis result. Stock positions
// are optional; parts without one are left out of the risk classification.
func (a *Analyzer) Analyze(records []domain.NormalizedConsumptionRecord, stocks []domain.StockPosition) (*domain.DemandAnalysisResult, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("analyze: no records")
	}

	stats := weeklyStats(records)

	result := &domain.DemandAnalysisResult{
		Records:             records,
		TotalRecords:        len(records),
		WeeklyStats:         stats,
		VolatilityRanking:   volatilityRanking(stats),
		CustomerInstability: customerInstability(records),
		InventoryRisks:      a.classifyRisk(stats, stocks),
	}

	if len(stats) > 0 {
		result.WeekStart = stats[0].WeekKey
		result.WeekEnd = stats[0].WeekKey
		for _, s := range stats {
			if s.WeekKey < result.WeekStart {
				result.WeekStart = s.WeekKey
			}
			if s.WeekKey > result.WeekEnd {
				result.WeekEnd = s.WeekKey
			}
		}
	}

	return result, nil
}

// weeklyStats groups records by (part, week) and computes per-customer
// distribution statistics for each group.
func weeklyStats(records []domain.NormalizedConsumptionRecord) []domain.WeeklyStat {
	type groupKey struct {
		part string
		week string
	}

	groups := make(map[groupKey]map[string]float64)
	for _, r := range records {
		k := groupKey{part: r.PartNum, week: r.WeekKey}
		if groups[k] == nil {
			groups[k] = make(map[string]float64)
		}
		groups[k][r.CustomerCode] += r.Qty
	}

	stats := make([]domain.WeeklyStat, 0, len(groups))
	for k, perCustomer := range groups {
		s := domain.WeeklyStat{
			PartNum:       k.part,
			WeekKey:       k.week,
			CustomerCount: len(perCustomer),
			PerCustomer:   perCustomer,
		}

		first := true
		for _, q := range perCustomer {
			s.TotalQty += q
			if first || q > s.MaxQty {
				s.MaxQty = q
			}
			if first || q < s.MinQty {
				s.MinQty = q
			}
			first = false
		}
		s.MeanQty = s.TotalQty / float64(len(perCustomer))
		s.StdDev = sampleStdDev(perCustomer, s.MeanQty)
		s.VolatilityScore = volatility(s.StdDev, s.MeanQty)

		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PartNum != stats[j].PartNum {
			return stats[i].PartNum < stats[j].PartNum
		}
		return stats[i].WeekKey < stats[j].WeekKey
	})

	return stats
}

// sampleStdDev computes the sample standard deviation (n-1) of the values.
// A single customer yields 0, not NaN.
func sampleStdDev(values map[string]float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// volatility is the coefficient of variation: dimensionless, comparable
// across parts with very different volume scales. Defined as 0 when the
// mean is 0 to avoid divide-by-zero.
func volatility(stdDev, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return stdDev / mean
}

func volatilityRanking(stats []domain.WeeklyStat) []domain.VolatilityRank {
	sums := make(map[string]*domain.VolatilityRank)
	for _, s := range stats {
		r := sums[s.PartNum]
		if r == nil {
			r = &domain.VolatilityRank{PartNum: s.PartNum}
			sums[s.PartNum] = r
		}
		r.AvgVolatility += s.VolatilityScore
		r.WeekCount++
	}

	ranking := make([]domain.VolatilityRank, 0, len(sums))
	for _, r := range sums {
		r.AvgVolatility /= float64(r.WeekCount)
		ranking = append(ranking, *r)
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].AvgVolatility != ranking[j].AvgVolatility {
			return ranking[i].AvgVolatility > ranking[j].AvgVolatility
		}
		return ranking[i].PartNum < ranking[j].PartNum
	})

	return ranking
}

// customerInstability scores each customer by the coefficient of variation
// of its weekly ordering per part, averaged across the parts it buys.
func customerInstability(records []domain.NormalizedConsumptionRecord) []domain.CustomerInstability {
	type custPart struct {
		customer string
		part     string
	}

	weekly := make(map[custPart]map[string]float64)
	names := make(map[string]string)
	for _, r := range records {
		k := custPart{customer: r.CustomerCode, part: r.PartNum}
		if weekly[k] == nil {
			weekly[k] = make(map[string]float64)
		}
		weekly[k][r.WeekKey] += r.Qty
		if r.CustomerName != "" {
			names[r.CustomerCode] = r.CustomerName
		}
	}

	scores := make(map[string]*domain.CustomerInstability)
	for k, byWeek := range weekly {
		var total float64
		for _, q := range byWeek {
			total += q
		}
		mean := total / float64(len(byWeek))
		cv := volatility(sampleStdDev(byWeek, mean), mean)

		c := scores[k.customer]
		if c == nil {
			c = &domain.CustomerInstability{CustomerCode: k.customer, CustomerName: names[k.customer]}
			scores[k.customer] = c
		}
		c.Instability += cv
		c.PartCount++
	}

	out := make([]domain.CustomerInstability, 0, len(scores))
	for _, c := range scores {
		c.Instability /= float64(c.PartCount)
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Instability != out[j].Instability {
			return out[i].Instability > out[j].Instability
		}
		return out[i].CustomerCode < out[j].CustomerCode
	})

	return out
}

// classifyRisk compares projected demand against available stock for every
// part with a known stock position.
func (a *Analyzer) classifyRisk(stats []domain.WeeklyStat, stocks []domain.StockPosition) []domain.InventoryRisk {
	if len(stocks) == 0 {
		return nil
	}

	byPart := make(map[string][]domain.WeeklyStat)
	for _, s := range stats {
		byPart[s.PartNum] = append(byPart[s.PartNum], s)
	}

	var risks []domain.InventoryRisk
	for _, pos := range stocks {
		partStats := byPart[pos.PartNum]
		if len(partStats) == 0 {
			continue
		}

		// Average weekly consumption over the most recent window.
		recent := partStats
		if len(recent) > a.cfg.RecentWeeks {
			recent = recent[len(recent)-a.cfg.RecentWeeks:]
		}
		var total float64
		for _, s := range recent {
			total += s.TotalQty
		}
		avgWeekly := total / float64(len(recent))

		risk := domain.InventoryRisk{
			PartNum:      pos.PartNum,
			AvgWeeklyQty: avgWeekly,
			ProjectedQty: avgWeekly * float64(a.cfg.ProjectionWeeks),
			OnHand:       pos.OnHand,
			SafetyStock:  pos.SafetyStock,
		}

		available := pos.OnHand - pos.SafetyStock
		if available < 0 {
			available = 0
		}
		if avgWeekly > 0 {
			risk.WeeksOfCover = available / avgWeekly
		} else {
			risk.WeeksOfCover = math.Inf(1)
		}

		// Lead time eats into usable cover before a replenishment can land.
		effectiveCover := risk.WeeksOfCover - pos.LeadTimeWeeks
		switch {
		case effectiveCover >= a.cfg.LowMin:
			risk.RiskLevel = domain.RiskLow
		case effectiveCover >= a.cfg.MediumMin:
			risk.RiskLevel = domain.RiskMedium
		case effectiveCover >= a.cfg.HighMin:
			risk.RiskLevel = domain.RiskHigh
		default:
			risk.RiskLevel = domain.RiskCritical
		}

		if math.IsInf(risk.WeeksOfCover, 1) {
			// No consumption at all: nothing to run out of.
			risk.WeeksOfCover = 0
			risk.RiskLevel = domain.RiskLow
		}

		risks = append(risks, risk)
	}

	sort.Slice(risks, func(i, j int) bool {
		ri, rj := domain.RiskRank(risks[i].RiskLevel), domain.RiskRank(risks[j].RiskLevel)
		if ri != rj {
			return ri > rj
		}
		return risks[i].PartNum < risks[j].PartNum
	})

	return risks
}

// BuildPartSeries groups records into sparse per-part weekly series ordered
// by week key ascending. Missing weeks are absent, not zero-filled.
func BuildPartSeries(records []domain.NormalizedConsumptionRecord) []domain.PartSeries {
	byPart := make(map[string]map[string]float64)
	for _, r := range records {
		if byPart[r.PartNum] == nil {
			byPart[r.PartNum] = make(map[string]float64)
		}
		byPart[r.PartNum][r.WeekKey] += r.Qty
	}

	series := make([]domain.PartSeries, 0, len(byPart))
	for part, byWeek := range byPart {
		ps := domain.PartSeries{PartNum: part, Series: make([]domain.SeriesPoint, 0, len(byWeek))}
		for wk, qty := range byWeek {
			ps.Series = append(ps.Series, domain.SeriesPoint{WeekKey: wk, Qty: qty})
		}
		sort.Slice(ps.Series, func(i, j int) bool { return ps.Series[i].WeekKey < ps.Series[j].WeekKey })
		series = append(series, ps)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].PartNum < series[j].PartNum })
	return series
}
