package domain

import "time"

// NormalizedRow is one demand quantity pinned to a canonical ISO week.
// Rows are uniquely identified by (client, part, period, source, version);
// persistence is last-write-wins per version.
type NormalizedRow struct {
	ClientID  string  `json:"client_id" db:"client_id"`
	PartID    string  `json:"part_id" db:"part_id"`
	PeriodKey string  `json:"period_key" db:"period_key"`
	Qty       float64 `json:"qty" db:"qty"`
	Source    string  `json:"source" db:"source"`
	Version   int     `json:"version" db:"version"`
}

// NormalizedConsumptionRecord is one parsed invoice line. WeekNumber, Year and
// Month are always derived from InvoiceDate, never taken from the source row.
type NormalizedConsumptionRecord struct {
	InvoiceDate  time.Time `json:"invoice_date"`
	CustomerCode string    `json:"customer_code"`
	CustomerName string    `json:"customer_name,omitempty"`
	PartNum      string    `json:"part_num"`
	Qty          float64   `json:"qty"`
	UnitPrice    float64   `json:"unit_price,omitempty"`
	TotalAmount  float64   `json:"total_amount,omitempty"`
	WeekKey      string    `json:"week_key"`
	WeekNumber   int       `json:"week_number"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
}

// SeriesPoint is one (week, qty) sample of a part's demand series.
type SeriesPoint struct {
	WeekKey string  `json:"weekKey"`
	Qty     float64 `json:"qty"`
}

// PartSeries is a part's weekly demand series, ordered by week key ascending.
// The series is sparse: weeks without demand are absent, not zero.
type PartSeries struct {
	PartNum string        `json:"partNum"`
	Series  []SeriesPoint `json:"series"`
}

// WeeklyStat aggregates demand for one (part, week) across customers.
type WeeklyStat struct {
	PartNum         string             `json:"part_num" db:"part_num"`
	WeekKey         string             `json:"week_key" db:"week_key"`
	TotalQty        float64            `json:"total_qty" db:"total_qty"`
	CustomerCount   int                `json:"customer_count" db:"customer_count"`
	MeanQty         float64            `json:"mean_qty" db:"mean_qty"`
	MaxQty          float64            `json:"max_qty" db:"max_qty"`
	MinQty          float64            `json:"min_qty" db:"min_qty"`
	StdDev          float64            `json:"std_dev" db:"std_dev"`
	VolatilityScore float64            `json:"volatility_score" db:"volatility_score"`
	PerCustomer     map[string]float64 `json:"per_customer,omitempty" db:"-"`
}

// AiSignal is one forecast signal returned by the external oracle.
// Lower/Upper/AnomalyScore are nil when the oracle omitted them.
type AiSignal struct {
	PartNum        string   `json:"part_num" db:"part_num"`
	WeekKey        string   `json:"week_key" db:"week_key"`
	PredictedQty   float64  `json:"predicted_qty" db:"predicted_qty"`
	Lower          *float64 `json:"lower,omitempty" db:"lower_bound"`
	Upper          *float64 `json:"upper,omitempty" db:"upper_bound"`
	AnomalyScore   *float64 `json:"anomaly_score,omitempty" db:"anomaly_score"`
	SeasonalityTag string   `json:"seasonality_tag,omitempty" db:"seasonality_tag"`
}

// Seasonality tags the oracle may attach to a signal.
const (
	SeasonalityPeak = "peak"
	SeasonalityLow  = "low"
)

// VolatilityRank ranks a part by its average volatility score.
type VolatilityRank struct {
	PartNum       string  `json:"part_num" db:"part_num"`
	AvgVolatility float64 `json:"avg_volatility" db:"avg_volatility"`
	WeekCount     int     `json:"week_count" db:"week_count"`
}

// CustomerInstability ranks a customer by how erratic its ordering is
// across the parts it buys.
type CustomerInstability struct {
	CustomerCode string  `json:"customer_code" db:"customer_code"`
	CustomerName string  `json:"customer_name,omitempty" db:"customer_name"`
	Instability  float64 `json:"instability" db:"instability"`
	PartCount    int     `json:"part_count" db:"part_count"`
}

// QualityReport summarizes what survived normalization. Dropped rows are a
// tolerated condition, not an error, but the caller always sees the counts.
type QualityReport struct {
	RowsSeen    int            `json:"rows_seen"`
	RowsKept    int            `json:"rows_kept"`
	RowsDropped int            `json:"rows_dropped"`
	DropReasons map[string]int `json:"drop_reasons,omitempty"`
}

// DropRatio returns the fraction of input rows that were discarded.
func (q QualityReport) DropRatio() float64 {
	if q.RowsSeen == 0 {
		return 0
	}
	return float64(q.RowsDropped) / float64(q.RowsSeen)
}

// StockPosition is the inventory context needed to classify a part's risk.
type StockPosition struct {
	PartNum       string  `json:"part_num" db:"part_num"`
	OnHand        float64 `json:"on_hand" db:"on_hand"`
	SafetyStock   float64 `json:"safety_stock" db:"safety_stock"`
	LeadTimeWeeks float64 `json:"lead_time_weeks" db:"lead_time_weeks"`
}

// InventoryRisk classifies one part's stock cover against projected demand.
type InventoryRisk struct {
	PartNum      string  `json:"part_num" db:"part_num"`
	AvgWeeklyQty float64 `json:"avg_weekly_qty" db:"avg_weekly_qty"`
	ProjectedQty float64 `json:"projected_qty" db:"projected_qty"`
	OnHand       float64 `json:"on_hand" db:"on_hand"`
	SafetyStock  float64 `json:"safety_stock" db:"safety_stock"`
	WeeksOfCover float64 `json:"weeks_of_cover" db:"weeks_of_cover"`
	RiskLevel    string  `json:"risk_level" db:"risk_level"`
}

// ClientRecord maps a customer code to its display name.
type ClientRecord struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
}

// DemandAnalysisResult is the terminal aggregate of one processing run.
// It is immutable once built and is the unit of persistence.
type DemandAnalysisResult struct {
	ID                  string                        `json:"id"`
	CreatedAt           time.Time                     `json:"created_at"`
	Records             []NormalizedConsumptionRecord `json:"-"`
	TotalRecords        int                           `json:"total_records"`
	WeekStart           string                        `json:"week_start"`
	WeekEnd             string                        `json:"week_end"`
	WeeklyStats         []WeeklyStat                  `json:"weekly_stats"`
	VolatilityRanking   []VolatilityRank              `json:"volatility_ranking"`
	CustomerInstability []CustomerInstability         `json:"customer_instability"`
	InventoryRisks      []InventoryRisk               `json:"inventory_risks"`
	AiSignals           []AiSignal                    `json:"ai_signals"`
	Quality             QualityReport                 `json:"quality"`
	Warnings            []string                      `json:"warnings,omitempty"`
}
