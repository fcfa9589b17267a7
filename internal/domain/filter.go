package domain

import "time"

// AnalysisFilter narrows reads over persisted analyses. Pagination follows a
// limit + cursor-on-last-item pattern: Cursor carries the ID of the last item
// of the previous page.
type AnalysisFilter struct {
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
	ClientID string     `json:"client_id,omitempty"`
	PartNum  string     `json:"part_num,omitempty"`
	Status   string     `json:"status,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Cursor   string     `json:"cursor,omitempty"`
}

// AnalysisSummary is the list-view projection of a persisted analysis.
type AnalysisSummary struct {
	ID           string    `json:"id" db:"id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	Status       string    `json:"status" db:"status"`
	TotalRecords int       `json:"total_records" db:"total_records"`
	WeekStart    string    `json:"week_start" db:"week_start"`
	WeekEnd      string    `json:"week_end" db:"week_end"`
	PartCount    int       `json:"part_count" db:"part_count"`
	SignalCount  int       `json:"signal_count" db:"signal_count"`
	AlertCount   int       `json:"alert_count" db:"alert_count"`
}

// DemandAlert is one persisted inventory alert tied to an analysis.
type DemandAlert struct {
	ID         string    `json:"id" db:"id"`
	AnalysisID string    `json:"analysis_id" db:"analysis_id"`
	PartNum    string    `json:"part_num" db:"part_num"`
	RiskLevel  string    `json:"risk_level" db:"risk_level"`
	WeeksCover float64   `json:"weeks_cover" db:"weeks_cover"`
	Message    string    `json:"message" db:"message"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DemandForecast is one persisted oracle signal tied to an analysis.
type DemandForecast struct {
	ID           string    `json:"id" db:"id"`
	AnalysisID   string    `json:"analysis_id" db:"analysis_id"`
	PartNum      string    `json:"part_num" db:"part_num"`
	WeekKey      string    `json:"week_key" db:"week_key"`
	PredictedQty float64   `json:"predicted_qty" db:"predicted_qty"`
	Lower        *float64  `json:"lower,omitempty" db:"lower_bound"`
	Upper        *float64  `json:"upper,omitempty" db:"upper_bound"`
	AnomalyScore *float64  `json:"anomaly_score,omitempty" db:"anomaly_score"`
	Seasonality  string    `json:"seasonality,omitempty" db:"seasonality_tag"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Alert statuses.
const (
	AlertOpen     = "open"
	AlertResolved = "resolved"
)
