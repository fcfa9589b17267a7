package signal

import (
	"context"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
)

// Failure kinds attached to degraded oracle results.
const (
	FailureNotConfigured = "not_configured"
	FailureNetwork       = "network"
	FailureTimeout       = "timeout"
	FailureStatus        = "status"
	FailureDecode        = "decode"
	FailureOracle        = "oracle"
)

// Failure describes why an oracle call degraded. It is a value, not an
// error: the client never lets oracle problems escape as errors because
// downstream rendering depends on always getting a result object.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is what every oracle call returns. Signals is empty (never nil on
// the happy path) when the call degraded; Failure is nil on success.
type Result struct {
	Signals []domain.AiSignal `json:"signals"`
	Failure *Failure          `json:"failure,omitempty"`
}

// Degraded reports whether the call fell back to an empty signal list.
func (r Result) Degraded() bool {
	return r.Failure != nil
}

// Requester is the narrow contract the orchestrator consumes. Implemented
// by Client and by test fakes.
type Requester interface {
	RequestSignals(ctx context.Context, series []domain.PartSeries, horizonWeeks int) Result
}

// oracleRequest is the wire payload sent to the forecasting service.
type oracleRequest struct {
	HorizonWeeks int                 `json:"horizonWeeks"`
	Parts        []domain.PartSeries `json:"parts"`
}

// oracleSignal mirrors one element of the oracle's signals array before
// validation. Numeric fields are pointers so absent and zero are distinct.
type oracleSignal struct {
	PartNum        string   `json:"partNum"`
	WeekKey        string   `json:"weekKey"`
	PredictedQty   *float64 `json:"predictedQty"`
	Lower          *float64 `json:"lower"`
	Upper          *float64 `json:"upper"`
	AnomalyScore   *float64 `json:"anomalyScore"`
	SeasonalityTag string   `json:"seasonalityTag"`
}

type oracleResponse struct {
	Signals []oracleSignal `json:"signals"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
}
