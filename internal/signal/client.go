// Package signal is the client for the external forecasting oracle. The
// oracle is best-effort: any failure degrades to an empty signal list with a
// structured failure descriptor, never an error, and malformed signals are
// dropped individually instead of aborting the batch.
package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/config"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/isoweek"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

// Request size bounds. These exist purely to cap oracle payload size and
// latency; truncation is intentional lossy behavior.
const (
	minHorizonWeeks = 4
	maxHorizonWeeks = 12
	maxSeriesParts  = 20
	maxPayloadParts = 10
	maxWeeksPerPart = 26
)

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     zerolog.Logger
}

func NewClient(cfg config.OracleConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		log:     logger.Component("oracle"),
	}
}

// RequestSignals asks the oracle for predictive signals over the given
// series. The horizon is clamped to [4, 12] weeks and the series is
// truncated before building the payload.
func (c *Client) RequestSignals(ctx context.Context, series []domain.PartSeries, horizonWeeks int) Result {
	if c.baseURL == "" {
		return degraded(FailureNotConfigured, "oracle base URL not configured")
	}

	if horizonWeeks < minHorizonWeeks {
		horizonWeeks = minHorizonWeeks
	}
	if horizonWeeks > maxHorizonWeeks {
		horizonWeeks = maxHorizonWeeks
	}

	payload := oracleRequest{
		HorizonWeeks: horizonWeeks,
		Parts:        truncateSeries(series),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return degraded(FailureDecode, fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/signals", bytes.NewReader(body))
	if err != nil {
		return degraded(FailureNetwork, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := FailureNetwork
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = FailureTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		c.log.Warn().Err(err).Str("kind", kind).Msg("oracle call failed")
		return degraded(kind, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("oracle returned non-200")
		return degraded(FailureStatus, fmt.Sprintf("oracle returned HTTP %d", resp.StatusCode))
	}

	var parsed oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Warn().Err(err).Msg("oracle response is not valid JSON")
		return degraded(FailureDecode, fmt.Sprintf("decode response: %v", err))
	}

	signals := validateSignals(parsed.Signals, c.log)

	// The oracle reports its own failures inside a 200 body.
	if parsed.Error != "" {
		msg := parsed.Message
		if msg == "" {
			msg = parsed.Error
		}
		return Result{Signals: signals, Failure: &Failure{Kind: FailureOracle, Message: msg}}
	}

	return Result{Signals: signals}
}

func degraded(kind, message string) Result {
	return Result{
		Signals: []domain.AiSignal{},
		Failure: &Failure{Kind: kind, Message: message},
	}
}

// truncateSeries caps the request at maxSeriesParts, keeps the
// maxPayloadParts parts with the most recent activity, and trims each
// part's series to its most recent maxWeeksPerPart points.
func truncateSeries(series []domain.PartSeries) []domain.PartSeries {
	if len(series) > maxSeriesParts {
		series = series[:maxSeriesParts]
	}

	picked := make([]domain.PartSeries, len(series))
	copy(picked, series)
	if len(picked) > maxPayloadParts {
		sort.SliceStable(picked, func(i, j int) bool {
			return lastWeek(picked[i]) > lastWeek(picked[j])
		})
		picked = picked[:maxPayloadParts]
		sort.Slice(picked, func(i, j int) bool { return picked[i].PartNum < picked[j].PartNum })
	}

	for i := range picked {
		pts := picked[i].Series
		if len(pts) > maxWeeksPerPart {
			trimmed := make([]domain.SeriesPoint, maxWeeksPerPart)
			copy(trimmed, pts[len(pts)-maxWeeksPerPart:])
			picked[i].Series = trimmed
		}
	}

	return picked
}

func lastWeek(ps domain.PartSeries) string {
	if len(ps.Series) == 0 {
		return ""
	}
	return ps.Series[len(ps.Series)-1].WeekKey
}

// validateSignals filters the oracle output down to well-formed signals:
// non-empty part, valid week key, finite non-negative prediction, and
// coherent bounds when both are present. Violations are dropped, not fatal.
func validateSignals(raw []oracleSignal, log zerolog.Logger) []domain.AiSignal {
	out := make([]domain.AiSignal, 0, len(raw))
	dropped := 0

	for _, s := range raw {
		if s.PartNum == "" || !isoweek.Valid(s.WeekKey) {
			dropped++
			continue
		}
		if s.PredictedQty == nil || *s.PredictedQty < 0 ||
			math.IsNaN(*s.PredictedQty) || math.IsInf(*s.PredictedQty, 0) {
			dropped++
			continue
		}
		if s.Lower != nil && s.Upper != nil &&
			!(*s.Lower <= *s.PredictedQty && *s.PredictedQty <= *s.Upper) {
			dropped++
			continue
		}

		tag := s.SeasonalityTag
		if tag != domain.SeasonalityPeak && tag != domain.SeasonalityLow {
			tag = ""
		}

		out = append(out, domain.AiSignal{
			PartNum:        s.PartNum,
			WeekKey:        s.WeekKey,
			PredictedQty:   *s.PredictedQty,
			Lower:          s.Lower,
			Upper:          s.Upper,
			AnomalyScore:   s.AnomalyScore,
			SeasonalityTag: tag,
		})
	}

	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Int("kept", len(out)).Msg("discarded malformed oracle signals")
	}

	return out
}
