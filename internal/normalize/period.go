package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/isoweek"
)

// PeriodFormat identifies how a forecast sheet encodes its periods.
type PeriodFormat string

const (
	FormatWeekly  PeriodFormat = "weekly"
	FormatMonthly PeriodFormat = "monthly"
	FormatUnknown PeriodFormat = "unknown"
)

var (
	weeklyColPattern  = regexp.MustCompile(`(?i)^wk[_-]?\d{1,2}$`)
	monthlyColPattern = regexp.MustCompile(`^\d{2}-\d{4}$`)

	clientColumns = []string{"client_id", "clientid", "cust_id", "custid", "customer_code", "cliente"}
	partColumns   = []string{"part_id", "partid", "part_num", "part number", "part_number", "sku", "numero_parte"}
)

// DetectFormat classifies a forecast sheet by its headers. Unknown sheets
// must be rejected or sent back for manual column mapping.
func DetectFormat(headers []string) PeriodFormat {
	for _, h := range headers {
		if weeklyColPattern.MatchString(strings.TrimSpace(h)) {
			return FormatWeekly
		}
	}
	for _, h := range headers {
		if monthlyColPattern.MatchString(strings.TrimSpace(h)) {
			return FormatMonthly
		}
	}
	return FormatUnknown
}

func rowField(row RawRow, aliases []string) string {
	for k, v := range row {
		c := canonHeader(k)
		for _, a := range aliases {
			if c == a {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// parseQty parses a quantity cell, tolerating thousands-separator commas in
// numeric-looking strings ("1,250" -> 1250). Returns false for anything else.
func parseQty(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		// Only strip commas when they look like thousands separators.
		if m, _ := regexp.MatchString(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`, s); m {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeWeekly expands rows with WK_nn columns into one NormalizedRow per
// non-empty weekly cell. Week nn is anchored to the Monday of ISO week nn of
// the given year. Rows missing a client or part id are skipped silently;
// sparse spreadsheets are expected here.
func NormalizeWeekly(rows []RawRow, year int, source string, version int) []domain.NormalizedRow {
	maxWeek := isoweek.WeeksInYear(year)

	var out []domain.NormalizedRow
	for _, row := range rows {
		clientID := rowField(row, clientColumns)
		partID := rowField(row, partColumns)
		if clientID == "" || partID == "" {
			continue
		}

		for col, cell := range row {
			col = strings.TrimSpace(col)
			if !weeklyColPattern.MatchString(col) {
				continue
			}
			qty, ok := parseQty(cell)
			if !ok || qty < 0 {
				continue
			}

			digits := strings.TrimLeft(strings.ToUpper(col), "WK_-")
			week, err := strconv.Atoi(digits)
			if err != nil || week < 1 || week > maxWeek {
				continue
			}

			monday := isoweek.MondayOf(year, week)
			out = append(out, domain.NormalizedRow{
				ClientID:  clientID,
				PartID:    partID,
				PeriodKey: isoweek.Key(monday),
				Qty:       qty,
				Source:    source,
				Version:   version,
			})
		}
	}
	return out
}

// NormalizeMonthly expands rows with MM-YYYY columns into weekly rows by
// distributing each monthly quantity equally across every ISO week that
// overlaps the month. Partial edge weeks get full weight; per-week values are
// rounded to 2 decimals, so the weekly sum can drift from the monthly input
// by a few hundredths. Zero-quantity columns are skipped.
func NormalizeMonthly(rows []RawRow, source string, version int) []domain.NormalizedRow {
	var out []domain.NormalizedRow
	for _, row := range rows {
		clientID := rowField(row, clientColumns)
		partID := rowField(row, partColumns)
		if clientID == "" || partID == "" {
			continue
		}

		for col, cell := range row {
			col = strings.TrimSpace(col)
			if !monthlyColPattern.MatchString(col) {
				continue
			}
			qty, ok := parseQty(cell)
			if !ok || qty == 0 || qty < 0 {
				continue
			}

			month, err1 := strconv.Atoi(col[:2])
			year, err2 := strconv.Atoi(col[3:])
			if err1 != nil || err2 != nil || month < 1 || month > 12 {
				continue
			}

			weeks := isoweek.WeeksOverlappingMonth(year, time.Month(month))
			if len(weeks) == 0 {
				continue
			}
			perWeek := round2(qty / float64(len(weeks)))
			for _, wk := range weeks {
				out = append(out, domain.NormalizedRow{
					ClientID:  clientID,
					PartID:    partID,
					PeriodKey: wk,
					Qty:       perWeek,
					Source:    source,
					Version:   version,
				})
			}
		}
	}
	return out
}

// NormalizeFromPeriodKey validates rows that already carry an ISO period key
// and drops any whose key does not match YYYY-Www.
func NormalizeFromPeriodKey(rows []RawRow, source string, version int) []domain.NormalizedRow {
	var out []domain.NormalizedRow
	for _, row := range rows {
		clientID := rowField(row, clientColumns)
		partID := rowField(row, partColumns)
		if clientID == "" || partID == "" {
			continue
		}

		key := rowField(row, []string{"period_key", "periodkey", "period"})
		if !isoweek.Valid(key) {
			continue
		}
		qty, ok := parseQty(rowField(row, []string{"qty", "quantity", "cantidad"}))
		if !ok || qty < 0 {
			continue
		}

		out = append(out, domain.NormalizedRow{
			ClientID:  clientID,
			PartID:    partID,
			PeriodKey: key,
			Qty:       qty,
			Source:    source,
			Version:   version,
		})
	}
	return out
}
