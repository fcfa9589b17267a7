package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatWeekly, DetectFormat([]string{"client_id", "part_id", "WK_01", "WK_02"}))
	assert.Equal(t, FormatWeekly, DetectFormat([]string{"cust_id", "sku", "wk1"}))
	assert.Equal(t, FormatMonthly, DetectFormat([]string{"client_id", "part_id", "03-2025", "04-2025"}))
	assert.Equal(t, FormatUnknown, DetectFormat([]string{"client_id", "part_id", "qty"}))

	// Weekly columns win when both shapes appear.
	assert.Equal(t, FormatWeekly, DetectFormat([]string{"WK_01", "03-2025"}))
}

func TestNormalizeWeekly(t *testing.T) {
	rows := []RawRow{
		{"client_id": "C1", "part_id": "P1", "WK_01": "10", "WK_02": "20", "WK_03": "", "WK_04": "1,250"},
		{"client_id": "C1", "part_id": "", "WK_01": "99"}, // no part id, skipped
	}

	out := NormalizeWeekly(rows, 2025, "sheet", 1)
	require.Len(t, out, 3)

	byKey := make(map[string]float64)
	for _, r := range out {
		assert.Equal(t, "C1", r.ClientID)
		assert.Equal(t, "P1", r.PartID)
		assert.Equal(t, "sheet", r.Source)
		assert.Equal(t, 1, r.Version)
		byKey[r.PeriodKey] = r.Qty
	}
	assert.Equal(t, 10.0, byKey["2025-W01"])
	assert.Equal(t, 20.0, byKey["2025-W02"])
	assert.Equal(t, 1250.0, byKey["2025-W04"])
}

func TestNormalizeWeekly_OutOfRangeWeeks(t *testing.T) {
	// 2025 has 52 ISO weeks; WK_53 has nowhere to land.
	rows := []RawRow{{"client_id": "C1", "part_id": "P1", "WK_53": "5", "WK_00": "5"}}
	assert.Empty(t, NormalizeWeekly(rows, 2025, "sheet", 1))
}

func TestNormalizeMonthly_EqualSplit(t *testing.T) {
	// April 2025 overlaps exactly 5 ISO weeks: 310 distributes as 5 x 62.
	rows := []RawRow{{"client_id": "C1", "part_id": "P1", "04-2025": "310"}}

	out := NormalizeMonthly(rows, "sheet", 2)
	require.Len(t, out, 5)

	keys := make([]string, 0, len(out))
	for _, r := range out {
		assert.Equal(t, 62.0, r.Qty)
		assert.Equal(t, 2, r.Version)
		keys = append(keys, r.PeriodKey)
	}
	assert.Equal(t, []string{"2025-W14", "2025-W15", "2025-W16", "2025-W17", "2025-W18"}, keys)
}

func TestNormalizeMonthly_RoundsPerWeek(t *testing.T) {
	// 100 over 6 weeks (March 2025) rounds each share to 16.67.
	rows := []RawRow{{"client_id": "C1", "part_id": "P1", "03-2025": "100"}}

	out := NormalizeMonthly(rows, "sheet", 1)
	require.Len(t, out, 6)
	for _, r := range out {
		assert.Equal(t, 16.67, r.Qty)
	}
}

func TestNormalizeMonthly_SkipsZeroAndNegative(t *testing.T) {
	rows := []RawRow{{"client_id": "C1", "part_id": "P1", "01-2025": "0", "02-2025": "-5"}}
	assert.Empty(t, NormalizeMonthly(rows, "sheet", 1))
}

func TestNormalizeFromPeriodKey(t *testing.T) {
	rows := []RawRow{
		{"client_id": "C1", "part_id": "P1", "period_key": "2025-W10", "qty": "40"},
		{"client_id": "C1", "part_id": "P2", "period_key": "2025-13", "qty": "40"}, // bad key
		{"client_id": "C1", "part_id": "P3", "period_key": "2025-W11", "qty": "oops"},
	}

	out := NormalizeFromPeriodKey(rows, "api", 1)
	require.Len(t, out, 1)
	assert.Equal(t, "P1", out[0].PartID)
	assert.Equal(t, "2025-W10", out[0].PeriodKey)
	assert.Equal(t, 40.0, out[0].Qty)
}

func TestParseQty(t *testing.T) {
	cases := []struct {
		in string
		v  float64
		ok bool
	}{
		{"42", 42, true},
		{"42.5", 42.5, true},
		{"1,250", 1250, true},
		{"12,345,678.9", 12345678.9, true},
		{"1,25", 0, false}, // not a thousands separator
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		v, ok := parseQty(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.v, v, "input %q", tc.in)
		}
	}
}
