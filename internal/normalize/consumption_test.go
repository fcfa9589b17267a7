package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(code string) (string, bool) {
	name, ok := m[code]
	return name, ok
}

var consumptionHeaders = []string{"invoice_date", "customer_code", "part_num", "qty", "unit_price"}

func TestDetectColumns_MissingRequired(t *testing.T) {
	_, err := DetectColumns([]string{"foo", "bar"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
	assert.Contains(t, err.Error(), "quantity")

	_, err = DetectColumns([]string{"invoice_date", "customer_code", "part_num"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
	assert.NotContains(t, err.Error(), "date,")
}

func TestDetectColumns_Aliases(t *testing.T) {
	cm, err := DetectColumns([]string{"Fecha", "Cliente", "SKU", "Cantidad"})
	require.NoError(t, err)
	assert.Equal(t, "Fecha", cm.Date)
	assert.Equal(t, "Cliente", cm.CustomerCode)
	assert.Equal(t, "SKU", cm.PartNum)
	assert.Equal(t, "Cantidad", cm.Qty)
}

func TestNormalizeConsumption_DropsAndCounts(t *testing.T) {
	rows := []RawRow{
		{"invoice_date": "2025-02-12", "customer_code": "C1", "part_num": "P1", "qty": "10"},
		{"invoice_date": "not-a-date", "customer_code": "C1", "part_num": "P1", "qty": "10"},
		{"invoice_date": "0000-00-00", "customer_code": "C1", "part_num": "P1", "qty": "10"},
		{"invoice_date": "2025-02-12", "customer_code": "", "part_num": "P1", "qty": "10"},
		{"invoice_date": "2025-02-12", "customer_code": "C1", "part_num": "", "qty": "10"},
		{"invoice_date": "2025-02-12", "customer_code": "C1", "part_num": "P1", "qty": "oops"},
		{"invoice_date": "2025-02-12", "customer_code": "C1", "part_num": "P1", "qty": "-3"},
		{"invoice_date": "13/03/2025", "customer_code": "C2", "part_num": "P2", "qty": "1,500"},
	}

	res, err := NormalizeConsumption(consumptionHeaders, rows, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Quality.RowsSeen)
	assert.Equal(t, 2, res.Quality.RowsKept)
	assert.Equal(t, 6, res.Quality.RowsDropped)
	assert.Equal(t, 2, res.Quality.DropReasons[DropBadDate])
	assert.Equal(t, 1, res.Quality.DropReasons[DropMissingCustomer])
	assert.Equal(t, 1, res.Quality.DropReasons[DropMissingPart])
	assert.Equal(t, 1, res.Quality.DropReasons[DropBadQty])
	assert.Equal(t, 1, res.Quality.DropReasons[DropNegativeQty])
	assert.InDelta(t, 0.75, res.Quality.DropRatio(), 1e-9)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 1500.0, res.Records[1].Qty)
}

// TestNormalizeConsumption_WeekFieldsDerived checks that week, year and month
// always come from the parsed invoice date.
func TestNormalizeConsumption_WeekFieldsDerived(t *testing.T) {
	rows := []RawRow{
		{"invoice_date": "2024-12-30", "customer_code": "C1", "part_num": "P1", "qty": "5"},
	}

	res, err := NormalizeConsumption(consumptionHeaders, rows, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "2025-W01", rec.WeekKey)
	assert.Equal(t, 2025, rec.Year)
	assert.Equal(t, 1, rec.WeekNumber)
	assert.Equal(t, 12, rec.Month)
}

func TestNormalizeConsumption_ResolvesCustomerNames(t *testing.T) {
	rows := []RawRow{
		{"invoice_date": "2025-02-12", "customer_code": "C1", "part_num": "P1", "qty": "5"},
		{"invoice_date": "2025-02-12", "customer_code": "C2", "part_num": "P1", "qty": "5"},
	}

	res, err := NormalizeConsumption(consumptionHeaders, rows, mapResolver{"C1": "Acme Corp"})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Acme Corp", res.Records[0].CustomerName)
	assert.Equal(t, "", res.Records[1].CustomerName)
}

func TestNormalizeConsumption_UnknownColumns(t *testing.T) {
	_, err := NormalizeConsumption([]string{"a", "b", "c"}, nil, nil)
	assert.Error(t, err)
}
