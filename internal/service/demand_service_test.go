package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository/memory"
)

func TestReadCSV(t *testing.T) {
	input := "invoice_date, customer_code ,qty\n2025-02-03,C1,10\n2025-02-04,C2\n"

	headers, rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice_date", "customer_code", "qty"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "10", rows[0]["qty"])
	// Short records are padded, not rejected.
	assert.Equal(t, "", rows[1]["qty"])
	assert.Equal(t, "C2", rows[1]["customer_code"])
}

func TestReadCSV_EmptyInput(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestIngestForecast_WeeklySheet(t *testing.T) {
	rowRepo := memory.NewDemandRowRepository()
	svc := NewDemandService(nil, nil, rowRepo, nil)

	sheet := "client_id,part_id,WK_01,WK_02\nC1,P1,10,20\nC1,P2,5,\n"
	result, err := svc.IngestForecast(context.Background(), strings.NewReader(sheet), 2025, "test", 1)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowsSeen)
	assert.Equal(t, 3, result.RowsOut)
	assert.Equal(t, 3, result.Upserted)

	rows, err := rowRepo.ListRows(context.Background(), "C1", "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestIngestForecast_UnknownFormat(t *testing.T) {
	svc := NewDemandService(nil, nil, memory.NewDemandRowRepository(), nil)

	sheet := "client_id,part_id,stuff\nC1,P1,10\n"
	_, err := svc.IngestForecast(context.Background(), strings.NewReader(sheet), 2025, "test", 1)
	assert.Error(t, err)
}

// Re-ingesting the same sheet overwrites rather than duplicates.
func TestIngestForecast_Idempotent(t *testing.T) {
	rowRepo := memory.NewDemandRowRepository()
	svc := NewDemandService(nil, nil, rowRepo, nil)

	sheet := "client_id,part_id,WK_01\nC1,P1,10\n"
	for i := 0; i < 2; i++ {
		_, err := svc.IngestForecast(context.Background(), strings.NewReader(sheet), 2025, "test", 1)
		require.NoError(t, err)
	}

	rows, err := rowRepo.ListRows(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
