package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/isoweek"
)

// Drop reasons surfaced in the quality report.
const (
	DropBadDate         = "bad_date"
	DropMissingCustomer = "missing_customer"
	DropMissingPart     = "missing_part"
	DropBadQty          = "bad_qty"
	DropNegativeQty     = "negative_qty"
)

// NameResolver resolves a customer code to a display name. The client
// directory implements it; a nil resolver leaves names empty.
type NameResolver interface {
	Resolve(code string) (string, bool)
}

// ConsumptionResult bundles the surviving records with the data-quality
// report for the batch. The report is always populated, even when every
// row survives.
type ConsumptionResult struct {
	Records []domain.NormalizedConsumptionRecord
	Quality domain.QualityReport
}

var invoiceDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	time.RFC3339,
}

func parseInvoiceDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0000-00-00" {
		return time.Time{}, false
	}
	for _, layout := range invoiceDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeConsumption parses raw invoice lines into typed consumption
// records. Rows with an unusable date, customer, part or quantity are
// dropped and counted, not raised; week fields are derived only from the
// parsed invoice date. The function performs no I/O and is deterministic.
func NormalizeConsumption(headers []string, rows []RawRow, resolver NameResolver) (ConsumptionResult, error) {
	cm, err := DetectColumns(headers)
	if err != nil {
		return ConsumptionResult{}, fmt.Errorf("consumption normalization: %w", err)
	}

	res := ConsumptionResult{
		Records: make([]domain.NormalizedConsumptionRecord, 0, len(rows)),
		Quality: domain.QualityReport{DropReasons: make(map[string]int)},
	}

	drop := func(reason string) {
		res.Quality.RowsDropped++
		res.Quality.DropReasons[reason]++
	}

	for _, row := range rows {
		res.Quality.RowsSeen++

		date, ok := parseInvoiceDate(row[cm.Date])
		if !ok {
			drop(DropBadDate)
			continue
		}

		customer := strings.TrimSpace(row[cm.CustomerCode])
		if customer == "" {
			drop(DropMissingCustomer)
			continue
		}

		part := strings.TrimSpace(row[cm.PartNum])
		if part == "" {
			drop(DropMissingPart)
			continue
		}

		qty, ok := parseQty(row[cm.Qty])
		if !ok {
			drop(DropBadQty)
			continue
		}
		if qty < 0 {
			drop(DropNegativeQty)
			continue
		}

		rec := domain.NormalizedConsumptionRecord{
			InvoiceDate:  date,
			CustomerCode: customer,
			PartNum:      part,
			Qty:          qty,
			Month:        int(date.Month()),
		}
		rec.Year, rec.WeekNumber = isoweek.Fields(date)
		rec.WeekKey = isoweek.Key(date)

		if cm.CustomerName != "" {
			rec.CustomerName = strings.TrimSpace(row[cm.CustomerName])
		}
		if rec.CustomerName == "" && resolver != nil {
			if name, ok := resolver.Resolve(customer); ok {
				rec.CustomerName = name
			}
		}
		if cm.UnitPrice != "" {
			if v, ok := parseQty(row[cm.UnitPrice]); ok && v >= 0 {
				rec.UnitPrice = v
			}
		}
		if cm.TotalAmount != "" {
			if v, ok := parseQty(row[cm.TotalAmount]); ok {
				rec.TotalAmount = v
			}
		}

		res.Records = append(res.Records, rec)
		res.Quality.RowsKept++
	}

	return res, nil
}
