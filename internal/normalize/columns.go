// Package normalize converts raw spreadsheet exports into typed demand
// records keyed by canonical ISO weeks. Source files are third-party exports
// with inconsistent schemas, so everything here favors resilience over
// strictness: unusable rows are dropped and counted, never raised.
package normalize

import (
	"fmt"
	"strings"
)

// RawRow is one spreadsheet row keyed by header name.
type RawRow map[string]string

// ColumnMap resolves the logical fields of a consumption export to the
// concrete header names found in the file. Optional fields are empty when
// the export does not carry them.
type ColumnMap struct {
	Date         string
	CustomerCode string
	CustomerName string
	PartNum      string
	Qty          string
	UnitPrice    string
	TotalAmount  string
}

var columnAliases = map[string][]string{
	"date":          {"invoice_date", "invoice date", "date", "doc_date", "fecha", "fecha_factura"},
	"customer_code": {"customer_code", "customer code", "cust_id", "custid", "client_id", "clientid", "customer", "cliente", "codigo_cliente"},
	"customer_name": {"customer_name", "customer name", "client_name", "nombre_cliente", "nombre"},
	"part_num":      {"part_num", "part number", "part_number", "part_id", "partid", "partnum", "sku", "item", "material", "numero_parte"},
	"qty":           {"qty", "quantity", "qty_shipped", "units", "cantidad"},
	"unit_price":    {"unit_price", "unit price", "price", "precio", "precio_unitario"},
	"total_amount":  {"total_amount", "total amount", "amount", "total", "importe"},
}

func canonHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, "-", "_")
}

func findColumn(headers []string, field string) string {
	aliases := columnAliases[field]
	for _, h := range headers {
		c := canonHeader(h)
		for _, a := range aliases {
			if c == a {
				return h
			}
		}
	}
	return ""
}

// DetectColumns probes the headers of a consumption export and resolves the
// columns the normalizer needs. Date, part and quantity columns are required;
// customer code is required too since aggregation is per customer.
func DetectColumns(headers []string) (ColumnMap, error) {
	cm := ColumnMap{
		Date:         findColumn(headers, "date"),
		CustomerCode: findColumn(headers, "customer_code"),
		CustomerName: findColumn(headers, "customer_name"),
		PartNum:      findColumn(headers, "part_num"),
		Qty:          findColumn(headers, "qty"),
		UnitPrice:    findColumn(headers, "unit_price"),
		TotalAmount:  findColumn(headers, "total_amount"),
	}

	var missing []string
	if cm.Date == "" {
		missing = append(missing, "date")
	}
	if cm.CustomerCode == "" {
		missing = append(missing, "customer code")
	}
	if cm.PartNum == "" {
		missing = append(missing, "part number")
	}
	if cm.Qty == "" {
		missing = append(missing, "quantity")
	}
	if len(missing) > 0 {
		return ColumnMap{}, fmt.Errorf("could not detect required columns: %s", strings.Join(missing, ", "))
	}

	return cm, nil
}
