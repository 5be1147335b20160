// Package exporter writes view tables as CSV or XLSX files.
//
// CSVWriter wraps encoding/csv, so fields holding commas, quotes or line
// breaks are quoted per RFC 4180. An optional UTF-8 BOM helps Excel detect
// the encoding. XLSX output goes through excelize.
//
// Example usage:
//
//	exp := exporter.FromConfig(cfg, logger)
//	if err := exp.Write(w, page.Table, exporter.FormatCSV); err != nil {
//		...
//	}
//
//	path, err := exp.Save(page.Table, exporter.FormatXLSX)
package exporter
