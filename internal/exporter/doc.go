// Package exporter renders pipeline tables for people.
//
// Tables are shown transposed: one row per line item, one column per
// reporting period, newest first. Numbers are abbreviated with Chinese
// magnitude units (万, 亿, 万亿) and missing values print as "-".
//
// CSVWriter writes one report per file with a UTF-8 BOM so Excel detects
// the encoding. WriteWorkbook writes every report of a run into one XLSX
// workbook, one sheet per report.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("/path/to/exports")
//	path, err := w.WriteReport(result.Code, report)
//
//	f, _ := os.Create("600519.xlsx")
//	err = exporter.WriteWorkbook(f, result.Reports())
package exporter
