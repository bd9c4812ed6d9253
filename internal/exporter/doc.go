// Package exporter renders forecast run results to report files.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers and a
// UTF-8 BOM for Excel compatibility.
//
// ExcelReporter: Writes the full workbook report: a summary sheet with one
// flat row per group and one chart sheet per group (monthly history plus the
// forecast point), with sheet names sanitized and truncated to Excel's
// 31-character limit.
//
// Report row helpers: ReportHeaders and RecordRow serialize a ForecastRecord
// to the flat row shape shared by the CSV and Excel surfaces.
package exporter
