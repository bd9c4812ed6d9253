package exporter

import (
	"math"
	"strconv"

	"salesfc/internal/forecast"
)

// ReportHeaders returns the flat report header: one column per grouping
// dimension followed by the fact and forecast columns.
func ReportHeaders(groupColumns []string) []string {
	headers := make([]string, 0, len(groupColumns)+5)
	headers = append(headers, groupColumns...)
	return append(headers,
		"Fact to Date",
		"Fact (Current Month)",
		"Forecast (Month End)",
		"Model",
		"AIC",
	)
}

// RecordRow serializes one ForecastRecord to a flat report row, mapping the
// group key positionally onto numDims dimensions.
func RecordRow(record forecast.ForecastRecord, numDims int) []string {
	row := make([]string, 0, numDims+5)
	row = append(row, record.Dimensions(numDims)...)
	return append(row,
		formatAmount(record.FactToDate),
		formatAmount(record.FactCurrentMonth),
		formatAmount(record.Forecast),
		record.Model,
		formatAIC(record.AIC),
	)
}

// WriteCSVReport writes the full flat report for a run to a CSV file.
func WriteCSVReport(w *CSVWriter, path string, result *forecast.RunResult, groupColumns []string) error {
	rows := make([][]string, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, RecordRow(record, len(groupColumns)))
	}
	return w.WriteSimpleCSV(path, ReportHeaders(groupColumns), rows)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatAIC(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
