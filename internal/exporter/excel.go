package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesfc/internal/forecast"
)

// summarySheet is the name of the flat report sheet.
const summarySheet = "Forecast"

// maxSheetNameLen is the Excel limit on sheet/tab names.
const maxSheetNameLen = 31

// ExcelReporter writes the forecast run to an Excel workbook: a summary
// sheet with one flat row per group plus one chart sheet per ForecastRecord
// holding the monthly history and the forecast point.
type ExcelReporter struct {
	groupColumns []string
	logger       *slog.Logger
}

// NewExcelReporter creates a reporter for the given grouping dimensions.
func NewExcelReporter(groupColumns []string, logger *slog.Logger) *ExcelReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelReporter{
		groupColumns: groupColumns,
		logger:       logger.With(slog.String("component", "excel_reporter")),
	}
}

// Write renders the workbook at path. A run with zero records still produces
// a minimal, valid workbook stating no data.
func (e *ExcelReporter) Write(path string, result *forecast.RunResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	if err := e.writeSummary(f, result); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for _, record := range result.Records {
		if err := e.writeChartSheet(f, record, used); err != nil {
			// A chart failure degrades the report, it does not abort it.
			e.logger.Warn("failed to write chart sheet",
				slog.String("group", record.Key.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info("wrote Excel report",
		slog.String("path", path),
		slog.Int("records", len(result.Records)),
	)
	return nil
}

// writeSummary fills the flat report sheet.
func (e *ExcelReporter) writeSummary(f *excelize.File, result *forecast.RunResult) error {
	headers := ReportHeaders(e.groupColumns)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("summary header cell: %w", err)
		}
		if err := f.SetCellValue(summarySheet, cell, header); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}

	if len(result.Records) == 0 {
		if err := f.SetCellValue(summarySheet, "A2", "no data"); err != nil {
			return fmt.Errorf("write empty-report note: %w", err)
		}
		return nil
	}

	for i, record := range result.Records {
		dims := record.Dimensions(len(e.groupColumns))
		values := make([]interface{}, 0, len(dims)+5)
		for _, d := range dims {
			values = append(values, d)
		}
		values = append(values, record.FactToDate, record.FactCurrentMonth, record.Forecast, record.Model)
		if math.IsInf(record.AIC, 1) {
			values = append(values, "inf")
		} else {
			values = append(values, record.AIC)
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("summary cell: %w", err)
			}
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return fmt.Errorf("write summary row %d: %w", i+2, err)
			}
		}
	}

	return nil
}

// writeChartSheet adds one sheet per record with the month/value table and a
// line chart; the forecast point is a second series at the forecast month.
func (e *ExcelReporter) writeChartSheet(f *excelize.File, record forecast.ForecastRecord, used map[string]bool) error {
	name := uniqueSheetName(SanitizeSheetName(record.Key.String()), used)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %q: %w", name, err)
	}

	if err := f.SetCellValue(name, "A1", "Month"); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "B1", "Fact"); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "C1", "Forecast"); err != nil {
		return err
	}

	row := 2
	for _, point := range record.Series {
		if err := f.SetCellValue(name, fmt.Sprintf("A%d", row), point.Month.Format("2006-01")); err != nil {
			return err
		}
		if err := f.SetCellValue(name, fmt.Sprintf("B%d", row), point.Value); err != nil {
			return err
		}
		row++
	}
	if err := f.SetCellValue(name, fmt.Sprintf("A%d", row), record.ForecastMonth.Format("2006-01")); err != nil {
		return err
	}
	if err := f.SetCellValue(name, fmt.Sprintf("C%d", row), record.Forecast); err != nil {
		return err
	}

	quoted := "'" + strings.ReplaceAll(name, "'", "''") + "'"
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       quoted + "!$B$1",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", quoted, row),
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", quoted, row),
			},
			{
				Name:       quoted + "!$C$1",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", quoted, row),
				Values:     fmt.Sprintf("%s!$C$2:$C$%d", quoted, row),
			},
		},
		Title: []excelize.RichTextRun{
			{Text: record.Key.String()},
		},
	}
	if err := f.AddChart(name, "E2", chart); err != nil {
		return fmt.Errorf("add chart: %w", err)
	}

	return nil
}

// SanitizeSheetName strips characters Excel forbids in sheet names and
// truncates to the 31-character limit.
func SanitizeSheetName(label string) string {
	replacer := strings.NewReplacer(
		"[", "", "]", "", ":", "", "*", "", "?", "", "/", "-", "\\", "-", "'", "",
	)
	name := strings.TrimSpace(replacer.Replace(label))
	if name == "" {
		name = "group"
	}
	return truncateRunes(name, maxSheetNameLen)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

// uniqueSheetName disambiguates duplicate sanitized labels with a numeric
// suffix while respecting the length limit.
func uniqueSheetName(base string, used map[string]bool) string {
	name := base
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetNameLen-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
