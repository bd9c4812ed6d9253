package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salesfc/internal/forecast"
)

// ErrMissingColumn is returned when the date or amount column cannot be found
// after header normalization. This is a process-level failure: without these
// columns the whole run is meaningless.
var ErrMissingColumn = errors.New("required column missing")

// canonicalHeaders maps source header spellings to the canonical column
// names the engine works with.
var canonicalHeaders = map[string]string{
	"date":        "date",
	"month":       "date",
	"period":      "date",
	"sale date":   "date",
	"sales date":  "date",
	"amount":      "amount",
	"sum":         "amount",
	"sales":       "amount",
	"sales sum":   "amount",
	"total":       "amount",
	"revenue":     "amount",
	"branch":      "branch",
	"filial":      "branch",
	"store":       "branch",
	"manager":     "manager",
	"salesperson": "manager",
	"seller":      "manager",
}

// dateLayouts are tried in order when coercing the date column.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01",
	"Jan-06",
}

// Loader reads the flat sales table from an Excel or CSV source file and
// coerces it into engine rows: parsed first-of-month dates, numeric amounts
// and positional group keys over the configured dimensions.
type Loader struct {
	groupColumns []string
	logger       *slog.Logger
}

// NewLoader creates a loader keyed by the given ordered grouping dimensions.
func NewLoader(groupColumns []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		groupColumns: groupColumns,
		logger:       logger.With(slog.String("component", "loader")),
	}
}

// Load reads the source file, picking the reader by extension. Returns
// ErrMissingColumn (wrapped) when the date or amount column is absent.
func (l *Loader) Load(path string) ([]forecast.SalesRecord, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcel(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported source file type: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("source file %s is empty", path)
	}

	columns, err := l.mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]forecast.SalesRecord, 0, len(rows)-1)
	skipped := 0
	for i, row := range rows[1:] {
		record, ok := l.parseRow(row, columns)
		if !ok {
			skipped++
			l.logger.Warn("skipping unparseable row",
				slog.Int("row", i+2),
				slog.Any("content", row),
			)
			continue
		}
		records = append(records, record)
	}

	l.logger.Info("loaded sales data",
		slog.String("path", path),
		slog.Int("records", len(records)),
		slog.Int("skipped_rows", skipped),
	)

	return records, nil
}

// columnMap holds resolved column indices after header normalization.
type columnMap struct {
	date   int
	amount int
	groups []int // index per grouping dimension, -1 when absent
}

// mapColumns normalizes the header row and locates the required and grouping
// columns. Date and amount are mandatory.
func (l *Loader) mapColumns(header []string) (columnMap, error) {
	cols := columnMap{date: -1, amount: -1, groups: make([]int, len(l.groupColumns))}
	for i := range cols.groups {
		cols.groups[i] = -1
	}

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		if canonical, ok := canonicalHeaders[name]; ok {
			name = canonical
		}
		switch name {
		case "date":
			cols.date = i
		case "amount":
			cols.amount = i
		}
		for j, group := range l.groupColumns {
			if name == strings.ToLower(group) {
				cols.groups[j] = i
			}
		}
	}

	if cols.date == -1 {
		return cols, fmt.Errorf("date column not found in header: %w", ErrMissingColumn)
	}
	if cols.amount == -1 {
		return cols, fmt.Errorf("amount column not found in header: %w", ErrMissingColumn)
	}

	for j, idx := range cols.groups {
		if idx == -1 {
			l.logger.Warn("grouping column not found, dimension will be unknown",
				slog.String("column", l.groupColumns[j]),
			)
		}
	}

	return cols, nil
}

// parseRow coerces one data row; rows with unparseable dates or amounts are
// dropped rather than failing the load.
func (l *Loader) parseRow(row []string, cols columnMap) (forecast.SalesRecord, bool) {
	if cols.date >= len(row) || cols.amount >= len(row) {
		return forecast.SalesRecord{}, false
	}

	date, ok := parseDate(row[cols.date])
	if !ok {
		return forecast.SalesRecord{}, false
	}

	amountStr := strings.ReplaceAll(strings.TrimSpace(row[cols.amount]), ",", "")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount < 0 {
		return forecast.SalesRecord{}, false
	}

	key := make(forecast.GroupKey, len(cols.groups))
	for i, idx := range cols.groups {
		if idx >= 0 && idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			key[i] = strings.TrimSpace(row[idx])
		} else {
			key[i] = forecast.UnknownDimension
		}
	}

	return forecast.SalesRecord{
		Key:    key,
		Month:  forecast.MonthStart(date),
		Amount: amount,
	}, true
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	// Excel serial date numbers survive GetRows as plain integers.
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 59 && serial < 200000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// readExcel reads the first sheet of an Excel workbook as string rows.
func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in workbook %s", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// readCSV reads a CSV file as string rows, tolerating a UTF-8 BOM.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}
