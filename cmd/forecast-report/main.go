package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"salesfc/internal/config"
	"salesfc/internal/dataprocessing"
	"salesfc/internal/exporter"
	"salesfc/internal/forecast"
	"salesfc/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	sourceFile := flag.String("source", "", "sales data source file (.xlsx or .csv), overrides config")
	reportDir := flag.String("out", "", "output directory for reports, overrides config")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *sourceFile, *reportDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))
	ctx := context.Background()

	logger.Info("Starting forecast run",
		slog.String("source", cfg.Paths.SourceFile),
		slog.String("report_dir", cfg.Paths.ReportDir),
		slog.Any("group_columns", cfg.Forecast.GroupColumns),
	)

	// Load sales data
	loader := dataprocessing.NewLoader(cfg.Forecast.GroupColumns, logger)
	rows, err := loader.Load(cfg.Paths.SourceFile)
	if err != nil {
		if errors.Is(err, dataprocessing.ErrMissingColumn) {
			logger.Error("Source data is missing a required column",
				"error", err,
				"hint", "the file must contain a date column and an amount column")
		} else {
			logger.Error("Failed to load sales data", "error", err)
		}
		os.Exit(1)
	}

	if len(rows) == 0 {
		logger.Error("No sales rows found in source file",
			"path", cfg.Paths.SourceFile)
		os.Exit(1)
	}
	logger.Info("Loaded sales data", slog.Int("rows", len(rows)))

	// Run the forecast engine
	engineCfg := cfg.EngineConfig()
	forecaster := forecast.NewForecaster(engineCfg, logger, nil)
	runner := forecast.NewRunner(forecaster, engineCfg, logger)

	result, err := runner.Run(ctx, rows)
	if err != nil {
		logger.Error("Forecast run failed", "error", err)
		os.Exit(1)
	}

	// Write reports; an empty result still produces valid report files.
	timestamp := time.Now().Format("20060102")

	excelPath := cfg.ReportPath(fmt.Sprintf("sales_forecast_%s.xlsx", timestamp))
	excelReporter := exporter.NewExcelReporter(cfg.Forecast.GroupColumns, logger)
	if err := excelReporter.Write(excelPath, result); err != nil {
		logger.Error("Failed to write Excel report", "error", err)
		os.Exit(1)
	}

	csvPath := cfg.ReportPath(fmt.Sprintf("sales_forecast_%s.csv", timestamp))
	csvWriter := exporter.NewCSVWriter(logger)
	if err := exporter.WriteCSVReport(csvWriter, csvPath, result, cfg.Forecast.GroupColumns); err != nil {
		logger.Error("Failed to write CSV report", "error", err)
		os.Exit(1)
	}

	logger.Info("Forecast report generated successfully",
		slog.String("excel", excelPath),
		slog.String("csv", csvPath),
		slog.Int("groups_attempted", result.Attempted),
		slog.Int("groups_forecast", result.Produced),
	)

	printSummary(result)
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(configPath, sourceFile, reportDir string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if sourceFile != "" {
		cfg.Paths.SourceFile = sourceFile
	}
	if reportDir != "" {
		cfg.Paths.ReportDir = reportDir
	}

	if cfg.Paths.SourceFile == "" {
		return nil, errors.New("no source file configured; pass -source or set paths.source_file")
	}
	if _, err := os.Stat(cfg.Paths.SourceFile); err != nil {
		return nil, fmt.Errorf("source file %s: %w", cfg.Paths.SourceFile, err)
	}

	return cfg, nil
}

func printSummary(result *forecast.RunResult) {
	if len(result.Records) == 0 {
		fmt.Println("\nNo groups produced a forecast; report contains no data.")
		return
	}

	fmt.Printf("\n=== SALES FORECAST (%d of %d groups) ===\n", result.Produced, result.Attempted)
	fmt.Println("Group | Fact to Date | Fact (Cur. Month) | Forecast | Model")
	fmt.Println("------|--------------|-------------------|----------|------")
	for _, r := range result.Records {
		fmt.Printf("%s | %.2f | %.2f | %.2f | %s\n",
			r.Key.String(), r.FactToDate, r.FactCurrentMonth, r.Forecast, r.Model)
	}
}
