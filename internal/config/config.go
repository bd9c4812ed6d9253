package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"salesfc/internal/forecast"
)

// Config represents the complete application configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Forecast ForecastConfig `yaml:"forecast" envconfig:"FORECAST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains input and output locations.
type PathsConfig struct {
	// SourceFile has no default; callers reject an empty value once flag
	// overrides have been applied.
	SourceFile string `yaml:"source_file" envconfig:"SOURCE_FILE"`
	ReportDir  string `yaml:"report_dir" envconfig:"REPORT_DIR"`
}

// ForecastConfig contains the forecasting engine options.
type ForecastConfig struct {
	GroupColumns     []string `yaml:"group_columns" envconfig:"GROUP_COLUMNS"`
	MinHistoryPoints int      `yaml:"min_history_points" envconfig:"MIN_HISTORY_POINTS" validate:"min=1"`

	Order                OrderConfig `yaml:"order" envconfig:"ORDER"`
	Seasonal             *bool       `yaml:"seasonal" envconfig:"SEASONAL"`
	SeasonalOrder        OrderConfig `yaml:"seasonal_order" envconfig:"SEASONAL_ORDER"`
	SeasonalPeriod       int         `yaml:"seasonal_period" envconfig:"SEASONAL_PERIOD" validate:"min=0"`
	EnforceStationarity  bool        `yaml:"enforce_stationarity" envconfig:"ENFORCE_STATIONARITY"`
	EnforceInvertibility bool        `yaml:"enforce_invertibility" envconfig:"ENFORCE_INVERTIBILITY"`

	// Frequency is the calendar frequency of the series; only month-start
	// ("MS") data is supported.
	Frequency string `yaml:"frequency" envconfig:"FREQUENCY" validate:"oneof=MS"`

	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"min=1"`

	// Grid bounds for the general-purpose model selection.
	MaxP int `yaml:"max_p" envconfig:"MAX_P" validate:"min=0"`
	MaxQ int `yaml:"max_q" envconfig:"MAX_Q" validate:"min=0"`
}

// OrderConfig is a (p, d, q) triple in the configuration file.
type OrderConfig struct {
	P int `yaml:"p" envconfig:"P" validate:"min=0"`
	D int `yaml:"d" envconfig:"D" validate:"min=0"`
	Q int `yaml:"q" envconfig:"Q" validate:"min=0"`
}

// Load loads configuration from the optional YAML file at path, then applies
// SALESFC_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Environment variables take precedence over the file.
	if err := envconfig.Process("SALESFC", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration. The source file path has no
// default and must be provided by the file, environment or flags.
func Default() *Config {
	seasonal := true
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/salesfc.log",
		},
		Paths: PathsConfig{
			ReportDir: "reports",
		},
		Forecast: ForecastConfig{
			GroupColumns:     []string{"branch", "manager"},
			MinHistoryPoints: 1,
			Order:            OrderConfig{P: 1, D: 1, Q: 1},
			Seasonal:         &seasonal,
			SeasonalOrder:    OrderConfig{P: 0, D: 1, Q: 1},
			SeasonalPeriod:   forecast.DefaultSeasonalPeriod,
			Frequency:        "MS",
			MaxConcurrency:   4,
			MaxP:             2,
			MaxQ:             2,
		},
	}
}

// applyDefaults fills gaps a partial config file may leave behind.
func (c *Config) applyDefaults() {
	if len(c.Forecast.GroupColumns) == 0 {
		c.Forecast.GroupColumns = []string{"branch", "manager"}
	}
	if c.Forecast.Seasonal == nil {
		seasonal := true
		c.Forecast.Seasonal = &seasonal
	}
	if c.Forecast.MinHistoryPoints < 1 {
		c.Forecast.MinHistoryPoints = 1
	}
	if c.Forecast.MaxConcurrency < 1 {
		c.Forecast.MaxConcurrency = 4
	}
	if c.Forecast.SeasonalPeriod == 0 {
		c.Forecast.SeasonalPeriod = forecast.DefaultSeasonalPeriod
	}
	if c.Forecast.Frequency == "" {
		c.Forecast.Frequency = "MS"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/salesfc.log"
	}
	if c.Paths.ReportDir == "" {
		c.Paths.ReportDir = "reports"
	}
}

// Validate checks the configuration with struct tags plus cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if *c.Forecast.Seasonal && c.Forecast.SeasonalPeriod < 2 {
		return fmt.Errorf("seasonal period must be at least 2, got %d", c.Forecast.SeasonalPeriod)
	}
	return nil
}

// EngineConfig converts the file-facing configuration into the read-only
// engine configuration shared across groups.
func (c *Config) EngineConfig() forecast.Config {
	return forecast.Config{
		GroupColumns:     c.Forecast.GroupColumns,
		MinHistoryPoints: c.Forecast.MinHistoryPoints,
		Order: forecast.Order{
			P: c.Forecast.Order.P,
			D: c.Forecast.Order.D,
			Q: c.Forecast.Order.Q,
		},
		Seasonal: *c.Forecast.Seasonal,
		SeasonalOrder: forecast.SeasonalOrder{
			P:      c.Forecast.SeasonalOrder.P,
			D:      c.Forecast.SeasonalOrder.D,
			Q:      c.Forecast.SeasonalOrder.Q,
			Period: c.Forecast.SeasonalPeriod,
		},
		EnforceStationarity:  c.Forecast.EnforceStationarity,
		EnforceInvertibility: c.Forecast.EnforceInvertibility,
		MaxConcurrency:       c.Forecast.MaxConcurrency,
	}
}

// ReportPath returns the path of a report file inside the report directory.
func (c *Config) ReportPath(name string) string {
	return filepath.Join(c.Paths.ReportDir, name)
}
