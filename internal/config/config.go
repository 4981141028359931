package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Warehouse WarehouseConfig `yaml:"warehouse" envconfig:"WAREHOUSE"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// AuthConfig gates report access behind a shared password. The hash is
// produced by cmd/hashgen; bcrypt hashes and legacy hex-encoded SHA-256
// digests are both accepted.
type AuthConfig struct {
	Enabled      bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	PasswordHash string `yaml:"password_hash" envconfig:"PASSWORD_HASH"`
}

// PipelineConfig controls record classification and aggregation.
type PipelineConfig struct {
	DedupWindow     time.Duration     `yaml:"dedup_window" envconfig:"DEDUP_WINDOW" default:"1h"`
	EligibleClients []string          `yaml:"eligible_clients" envconfig:"ELIGIBLE_CLIENTS"`
	SelfExchange    map[string]string `yaml:"self_exchange" envconfig:"SELF_EXCHANGE"`
	Columns         ColumnsConfig     `yaml:"columns" envconfig:"COLUMNS"`
}

// ColumnsConfig maps logical record fields to input column headers.
// Defaults follow the upstream export schema, which mixes English and
// Japanese header names.
type ColumnsConfig struct {
	Client       string `yaml:"client" envconfig:"CLIENT" default:"user_company(所属)"`
	User         string `yaml:"user" envconfig:"USER" default:"user_name"`
	Manufacturer string `yaml:"manufacturer" envconfig:"MANUFACTURER" default:"自転車メーカー名"`
	Battery      string `yaml:"battery" envconfig:"BATTERY" default:"battery_remaining"`
	Vehicle      string `yaml:"vehicle" envconfig:"VEHICLE" default:"車両番号"`
	Timestamp    string `yaml:"timestamp" envconfig:"TIMESTAMP" default:"交換日時"`
	SourceEntity string `yaml:"source_entity" envconfig:"SOURCE_ENTITY" default:"交換元組織"`
	SourceGroup  string `yaml:"source_group" envconfig:"SOURCE_GROUP" default:"交換元部署"`
}

// ExportConfig controls report workbook and CSV generation.
type ExportConfig struct {
	WorkbookName string `yaml:"workbook_name" envconfig:"WORKBOOK_NAME" default:"exchange_summary.xlsx"`
	EnableCSV    bool   `yaml:"enable_csv" envconfig:"ENABLE_CSV" default:"true"`
	Concurrency  int    `yaml:"concurrency" envconfig:"CONCURRENCY" default:"4"`
}

// WarehouseConfig controls the optional SQLite sink for raw records and
// summary rows.
type WarehouseConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Path    string `yaml:"path" envconfig:"PATH" default:"data/warehouse.db"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		mergeConfigs(&cfg, fileConfig)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays file values onto the env-processed config.
// Precedence: explicitly set environment variables, then the file, then the
// struct defaults envconfig filled in. envconfig applies default tags for
// every unset variable, so the file layer must check variable presence
// rather than compare against zero values. Boolean fields merge only
// towards true; disabling a default-true switch is environment-only.
func mergeConfigs(cfg, file *Config) {
	mergeValue(&cfg.Server.Port, file.Server.Port, "SERVER_PORT")
	mergeValue(&cfg.Server.ReadTimeout, file.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	mergeValue(&cfg.Server.WriteTimeout, file.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	mergeValue(&cfg.Server.IdleTimeout, file.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	mergeValue(&cfg.Server.MaxHeaderBytes, file.Server.MaxHeaderBytes, "SERVER_MAX_HEADER_BYTES")
	mergeValue(&cfg.Server.MaxUploadBytes, file.Server.MaxUploadBytes, "SERVER_MAX_UPLOAD_BYTES")
	mergeValue(&cfg.Server.ShutdownTimeout, file.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	mergeSlice(&cfg.Security.AllowedOrigins, file.Security.AllowedOrigins, "SECURITY_ALLOWED_ORIGINS")
	mergeValue(&cfg.Security.RateLimit.Enabled, file.Security.RateLimit.Enabled, "SECURITY_RATE_LIMIT_ENABLED")
	mergeValue(&cfg.Security.RateLimit.RPS, file.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	mergeValue(&cfg.Security.RateLimit.Burst, file.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	mergeValue(&cfg.Logging.Level, file.Logging.Level, "LOGGING_LEVEL")
	mergeValue(&cfg.Logging.Format, file.Logging.Format, "LOGGING_FORMAT")
	mergeValue(&cfg.Logging.Output, file.Logging.Output, "LOGGING_OUTPUT")
	mergeValue(&cfg.Logging.FilePath, file.Logging.FilePath, "LOGGING_FILE_PATH")
	mergeValue(&cfg.Logging.Development, file.Logging.Development, "LOGGING_DEVELOPMENT")

	mergeValue(&cfg.Auth.Enabled, file.Auth.Enabled, "AUTH_ENABLED")
	mergeValue(&cfg.Auth.PasswordHash, file.Auth.PasswordHash, "AUTH_PASSWORD_HASH")

	mergeValue(&cfg.Pipeline.DedupWindow, file.Pipeline.DedupWindow, "PIPELINE_DEDUP_WINDOW")
	mergeSlice(&cfg.Pipeline.EligibleClients, file.Pipeline.EligibleClients, "PIPELINE_ELIGIBLE_CLIENTS")
	mergeMap(&cfg.Pipeline.SelfExchange, file.Pipeline.SelfExchange, "PIPELINE_SELF_EXCHANGE")
	mergeValue(&cfg.Pipeline.Columns.Client, file.Pipeline.Columns.Client, "PIPELINE_COLUMNS_CLIENT")
	mergeValue(&cfg.Pipeline.Columns.User, file.Pipeline.Columns.User, "PIPELINE_COLUMNS_USER")
	mergeValue(&cfg.Pipeline.Columns.Manufacturer, file.Pipeline.Columns.Manufacturer, "PIPELINE_COLUMNS_MANUFACTURER")
	mergeValue(&cfg.Pipeline.Columns.Battery, file.Pipeline.Columns.Battery, "PIPELINE_COLUMNS_BATTERY")
	mergeValue(&cfg.Pipeline.Columns.Vehicle, file.Pipeline.Columns.Vehicle, "PIPELINE_COLUMNS_VEHICLE")
	mergeValue(&cfg.Pipeline.Columns.Timestamp, file.Pipeline.Columns.Timestamp, "PIPELINE_COLUMNS_TIMESTAMP")
	mergeValue(&cfg.Pipeline.Columns.SourceEntity, file.Pipeline.Columns.SourceEntity, "PIPELINE_COLUMNS_SOURCE_ENTITY")
	mergeValue(&cfg.Pipeline.Columns.SourceGroup, file.Pipeline.Columns.SourceGroup, "PIPELINE_COLUMNS_SOURCE_GROUP")

	mergeValue(&cfg.Export.WorkbookName, file.Export.WorkbookName, "EXPORT_WORKBOOK_NAME")
	mergeValue(&cfg.Export.EnableCSV, file.Export.EnableCSV, "EXPORT_ENABLE_CSV")
	mergeValue(&cfg.Export.Concurrency, file.Export.Concurrency, "EXPORT_CONCURRENCY")

	mergeValue(&cfg.Warehouse.Enabled, file.Warehouse.Enabled, "WAREHOUSE_ENABLED")
	mergeValue(&cfg.Warehouse.Path, file.Warehouse.Path, "WAREHOUSE_PATH")

	mergeValue(&cfg.Paths.DataDir, file.Paths.DataDir, "PATHS_DATA_DIR")
	mergeValue(&cfg.Paths.ReportsDir, file.Paths.ReportsDir, "PATHS_REPORTS_DIR")
	mergeValue(&cfg.Paths.LogsDir, file.Paths.LogsDir, "PATHS_LOGS_DIR")
}

// envSet reports whether the prefixed variable is present in the
// environment, set-but-empty included.
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

func mergeValue[T comparable](dst *T, fileVal T, key string) {
	var zero T
	if fileVal != zero && !envSet(key) {
		*dst = fileVal
	}
}

func mergeSlice(dst *[]string, fileVal []string, key string) {
	if len(fileVal) > 0 && !envSet(key) {
		*dst = fileVal
	}
}

func mergeMap(dst *map[string]string, fileVal map[string]string, key string) {
	if len(fileVal) > 0 && !envSet(key) {
		*dst = fileVal
	}
}

// EnsureDirectories creates the configured directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportsDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Auth.Enabled && c.Auth.PasswordHash == "" {
		return fmt.Errorf("auth enabled but no password hash configured")
	}

	if c.Pipeline.DedupWindow < 0 {
		return fmt.Errorf("dedup window must not be negative")
	}

	if c.Pipeline.Columns.Client == "" {
		return fmt.Errorf("client column name must be configured")
	}

	if c.Export.Concurrency <= 0 {
		c.Export.Concurrency = DefaultExportConcurrency
	}

	if c.Warehouse.Enabled && c.Warehouse.Path == "" {
		return fmt.Errorf("warehouse enabled but no database path configured")
	}

	// Structured logs are always JSON; console formatting is for local
	// development only.
	if c.Logging.Format != "json" && !c.Logging.Development {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Pipeline: PipelineConfig{
			DedupWindow: DefaultDedupWindow,
			Columns:     DefaultColumns(),
		},
		Export: ExportConfig{
			WorkbookName: "exchange_summary.xlsx",
			EnableCSV:    true,
			Concurrency:  DefaultExportConcurrency,
		},
		Warehouse: WarehouseConfig{
			Enabled: false,
			Path:    "data/warehouse.db",
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
	}
}

// DefaultColumns returns the upstream export column names.
func DefaultColumns() ColumnsConfig {
	return ColumnsConfig{
		Client:       "user_company(所属)",
		User:         "user_name",
		Manufacturer: "自転車メーカー名",
		Battery:      "battery_remaining",
		Vehicle:      "車両番号",
		Timestamp:    "交換日時",
		SourceEntity: "交換元組織",
		SourceGroup:  "交換元部署",
	}
}
