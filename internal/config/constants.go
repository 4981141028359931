package config

import "time"

// Application constants for the swapsum service.
const (
	// Application Info
	AppName    = "swapsum"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. SWAPSUM_SERVER_PORT.
	EnvPrefix = "SWAPSUM"

	// Pipeline defaults
	DefaultDedupWindow = time.Hour

	// Upload limits
	DefaultMaxUploadBytes = 50 << 20 // 50MB workbook cap

	// Export defaults
	DefaultExportConcurrency = 4

	// Rate limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// File paths (relative to working directory)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// Operation timeouts
	DefaultReportTimeout = 10 * time.Minute
)
