package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "finreport"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. FINREPORT_SERVER_PORT
	EnvPrefix = "FINREPORT"

	// ConfigFileEnv names a YAML file to load instead of searching the default locations
	ConfigFileEnv = "FINREPORT_CONFIG"

	// File Paths (relative to the base directory)
	DefaultDataDir     = "data"
	DefaultRawDir      = "data/raw"
	DefaultExportDir   = "data/exports"
	DefaultLogsDir     = "logs"
	DefaultMappingFile = "data/col_maps.xlsx"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultFetchTimeout = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit  = 100 // requests per second
	DefaultBurstSize  = 50
	DefaultFetchRPS   = 2
	DefaultFetchBurst = 3

	// Cache Settings
	ReportCacheDuration = 30 * time.Minute
	ReportCacheEntries  = 256

	// Pipeline
	DefaultProvider  = "em"
	DefaultYoYOffset = 4
)
