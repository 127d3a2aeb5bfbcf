// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are applied in this order, later sources winning:
//
//	1. Default values (Default)
//	2. A YAML file named by FINREPORT_CONFIG, or config.yaml / configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Every variable carries the FINREPORT prefix followed by the section and field:
//
//	FINREPORT_SERVER_PORT=8080
//	FINREPORT_PATHS_MAPPING_FILE=/srv/finreport/col_maps.xlsx
//	FINREPORT_PIPELINE_DEFAULT_PROVIDER=sina
//	FINREPORT_FETCH_RPS=2
//	FINREPORT_CACHE_TTL=30m
//	FINREPORT_SHEETS_SPREADSHEET_ID=1AbC...
//
// # Paths
//
// Relative paths are resolved against paths.base_dir, or the directory of
// the executable when it is not set. Use ResolvePaths to get absolute paths.
package config
