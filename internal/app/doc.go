// Package app wires the finreport web service together: configuration,
// logging, telemetry, the column mapping, the pipeline and its services, the
// HTTP router and the server lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, FINREPORT_* variables)
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create the data directories
//	4. Load the column mapping from Google Sheets or the mapping workbook
//	5. Build the pipeline, statement fetcher, result cache and services
//	6. Set up middleware and routes
//	7. Create the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// Server.ShutdownTimeout, stops the cache sweep and flushes telemetry.
//
// All initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
