// Package http implements the HTTP handlers of the finreport web service. It
// is a thin layer between the chi router and the services package.
//
// # Routes
//
//	GET /api/reports/{code}               computed reports as JSON
//	GET /api/reports/{code}/export.xlsx   the same reports as a workbook
//	GET /api/providers                    supported data providers
//	GET /api/health                       readiness, 503 when not ready
//	GET /api/health/ready                 same as /api/health
//	GET /api/health/live                  liveness
//	GET /api/version                      build and runtime information
//	GET /metrics                          Prometheus scrape endpoint
//
// # Report query parameters
//
//	provider     ths, em or sina; the configured default when absent
//	from_year    first year to keep
//	to_year      last year to keep
//	quarters     comma separated quarters 1-4
//	keep_latest  keep the newest row even when filtered out (default true)
//	drop_empty   drop columns without values (default true)
//	mapped_only  keep only mapped and computed columns (default true)
//	format       raw (typed cells) or display (formatted strings)
//	refresh      bypass the result cache
//
// Without any filter parameter the last five years are shown.
//
// # Error Handling
//
// Every error is an RFC 7807 problem response produced by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Request validation failed",
//	    "instance": "/api/reports/60051"
//	}
package http
