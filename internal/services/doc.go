// Package services implements the business logic layer of finreport. It sits
// between the HTTP handlers and the fetch, pipeline and cache packages.
//
// # Report flow
//
// ReportService.GetReport serves one entity and provider:
//
//	1. look up the cached pipeline.Result (skipped when Refresh is set)
//	2. on a miss, fetch the three statements concurrently
//	3. run the pipeline and cache the result if every statement arrived
//	4. apply the presentation filter
//
// Statements that fail to fetch are reported in ReportResponse.Failures and
// treated as empty. When nothing could be fetched the pipeline reports
// errors.ErrNoData.
//
// # Health
//
// HealthService answers liveness and readiness probes. Readiness checks the
// column mapping workbook and the data directories.
package services
