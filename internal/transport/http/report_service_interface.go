package http

import (
	"context"
	"io"

	"finreport/internal/services"
)

// ReportServiceInterface defines the report operations the handlers need
type ReportServiceInterface interface {
	GetReport(ctx context.Context, req services.ReportRequest) (*services.ReportResponse, error)
	ExportWorkbook(ctx context.Context, req services.ReportRequest, w io.Writer) error
	Providers() []services.ProviderInfo
}
