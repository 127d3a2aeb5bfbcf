package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "finreport/internal/errors"
	custommw "finreport/internal/middleware"
	"finreport/internal/pipeline"
	"finreport/internal/services"
	"finreport/pkg/contracts/domain"
)

const (
	formatRaw     = "raw"
	formatDisplay = "display"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportQuery is the validated form of a report request
type ReportQuery struct {
	Code       string `json:"code" validate:"required,stockcode"`
	Provider   string `json:"provider" validate:"required,provider"`
	FromYear   int    `json:"from_year" validate:"omitempty,min=1990,max=2100"`
	ToYear     int    `json:"to_year" validate:"omitempty,min=1990,max=2100"`
	Quarters   []int  `json:"quarters" validate:"dive,min=1,max=4"`
	KeepLatest *bool  `json:"keep_latest"`
	DropEmpty  *bool  `json:"drop_empty"`
	MappedOnly *bool  `json:"mapped_only"`
	Format     string `json:"format" validate:"omitempty,oneof=raw display"`
	Refresh    bool   `json:"refresh"`
}

// hasFilter reports whether any presentation filter was given explicitly
func (q ReportQuery) hasFilter() bool {
	return q.FromYear != 0 || q.ToYear != 0 || len(q.Quarters) > 0 ||
		q.KeepLatest != nil || q.DropEmpty != nil || q.MappedOnly != nil
}

// Request converts the query to a service request. Without explicit filter
// parameters the service default applies; flags that are not given default to true.
func (q ReportQuery) Request() services.ReportRequest {
	provider, _ := domain.ParseProvider(q.Provider)
	req := services.ReportRequest{Code: q.Code, Provider: provider, Refresh: q.Refresh}
	if q.hasFilter() {
		req.Filter = &pipeline.FilterOptions{
			FromYear:         q.FromYear,
			ToYear:           q.ToYear,
			Quarters:         q.Quarters,
			KeepLatest:       flag(q.KeepLatest),
			DropEmptyColumns: flag(q.DropEmpty),
			MappedOnly:       flag(q.MappedOnly),
		}
	}
	return req
}

func flag(b *bool) bool {
	return b == nil || *b
}

// displayResponse replaces the raw tables with formatted rows
type displayResponse struct {
	*services.ReportResponse
	Reports []services.DisplayReport `json:"reports"`
}

// ReportHandler serves computed financial reports
type ReportHandler struct {
	service         ReportServiceInterface
	validator       *custommw.Validator
	defaultProvider domain.Provider
	logger          *slog.Logger
	errorHandler    *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler. defaultProvider is used when the
// request has no provider parameter.
func NewReportHandler(service ReportServiceInterface, defaultProvider domain.Provider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ReportHandler{
		service:         service,
		validator:       custommw.NewValidator(logger, errorHandler),
		defaultProvider: defaultProvider,
		logger:          logger.With(slog.String("component", "report_handler")),
		errorHandler:    errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{code}", func(r chi.Router) {
		r.Use(h.validator.StockCode("code"))
		r.Get("/", h.GetReport)
		r.Get("/export.xlsx", h.ExportWorkbook)
	})

	return r
}

// GetReport handles GET /api/reports/{code}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "fetching report",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("code", query.Code),
		slog.String("provider", query.Provider),
	)

	resp, err := h.service.GetReport(r.Context(), query.Request())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get report",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("code", query.Code),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if query.Format == formatDisplay {
		render.JSON(w, r, displayResponse{ReportResponse: resp, Reports: resp.Display()})
		return
	}
	render.JSON(w, r, resp)
}

// ExportWorkbook handles GET /api/reports/{code}/export.xlsx
func (h *ReportHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// buffered so a failure can still be reported as a problem response
	req := query.Request()
	var buf bytes.Buffer
	if err := h.service.ExportWorkbook(r.Context(), req, &buf); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to export workbook",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("code", query.Code),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Code+"_"+req.Provider.String()+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// GetProviders handles GET /api/providers
func (h *ReportHandler) GetProviders(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"default":   h.defaultProvider,
		"providers": h.service.Providers(),
	})
}

func (h *ReportHandler) parseQuery(r *http.Request) (ReportQuery, error) {
	values := r.URL.Query()
	query := ReportQuery{
		Code:     chi.URLParam(r, "code"),
		Provider: values.Get("provider"),
		Format:   values.Get("format"),
	}
	if query.Provider == "" {
		query.Provider = h.defaultProvider.String()
	}
	if query.Format == "" {
		query.Format = formatRaw
	}

	var err error
	if query.FromYear, err = intParam(values, "from_year"); err != nil {
		return query, err
	}
	if query.ToYear, err = intParam(values, "to_year"); err != nil {
		return query, err
	}
	if query.Quarters, err = intListParam(values, "quarters"); err != nil {
		return query, err
	}
	if query.KeepLatest, err = boolParam(values, "keep_latest"); err != nil {
		return query, err
	}
	if query.DropEmpty, err = boolParam(values, "drop_empty"); err != nil {
		return query, err
	}
	if query.MappedOnly, err = boolParam(values, "mapped_only"); err != nil {
		return query, err
	}
	refresh, err := boolParam(values, "refresh")
	if err != nil {
		return query, err
	}
	query.Refresh = refresh != nil && *refresh

	if err := h.validator.ValidateStruct(query); err != nil {
		return query, err
	}
	if query.FromYear != 0 && query.ToYear != 0 && query.ToYear < query.FromYear {
		return query, apierrors.ErrValidation("to_year", "to_year must not be before from_year")
	}
	return query, nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a valid integer", name))
	}
	return v, nil
}

// intListParam accepts both quarters=1,4 and quarters=1&quarters=4
func intListParam(values url.Values, name string) ([]int, error) {
	var out []int
	for _, raw := range values[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a list of integers", name))
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func boolParam(values url.Values, name string) (*bool, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apierrors.ErrValidation(name, fmt.Sprintf("%s must be true or false", name))
	}
	return &v, nil
}
