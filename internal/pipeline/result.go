package pipeline

import (
	"time"

	"finreport/pkg/contracts/domain"
)

// Report is one named output table
type Report struct {
	Name  domain.ReportName `json:"name"`
	Title string            `json:"title"`
	Table domain.Table      `json:"table"`
}

// Diagnostics describes what a run could not use
type Diagnostics struct {
	RunID      string                                  `json:"run_id"`
	Skipped    map[domain.StatementKind]string         `json:"skipped,omitempty"`
	Unparsable map[domain.StatementKind]map[string]int `json:"unparsable,omitempty"`
	Duration   time.Duration                           `json:"duration_ns"`
}

// UnparsableTotal returns the number of pass-through cells over all statements
func (d Diagnostics) UnparsableTotal() int {
	n := 0
	for _, cols := range d.Unparsable {
		for _, c := range cols {
			n += c
		}
	}
	return n
}

// Result is the output of one pipeline run. Tables are never modified after
// the run, so a Result can be cached and shared.
type Result struct {
	Code        string
	Provider    domain.Provider
	GeneratedAt time.Time
	Diagnostics Diagnostics

	tables map[domain.ReportName]domain.Table
}

// NewResult builds a result from already computed tables
func NewResult(code string, provider domain.Provider, tables map[domain.ReportName]domain.Table) *Result {
	copied := make(map[domain.ReportName]domain.Table, len(tables))
	for k, v := range tables {
		copied[k] = v
	}
	return &Result{Code: code, Provider: provider, GeneratedAt: time.Now(), tables: copied}
}

// Report returns one table by name
func (r *Result) Report(name domain.ReportName) (domain.Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Reports lists every table in display order
func (r *Result) Reports() []Report {
	out := make([]Report, 0, len(r.tables))
	for _, name := range domain.ReportNames() {
		if t, ok := r.tables[name]; ok {
			out = append(out, Report{Name: name, Title: name.Title(), Table: t})
		}
	}
	return out
}

// With returns a copy of r whose tables are replaced by fn's output
func (r *Result) With(fn func(name domain.ReportName, t domain.Table) domain.Table) *Result {
	out := *r
	out.tables = make(map[domain.ReportName]domain.Table, len(r.tables))
	for name, t := range r.tables {
		out.tables[name] = fn(name, t)
	}
	return &out
}
