package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"finreport/internal/app"
	"finreport/internal/config"
	"finreport/internal/exporter"
	"finreport/internal/fetch"
	"finreport/internal/infrastructure"
	"finreport/internal/pipeline"
	"finreport/internal/services"
	"finreport/pkg/contracts/domain"
)

// options are the command line flags
type options struct {
	code       string
	provider   string
	configPath string
	outDir     string
	xlsx       bool
	all        bool
	fromYear   int
	toYear     int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("finreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.code, "code", "", "six digit stock code (required)")
	fs.StringVar(&opts.provider, "provider", "", "data provider: ths, em or sina (defaults to pipeline.default_provider)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (defaults to FINREPORT_CONFIG or the standard locations)")
	fs.StringVar(&opts.outDir, "out", "", "output directory (defaults to paths.export_dir)")
	fs.BoolVar(&opts.xlsx, "xlsx", false, "also write all reports to one workbook")
	fs.BoolVar(&opts.all, "all", false, "write every period and column instead of the last five years")
	fs.IntVar(&opts.fromYear, "from", 0, "first year to keep")
	fs.IntVar(&opts.toYear, "to", 0, "last year to keep")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.code == "" {
		return opts, fmt.Errorf("-code is required")
	}
	return opts, nil
}

// filter returns nil when the service default should apply
func (o options) filter() *pipeline.FilterOptions {
	switch {
	case o.all:
		return &pipeline.FilterOptions{}
	case o.fromYear != 0 || o.toYear != 0:
		return &pipeline.FilterOptions{
			FromYear:         o.fromYear,
			ToYear:           o.toYear,
			KeepLatest:       true,
			DropEmptyColumns: true,
			MappedOnly:       true,
		}
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// run computes the reports of one entity and writes them as CSV files, and
// optionally a workbook, under the output directory. It returns the written paths.
func run(ctx context.Context, opts options, logger *slog.Logger) ([]string, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	provider := cfg.Provider()
	if opts.provider != "" {
		if provider, err = domain.ParseProvider(opts.provider); err != nil {
			return nil, err
		}
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	outDir := paths.ExportDir
	if opts.outDir != "" {
		outDir = opts.outDir
	}

	book, err := app.LoadMapping(ctx, cfg, paths, logger)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(book,
		pipeline.WithLogger(logger),
		pipeline.WithYoYOffset(cfg.Pipeline.YoYOffset),
	)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewFetcher(fetch.NewFileSource(paths.RawDir), fetch.Config{
		Timeout:           cfg.Fetch.Timeout,
		RequestsPerSecond: cfg.Fetch.RPS,
		Burst:             cfg.Fetch.Burst,
	}, logger)
	service := services.NewReportService(fetcher, p, logger)

	resp, err := service.GetReport(ctx, services.ReportRequest{
		Code:     opts.code,
		Provider: provider,
		Filter:   opts.filter(),
	})
	if err != nil {
		return nil, err
	}
	for _, f := range resp.Failures {
		logger.WarnContext(ctx, "Statement missing from output",
			slog.String("statement", string(f.Kind)),
			slog.String("error", f.Err))
	}

	writer := exporter.NewCSVWriter(outDir)
	var written []string
	for _, report := range resp.Reports {
		path, err := writer.WriteReport(resp.Code, report)
		if err != nil {
			return written, fmt.Errorf("report %s: %w", report.Name, err)
		}
		written = append(written, path)
	}

	if opts.xlsx {
		path := filepath.Join(outDir, resp.Code, fmt.Sprintf("%s_%s.xlsx", resp.Code, provider))
		if err := writeWorkbook(path, resp.Reports); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	logger.InfoContext(ctx, "Reports written",
		slog.String("code", resp.Code),
		slog.String("provider", provider.String()),
		slog.String("output_dir", outDir),
		slog.Int("files", len(written)))
	return written, nil
}

func writeWorkbook(path string, reports []pipeline.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := exporter.WriteWorkbook(file, reports); err != nil {
		file.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return file.Close()
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	if err != nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	written, err := run(ctx, opts, logger)
	if err != nil {
		logger.Error("Failed to generate reports",
			slog.String("code", opts.code),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}
