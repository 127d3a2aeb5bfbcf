package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finreport/internal/fetch"
	"finreport/internal/mapping"
	"finreport/internal/pipeline"
	"finreport/pkg/contracts/domain"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "code only",
			args: []string{"-code", "600519"},
			want: options{code: "600519"},
		},
		{
			name: "all flags",
			args: []string{"-code", "000001", "-provider", "sina", "-out", "/tmp/out", "-xlsx", "-from", "2019", "-to", "2023"},
			want: options{code: "000001", provider: "sina", outDir: "/tmp/out", xlsx: true, fromYear: 2019, toYear: 2023},
		},
		{
			name:    "missing code",
			args:    []string{"-provider", "em"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"-code", "600519", "-verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_filter(t *testing.T) {
	assert.Nil(t, options{}.filter())
	assert.Equal(t, &pipeline.FilterOptions{}, options{all: true}.filter())
	assert.Equal(t, &pipeline.FilterOptions{
		FromYear: 2020, KeepLatest: true, DropEmptyColumns: true, MappedOnly: true,
	}, options{fromYear: 2020}.filter())
}

// setupBase writes a config file, a mapping workbook and Sina statements for 000001
func setupBase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	period := mapping.Entry{THS: "报告期", EastMoney: "REPORT_DATE", Sina: "报告日", Item: domain.PeriodColumn}
	book := mapping.NewBook(
		mapping.Sheet{Kind: domain.StatementIncome, Entries: []mapping.Entry{
			period,
			{THS: "*营业总收入", EastMoney: "TOTAL_OPERATE_INCOME", Sina: "营业总收入", Item: domain.FieldTotalRevenue},
		}},
		mapping.Sheet{Kind: domain.StatementBalance, Entries: []mapping.Entry{
			period,
			{THS: "资产合计", EastMoney: "TOTAL_ASSETS", Sina: "资产总计", Item: domain.FieldTotalAssets},
		}},
		mapping.Sheet{Kind: domain.StatementCashFlow, Entries: []mapping.Entry{period}},
	)
	f, err := os.Create(filepath.Join(dir, "col_maps.xlsx"))
	require.NoError(t, err)
	require.NoError(t, mapping.WriteWorkbook(book, f))
	require.NoError(t, f.Close())

	income := domain.RawTable{Columns: []string{"报告日", "营业总收入"}}
	balance := domain.RawTable{Columns: []string{"报告日", "资产总计"}}
	for year := 2023; year >= 2021; year-- {
		date := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format(domain.PeriodLayout)
		income.Rows = append(income.Rows, []any{date, float64(year)})
		balance.Rows = append(balance.Rows, []any{date, 500.0})
	}
	source := fetch.NewFileSource(filepath.Join(dir, "raw"))
	for kind, table := range map[domain.StatementKind]domain.RawTable{
		domain.StatementIncome:  income,
		domain.StatementBalance: balance,
	} {
		path := source.Path("000001", domain.ProviderSina, kind)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		data, err := json.Marshal(table)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0644))
	}

	cfg := fmt.Sprintf(`paths:
  base_dir: %q
  mapping_file: col_maps.xlsx
  raw_dir: raw
  export_dir: exports
fetch:
  rps: 0
`, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0644))
	return dir
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("writes csv and workbook", func(t *testing.T) {
		dir := setupBase(t)
		opts := options{code: "000001", provider: "sina", configPath: filepath.Join(dir, "config.yaml"), xlsx: true}

		written, err := run(context.Background(), opts, logger)
		require.NoError(t, err)

		require.Len(t, written, len(domain.ReportNames())+1)
		for _, path := range written {
			assert.FileExists(t, path)
		}
		assert.Equal(t, filepath.Join(dir, "exports", "000001", "income_by_report.csv"), written[1])

		xlsxPath := written[len(written)-1]
		assert.Equal(t, filepath.Join(dir, "exports", "000001", "000001_sina.xlsx"), xlsxPath)
		wb, err := excelize.OpenFile(xlsxPath)
		require.NoError(t, err)
		defer wb.Close()
		assert.Len(t, wb.GetSheetList(), len(domain.ReportNames()))
	})

	t.Run("output directory override", func(t *testing.T) {
		dir := setupBase(t)
		out := t.TempDir()
		opts := options{code: "000001", provider: "sina", configPath: filepath.Join(dir, "config.yaml"), outDir: out}

		written, err := run(context.Background(), opts, logger)
		require.NoError(t, err)
		require.NotEmpty(t, written)
		assert.Equal(t, out, filepath.Dir(filepath.Dir(written[0])))
	})

	t.Run("unknown provider", func(t *testing.T) {
		dir := setupBase(t)
		_, err := run(context.Background(), options{code: "000001", provider: "yahoo", configPath: filepath.Join(dir, "config.yaml")}, logger)
		assert.Error(t, err)
	})

	t.Run("no statements", func(t *testing.T) {
		dir := setupBase(t)
		_, err := run(context.Background(), options{code: "600000", provider: "sina", configPath: filepath.Join(dir, "config.yaml")}, logger)
		assert.Error(t, err)
	})
}
