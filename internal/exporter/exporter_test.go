package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finreport/internal/pipeline"
	"finreport/pkg/contracts/domain"
)

func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	periods := []time.Time{time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)}
	income, err := domain.NewTable(periods,
		domain.Column{Name: domain.KeyTotalRevenue, Cells: []domain.Cell{domain.Number(4e8), domain.Number(3e8)}},
		domain.Column{Name: domain.FieldNetProfit, Cells: []domain.Cell{domain.Number(5e7), domain.Text("--")}},
	)
	require.NoError(t, err)
	cross, err := domain.NewTable(periods,
		domain.Column{Name: domain.RatioDebtToAsset, Cells: []domain.Cell{domain.Number(40), domain.Missing()}},
	)
	require.NoError(t, err)

	return pipeline.NewResult("600519", domain.ProviderSina, map[domain.ReportName]domain.Table{
		domain.ReportIncomeByReport: income,
		domain.ReportCross:          cross,
	})
}

func TestCSVWriter_WriteTable(t *testing.T) {
	res := testResult(t)
	income, _ := res.Report(domain.ReportIncomeByReport)

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(t.TempDir()).WriteTable(&buf, income))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	want := "报告期,2023-12-31,2023-09-30\n" +
		"*营业总收入,4.00亿,3.00亿\n" +
		"净利润,5000.0万,--\n"
	assert.Equal(t, want, string(buf.Bytes()[len(utf8BOM):]))
}

func TestCSVWriter_WriteReports(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	paths, err := w.WriteReports(testResult(t))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "600519", "cross.csv"), paths[0])
	assert.Equal(t, w.ReportPath("600519", domain.ReportIncomeByReport), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "资产负债率[%],40.00,-")
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, testResult(t).Reports()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"综合分析", "利润表-报告期"}, f.GetSheetList())

	rows, err := f.GetRows("利润表-报告期")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"报告期", "2023-12-31", "2023-09-30"}, rows[0])
	assert.Equal(t, []string{"*营业总收入", "4.00亿", "3.00亿"}, rows[1])
}

func TestWriteWorkbook_NoReports(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteWorkbook(&buf, nil))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "综合分析", sheetName(pipeline.Report{Name: domain.ReportCross, Title: "综合分析"}))
	assert.Equal(t, "cross", sheetName(pipeline.Report{Name: domain.ReportCross}))

	long := pipeline.Report{Title: "abcdefghijklmnopqrstuvwxyz0123456789"}
	assert.Len(t, []rune(sheetName(long)), maxSheetName)
}
