package mapping

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "finreport/internal/errors"
	"finreport/pkg/contracts/domain"
)

// ValuesGetter reads a range of cell values. *sheets.Service satisfies it
// through SheetsValues.
type ValuesGetter interface {
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
}

// SheetsValues adapts a Google Sheets service to ValuesGetter
type SheetsValues struct {
	Service *sheets.Service
}

// Get implements ValuesGetter
func (s SheetsValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := s.Service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// LoadSpreadsheet reads the mapping tabs (profit, balance, cash) from a Google
// spreadsheet. Credentials come from opts, e.g. option.WithCredentialsFile.
func LoadSpreadsheet(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Book, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewNetworkError("create sheets service", err)
	}
	return ReadSpreadsheet(ctx, SheetsValues{Service: svc}, spreadsheetID)
}

// ReadSpreadsheet reads the mapping tabs through getter
func ReadSpreadsheet(ctx context.Context, getter ValuesGetter, spreadsheetID string) (*Book, error) {
	sheetsOut := make([]Sheet, 0, len(domain.StatementKinds()))
	for _, kind := range domain.StatementKinds() {
		name := kind.SheetName()
		values, err := getter.Get(ctx, spreadsheetID, name)
		if err != nil {
			return nil, apperrors.NewNetworkError(fmt.Sprintf("read mapping tab %s", name), err)
		}
		sheet, err := parseSheet(kind, stringRows(values))
		if err != nil {
			return nil, err
		}
		sheetsOut = append(sheetsOut, sheet)
	}

	slog.InfoContext(ctx, "Column mapping loaded from spreadsheet",
		slog.String("spreadsheet_id", spreadsheetID))

	book := NewBook(sheetsOut...)
	if err := book.Validate(); err != nil {
		return nil, err
	}
	return book, nil
}

func stringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		row := make([]string, len(v))
		for j, cell := range v {
			if cell != nil {
				row[j] = fmt.Sprint(cell)
			}
		}
		rows[i] = row
	}
	return rows
}
