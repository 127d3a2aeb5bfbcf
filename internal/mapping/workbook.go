package mapping

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apperrors "finreport/internal/errors"
	"finreport/pkg/contracts/domain"
)

// LoadWorkbook reads the column mapping workbook at path
func LoadWorkbook(path string) (*Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("open mapping workbook %s", path), err)
	}
	defer f.Close()

	slog.Info("Loading column mapping workbook", slog.String("path", path))
	return readFile(f)
}

// ReadWorkbook reads a column mapping workbook from r
func ReadWorkbook(r io.Reader) (*Book, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("read mapping workbook", err)
	}
	defer f.Close()

	return readFile(f)
}

func readFile(f *excelize.File) (*Book, error) {
	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	sheets := make([]Sheet, 0, len(domain.StatementKinds()))
	for _, kind := range domain.StatementKinds() {
		name := kind.SheetName()
		if !present[name] {
			return nil, apperrors.NewMappingError(fmt.Sprintf("mapping sheet %s missing", name), nil)
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read mapping sheet %s", name), err)
		}
		sheet, err := parseSheet(kind, rows)
		if err != nil {
			return nil, err
		}
		slog.Debug("Mapping sheet loaded",
			slog.String("sheet", name),
			slog.Int("entries", len(sheet.Entries)))
		sheets = append(sheets, sheet)
	}

	book := NewBook(sheets...)
	if err := book.Validate(); err != nil {
		return nil, err
	}
	return book, nil
}

// WriteWorkbook writes book in the layout LoadWorkbook reads. Used to seed a
// fresh mapping file and by tests.
func WriteWorkbook(book *Book, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{HeaderTHS, HeaderEastMoney, HeaderSina, HeaderItem, HeaderGroup}
	for i, kind := range domain.StatementKinds() {
		name := kind.SheetName()
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		sheet, _ := book.Sheet(kind)
		for r, e := range sheet.Entries {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			row := []interface{}{e.THS, e.EastMoney, e.Sina, e.Item, e.Group}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
