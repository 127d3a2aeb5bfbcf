package mapping

import (
	"fmt"
	"strings"

	apperrors "finreport/internal/errors"
	"finreport/pkg/contracts/domain"
)

// Header names of a mapping sheet. Columns are located by header text, so their
// order in the workbook does not matter.
const (
	HeaderTHS       = "ths"
	HeaderEastMoney = "em"
	HeaderSina      = "sina"
	HeaderItem      = "item"
	HeaderGroup     = "item_group"
)

// Entry is one canonical line item and its native name at each provider.
// An empty native name means the provider does not report the item.
type Entry struct {
	THS       string `json:"ths,omitempty"`
	EastMoney string `json:"em,omitempty"`
	Sina      string `json:"sina,omitempty"`
	Item      string `json:"item"`
	Group     string `json:"item_group,omitempty"`
}

// Native returns the provider's column name for this item
func (e Entry) Native(p domain.Provider) string {
	switch p {
	case domain.ProviderTHS:
		return e.THS
	case domain.ProviderEastMoney:
		return e.EastMoney
	case domain.ProviderSina:
		return e.Sina
	default:
		return ""
	}
}

// Sheet is the mapping for one statement kind, in canonical order
type Sheet struct {
	Kind    domain.StatementKind
	Entries []Entry
}

// Lookup builds the native -> canonical rename table for a provider.
//
// Entries without a native name are skipped. The same native name listed twice
// with the same target is tolerated; with different targets Lookup fails with
// ErrAmbiguousMapping rather than picking one.
func (s Sheet) Lookup(p domain.Provider) (map[string]string, error) {
	if !p.Valid() {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown provider %q", p))
	}
	lookup := make(map[string]string, len(s.Entries))
	for _, e := range s.Entries {
		native := e.Native(p)
		if native == "" {
			continue
		}
		if prev, ok := lookup[native]; ok && prev != e.Item {
			return nil, fmt.Errorf("%w: %s column %q maps to both %q and %q in sheet %s",
				apperrors.ErrAmbiguousMapping, p, native, prev, e.Item, s.Kind.SheetName())
		}
		lookup[native] = e.Item
	}
	return lookup, nil
}

// Items returns the canonical item names in mapping order, without duplicates
func (s Sheet) Items() []string {
	seen := make(map[string]bool, len(s.Entries))
	items := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if seen[e.Item] {
			continue
		}
		seen[e.Item] = true
		items = append(items, e.Item)
	}
	return items
}

// Contains reports whether item is a canonical name of this sheet
func (s Sheet) Contains(item string) bool {
	for _, e := range s.Entries {
		if e.Item == item {
			return true
		}
	}
	return false
}

// Book holds one mapping sheet per statement kind. It is read-only once built.
type Book struct {
	sheets map[domain.StatementKind]Sheet
}

// NewBook builds a book from sheets. A later sheet of the same kind replaces an earlier one.
func NewBook(sheets ...Sheet) *Book {
	b := &Book{sheets: make(map[domain.StatementKind]Sheet, len(sheets))}
	for _, s := range sheets {
		b.sheets[s.Kind] = s
	}
	return b
}

// Sheet returns the mapping for kind
func (b *Book) Sheet(kind domain.StatementKind) (Sheet, bool) {
	if b == nil {
		return Sheet{}, false
	}
	s, ok := b.sheets[kind]
	return s, ok
}

// Validate checks that every statement kind has a sheet and that no sheet is
// ambiguous for any provider
func (b *Book) Validate() error {
	for _, kind := range domain.StatementKinds() {
		s, ok := b.Sheet(kind)
		if !ok {
			return apperrors.NewMappingError(fmt.Sprintf("mapping sheet %s missing", kind.SheetName()), nil)
		}
		for _, p := range domain.Providers() {
			if _, err := s.Lookup(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseSheet turns a header row plus data rows into a Sheet. Rows without an
// item name are skipped; cells are trimmed.
func parseSheet(kind domain.StatementKind, rows [][]string) (Sheet, error) {
	if len(rows) == 0 {
		return Sheet{}, apperrors.NewMappingError(fmt.Sprintf("mapping sheet %s is empty", kind.SheetName()), nil)
	}

	cols := map[string]int{HeaderTHS: -1, HeaderEastMoney: -1, HeaderSina: -1, HeaderItem: -1, HeaderGroup: -1}
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		if idx, ok := cols[h]; ok && idx < 0 {
			cols[h] = i
		}
	}
	if cols[HeaderItem] < 0 {
		return Sheet{}, apperrors.NewMappingError(fmt.Sprintf("mapping sheet %s has no %q column", kind.SheetName(), HeaderItem), nil)
	}

	cell := func(row []string, header string) string {
		i := cols[header]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	sheet := Sheet{Kind: kind, Entries: make([]Entry, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		item := cell(row, HeaderItem)
		if item == "" {
			continue
		}
		sheet.Entries = append(sheet.Entries, Entry{
			THS:       cell(row, HeaderTHS),
			EastMoney: cell(row, HeaderEastMoney),
			Sina:      cell(row, HeaderSina),
			Item:      item,
			Group:     cell(row, HeaderGroup),
		})
	}
	return sheet, nil
}
