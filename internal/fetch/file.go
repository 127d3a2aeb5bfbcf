package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "finreport/internal/errors"
	"finreport/pkg/contracts/domain"
)

// FileSource reads statements saved as {dir}/{provider}/{symbol}/{kind}.json
// in pandas' split orientation.
type FileSource struct {
	Dir string
}

// NewFileSource creates a source rooted at dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Path returns the file holding one statement
func (s *FileSource) Path(code string, provider domain.Provider, kind domain.StatementKind) string {
	return filepath.Join(s.Dir, provider.String(), ProviderSymbol(code, provider), string(kind)+".json")
}

// Fetch reads and decodes one statement file
func (s *FileSource) Fetch(ctx context.Context, code string, provider domain.Provider, kind domain.StatementKind) (domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawTable{}, err
	}

	path := s.Path(code, provider, kind)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RawTable{}, apperrors.NewNotFoundError(fmt.Sprintf("statement file %s", path))
		}
		return domain.RawTable{}, apperrors.NewNetworkError("read statement file", err)
	}

	var raw domain.RawTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.RawTable{}, apperrors.NewParsingError(fmt.Sprintf("decode %s", path), err)
	}
	return raw, nil
}
