package spending

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

// Source picks the CSV or XLSX reader per region from the file extension.
type Source struct {
	csv  *CSVSource
	xlsx *XLSXSource
	ext  map[string]string
}

func NewSource(files map[string]string, cols Columns) *Source {
	ext := make(map[string]string, len(files))
	for name, path := range files {
		ext[name] = strings.ToLower(filepath.Ext(path))
	}
	return &Source{
		csv:  NewCSVSource(files, cols),
		xlsx: NewXLSXSource(files, cols),
		ext:  ext,
	}
}

func (s *Source) SpendingRows(ctx context.Context, name string) ([]region.SpendingRow, error) {
	switch s.ext[name] {
	case ".xlsx", ".xlsm":
		return s.xlsx.SpendingRows(ctx, name)
	default:
		return s.csv.SpendingRows(ctx, name)
	}
}
