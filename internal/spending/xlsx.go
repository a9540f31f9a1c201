package spending

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

// XLSXSource reads the first sheet of one workbook per region.
type XLSXSource struct {
	files map[string]string
	cols  Columns
}

func NewXLSXSource(files map[string]string, cols Columns) *XLSXSource {
	return &XLSXSource{files: files, cols: cols.withDefaults()}
}

func (s *XLSXSource) SpendingRows(ctx context.Context, name string) ([]region.SpendingRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := filePath(s.files, name)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spending workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spending workbook %s has no sheets", path)
	}
	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return parseRows(table, s.cols)
}
