package spending

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

// CSVSource reads one CSV file per region.
type CSVSource struct {
	files map[string]string
	cols  Columns
}

func NewCSVSource(files map[string]string, cols Columns) *CSVSource {
	return &CSVSource{files: files, cols: cols.withDefaults()}
}

func (s *CSVSource) SpendingRows(ctx context.Context, name string) ([]region.SpendingRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := filePath(s.files, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spending file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	table, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read spending csv %s: %w", path, err)
	}
	return parseRows(table, s.cols)
}
