// Package spending reads per-region spending breakdowns from CSV or XLSX files.
package spending

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

const (
	DefaultCategoryColumn = "대분류"
	DefaultShareColumn    = "대분류 지출액 비율"
)

// Columns names the header cells holding the category and its share.
type Columns struct {
	Category string
	Share    string
}

func (c Columns) withDefaults() Columns {
	if c.Category == "" {
		c.Category = DefaultCategoryColumn
	}
	if c.Share == "" {
		c.Share = DefaultShareColumn
	}
	return c
}

// filePath resolves a region's file, reporting region.ErrNoSpendingData when
// the region is unmapped or its file does not exist.
func filePath(files map[string]string, name string) (string, error) {
	path, ok := files[name]
	if !ok || path == "" {
		return "", fmt.Errorf("%w: %s", region.ErrNoSpendingData, name)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (%s)", region.ErrNoSpendingData, name, path)
		}
		return "", err
	}
	return path, nil
}

// parseRows maps a header row plus data rows onto spending rows. Rows whose
// share does not parse are skipped.
func parseRows(table [][]string, cols Columns) ([]region.SpendingRow, error) {
	if len(table) == 0 {
		return nil, nil
	}
	catIdx, shareIdx := -1, -1
	for i, h := range table[0] {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case cols.Category:
			catIdx = i
		case cols.Share:
			shareIdx = i
		}
	}
	if catIdx < 0 || shareIdx < 0 {
		return nil, fmt.Errorf("spending table missing columns %q/%q", cols.Category, cols.Share)
	}

	var rows []region.SpendingRow
	for _, rec := range table[1:] {
		if catIdx >= len(rec) || shareIdx >= len(rec) {
			continue
		}
		share, err := parseShare(rec[shareIdx])
		if err != nil {
			continue
		}
		rows = append(rows, region.SpendingRow{
			Category: strings.TrimSpace(rec[catIdx]),
			Share:    share,
		})
	}
	return rows, nil
}

func parseShare(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}
