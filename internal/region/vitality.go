package region

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoSpendingData is returned by a SpendingSource when a region has no table.
var ErrNoSpendingData = errors.New("no spending data for region")

// SpendingRow is one category line of a region's spending breakdown.
type SpendingRow struct {
	Category string  `json:"category"`
	Share    float64 `json:"share"`
}

// SpendingSource provides a region's spending table.
type SpendingSource interface {
	SpendingRows(ctx context.Context, region string) ([]SpendingRow, error)
}

// VitalityIndex sums the distinct share values of rows whose category is in allow.
// A share reported on several rows counts once.
func VitalityIndex(rows []SpendingRow, allow []string) float64 {
	allowed := make(map[string]bool, len(allow))
	for _, c := range allow {
		allowed[c] = true
	}

	seen := make(map[float64]bool)
	var sum float64
	for _, r := range rows {
		if !allowed[r.Category] || seen[r.Share] {
			continue
		}
		seen[r.Share] = true
		sum += r.Share
	}
	return sum
}

// BuildVitality computes the vitality index for each region the source knows.
// Regions reporting ErrNoSpendingData are left out; other errors abort.
func BuildVitality(ctx context.Context, src SpendingSource, regions, allow []string, logger *slog.Logger) (map[string]float64, error) {
	out := make(map[string]float64, len(regions))
	for _, name := range regions {
		rows, err := src.SpendingRows(ctx, name)
		if errors.Is(err, ErrNoSpendingData) {
			logger.Warn("spending data missing, region excluded", "region", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		out[name] = VitalityIndex(rows, allow)
		logger.Debug("vitality index", "region", name, "ratio", out[name], "rows", len(rows))
	}
	return out, nil
}
