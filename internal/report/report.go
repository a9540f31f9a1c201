// Package report renders ranked itineraries for people: a console summary and
// an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/tpfi/internal/scoring"
)

const (
	plansSheet   = "Plans"
	regionsSheet = "Regions"
)

// RegionMean is the average fatigue score of one region's itineraries.
type RegionMean struct {
	Region      string  `json:"region"`
	MeanScore   float64 `json:"mean_score"`
	Itineraries int     `json:"itineraries"`
}

// RegionMeans averages scores per region, most fatiguing first.
func RegionMeans(scored []scoring.ScoredItinerary) []RegionMean {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range scored {
		sums[s.Region] += s.FatigueScore
		counts[s.Region]++
	}
	out := make([]RegionMean, 0, len(sums))
	for name, sum := range sums {
		out = append(out, RegionMean{Region: name, MeanScore: sum / float64(counts[name]), Itineraries: counts[name]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanScore != out[j].MeanScore {
			return out[i].MeanScore > out[j].MeanScore
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// WriteText prints one block per itinerary in rank order.
func WriteText(w io.Writer, scored []scoring.ScoredItinerary) error {
	for _, s := range scored {
		_, err := fmt.Fprintf(w, "%d. %s\n   fatigue %.1f | travel %.1f h | walk %.1f km | transfers %d\n",
			s.Rank, s.Label, s.FatigueScore, s.DurationS/3600, s.WalkDistanceM/1000, s.Transfers)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes a workbook with the ranked plans and, when means is
// non-empty, a per-region summary sheet.
func WriteXLSX(w io.Writer, scored []scoring.ScoredItinerary, means []RegionMean) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(plansSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []any{"Rank", "Region", "Itinerary", "Fatigue Score", "Duration (min)", "Walk (km)", "Distance (km)", "Transfers", "Walk Ratio", "Walk Strategy"}
	if err := setRow(f, plansSheet, 1, headers); err != nil {
		return err
	}
	for i, s := range scored {
		row := []any{
			s.Rank, s.Region, s.Label, s.FatigueScore,
			s.DurationS / 60, s.WalkDistanceM / 1000, s.DistanceM / 1000,
			s.Transfers, s.WalkRatio, s.WalkStrategy,
		}
		if err := setRow(f, plansSheet, i+2, row); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(plansSheet, 1, 1, headerStyle)
	}
	_ = f.SetColWidth(plansSheet, "C", "C", 60)

	if len(means) > 0 {
		if _, err := f.NewSheet(regionsSheet); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		if err := setRow(f, regionsSheet, 1, []any{"Region", "Mean Fatigue Score", "Itineraries"}); err != nil {
			return err
		}
		for i, m := range means {
			if err := setRow(f, regionsSheet, i+2, []any{m.Region, m.MeanScore, m.Itineraries}); err != nil {
				return err
			}
		}
		if headerStyle != 0 {
			_ = f.SetRowStyle(regionsSheet, 1, 1, headerStyle)
		}
	}

	if f.GetSheetName(0) != plansSheet {
		f.DeleteSheet("Sheet1")
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
