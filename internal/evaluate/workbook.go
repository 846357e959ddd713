package evaluate

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	confusionSheet = "Confusion"
	reportSheet    = "Report"
)

// heat holds fill colors from light to dark for confusion-matrix cells.
var heat = []string{"#F7FBFF", "#C6DBEF", "#6BAED6", "#2171B5", "#08306B"}

// Workbook renders the report as an XLSX file with a shaded confusion
// matrix sheet and a per-class metrics sheet.
func Workbook(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", confusionSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(reportSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	shades := make([]int, len(heat))
	for i, c := range heat {
		font := &excelize.Font{Color: "#000000"}
		if i >= 3 {
			font.Color = "#FFFFFF"
		}
		shades[i], err = f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{c}},
			Font:      font,
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return nil, err
		}
	}

	header := []any{"true \\ predicted"}
	for _, l := range r.Labels {
		header = append(header, l)
	}
	if err := f.SetSheetRow(confusionSheet, "A1", &header); err != nil {
		return nil, err
	}

	peak := 0
	for _, row := range r.Confusion {
		for _, v := range row {
			peak = max(peak, v)
		}
	}
	for i, l := range r.Labels {
		row := []any{l}
		for _, v := range r.Confusion[i] {
			row = append(row, v)
		}
		if err := f.SetSheetRow(confusionSheet, cell(1, i+2), &row); err != nil {
			return nil, err
		}
		for j, v := range r.Confusion[i] {
			ref := cell(j+2, i+2)
			if err := f.SetCellStyle(confusionSheet, ref, ref, shades[bucket(v, peak)]); err != nil {
				return nil, err
			}
		}
	}
	if len(r.Labels) > 0 {
		if err := f.SetCellStyle(confusionSheet, "A1", cell(len(r.Labels)+1, 1), bold); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(confusionSheet, "A2", cell(1, len(r.Labels)+1), bold); err != nil {
			return nil, err
		}
	}

	rows := [][]any{
		{"label", "precision", "recall", "f1", "support"},
	}
	for _, s := range r.PerClass {
		rows = append(rows, []any{s.Label, s.Precision, s.Recall, s.F1, s.Support})
	}
	rows = append(rows,
		[]any{},
		[]any{"accuracy", r.Accuracy},
		[]any{"macro_f1", r.MacroF1},
		[]any{"weighted_f1", r.WeightedF1},
		[]any{"samples", r.Samples},
	)
	for i := range rows {
		if err := f.SetSheetRow(reportSheet, cell(1, i+1), &rows[i]); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(reportSheet, "A1", "E1", bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func bucket(v, peak int) int {
	if peak == 0 || v == 0 {
		return 0
	}
	b := v * (len(heat) - 1) / peak
	return max(1, b)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
