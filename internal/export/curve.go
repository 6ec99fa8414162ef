// Package export writes sampled power curves to XLSX workbooks and CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gopower/internal/power"
)

const (
	curveSheet   = "Curve"
	summarySheet = "Summary"
)

// axisLabels names the four quantities in column headers
var axisLabels = map[string]string{
	"n":     "Total sample size",
	"alpha": "Alpha",
	"power": "Power (1-beta)",
	"es":    "Effect size",
}

func label(q string) string {
	if l, ok := axisLabels[q]; ok {
		return l
	}
	return q
}

// Workbook builds a workbook with the sampled points, a line chart of them
// and a summary sheet. The caller owns the returned file and must Close it.
func Workbook(c *power.Curve) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", curveSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := []interface{}{label(string(c.Axis)), label(string(c.Target)), "Error"}
	if err := f.SetSheetRow(curveSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range c.Points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{p.X, p.Y, p.Error}
		if p.Error != "" {
			row[1] = nil
		}
		if err := f.SetSheetRow(curveSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write point %d: %w", i, err)
		}
	}

	if len(c.Points) > 0 {
		last := len(c.Points) + 1
		chart := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$B$1", curveSheet),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", curveSheet, last),
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", curveSheet, last),
			}},
			Title: []excelize.RichTextRun{{Text: fmt.Sprintf("%s: %s vs %s", c.Test, label(string(c.Target)), label(string(c.Axis)))}},
		}
		if err := f.AddChart(curveSheet, "E2", chart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add chart: %w", err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Test", c.Test},
		{"Target", string(c.Target)},
		{"Axis", string(c.Axis)},
		{"Valid points", c.Summary.Valid},
		{"Min", c.Summary.Min},
		{"Max", c.Summary.Max},
		{"Median", c.Summary.Median},
	}
	for i, row := range summary {
		row := row
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return f, nil
}

// WriteXLSX streams the curve workbook to w
func WriteXLSX(w io.Writer, c *power.Curve) error {
	f, err := Workbook(c)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the curve workbook to path
func SaveXLSX(path string, c *power.Curve) error {
	f, err := Workbook(c)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the points as x,y,error rows under a header
func WriteCSV(w io.Writer, c *power.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{string(c.Axis), string(c.Target), "error"}); err != nil {
		return err
	}
	for _, p := range c.Points {
		y := strconv.FormatFloat(p.Y, 'g', -1, 64)
		if p.Error != "" {
			y = ""
		}
		if err := cw.Write([]string{strconv.FormatFloat(p.X, 'g', -1, 64), y, p.Error}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
