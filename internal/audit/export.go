package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

var csvHeader = []string{
	"id", "timestamp", "strategy", "action", "market_id",
	"side", "size", "price", "reason", "position_id",
}

// WriteCSV streams the full trail as CSV in append order
func WriteCSV(trail Trail, w io.Writer) error {
	records, err := trail.Records()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Timestamp.Format(time.RFC3339),
			rec.Strategy,
			string(rec.Action),
			rec.MarketID,
			rec.Side,
			strconv.FormatFloat(rec.Size, 'f', 2, 64),
			strconv.FormatFloat(rec.Price, 'f', 4, 64),
			rec.Reason,
			rec.PositionID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSVFile writes the trail to a CSV file at path
func ExportCSVFile(trail Trail, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return WriteCSV(trail, f)
}

// ExportXLSX writes the trail to a styled Excel workbook, one sheet per
// strategy plus a combined sheet.
func ExportXLSX(trail Trail, path string) error {
	records, err := trail.Records()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const allSheet = "All Decisions"
	fx.SetSheetName(fx.GetSheetName(0), allSheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	byStrategy := make(map[string][]Record)
	for _, rec := range records {
		byStrategy[rec.Strategy] = append(byStrategy[rec.Strategy], rec)
	}

	if err := writeSheet(fx, allSheet, headerStyle, records); err != nil {
		return err
	}
	for strategy, recs := range byStrategy {
		sheet := sheetName(strategy)
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
		if err := writeSheet(fx, sheet, headerStyle, recs); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func writeSheet(fx *excelize.File, sheet string, headerStyle int, records []Record) error {
	for col, name := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, rec := range records {
		row := i + 2
		values := []interface{}{
			rec.ID,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Strategy,
			string(rec.Action),
			rec.MarketID,
			rec.Side,
			rec.Size,
			rec.Price,
			rec.Reason,
			rec.PositionID,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	// Reasonable widths for the text-heavy columns
	fx.SetColWidth(sheet, "A", "B", 22)
	fx.SetColWidth(sheet, "E", "E", 30)
	fx.SetColWidth(sheet, "I", "I", 40)
	return nil
}

func sheetName(strategy string) string {
	switch strategy {
	case "copy_trade":
		return "Copy Trade"
	case "high_prob":
		return "High Probability"
	default:
		return strategy
	}
}
