// Package export serializes reconstructed rows into spreadsheet files.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

// DefaultSheetName matches the sheet name used by earlier exports
const DefaultSheetName = "Sheet 1"

type styleKey struct {
	size float64
	bold bool
}

// Workbook builds an .xlsx document from rows
func Workbook(rows []layout.Row, sheet string) (*excelize.File, error) {
	if sheet == "" {
		sheet = DefaultSheetName
	}

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styles := make(map[styleKey]int)
	for i, row := range rows {
		col, rowNum := layout.CellPosition(i)
		cell, err := excelize.CoordinatesToCellName(col, rowNum)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := f.SetCellValue(sheet, cell, row.Text); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write %s: %w", cell, err)
		}

		key := styleKey{size: fontSize(row.FontSizePt), bold: row.Bold}
		styleID, ok := styles[key]
		if !ok {
			styleID, err = f.NewStyle(&excelize.Style{
				Font: &excelize.Font{Size: key.size, Bold: key.bold},
			})
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create style for %s: %w", cell, err)
			}
			styles[key] = styleID
		}
		if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style %s: %w", cell, err)
		}
	}

	return f, nil
}

// fontSize keeps a row size inside the range spreadsheet fonts accept.
// Rows from Reconstruct are already in range.
func fontSize(size float64) float64 {
	switch {
	case math.IsNaN(size) || size <= 0:
		return layout.DefaultFontSizePt
	case size < layout.MinFontSizePt:
		return layout.MinFontSizePt
	case size > layout.MaxFontSizePt:
		return layout.MaxFontSizePt
	}
	return size
}

// WriteRows writes rows as an .xlsx document to w
func WriteRows(w io.Writer, rows []layout.Row, sheet string) error {
	f, err := Workbook(rows, sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes rows as an .xlsx file at path
func WriteFile(path string, rows []layout.Row, sheet string) error {
	f, err := Workbook(rows, sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
