package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"goedm/domain/core"
	"goedm/domain/edm"
)

// WriteColumns saves named series side by side to a .csv or .xlsx file.
// Shorter series leave trailing cells blank.
func WriteColumns(path string, headers []string, columns ...edm.Sequence) error {
	if len(headers) != len(columns) {
		return core.NewShapeError("%d headers for %d columns", len(headers), len(columns))
	}

	rows := 0
	for _, c := range columns {
		rows = max(rows, len(c))
	}

	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return writeCSV(path, headers, columns, rows)
	}
	return writeExcel(path, headers, columns, rows)
}

func writeCSV(path string, headers []string, columns []edm.Sequence, rows int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for i := 0; i < rows; i++ {
		for j, c := range columns {
			record[j] = ""
			if i < len(c) {
				record[j] = strconv.FormatFloat(float64(c[i]), 'g', -1, 32)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeExcel(path string, headers []string, columns []edm.Sequence, rows int) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]interface{}, len(headers))
	for j, h := range headers {
		header[j] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := make([]interface{}, len(columns))
	for i := 0; i < rows; i++ {
		for j, c := range columns {
			row[j] = nil
			if i < len(c) {
				row[j] = float64(c[i])
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
