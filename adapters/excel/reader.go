package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"goedm/domain/core"
	"goedm/domain/edm"
	"goedm/internal"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	return NewDataReaderWithConfig(filePath, DefaultReaderConfig())
}

// NewDataReaderWithConfig creates a reader with explicit sheet and separator
func NewDataReaderWithConfig(filePath string, config ReaderConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if config.Comma == 0 {
		config.Comma = ','
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		config:   config,
		logger:   internal.DefaultLogger.With("excel"),
	}
}

// ReadData reads the header row and all data rows as strings
func (r *DataReader) ReadData() (*RawTable, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, core.NewInvalidArgument("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows), nil
}

// ReadDataset reads the named numeric columns (every column when none are
// named) into a dataset. Every selected cell must parse as a number.
func (r *DataReader) ReadDataset(columns ...string) (*Table, error) {
	raw, err := r.ReadData()
	if err != nil {
		return nil, err
	}

	selected := make([]int, 0, len(raw.Headers))
	if len(columns) == 0 {
		for i := range raw.Headers {
			selected = append(selected, i)
		}
	} else {
		for _, name := range columns {
			key, err := core.ParseSeriesKey(name)
			if err != nil {
				return nil, err
			}
			idx := indexOf(raw.Headers, key.String())
			if idx < 0 {
				return nil, core.NewInvalidArgument("column %q not found in %s", name, filepath.Base(r.filePath))
			}
			selected = append(selected, idx)
		}
	}

	ds := edm.NewDataset(len(raw.Rows), len(selected))
	headers := make([]string, len(selected))
	for j, src := range selected {
		headers[j] = raw.Headers[src]
		for i, row := range raw.Rows {
			v, err := parseCell(row[src])
			if err != nil {
				// +2: header is row 1 and rows are 1-indexed
				return nil, core.NewInvalidArgument("row %d column %q: %v", i+2, headers[j], err)
			}
			ds.Set(i, j, v)
		}
	}

	r.logger.Info("[DataReader] loaded %d series x %d rows from %s", ds.Cols(), ds.Rows(), filepath.Base(r.filePath))
	return &Table{Headers: headers, Data: ds}, nil
}

// readExcelRows reads the configured sheet
func (r *DataReader) readExcelRows() ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" || indexOf(f.GetSheetList(), sheet) < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		if r.config.Sheet != "" && r.config.Sheet != "Sheet1" {
			return nil, core.NewInvalidArgument("sheet %q not found", r.config.Sheet)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// readCSVRows reads every CSV record
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = r.config.Comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// processRows trims cells and pads ragged rows to the header width
func (r *DataReader) processRows(rows [][]string) *RawTable {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cells := make([]string, len(headers))
		for j := 0; j < len(headers) && j < len(row); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		data = append(data, cells)
	}

	r.logger.Debug("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(data))

	return &RawTable{Headers: headers, Rows: data}
}

func parseCell(s string) (float32, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return float32(v), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
