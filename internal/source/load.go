package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Load reads a .csv or .xlsx file. The first row is the header row and
// blank rows are dropped.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(f)
	default:
		return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadAll loads every path and merges the results.
func LoadAll(paths []string) (Table, error) {
	tables := make([]Table, 0, len(paths))
	for _, p := range paths {
		t, err := Load(p)
		if err != nil {
			return Table{}, fmt.Errorf("failed to load %s: %w", p, err)
		}
		tables = append(tables, t)
	}
	return Merge(tables...), nil
}

// ReadCSV parses comma-separated input.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRecords(records), nil
}

// ReadXLSX parses the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Table{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return fromRecords(rows), nil
}

func fromRecords(records [][]string) Table {
	if len(records) == 0 {
		return Table{}
	}
	t := Table{Headers: records[0]}
	for _, row := range records[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
