// Package dataset reads raw complaint tables and reads/writes the two-column
// labeled CSV (text, category) shared by every pipeline stage.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUndecodable is returned when input bytes are not valid UTF-8
	// (with or without a byte order mark).
	ErrUndecodable = errors.New("input is not valid UTF-8")

	// ErrEmptyInput is returned when a table has no header row.
	ErrEmptyInput = errors.New("input has no header row")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("required column missing")

	// ErrUnsupportedFormat is returned for file extensions Decode does not know.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// utf8BOM is the byte order mark some spreadsheet exports prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a decoded tabular file. Every row has exactly len(Header) cells;
// an empty cell stands for a missing (null) value.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Decode picks a decoder from the file name's extension. Anything that is
// not .xlsx is decoded as CSV.
func Decode(name string, data []byte) (*Table, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		return DecodeXLSX(data)
	case ".xls":
		return nil, fmt.Errorf("%w: %s (save as .xlsx or .csv)", ErrUnsupportedFormat, name)
	default:
		return DecodeCSV(data)
	}
}

// DecodeCSV parses CSV content with a header row. A leading UTF-8 BOM is
// stripped; otherwise the content is read as plain UTF-8. Content that is
// not valid UTF-8 either way fails with ErrUndecodable.
func DecodeCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrUndecodable
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	return newTable(records[0], records[1:]), nil
}

// metadataSheets are workbook sheets skipped when looking for data.
var metadataSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

// DecodeXLSX reads the first non-metadata sheet of an Excel workbook.
func DecodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	sheet := ""
	for _, s := range sheets {
		if !metadataSheets[strings.ToLower(s)] {
			sheet = s
			break
		}
	}
	if sheet == "" {
		sheet = sheets[len(sheets)-1]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	return newTable(records[0], records[1:]), nil
}

// newTable pads short rows and trims long ones to the header width.
func newTable(header []string, records [][]string) *Table {
	t := &Table{
		Header: append([]string(nil), header...),
		Rows:   make([][]string, 0, len(records)),
	}
	width := len(header)
	for _, rec := range records {
		row := make([]string, width)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t
}
