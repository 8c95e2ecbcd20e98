package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyWorkbook     = errors.New("spreadsheet is empty")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format, use .xlsx or .csv")
)

var zipMagic = []byte("PK\x03\x04")

// Decode picks the decoder from the file extension, falling back to content sniffing.
func Decode(filename string, data []byte) ([]*Sheet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyWorkbook
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return DecodeXLSX(bytes.NewReader(data))
	case ".csv", ".txt":
		return DecodeCSV(bytes.NewReader(data))
	case ".xls":
		return nil, ErrUnsupportedFormat
	}
	if bytes.HasPrefix(data, zipMagic) {
		return DecodeXLSX(bytes.NewReader(data))
	}
	return DecodeCSV(bytes.NewReader(data))
}

// DecodeXLSX reads every worksheet with raw cell values, so dates come
// back as Excel serial numbers rather than display strings.
func DecodeXLSX(r io.Reader) ([]*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sheets []*Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		s := NewSheet(name, rows)
		if s.HasContent() {
			sheets = append(sheets, s)
		}
	}
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return sheets, nil
}

// DecodeCSV reads a single-sheet CSV; the delimiter (',', ';' or tab) is
// guessed from the first line.
func DecodeCSV(r io.Reader) ([]*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	s := NewSheet("csv", rows)
	if !s.HasContent() {
		return nil, ErrEmptyWorkbook
	}
	return []*Sheet{s}, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
