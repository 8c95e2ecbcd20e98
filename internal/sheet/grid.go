// Package sheet turns uploaded spreadsheets into a typed cell grid and maps
// that grid onto meal-plan and people records.
package sheet

import (
	"strconv"
	"strings"
)

// Kind is the type tag of a cell.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindBool
)

// Cell is a decoded spreadsheet cell.
type Cell struct {
	Text   string
	Kind   Kind
	Number float64
	Bool   bool
}

// NewCell classifies a raw cell value.
func NewCell(raw string) Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Cell{Kind: KindEmpty}
	}
	switch strings.ToLower(text) {
	case "true":
		return Cell{Text: text, Kind: KindBool, Bool: true}
	case "false":
		return Cell{Text: text, Kind: KindBool}
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return Cell{Text: text, Kind: KindNumber, Number: n}
	}
	return Cell{Text: text, Kind: KindText}
}

// IsEmpty reports whether the cell holds nothing.
func (c Cell) IsEmpty() bool { return c.Kind == KindEmpty }

// String returns the cell text as typed; whole numbers lose a trailing ".0".
func (c Cell) String() string {
	if c.Kind == KindNumber && strings.HasSuffix(c.Text, ".0") && c.Number == float64(int64(c.Number)) {
		return strconv.FormatInt(int64(c.Number), 10)
	}
	return c.Text
}

// Sheet is one worksheet.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// NewSheet builds a sheet from raw string rows.
func NewSheet(name string, raw [][]string) *Sheet {
	rows := make([][]Cell, len(raw))
	for i, r := range raw {
		cells := make([]Cell, len(r))
		for j, v := range r {
			cells[j] = NewCell(v)
		}
		rows[i] = cells
	}
	return &Sheet{Name: name, Rows: rows}
}

// Cell returns the cell at (row, col), empty when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Width is the widest row length.
func (s *Sheet) Width() int {
	w := 0
	for _, r := range s.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// RowEmpty reports whether every cell of the row is empty.
func (s *Sheet) RowEmpty(row int) bool {
	if row < 0 || row >= len(s.Rows) {
		return true
	}
	for _, c := range s.Rows[row] {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// HasContent reports whether at least one cell is non-empty.
func (s *Sheet) HasContent() bool {
	for i := range s.Rows {
		if !s.RowEmpty(i) {
			return true
		}
	}
	return false
}
