package sheet

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"cantine/internal/model"
)

var (
	ErrNoPlanColumns      = errors.New("no date/meal columns found in the first rows of the sheet")
	ErrNoIdentifierColumn = errors.New("no matricule, numeric identifier or email column found")
)

const (
	headerScanRows     = 10
	minTwoRowPairs     = 2
	minNumericSamples  = 10
	numericSampleLimit = 50
)

var reNumericID = regexp.MustCompile(`^\d{4,15}$`)

var matriculeHeaders = map[string]bool{
	"matricule": true, "matricules": true, "nmatricule": true, "numeromatricule": true,
	"matriculeetudiant": true, "numeroetudiant": true, "numetudiant": true, "noetudiant": true,
	"identifiant": true, "id": true, "studentid": true, "studentnumber": true,
	"registrationnumber": true, "regno": true,
}

var emailHeaders = map[string]bool{
	"email": true, "mail": true, "courriel": true, "adressemail": true,
	"adresseemail": true, "emailaddress": true, "adressecourriel": true,
}

// IDKind tells how the identifying column was found.
type IDKind int

const (
	IDMatricule IDKind = iota
	IDNumeric
	IDEmail
)

// PlanColumn is one (date, meal) column of a meal-plan sheet.
type PlanColumn struct {
	Col  int
	Date time.Time
	Meal model.Meal
}

// PlanCell is a checked (date, meal) pair of a data row.
type PlanCell struct {
	Date time.Time
	Meal model.Meal
}

// PlanRow is one data row of a meal-plan sheet. Line is 1-based.
type PlanRow struct {
	Line      int
	Matricule string
	Email     string
	Checked   []PlanCell
}

// PlanLayout is the detected structure of a meal-plan sheet.
type PlanLayout struct {
	Sheet     *Sheet
	Columns   []PlanColumn
	HeaderRow int // last header row, 0-based
	TwoRow    bool
	IDColumn  int
	IDKind    IDKind
	// LowConfidence is set when the identifier column was guessed from
	// its values rather than its header.
	LowConfidence bool
}

// MapMealPlans locates the plan columns and the identifier column.
func MapMealPlans(s *Sheet) (*PlanLayout, error) {
	layout := &PlanLayout{Sheet: s}

	first := -1
	if r, cols := findTwoRowHeader(s); cols != nil {
		first = r
		layout.Columns, layout.HeaderRow, layout.TwoRow = cols, r+1, true
	} else if r, cols := findFlatHeader(s); cols != nil {
		first = r
		layout.Columns, layout.HeaderRow = cols, r
	} else {
		return nil, ErrNoPlanColumns
	}

	if err := layout.locateIdentifier(first); err != nil {
		return nil, err
	}
	return layout, nil
}

func scanLimit(s *Sheet) int {
	if len(s.Rows) < headerScanRows {
		return len(s.Rows)
	}
	return headerScanRows
}

// findTwoRowHeader looks for a date row followed by a meal row. Dates carry
// forward over empty cells so merged date headers cover all their meals.
func findTwoRowHeader(s *Sheet) (int, []PlanColumn) {
	width := s.Width()
	for r := 0; r < scanLimit(s) && r+1 < len(s.Rows); r++ {
		var cols []PlanColumn
		var current time.Time
		for c := 0; c < width; c++ {
			cell := s.Cell(r, c)
			if d, ok := ParseDateCell(cell); ok {
				current = d
			} else if !cell.IsEmpty() {
				current = time.Time{}
			}
			if current.IsZero() {
				continue
			}
			if meal, ok := MatchMeal(s.Cell(r+1, c).Text); ok {
				cols = append(cols, PlanColumn{Col: c, Date: current, Meal: meal})
			}
		}
		if len(cols) >= minTwoRowPairs {
			return r, cols
		}
	}
	return -1, nil
}

// findFlatHeader looks for single cells such as "2025-03-05 Déjeuner" or
// "Dîner 6 mars 2025".
func findFlatHeader(s *Sheet) (int, []PlanColumn) {
	width := s.Width()
	for r := 0; r < scanLimit(s); r++ {
		var cols []PlanColumn
		for c := 0; c < width; c++ {
			cell := s.Cell(r, c)
			if cell.Kind != KindText {
				continue
			}
			if d, meal, ok := splitDateMeal(cell.Text); ok {
				cols = append(cols, PlanColumn{Col: c, Date: d, Meal: meal})
			}
		}
		if len(cols) > 0 {
			return r, cols
		}
	}
	return -1, nil
}

func splitDateMeal(text string) (time.Time, model.Meal, bool) {
	tokens := strings.Fields(text)
	for k := 1; k < len(tokens); k++ {
		left, right := strings.Join(tokens[:k], " "), strings.Join(tokens[k:], " ")
		if meal, ok := MatchMeal(right); ok {
			if d, ok := ParseDateString(left); ok {
				return d, meal, true
			}
		}
		if meal, ok := MatchMeal(left); ok {
			if d, ok := ParseDateString(right); ok {
				return d, meal, true
			}
		}
	}
	return time.Time{}, "", false
}

func (l *PlanLayout) isPlanColumn(c int) bool {
	for _, pc := range l.Columns {
		if pc.Col == c {
			return true
		}
	}
	return false
}

// locateIdentifier tries, in order: a matricule header, a column of
// numeric IDs, an email header.
func (l *PlanLayout) locateIdentifier(firstHeader int) error {
	width := l.Sheet.Width()

	for r := firstHeader; r <= l.HeaderRow; r++ {
		for c := 0; c < width; c++ {
			if !l.isPlanColumn(c) && matriculeHeaders[Fold(l.Sheet.Cell(r, c).Text)] {
				l.IDColumn, l.IDKind = c, IDMatricule
				return nil
			}
		}
	}

	for c := 0; c < width; c++ {
		if l.isPlanColumn(c) {
			continue
		}
		if l.looksNumeric(c) {
			l.IDColumn, l.IDKind, l.LowConfidence = c, IDNumeric, true
			return nil
		}
	}

	for r := firstHeader; r <= l.HeaderRow; r++ {
		for c := 0; c < width; c++ {
			if !l.isPlanColumn(c) && emailHeaders[Fold(l.Sheet.Cell(r, c).Text)] {
				l.IDColumn, l.IDKind = c, IDEmail
				return nil
			}
		}
	}
	return ErrNoIdentifierColumn
}

func (l *PlanLayout) looksNumeric(c int) bool {
	samples, hits := 0, 0
	for r := l.HeaderRow + 1; r < len(l.Sheet.Rows) && samples < numericSampleLimit; r++ {
		cell := l.Sheet.Cell(r, c)
		if cell.IsEmpty() {
			continue
		}
		samples++
		if reNumericID.MatchString(cell.String()) {
			hits++
		}
	}
	return samples >= minNumericSamples && hits*2 >= samples
}

// Rows extracts every non-empty data row below the header.
func (l *PlanLayout) Rows() []PlanRow {
	var rows []PlanRow
	for r := l.HeaderRow + 1; r < len(l.Sheet.Rows); r++ {
		if l.Sheet.RowEmpty(r) {
			continue
		}
		row := PlanRow{Line: r + 1}
		id := strings.TrimSpace(l.Sheet.Cell(r, l.IDColumn).String())
		if l.IDKind == IDEmail {
			row.Email = strings.ToLower(id)
			row.Matricule = MatriculeFromEmail(row.Email)
		} else {
			row.Matricule = id
		}
		for _, pc := range l.Columns {
			if IsChecked(l.Sheet.Cell(r, pc.Col)) {
				row.Checked = append(row.Checked, PlanCell{Date: pc.Date, Meal: pc.Meal})
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// MatriculeFromEmail returns the local part of an email when it is a
// numeric ID, "" otherwise.
func MatriculeFromEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	local := email[:at]
	if !reNumericID.MatchString(local) {
		return ""
	}
	return local
}
