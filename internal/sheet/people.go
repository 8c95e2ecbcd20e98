package sheet

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrNoPeopleHeader = errors.New("no header row with a matricule or email column and a name column")

var (
	fullNameHeaders = map[string]bool{
		"nomcomplet": true, "nometprenom": true, "nomprenom": true, "nomsetprenoms": true,
		"prenometnom": true, "name": true, "fullname": true, "etudiant": true, "agent": true,
	}
	lastNameHeaders = map[string]bool{
		"nom": true, "noms": true, "nomdefamille": true, "lastname": true, "surname": true, "familyname": true,
	}
	firstNameHeaders = map[string]bool{
		"prenom": true, "prenoms": true, "firstname": true, "givenname": true,
	}
	yearHeaders = map[string]bool{
		"annee": true, "niveau": true, "year": true, "classe": true, "promotion": true, "promo": true,
	}
)

var (
	reLicence = regexp.MustCompile(`\b(?:l|licence|license)\s?([1-3])\b`)
	reOrdinal = regexp.MustCompile(`\b([1-3])\s?(?:ere|er|re|eme|e|st|nd|rd)\b`)
)

var ordinalWords = map[string]string{
	"premiere": "L1", "premier": "L1", "first": "L1",
	"deuxieme": "L2", "seconde": "L2", "second": "L2",
	"troisieme": "L3", "third": "L3",
}

var frenchTitle = cases.Title(language.French)

// PersonRow is one data row of a people sheet. Line is 1-based.
type PersonRow struct {
	Line        int
	Matricule   string
	Name        string
	Email       string
	StudentYear string
}

// PeopleLayout is the detected structure of a people sheet.
type PeopleLayout struct {
	Sheet     *Sheet
	HeaderRow int
	// column indexes, -1 when absent
	Matricule, FullName, LastName, FirstName, Email, Year int
	// SheetYear is the student year read from the sheet name.
	SheetYear string
}

// MapPeople finds the header row of a student or staff list.
func MapPeople(s *Sheet) (*PeopleLayout, error) {
	for r := 0; r < scanLimit(s); r++ {
		l := &PeopleLayout{Sheet: s, HeaderRow: r, Matricule: -1, FullName: -1, LastName: -1, FirstName: -1, Email: -1, Year: -1}
		for c := 0; c < len(s.Rows[r]); c++ {
			key := Fold(s.Cell(r, c).Text)
			switch {
			case key == "":
			case matriculeHeaders[key] && l.Matricule < 0:
				l.Matricule = c
			case emailHeaders[key] && l.Email < 0:
				l.Email = c
			case fullNameHeaders[key] && l.FullName < 0:
				l.FullName = c
			case lastNameHeaders[key] && l.LastName < 0:
				l.LastName = c
			case firstNameHeaders[key] && l.FirstName < 0:
				l.FirstName = c
			case yearHeaders[key] && l.Year < 0:
				l.Year = c
			}
		}
		hasID := l.Matricule >= 0 || l.Email >= 0
		hasName := l.FullName >= 0 || l.LastName >= 0 || l.FirstName >= 0
		if hasID && hasName {
			l.SheetYear, _ = StudentYearFromSheetName(s.Name)
			return l, nil
		}
	}
	return nil, ErrNoPeopleHeader
}

func (l *PeopleLayout) text(r, c int) string {
	if c < 0 {
		return ""
	}
	return strings.TrimSpace(l.Sheet.Cell(r, c).String())
}

// Rows extracts every non-empty data row. Missing fields are left empty
// for the caller to report.
func (l *PeopleLayout) Rows() []PersonRow {
	var rows []PersonRow
	for r := l.HeaderRow + 1; r < len(l.Sheet.Rows); r++ {
		if l.Sheet.RowEmpty(r) {
			continue
		}
		row := PersonRow{
			Line:      r + 1,
			Matricule: l.text(r, l.Matricule),
			Email:     strings.ToLower(l.text(r, l.Email)),
		}
		if row.Matricule == "" && row.Email != "" {
			row.Matricule = MatriculeFromEmail(row.Email)
		}

		name := l.text(r, l.FullName)
		if name == "" {
			name = strings.TrimSpace(l.text(r, l.FirstName) + " " + l.text(r, l.LastName))
		}
		row.Name = TitleCase(name)

		if y, ok := YearFromLabel(l.text(r, l.Year)); ok {
			row.StudentYear = y
		} else {
			row.StudentYear = l.SheetYear
		}
		rows = append(rows, row)
	}
	return rows
}

// TitleCase collapses whitespace and capitalises each word with French
// casing rules: "JEAN-PIERRE  élodie" → "Jean-Pierre Élodie".
func TitleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return frenchTitle.String(strings.ToLower(s))
}

// StudentYearFromSheetName reads L1/L2/L3 from names like "L2 Info" or
// "Première année".
func StudentYearFromSheetName(name string) (string, bool) {
	return YearFromLabel(name)
}

// YearFromLabel normalises a study-year label to "L1", "L2" or "L3".
func YearFromLabel(label string) (string, bool) {
	folded := FoldWords(label)
	if folded == "" {
		return "", false
	}
	if m := reLicence.FindStringSubmatch(folded); m != nil {
		return "L" + m[1], true
	}
	if m := reOrdinal.FindStringSubmatch(folded); m != nil {
		return "L" + m[1], true
	}
	for _, w := range strings.Fields(folded) {
		if y, ok := ordinalWords[w]; ok {
			return y, true
		}
	}
	return "", false
}
