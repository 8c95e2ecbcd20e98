package sheet

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Excel serials outside this range are treated as plain numbers
// (1954-10-04 .. 2119-01-10).
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var (
	reYearFirst = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reYearLast  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4}|\d{2})$`)
	reClock     = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
)

var frenchMonths = map[string]string{
	"janvier":   "January",
	"janv":      "January",
	"fevrier":   "February",
	"fevr":      "February",
	"fev":       "February",
	"mars":      "March",
	"avril":     "April",
	"avr":       "April",
	"mai":       "May",
	"juin":      "June",
	"juillet":   "July",
	"juil":      "July",
	"aout":      "August",
	"septembre": "September",
	"sept":      "September",
	"octobre":   "October",
	"oct":       "October",
	"novembre":  "November",
	"nov":       "November",
	"decembre":  "December",
	"dec":       "December",
}

var weekdays = map[string]bool{
	"lundi": true, "mardi": true, "mercredi": true, "jeudi": true, "vendredi": true, "samedi": true, "dimanche": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
	"lun": true, "mer": true, "jeu": true, "ven": true, "sam": true, "dim": true,
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true,
}

var fallbackLayouts = []string{
	"2 January 2006",
	"January 2 2006",
	"2 Jan 2006",
	"Jan 2 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ExcelSerialToDate converts an Excel day serial (1900 date system).
func ExcelSerialToDate(serial float64) time.Time {
	return excelEpoch.AddDate(0, 0, int(serial))
}

// ParseDateCell reads a date from a numeric serial or a date-like string.
func ParseDateCell(c Cell) (time.Time, bool) {
	switch c.Kind {
	case KindNumber:
		if c.Number >= minExcelSerial && c.Number <= maxExcelSerial {
			return ExcelSerialToDate(c.Number), true
		}
		return time.Time{}, false
	case KindText:
		return ParseDateString(c.Text)
	}
	return time.Time{}, false
}

// ParseDateString accepts yyyy-mm-dd, dd-mm-yyyy (also with '/' or '.'),
// an optional time-of-day suffix, and spelled-out French or English dates.
// An ambiguous yyyy/A/B is read as yyyy/mm/dd unless A cannot be a month.
func ParseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if fields := strings.Fields(s); len(fields) == 2 && reClock.MatchString(fields[1]) {
		s = fields[0]
	}

	numeric := strings.NewReplacer("/", "-", ".", "-").Replace(s)
	if m := reYearFirst.FindStringSubmatch(numeric); m != nil {
		y, a, b := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if a > 12 && b <= 12 {
			a, b = b, a
		}
		return makeDate(y, a, b)
	}
	if m := reYearLast.FindStringSubmatch(numeric); m != nil {
		a, b, y := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		// day-first unless that is impossible
		if b > 12 && a <= 12 {
			a, b = b, a
		}
		return makeDate(y, b, a)
	}

	return parseSpelledDate(s)
}

func parseSpelledDate(s string) (time.Time, bool) {
	var parts []string
	for _, tok := range strings.Fields(FoldWords(s)) {
		if weekdays[tok] {
			continue
		}
		if en, ok := frenchMonths[tok]; ok {
			tok = en
		}
		parts = append(parts, tok)
	}
	candidates := []string{strings.Join(parts, " "), s}
	for _, cand := range candidates {
		for _, layout := range fallbackLayouts {
			if t, err := time.Parse(layout, cand); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	return time.Time{}, false
}

func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
