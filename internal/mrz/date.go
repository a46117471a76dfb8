package mrz

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for y-m-d and whether it exists in the calendar.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

// AddYears shifts the date by n years, normalizing Feb 29 like time.AddDate.
func (d Date) AddYears(n int) Date { return DateOf(d.Time().AddDate(n, 0, 0)) }

func (d Date) String() string {
	return d.Time().Format(time.DateOnly)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRole selects the century pivot applied to a two-digit MRZ year.
type DateRole int

const (
	// RoleBirth pivots YY > 40 to 19YY, otherwise 20YY.
	RoleBirth DateRole = iota
	// RoleExpiry pivots YY < 60 to 20YY, otherwise 19YY.
	RoleExpiry
)

// ParseDate parses a YYMMDD field. Fillers, non-digits and impossible
// calendar dates yield nil.
func ParseDate(field string, role DateRole) *Date {
	if len(field) != 6 {
		return nil
	}
	for i := range len(field) {
		if field[i] < '0' || field[i] > '9' {
			return nil
		}
	}
	yy, _ := strconv.Atoi(field[0:2])
	mm, _ := strconv.Atoi(field[2:4])
	dd, _ := strconv.Atoi(field[4:6])

	d, ok := NewDate(pivotYear(yy, role), time.Month(mm), dd)
	if !ok {
		return nil
	}
	return &d
}

func pivotYear(yy int, role DateRole) int {
	switch role {
	case RoleExpiry:
		if yy < 60 {
			return 2000 + yy
		}
		return 1900 + yy
	default:
		if yy > 40 {
			return 1900 + yy
		}
		return 2000 + yy
	}
}
