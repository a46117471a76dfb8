// Package testutil holds helpers shared by unit and integration tests:
// synthetic document images, MRZ fixtures and a scripted recognizer.
package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
)

// Identity is the content of a synthetic MRZ.
type Identity struct {
	Kind       string // "ID", "IR" or "P<"
	Country    string
	Number     string
	Surname    string
	GivenNames []string
	Birth      *mrz.Date
	Expiry     *mrz.Date
	Sex        mrz.Sex
}

// Dupont is the holder used across scenarios.
func Dupont() Identity {
	return Identity{
		Kind:       "ID",
		Country:    "FRA",
		Number:     "X4RTBPFW4",
		Surname:    "DUPONT",
		GivenNames: []string{"JEAN"},
		Birth:      &mrz.Date{Year: 1990, Month: time.May, Day: 12},
		Expiry:     &mrz.Date{Year: 2031, Month: time.March, Day: 1},
		Sex:        mrz.SexMale,
	}
}

func fill(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("<", n-len(s))
}

func yymmdd(d *mrz.Date) string {
	if d == nil {
		return "<<<<<<"
	}
	return fmt.Sprintf("%02d%02d%02d", d.Year%100, int(d.Month), d.Day)
}

func withCheck(field string) string {
	return field + fmt.Sprint(mrz.CheckDigit(field))
}

func sexField(s mrz.Sex) string {
	if s == mrz.SexUnknown {
		return "<"
	}
	return string(s)
}

func (id Identity) names(width int) string {
	return fill(strings.ReplaceAll(id.Surname, " ", "<")+"<<"+strings.Join(id.GivenNames, "<"), width)
}

// TD1 returns the three 30-character lines of an identity card MRZ.
func (id Identity) TD1() []string {
	kind := id.Kind
	if kind == "" {
		kind = "ID"
	}
	number := fill(id.Number, 9)
	return []string{
		fill(kind+id.Country+withCheck(number), 30),
		fill(withCheck(yymmdd(id.Birth))+sexField(id.Sex)+withCheck(yymmdd(id.Expiry))+id.Country, 29) + "0",
		id.names(30),
	}
}

// TD2 returns the two 36-character lines of an older identity card MRZ.
func (id Identity) TD2() []string {
	kind := id.Kind
	if kind == "" {
		kind = "ID"
	}
	return []string{
		fill(kind+id.Country+id.names(31), 36),
		fill(withCheck(fill(id.Number, 12))+id.Country+withCheck(yymmdd(id.Birth))+sexField(id.Sex)+withCheck(yymmdd(id.Expiry)), 35) + "0",
	}
}

// TD3 returns the two 44-character lines of a passport MRZ.
func (id Identity) TD3() []string {
	return []string{
		fill("P<"+id.Country+id.names(39), 44),
		fill(withCheck(fill(id.Number, 9))+id.Country+withCheck(yymmdd(id.Birth))+sexField(id.Sex)+withCheck(yymmdd(id.Expiry)), 43) + "0",
	}
}

// Text joins MRZ lines the way a recognizer reports them.
func Text(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}
