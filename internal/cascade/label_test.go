package cascade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
)

func TestLabelParser_Inline(t *testing.T) {
	front := "REPUBLIQUE DU CAMEROUN\n" +
		"NOM / SURNAME: MIMBE\n" +
		"PRENOMS / GIVEN NAMES: LUCIEN YANNICK\n" +
		"DATE DE NAISSANCE / DATE OF BIRTH 12.05.1990\n" +
		"SEXE / SEX: M\n"
	back := "DATE D'EXPIRATION 01.02.2030\nIDENTIFIANT UNIQUE: AB12345678\n"

	v := NewLabelParser(fixedClock).Parse(front, back)

	assert.Equal(t, "MIMBE", v.Surname)
	assert.Equal(t, "LUCIEN YANNICK", v.GivenNames)
	assert.Equal(t, d(1990, time.May, 12), v.DateOfBirth)
	assert.Equal(t, d(2030, time.February, 1), v.DateOfExpiry)
	assert.Equal(t, mrz.SexMale, v.Sex)
	assert.Equal(t, "AB12345678", v.DocumentNumber)
	assert.True(t, v.Valid())
}

func TestLabelParser_ValueOnNextLine(t *testing.T) {
	front := "NOM\n" +
		"ETONGO SR LEE\n" +
		"PRÉNOMS\n" +
		"DE LA FONTAINE\n" +
		"NAISSANCE\n" +
		"03/07/1985\n"

	v := NewLabelParser(fixedClock).Parse(front, "")

	assert.Equal(t, "ETONGO", v.Surname)
	assert.Equal(t, "DE LA FONTAINE", v.GivenNames)
	assert.Equal(t, d(1985, time.July, 3), v.DateOfBirth)
}

func TestLabelParser_Heuristics(t *testing.T) {
	front := "SURNAME ABENA\n" +
		"MARIE CLAIRE\n" +
		"12 05 1979\n" +
		"valable 15.08.2031\n"

	v := NewLabelParser(fixedClock).Parse(front, "")

	assert.Equal(t, "ABENA", v.Surname)
	assert.Equal(t, "MARIE CLAIRE", v.GivenNames, "given names follow the surname line")
	assert.Equal(t, d(1979, time.May, 12), v.DateOfBirth)
	assert.Equal(t, d(2031, time.August, 15), v.DateOfExpiry)
}

func TestLabelParser_RejectsLabelsAsNames(t *testing.T) {
	v := NewLabelParser(fixedClock).Parse("NOM\nDATE OF BIRTH\n", "")
	assert.Empty(t, v.Surname)
	assert.False(t, v.Valid())
}

func TestVisualFields_Record(t *testing.T) {
	v := VisualFields{Surname: "MIMBE", DateOfBirth: d(1990, time.May, 12)}

	r := v.Record("")
	assert.Equal(t, mrz.FormatVisual, r.Format)
	assert.Equal(t, mrz.DocumentCNI, r.DocumentType)
	assert.True(t, r.Valid())

	assert.Equal(t, mrz.DocumentResidencePermit, v.Record(mrz.DocumentResidencePermit).DocumentType)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "ETONGO", cleanName("etongo sr lee"))
	assert.Equal(t, "KAMENI EPSE MIMBE", cleanName("KAMENI EPSE MIMBE"))
	assert.Equal(t, "DE LA FONTAINE", cleanName("DE LA FONTAINE"))
	assert.Equal(t, "", cleanName("A B"))
}

func TestContainsKeyword(t *testing.T) {
	assert.True(t, containsKeyword("Nom / Surname", "NOM"))
	assert.False(t, containsKeyword("Prénoms", "NOM"))
	assert.True(t, containsKeyword("Prénoms", "PRENOM"))
	assert.True(t, containsKeyword("lieu de naissance", "AISSANCE"))
}
