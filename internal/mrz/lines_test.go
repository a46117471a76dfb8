package mrz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLines(t *testing.T) {
	text := strings.Join([]string{
		"REPUBLIQUE DU CAMEROUN",
		"  idfra1234567891<<<<<<<<<<<<<<<  ",
		"9001011F3001019FRA «««««««««««5",
		"DUPONT((MARIE)CLAIRE{{{{{{{[[[",
		"short<<<",
		"THIS LINE HAS PUNCTUATION, SO IT IS DROPPED......",
	}, "\n")

	got := ExtractLines(text)
	assert.Equal(t, []string{
		"IDFRA1234567891<<<<<<<<<<<<<<<",
		"9001011F3001019FRA<<<<<<<<<<<5",
		"DUPONT<<MARIE<CLAIRE<<<<<<<<<<",
	}, got)
}

func TestExtractLines_LengthWindow(t *testing.T) {
	assert.Empty(t, ExtractLines(strings.Repeat("A", 27)))
	assert.Len(t, ExtractLines(strings.Repeat("A", 28)), 1)
	assert.Len(t, ExtractLines(strings.Repeat("A", 44)), 1)
	assert.Empty(t, ExtractLines(strings.Repeat("A", 45)))
}

func TestExtractLines_CarriageReturns(t *testing.T) {
	text := pad("IDFRA1234567891", 30) + "\r\n" + pad("9001011F3001019FRA", 30) + "\r\n"
	assert.Len(t, ExtractLines(text), 2)
}

func TestPadOrTrim(t *testing.T) {
	assert.Equal(t, "AB<<", padOrTrim("AB", 4))
	assert.Equal(t, "ABCD", padOrTrim("ABCDEF", 4))
	assert.Equal(t, "ABCD", padOrTrim("ABCD", 4))
}
