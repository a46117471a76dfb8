package cascade

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/MeKo-Tech/idcheck/internal/match"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
)

// VisualFields are identity fields read from the printed labels of a card.
type VisualFields struct {
	Surname        string
	GivenNames     string
	DateOfBirth    *mrz.Date
	DateOfExpiry   *mrz.Date
	Sex            mrz.Sex
	DocumentNumber string
}

// Record converts the fields into a VISUAL record of the given type.
func (v VisualFields) Record(docType mrz.DocumentType) *mrz.Record {
	if docType == "" {
		docType = mrz.DocumentCNI
	}
	return &mrz.Record{
		Format:         mrz.FormatVisual,
		DocumentType:   docType,
		DocumentNumber: v.DocumentNumber,
		Surname:        v.Surname,
		GivenNames:     v.GivenNames,
		DateOfBirth:    v.DateOfBirth,
		DateOfExpiry:   v.DateOfExpiry,
		Sex:            v.Sex,
	}
}

// Labels on the same line as their value. Go regexps have no lookbehind, so
// the surname label consumes the preceding non-letter to avoid matching the
// NOM inside PRENOMS.
var (
	surnameLabelRe = regexp.MustCompile(`(?i)(?:^|[^A-ZÀ-Ü])(?:NOM[ \t]*(?:[/|I][ \t]*SURNAME)?|SURNAME)[ \t]*:?[ \t]+([A-ZÀ-Ü][A-ZÀ-Ü \-]+)`)
	givenLabelRe   = regexp.MustCompile(`(?i)(?:PR[EÉ]NOMS?[ \t]*(?:[/|I][ \t]*GIVEN[ \t]*NAMES?)?|GIVEN[ \t]*NAMES?)[ \t]*:?[ \t]+([A-ZÀ-Ü][A-ZÀ-Ü \-]+)`)
	birthLabelRe   = regexp.MustCompile(`(?i)(?:DATE[ \t]*DE[ \t]*NAISSANCE|DATE[ \t]*OF[ \t]*BIRTH|N[EÉ][E(]?[)]?[ \t]*LE)[ \t]*[:/]?[ \t]*(\d{2}\s*[./\-\s]\s*\d{2}\s*[./\-\s]\s*\d{4})`)
	expiryLabelRe  = regexp.MustCompile(`(?i)(?:DATE[ \t]*D['’]?EXPIRATION|DATE[ \t]*OF[ \t]*EXPIRY|EXPIRE[ \t]*LE)[ \t]*[:/]?[ \t]*(\d{2}\s*[./\-\s]\s*\d{2}\s*[./\-\s]\s*\d{4})`)
	sexInlineRe    = regexp.MustCompile(`(?i)SEXE?[ \t]*[:/]?[ \t]*([MF])\b`)
	numberLabelRe  = regexp.MustCompile(`(?i)(?:IDENTIFIANT[ \t]*UNIQUE|UNIQUE[ \t]*IDENTIFIER|N[°o]?[ \t]*CNI)[ \t]*[:/]?[ \t]*([A-Z0-9]{5,})`)

	strictDateRe  = regexp.MustCompile(`(\d{2}\s*[./\-]\s*\d{2}\s*[./\-]\s*\d{4})`)
	dateSepRe     = regexp.MustCompile(`[./\-\s]+`)
	nonNameRuneRe = regexp.MustCompile(`[^A-ZÀ-Üa-zà-ü \-]`)
)

// Words that mark a captured value as a piece of the bilingual label.
var labelFragments = []string{
	"SURNAME", "GIVEN", "NAMES", "BIRTH", "NAISSANCE", "DATE", "EXPIR",
	"IDENTITY", "CAMEROUN", "CAMEROON", "NATIONAL", "REPUBLIC",
}

var labelKeywords = []string{
	"NOM", "SURNAME", "PRENOM", "GIVEN", "NAME", "DATE", "NAISSANCE", "BIRTH",
	"SEXE", "SEX", "TAILLE", "HEIGHT", "LIEU", "PLACE", "PROFESSION", "OCCUPATION",
}

var nameParticles = map[string]bool{
	"DE": true, "DI": true, "DU": true, "DA": true, "EL": true,
	"AL": true, "LE": true, "LA": true, "EP": true,
}

// LabelParser reads identity fields from the printed side of a card when no
// MRZ could be read at all.
type LabelParser struct {
	now func() time.Time
}

// NewLabelParser returns a parser using now as the reference date for the
// unlabeled date heuristic. A nil now uses time.Now.
func NewLabelParser(now func() time.Time) *LabelParser {
	if now == nil {
		now = time.Now
	}
	return &LabelParser{now: now}
}

// Parse extracts fields from the recognized text of the front and back of a
// card. Front text is preferred for names and birth date, back text for
// expiry and document number.
func (p *LabelParser) Parse(front, back string) VisualFields {
	var v VisualFields
	both := front + "\n" + back

	if s := firstOf(surnameLabelRe, front, both); isPlausibleName(s) {
		v.Surname = cleanName(s)
	}
	if s := firstOf(givenLabelRe, front, both); isPlausibleName(s) {
		v.GivenNames = cleanName(s)
	}
	v.DateOfBirth = parseDMY(firstOf(birthLabelRe, front, both))
	v.DateOfExpiry = parseDMY(firstOf(expiryLabelRe, back, both))
	if s := firstOf(sexInlineRe, front, both); s != "" {
		v.Sex = mrz.Sex(strings.ToUpper(s))
	}
	if s := firstOf(numberLabelRe, back, both); s != "" {
		v.DocumentNumber = strings.ToUpper(s)
	}

	// Older cards print the label and its value on separate lines.
	lines := strings.Split(both, "\n")
	if v.Surname == "" {
		v.Surname = cleanName(valueAfterKeyword(lines, "NOM", "SURNAM"))
	}
	if v.GivenNames == "" {
		v.GivenNames = cleanName(valueAfterKeyword(lines, "PRENOM", "GIVEN"))
	}
	if v.DateOfBirth == nil {
		v.DateOfBirth = parseDMY(dateAfterKeyword(lines, "NAISSANCE", "AISSANCE", "BIRTH"))
	}
	if v.DateOfExpiry == nil {
		v.DateOfExpiry = parseDMY(dateAfterKeyword(lines, "EXPIR", "EXPI"))
	}

	if v.DateOfBirth == nil || v.DateOfExpiry == nil {
		today := mrz.DateOf(p.now())
		cutoff := today.AddYears(-minimumAge)
		for _, d := range PrintedDates(both) {
			switch {
			case v.DateOfBirth == nil && d.Before(cutoff):
				v.DateOfBirth = &d
			case v.DateOfExpiry == nil && d.After(today):
				v.DateOfExpiry = &d
			}
		}
	}

	// Layout is surname, given names, then date of birth.
	if v.GivenNames == "" && v.Surname != "" {
		v.GivenNames = givenByPosition(lines, v.Surname)
	}
	return v
}

// Valid reports whether the fields identify a holder.
func (v VisualFields) Valid() bool {
	return v.Surname != "" && v.DateOfBirth != nil
}

func firstOf(re *regexp.Regexp, texts ...string) string {
	for _, t := range texts {
		if m := re.FindStringSubmatch(t); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func parseDMY(s string) *mrz.Date {
	parts := strings.Split(dateSepRe.ReplaceAllString(strings.TrimSpace(s), "."), ".")
	if len(parts) != 3 {
		return nil
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || year < 1900 || year > 2100 {
		return nil
	}
	d, ok := mrz.NewDate(year, time.Month(month), day)
	if !ok {
		return nil
	}
	return &d
}

func isPlausibleName(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if len([]rune(upper)) < 2 {
		return false
	}
	for _, w := range labelFragments {
		if strings.Contains(upper, w) {
			return false
		}
	}
	return true
}

func looksLikeLabel(s string) bool {
	n := 0
	for _, kw := range labelKeywords {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n >= 2
}

// cleanName keeps words of three or more letters and known particles, and
// stops at the first short fragment following a real word.
func cleanName(raw string) string {
	var kept []string
	seenWord := false
	for _, w := range strings.Fields(strings.ToUpper(raw)) {
		long := len([]rune(w)) >= 3
		switch {
		case long || nameParticles[w]:
			kept = append(kept, w)
			seenWord = seenWord || long
		case seenWord:
			return strings.Join(kept, " ")
		}
	}
	return strings.Join(kept, " ")
}

// containsKeyword matches kw in an accent-folded line. Keywords of four
// characters or fewer must not follow a letter.
func containsKeyword(line, kw string) bool {
	norm := []rune(match.Normalize(line))
	key := []rune(kw)
	for i := 0; i+len(key) <= len(norm); i++ {
		if string(norm[i:i+len(key)]) != kw {
			continue
		}
		if len(key) > 4 || i == 0 || !unicode.IsLetter(norm[i-1]) {
			return true
		}
	}
	return false
}

func keywordLine(lines []string, keywords []string, from int) int {
	for i := from; i < len(lines); i++ {
		for _, kw := range keywords {
			if containsKeyword(lines[i], kw) {
				return i
			}
		}
	}
	return -1
}

func nameValue(line string) string {
	return strings.ToUpper(strings.TrimSpace(nonNameRuneRe.ReplaceAllString(line, "")))
}

func valueAfterKeyword(lines []string, keywords ...string) string {
	i := keywordLine(lines[:max(len(lines)-1, 0)], keywords, 0)
	if i < 0 {
		return ""
	}
	for j := i + 1; j < min(i+3, len(lines)); j++ {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		if v := nameValue(lines[j]); len([]rune(v)) >= 2 && isPlausibleName(v) && !looksLikeLabel(v) {
			return v
		}
	}
	return ""
}

func dateAfterKeyword(lines []string, keywords ...string) string {
	i := keywordLine(lines, keywords, 0)
	if i < 0 {
		return ""
	}
	for j := i; j < min(i+3, len(lines)); j++ {
		if m := strictDateRe.FindStringSubmatch(lines[j]); m != nil {
			return m[1]
		}
	}
	return ""
}

func givenByPosition(lines []string, surname string) string {
	surname = strings.ToUpper(surname)
	found := false
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if !found {
			found = strings.Contains(strings.ToUpper(t), surname)
			continue
		}
		if strictDateRe.MatchString(t) {
			return ""
		}
		v := nameValue(t)
		if len([]rune(v)) >= 2 && isPlausibleName(v) && !looksLikeLabel(v) && v != surname {
			if name := cleanName(v); name != "" {
				return name
			}
		}
	}
	return ""
}
