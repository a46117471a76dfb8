package mrz

import (
	"log/slog"
	"strings"
)

// Options controls how permissive the parser is.
type Options struct {
	// Countries is the allow-list of issuing states. Empty accepts any.
	Countries []string
	// TolerantPrefix accepts "I" + any character + country on TD1 line 1,
	// for cards whose '<' after the I was misread.
	TolerantPrefix bool
	// Sanitize fixes digit/letter confusions in typed positions.
	Sanitize bool
	Logger   *slog.Logger
}

// DefaultOptions returns the options used by the verification engine.
func DefaultOptions() Options {
	return Options{
		Countries:      []string{"CMR", "FRA"},
		TolerantPrefix: true,
		Sanitize:       true,
	}
}

// Parser detects the MRZ layout of candidate lines and decodes its fields.
// A Parser is immutable and safe for concurrent use.
type Parser struct {
	opts      Options
	countries map[string]struct{}
	logger    *slog.Logger
}

// NewParser builds a parser from opts.
func NewParser(opts Options) *Parser {
	p := &Parser{opts: opts, countries: make(map[string]struct{}, len(opts.Countries)), logger: opts.Logger}
	for _, c := range opts.Countries {
		p.countries[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ParseText extracts candidate lines from raw OCR text and parses them.
func (p *Parser) ParseText(text string) (*Record, bool) {
	return p.Parse(ExtractLines(text))
}

// Parse detects TD1, then TD3, then TD2 among consecutive candidate lines.
// The boolean is false when no layout matched; a matched record may still be
// invalid when its date of birth could not be read.
func (p *Parser) Parse(lines []string) (*Record, bool) {
	if len(lines) >= 3 {
		if found := p.findTD1(lines); found != nil {
			return p.extract(TD1Fields, found), true
		}
	}
	if len(lines) >= 2 {
		if found := p.findPair(lines, TD3Fields, p.isPassportLine); found != nil {
			return p.extract(TD3Fields, found), true
		}
		if found := p.findPair(lines, TD2Fields, p.isCardLine); found != nil {
			return p.extract(TD2Fields, found), true
		}
	}
	p.logger.Debug("No MRZ layout detected", "candidate_lines", len(lines))
	return nil, false
}

func (p *Parser) findTD1(lines []string) []string {
	for i := 0; i+3 <= len(lines); i++ {
		if len(lines[i]) < TD1Fields.MinWidth || len(lines[i+1]) < TD1Fields.MinWidth || len(lines[i+2]) < TD1Fields.MinWidth {
			continue
		}
		l1 := padOrTrim(lines[i], TD1Fields.Width)
		switch {
		case p.isCardLine(l1):
		case p.opts.TolerantPrefix && p.looksLikeCardLine(l1):
			l1 = "I<" + l1[2:]
		default:
			continue
		}
		return []string{
			l1,
			padOrTrim(lines[i+1], TD1Fields.Width),
			padOrTrim(lines[i+2], TD1Fields.Width),
		}
	}
	return nil
}

func (p *Parser) findPair(lines []string, l Layout, accept func(string) bool) []string {
	for i := 0; i+2 <= len(lines); i++ {
		if len(lines[i]) < l.MinWidth || len(lines[i+1]) < l.MinWidth || !accept(lines[i]) {
			continue
		}
		return []string{padOrTrim(lines[i], l.Width), padOrTrim(lines[i+1], l.Width)}
	}
	return nil
}

// isCardLine matches ID, I< and IR prefixes followed by an allowed country.
func (p *Parser) isCardLine(line string) bool {
	if len(line) < 5 {
		return false
	}
	switch line[:2] {
	case "ID", "I<", "IR":
		return p.allowed(line[2:5])
	}
	return false
}

// looksLikeCardLine matches "I" + any character other than R + country.
func (p *Parser) looksLikeCardLine(line string) bool {
	if len(line) < 5 || line[0] != 'I' || line[1] == 'R' {
		return false
	}
	return p.allowed(strings.ReplaceAll(line[2:5], "<", ""))
}

// isPassportLine matches "P" + any subtype character + country.
func (p *Parser) isPassportLine(line string) bool {
	if len(line) < 5 || line[0] != 'P' {
		return false
	}
	return p.allowed(strings.ReplaceAll(line[2:5], "<", ""))
}

func (p *Parser) allowed(country string) bool {
	if len(p.countries) == 0 {
		return country != "" && !strings.ContainsAny(country, "0123456789")
	}
	_, ok := p.countries[country]
	return ok
}

func (p *Parser) extract(l Layout, lines []string) *Record {
	if p.opts.Sanitize {
		lines = sanitize(l, lines)
	}

	kind := l.Kind.read(lines)
	rec := &Record{
		Format:         l.Format,
		DocumentType:   DocumentCNI,
		IssuingCountry: stripFiller(l.Country.read(lines)),
		DocumentNumber: stripFiller(l.Number.read(lines)),
		DateOfBirth:    ParseDate(l.Birth.read(lines), RoleBirth),
		DateOfExpiry:   ParseDate(l.Expiry.read(lines), RoleExpiry),
		Sex:            parseSex(l.Sex.read(lines)),
		RawMRZ:         strings.Join(lines, "\n"),
		CheckDigits:    checkDigits(l, lines),
	}
	rec.Surname, rec.GivenNames = splitNames(l.Names.read(lines))

	switch {
	case l.Format == FormatTD3:
		rec.DocumentType = DocumentPassport
	case kind == "IR":
		rec.DocumentType = DocumentResidencePermit
	}

	// Cameroonian cards issued with the I< code print the national
	// identification number in the optional data of line 1.
	if l.Format == FormatTD1 && kind == "I<" && rec.IssuingCountry == "CMR" {
		if nic := stripFiller(strings.TrimSpace(lines[0][15:])); nic != "" {
			rec.DocumentNumber = nic
		}
	}

	p.logger.Debug("Parsed MRZ",
		"format", rec.Format,
		"document_type", rec.DocumentType,
		"country", rec.IssuingCountry,
		"valid", rec.Valid())
	return rec
}

// splitNames separates SURNAME<<GIVEN<NAMES. Without a separator after the
// first character the whole field is the surname.
func splitNames(field string) (string, string) {
	idx := strings.Index(field, "<<")
	if idx <= 0 {
		return fillerToSpace(field), ""
	}
	return fillerToSpace(field[:idx]), fillerToSpace(field[idx+2:])
}

func fillerToSpace(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "<", " "))
}

func stripFiller(s string) string {
	return strings.ReplaceAll(s, "<", "")
}
