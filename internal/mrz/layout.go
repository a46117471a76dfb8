package mrz

// span addresses the characters [start, end) of one MRZ line.
type span struct {
	line, start, end int
}

func (s span) read(lines []string) string {
	if s.line >= len(lines) {
		return ""
	}
	l := lines[s.line]
	end := min(s.end, len(l))
	if s.start >= end {
		return ""
	}
	return l[s.start:end]
}

// charClass is an inclusive run of positions holding only digits or only letters.
type charClass struct {
	from, to int
	digits   bool
}

// Layout declares the geometry and field offsets of one MRZ format.
type Layout struct {
	Format   Format
	Lines    int
	Width    int
	MinWidth int

	Kind    span
	Country span
	Number  span
	Names   span
	Birth   span
	Sex     span
	Expiry  span

	NumberCheck span
	BirthCheck  span
	ExpiryCheck span

	// Names occupy NameLine from NameFrom; DataLine holds the typed fields.
	NameLine    int
	NameFrom    int
	DataLine    int
	DataClasses []charClass
}

// TD1Fields describes identity cards and residence permits: 3 x 30.
var TD1Fields = Layout{
	Format:   FormatTD1,
	Lines:    3,
	Width:    30,
	MinWidth: 28,

	Kind:    span{0, 0, 2},
	Country: span{0, 2, 5},
	Number:  span{0, 5, 14},
	Birth:   span{1, 0, 6},
	Sex:     span{1, 7, 8},
	Expiry:  span{1, 8, 14},
	Names:   span{2, 0, 30},

	NumberCheck: span{0, 14, 15},
	BirthCheck:  span{1, 6, 7},
	ExpiryCheck: span{1, 14, 15},

	NameLine: 2,
	NameFrom: 0,
	DataLine: 1,
	DataClasses: []charClass{
		{0, 6, true},
		{7, 7, false},
		{8, 14, true},
		{15, 17, false},
		{29, 29, true},
	},
}

// TD2Fields describes older identity cards: 2 x 36.
var TD2Fields = Layout{
	Format:   FormatTD2,
	Lines:    2,
	Width:    36,
	MinWidth: 34,

	Kind:    span{0, 0, 2},
	Country: span{0, 2, 5},
	Names:   span{0, 5, 36},
	Number:  span{1, 0, 12},
	Birth:   span{1, 16, 22},
	Sex:     span{1, 23, 24},
	Expiry:  span{1, 24, 30},

	NumberCheck: span{1, 12, 13},
	BirthCheck:  span{1, 22, 23},
	ExpiryCheck: span{1, 30, 31},

	NameLine: 0,
	NameFrom: 5,
	DataLine: 1,
	DataClasses: []charClass{
		{12, 12, true},
		{13, 15, false},
		{16, 22, true},
		{23, 23, false},
		{24, 30, true},
		{35, 35, true},
	},
}

// TD3Fields describes passports: 2 x 44.
var TD3Fields = Layout{
	Format:   FormatTD3,
	Lines:    2,
	Width:    44,
	MinWidth: 42,

	Kind:    span{0, 0, 2},
	Country: span{0, 2, 5},
	Names:   span{0, 5, 44},
	Number:  span{1, 0, 9},
	Birth:   span{1, 13, 19},
	Sex:     span{1, 20, 21},
	Expiry:  span{1, 21, 27},

	NumberCheck: span{1, 9, 10},
	BirthCheck:  span{1, 19, 20},
	ExpiryCheck: span{1, 27, 28},

	NameLine: 0,
	NameFrom: 5,
	DataLine: 1,
	DataClasses: []charClass{
		{9, 9, true},
		{10, 12, false},
		{13, 19, true},
		{20, 20, false},
		{21, 27, true},
		{42, 43, true},
	},
}
