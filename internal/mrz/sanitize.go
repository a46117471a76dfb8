package mrz

import "strings"

// ensureLetter maps a digit read in a letter-only position to the letter
// (or filler) it is most often confused with in the OCR-B font.
func ensureLetter(c byte) byte {
	if (c >= 'A' && c <= 'Z') || c == '<' {
		return c
	}
	switch c {
	case '0':
		return 'O'
	case '1':
		return 'I'
	case '2':
		return 'Z'
	case '3', '8':
		return 'B'
	case '5':
		return 'S'
	case '6':
		return 'G'
	}
	return '<'
}

// ensureDigit maps a letter read in a digit-only position to its digit look-alike.
func ensureDigit(c byte) byte {
	if (c >= '0' && c <= '9') || c == '<' {
		return c
	}
	switch c {
	case 'O', 'Q', 'D':
		return '0'
	case 'I', 'L':
		return '1'
	case 'Z':
		return '2'
	case 'B':
		return '8'
	case 'S':
		return '5'
	case 'G':
		return '6'
	case 'A':
		return '4'
	case 'T':
		return '7'
	}
	return '0'
}

// sanitize rewrites the typed positions of l's data line and the name field.
// lines must already be padded to the layout width.
func sanitize(l Layout, lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)

	data := []byte(out[l.DataLine])
	for _, cls := range l.DataClasses {
		for i := cls.from; i <= cls.to && i < len(data); i++ {
			if cls.digits {
				data[i] = ensureDigit(data[i])
			} else {
				data[i] = ensureLetter(data[i])
			}
		}
	}
	out[l.DataLine] = string(data)

	name := []byte(out[l.NameLine])
	for i := l.NameFrom; i < len(name); i++ {
		name[i] = ensureLetter(name[i])
	}
	out[l.NameLine] = restoreTrailingFillers(string(name), l.NameFrom)

	return out
}

// restoreTrailingFillers turns a trailing run of filler look-alikes back into
// fillers. The run must hold at least five misread letters, at least half of
// them 'L', which real names practically never do.
func restoreTrailingFillers(line string, nameStart int) string {
	if len(line) <= nameStart {
		return line
	}

	runStart := len(line)
	for i := len(line) - 1; i >= nameStart; i-- {
		if !strings.ContainsRune("<LSCK", rune(line[i])) {
			break
		}
		runStart = i
	}
	if len(line)-runStart < 5 {
		return line
	}

	letters, ls := 0, 0
	for i := runStart; i < len(line); i++ {
		if line[i] != '<' {
			letters++
			if line[i] == 'L' {
				ls++
			}
		}
	}
	if letters < 5 || ls*2 < letters {
		return line
	}
	return line[:runStart] + strings.Repeat("<", len(line)-runStart)
}
