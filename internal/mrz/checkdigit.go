package mrz

// CheckDigitReport records which ICAO 9303 check digits agree with their
// fields. It is informational only and never affects validity.
type CheckDigitReport struct {
	DocumentNumber bool `json:"document_number"`
	DateOfBirth    bool `json:"date_of_birth"`
	DateOfExpiry   bool `json:"date_of_expiry"`
}

// AllValid reports whether every check digit matched.
func (c CheckDigitReport) AllValid() bool {
	return c.DocumentNumber && c.DateOfBirth && c.DateOfExpiry
}

var checkWeights = [3]int{7, 3, 1}

// CheckDigit computes the 7-3-1 weighted check digit of an MRZ field.
// Characters outside [0-9A-Z<] count as zero.
func CheckDigit(field string) int {
	sum := 0
	for i := range len(field) {
		c := field[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		}
		sum += v * checkWeights[i%3]
	}
	return sum % 10
}

func checkMatches(field, check string) bool {
	if len(check) != 1 || check[0] < '0' || check[0] > '9' {
		return false
	}
	return CheckDigit(field) == int(check[0]-'0')
}

func checkDigits(l Layout, lines []string) *CheckDigitReport {
	return &CheckDigitReport{
		DocumentNumber: checkMatches(l.Number.read(lines), l.NumberCheck.read(lines)),
		DateOfBirth:    checkMatches(l.Birth.read(lines), l.BirthCheck.read(lines)),
		DateOfExpiry:   checkMatches(l.Expiry.read(lines), l.ExpiryCheck.read(lines)),
	}
}
