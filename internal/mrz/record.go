package mrz

import (
	"encoding/json"
	"strings"
)

// Format identifies the MRZ layout a record was parsed from.
type Format string

const (
	FormatTD1 Format = "TD1"
	FormatTD2 Format = "TD2"
	FormatTD3 Format = "TD3"
	// FormatVisual marks records assembled from printed labels instead of an MRZ.
	FormatVisual Format = "VISUAL"
)

// DocumentType is the kind of identity document.
type DocumentType string

const (
	DocumentCNI             DocumentType = "CNI"
	DocumentResidencePermit DocumentType = "RESIDENCE_PERMIT"
	DocumentPassport        DocumentType = "PASSPORT"
)

// ParseDocumentType maps a user-supplied hint to a DocumentType. Values are
// matched case-insensitively on their prefix, so "PASSPORT_CMR" is a passport.
func ParseDocumentType(s string) (DocumentType, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case v == "":
		return "", false
	case strings.HasPrefix(v, string(DocumentPassport)):
		return DocumentPassport, true
	case strings.HasPrefix(v, string(DocumentResidencePermit)), v == "IR":
		return DocumentResidencePermit, true
	case strings.HasPrefix(v, string(DocumentCNI)), v == "ID", v == "ID_CARD":
		return DocumentCNI, true
	}
	return "", false
}

// Sex is the holder's sex marker; empty when unreadable.
type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = ""
)

func parseSex(s string) Sex {
	switch s {
	case "M":
		return SexMale
	case "F":
		return SexFemale
	}
	return SexUnknown
}

// Record holds the fields decoded from one MRZ.
type Record struct {
	Format         Format            `json:"format"`
	DocumentType   DocumentType      `json:"document_type"`
	IssuingCountry string            `json:"issuing_country"`
	DocumentNumber string            `json:"document_number"`
	Surname        string            `json:"surname"`
	GivenNames     string            `json:"given_names"`
	DateOfBirth    *Date             `json:"date_of_birth,omitempty"`
	DateOfExpiry   *Date             `json:"date_of_expiry,omitempty"`
	Sex            Sex               `json:"sex,omitempty"`
	RawMRZ         string            `json:"raw_mrz"`
	CheckDigits    *CheckDigitReport `json:"check_digits,omitempty"`
}

// Valid reports whether the record carries a surname and a date of birth.
func (r *Record) Valid() bool {
	return r != nil && r.Surname != "" && r.DateOfBirth != nil
}

// HasSurname reports whether a surname was decoded.
func (r *Record) HasSurname() bool {
	return r != nil && r.Surname != ""
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.DateOfBirth != nil {
		d := *r.DateOfBirth
		c.DateOfBirth = &d
	}
	if r.DateOfExpiry != nil {
		d := *r.DateOfExpiry
		c.DateOfExpiry = &d
	}
	if r.CheckDigits != nil {
		cd := *r.CheckDigits
		c.CheckDigits = &cd
	}
	return &c
}

// MarshalJSON adds the derived "valid" field.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		Valid bool `json:"valid"`
	}{plain: plain(r), Valid: r.Valid()})
}
