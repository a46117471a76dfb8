package verify

import (
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
)

// Status is the terminal state of a verification.
type Status string

const (
	StatusVerified Status = "VERIFIED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Verdict messages.
const (
	MessageVerified   = "Identity verified"
	MessageExpired    = "Document expired"
	MessageUnreadable = "MRZ unreadable"
	mismatchPrefix    = "Identity mismatch: "
)

// Verdict is the outcome of one verification.
type Verdict struct {
	Status          Status      `json:"status"`
	Verified        bool        `json:"verified"`
	Message         string      `json:"message"`
	NameMatch       bool        `json:"name_match"`
	GivenNameMatch  bool        `json:"given_name_match"`
	DOBMatch        bool        `json:"dob_match"`
	DocumentExpired bool        `json:"document_expired"`
	Record          *mrz.Record `json:"record,omitempty"`
	// Source names the image and strategy that produced Record.
	Source    string    `json:"source,omitempty"`
	Attempts  int       `json:"attempts"`
	CheckedAt time.Time `json:"checked_at"`
}

func mismatchMessage(name, given, dob bool) string {
	var fields []string
	if !name {
		fields = append(fields, "surname")
	}
	if !given {
		fields = append(fields, "given name")
	}
	if !dob {
		fields = append(fields, "date of birth")
	}
	return mismatchPrefix + strings.Join(fields, ", ")
}
