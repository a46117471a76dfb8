// Package mrz extracts and parses ICAO machine-readable zones from OCR text.
//
// Three layouts are supported: TD1 (3 lines of 30 characters, identity
// cards and residence permits), TD2 (2 lines of 36 characters, older
// identity cards) and TD3 (2 lines of 44 characters, passports). Field
// positions are declared once per layout in TD1Fields, TD2Fields and
// TD3Fields and read by a single extraction routine.
//
// Parsing is tolerant of OCR noise: dates that cannot be read are reported
// as absent rather than as errors, and the
// record's validity is derived from the presence of a surname and a date of
// birth. Check digits are computed for reporting but never enforced.
package mrz
