package cascade

import (
	"context"
	"image"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/recognizer"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

var (
	printedDateRe = regexp.MustCompile(`(\d{2})\s*[./\-,;:\s]\s*(\d{2})\s*[./\-,;:\s]\s*(\d{4})`)
	sexLabelRe    = regexp.MustCompile(`(?i)SEX[E]?[\s/|:]*([MF])\b`)
)

// minimumAge separates birth dates from issue dates printed on the card.
const minimumAge = 5

// Supplementer completes partial records from the human readable text of the
// document: printed dates and the sex marker.
type Supplementer struct {
	rec    recognizer.Recognizer
	now    func() time.Time
	logger *slog.Logger
}

// NewSupplementer returns a supplementer reading through rec. A nil now uses
// time.Now.
func NewSupplementer(rec recognizer.Recognizer, now func() time.Time, logger *slog.Logger) *Supplementer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supplementer{rec: rec, now: now, logger: logger}
}

// Supplement returns a copy of rec with date of birth, expiry and sex filled
// from the printed text of images. Among all dates found, the earliest one
// more than five years in the past becomes the date of birth and the latest
// future one the expiry. Existing values are kept unless a better candidate
// is found; sex is only filled when missing.
func (s *Supplementer) Supplement(ctx context.Context, rec *mrz.Record, images []image.Image) *mrz.Record {
	out := rec.Clone()
	if out == nil {
		return nil
	}

	today := mrz.DateOf(s.now())
	birthCutoff := today.AddYears(-minimumAge)

	for i, img := range images {
		if img == nil {
			continue
		}
		for _, v := range variants {
			if ctx.Err() != nil {
				return out
			}
			text, err := s.rec.Recognize(ctx, v.prep(img), recognizer.CharsetFull, recognizer.SegmentAutomatic)
			if err != nil {
				s.logger.Debug("Supplement recognition failed", "image", i, "variant", v.name, "error", err)
				continue
			}
			for _, d := range PrintedDates(text) {
				switch {
				case d.Before(birthCutoff):
					if out.DateOfBirth == nil || d.Before(*out.DateOfBirth) {
						out.DateOfBirth = &d
					}
				case d.After(today):
					if out.DateOfExpiry == nil || d.After(*out.DateOfExpiry) {
						out.DateOfExpiry = &d
					}
				}
			}
			if out.Sex == mrz.SexUnknown {
				out.Sex = PrintedSex(text)
			}
		}
	}

	s.logger.Debug("Supplemented record",
		"had_birth", rec.DateOfBirth != nil,
		"has_birth", out.DateOfBirth != nil,
		"has_expiry", out.DateOfExpiry != nil,
		"valid", out.Valid())
	return out
}

// ReadText returns the full-charset text of every variant of img, one
// variant after another. Recognition failures are skipped.
func (s *Supplementer) ReadText(ctx context.Context, img image.Image) string {
	if img == nil {
		return ""
	}
	var parts []string
	for _, v := range variants {
		if ctx.Err() != nil {
			break
		}
		text, err := s.rec.Recognize(ctx, v.prep(img), recognizer.CharsetFull, recognizer.SegmentAutomatic)
		if err != nil {
			s.logger.Debug("Text recognition failed", "variant", v.name, "error", err)
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

var variants = []struct {
	name string
	prep func(image.Image) image.Image
}{
	{"raw", func(img image.Image) image.Image { return img }},
	{"binarize", func(img image.Image) image.Image { return utils.PreprocessForMRZ(img) }},
	{"sharpen", func(img image.Image) image.Image { return utils.Sharpen(img) }},
}

// PrintedDates returns every DD.MM.YYYY style date in text that exists in
// the calendar with a year in [1900, 2100].
func PrintedDates(text string) []mrz.Date {
	var out []mrz.Date
	for _, m := range printedDateRe.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > 2100 {
			continue
		}
		if d, ok := mrz.NewDate(year, time.Month(month), day); ok {
			out = append(out, d)
		}
	}
	return out
}

// PrintedSex returns the marker following a SEX or SEXE label.
func PrintedSex(text string) mrz.Sex {
	m := sexLabelRe.FindStringSubmatch(text)
	if m == nil {
		return mrz.SexUnknown
	}
	if m[1] == "M" || m[1] == "m" {
		return mrz.SexMale
	}
	return mrz.SexFemale
}
