// Package verify reads the MRZ of an identity document and decides whether
// it belongs to a stored profile.
package verify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/cascade"
	"github.com/MeKo-Tech/idcheck/internal/common"
	"github.com/MeKo-Tech/idcheck/internal/match"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/recognizer"
)

// ErrNoImage is returned when a request carries no document image.
var ErrNoImage = errors.New("verify: no document image")

// Document sides.
const (
	SideFront = "front"
	SideBack  = "back"
)

// Profile holds the stored identity a document is checked against.
type Profile struct {
	Surname     string    `json:"surname"`
	GivenName   string    `json:"given_name"`
	DateOfBirth *mrz.Date `json:"date_of_birth,omitempty"`
}

// NewProfile builds a profile from user input. dateOfBirth is YYYY-MM-DD and
// may be empty.
func NewProfile(surname, givenName, dateOfBirth string) (Profile, error) {
	p := Profile{Surname: strings.TrimSpace(surname), GivenName: strings.TrimSpace(givenName)}
	if dob := strings.TrimSpace(dateOfBirth); dob != "" {
		d, err := mrz.ParseISODate(dob)
		if err != nil {
			return Profile{}, fmt.Errorf("date of birth: %w", err)
		}
		p.DateOfBirth = &d
	}
	return p, nil
}

// Request is one verification.
type Request struct {
	Profile Profile
	Front   image.Image
	// Back is optional.
	Back image.Image
	// DocumentType is the type declared by the user.
	DocumentType mrz.DocumentType
	// Observer, when set, also receives this request's attempt events.
	Observer cascade.Observer
	// Unreadable lists the sides that were supplied but could not be decoded.
	Unreadable []string
}

// SetImage stores the image of side. A non-nil err leaves the side empty and
// marks it unreadable; the other side is still read.
func (r *Request) SetImage(side string, img image.Image, err error) {
	if err != nil || img == nil {
		r.Unreadable = append(r.Unreadable, side)
		return
	}
	switch side {
	case SideFront:
		r.Front = img
	case SideBack:
		r.Back = img
	}
}

// Options configures a Verifier.
type Options struct {
	Factory    recognizer.Factory
	Parser     *mrz.Parser
	Strategies []cascade.Strategy
	MinHeight  int
	Match      match.Options
	// VisualSupplement completes partial MRZ reads from printed dates.
	VisualSupplement bool
	// LabelFallback reads printed labels when no MRZ is found at all.
	LabelFallback bool
	Observer      cascade.Observer
	Now           func() time.Time
	Logger        *slog.Logger
}

// DefaultOptions returns the options of the standard engine without a
// recognizer factory.
func DefaultOptions() Options {
	return Options{
		Parser:           mrz.NewParser(mrz.DefaultOptions()),
		Match:            match.DefaultOptions(),
		VisualSupplement: true,
	}
}

// Verifier runs verifications. It holds no per-request state and is safe
// for concurrent use; every call creates and closes its own recognizer.
type Verifier struct {
	opts    Options
	matcher *match.Matcher
	now     func() time.Time
	logger  *slog.Logger
}

// New returns a verifier. opts.Factory is required.
func New(opts Options) (*Verifier, error) {
	if opts.Factory == nil {
		return nil, errors.New("verify: recognizer factory is required")
	}
	if opts.Parser == nil {
		opts.Parser = mrz.NewParser(mrz.DefaultOptions())
	}
	v := &Verifier{
		opts:    opts,
		matcher: match.New(opts.Match),
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// reading is what the image stage found.
type reading struct {
	record   *mrz.Record
	source   string
	attempts int
}

// Verify checks the document images of req against req.Profile. Unreadable
// documents produce a REJECTED verdict rather than an error; ErrNoImage is
// returned only when no side was supplied at all.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Verdict, error) {
	primary, fallback := selectImages(req)
	if primary.img == nil {
		if len(req.Unreadable) == 0 {
			return nil, ErrNoImage
		}
		v.logger.Info("Verification rejected", "reason", "undecodable", "sides", req.Unreadable)
		return &Verdict{
			Status:    StatusRejected,
			Message:   MessageUnreadable,
			CheckedAt: v.now(),
		}, nil
	}

	timer := common.NewNamedTimer("verify")
	rec, err := v.opts.Factory()
	if err != nil {
		return nil, fmt.Errorf("create recognizer: %w", err)
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil {
			v.logger.Warn("Failed to close recognizer", "error", cerr)
		}
	}()

	r := v.read(ctx, rec, req, primary, fallback)
	now := v.now()
	verdict := &Verdict{
		Record:    r.record,
		Source:    r.source,
		Attempts:  r.attempts,
		CheckedAt: now,
	}

	if !r.record.Valid() {
		verdict.Status = StatusRejected
		verdict.Message = MessageUnreadable
		v.logger.Info("Verification rejected", "reason", "unreadable", "attempts", r.attempts, "timer", timer)
		return verdict, nil
	}

	record := r.record
	if req.DocumentType == mrz.DocumentResidencePermit && record.DocumentType == mrz.DocumentCNI {
		record = record.Clone()
		record.DocumentType = mrz.DocumentResidencePermit
		verdict.Record = record
	}

	verdict.NameMatch = v.matcher.Names(record.Surname, req.Profile.Surname)
	verdict.GivenNameMatch = v.matcher.Names(record.GivenNames, req.Profile.GivenName)
	verdict.DOBMatch = v.matcher.Dates(record.DateOfBirth, req.Profile.DateOfBirth)
	verdict.DocumentExpired = record.DateOfExpiry != nil && record.DateOfExpiry.Before(mrz.DateOf(now))

	switch {
	case verdict.DocumentExpired:
		verdict.Status = StatusExpired
		verdict.Message = MessageExpired
	case verdict.NameMatch && verdict.GivenNameMatch && verdict.DOBMatch:
		verdict.Status = StatusVerified
		verdict.Verified = true
		verdict.Message = MessageVerified
	default:
		verdict.Status = StatusRejected
		verdict.Message = mismatchMessage(verdict.NameMatch, verdict.GivenNameMatch, verdict.DOBMatch)
	}

	v.logger.Info("Verification finished",
		"status", verdict.Status,
		"format", record.Format,
		"document_type", record.DocumentType,
		"source", verdict.Source,
		"attempts", verdict.Attempts,
		"timer", timer)
	return verdict, nil
}

type labeled struct {
	name string
	img  image.Image
}

// selectImages picks the image read first. Passports carry the MRZ on the
// data page (front); cards carry it on the back.
func selectImages(req Request) (labeled, labeled) {
	front := labeled{SideFront, req.Front}
	back := labeled{SideBack, req.Back}

	primary, fallback := back, front
	if req.DocumentType == mrz.DocumentPassport || req.Back == nil {
		primary, fallback = front, back
	}
	if primary.img == nil {
		primary, fallback = fallback, labeled{}
	}
	return primary, fallback
}

func (v *Verifier) read(ctx context.Context, rec recognizer.Recognizer, req Request, primary, fallback labeled) reading {
	c := cascade.New(rec, cascade.Options{
		Parser:     v.opts.Parser,
		Strategies: v.opts.Strategies,
		MinHeight:  v.opts.MinHeight,
		Observer:   cascade.Observers(v.opts.Observer, req.Observer),
		Logger:     v.logger,
	})
	sup := cascade.NewSupplementer(rec, v.now, v.logger)

	var r reading
	for _, img := range []labeled{primary, fallback} {
		if img.img == nil || ctx.Err() != nil {
			continue
		}
		out := c.Run(ctx, img.img, img.name)
		r.attempts += len(out.Attempts)

		found := out.Record
		source := img.name + ":" + out.Strategy
		if out.Partial() && v.opts.VisualSupplement {
			found = sup.Supplement(ctx, found, others(img, primary, fallback))
			source += "+printed"
		}
		if found.Valid() {
			return reading{record: found, source: source, attempts: r.attempts}
		}
		if r.record == nil && found != nil {
			r.record, r.source = found, source
		}
	}

	if r.record == nil && v.opts.LabelFallback && ctx.Err() == nil {
		fields := cascade.NewLabelParser(v.now).Parse(
			sup.ReadText(ctx, req.Front),
			sup.ReadText(ctx, req.Back),
		)
		if fields.Valid() {
			r.record, r.source = fields.Record(req.DocumentType), "labels"
		}
	}
	return r
}

// others returns img followed by the remaining document image.
func others(img, primary, fallback labeled) []image.Image {
	if img.name == primary.name {
		return []image.Image{primary.img, fallback.img}
	}
	return []image.Image{fallback.img, primary.img}
}
