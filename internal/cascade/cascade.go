// Package cascade runs an ordered list of crop and preprocessing strategies
// over a document image until one of them yields a readable MRZ, and fills
// gaps in partial records from the printed text of the document.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/common"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/recognizer"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// FailureKind classifies why a strategy attempt produced no valid record.
type FailureKind int

const (
	FailureRecognizer FailureKind = iota
	FailureNoMRZ
	FailurePartial
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureRecognizer:
		return "recognizer_error"
	case FailureNoMRZ:
		return "no_mrz"
	case FailurePartial:
		return "partial"
	case FailureCanceled:
		return "canceled"
	}
	return "unknown"
}

var (
	errNoMRZ   = errors.New("no MRZ layout in recognized text")
	errPartial = errors.New("MRZ has no readable date of birth")
)

// StrategyFailure is the error side of an attempt.
type StrategyFailure struct {
	Strategy string
	Kind     FailureKind
	Err      error
}

func (f *StrategyFailure) Error() string {
	return fmt.Sprintf("strategy %s: %s: %v", f.Strategy, f.Kind, f.Err)
}

func (f *StrategyFailure) Unwrap() error { return f.Err }

// Attempt is the result of applying one strategy. Record is set for valid and
// partial reads; Failure is nil only for a valid read.
type Attempt struct {
	Strategy Strategy
	Record   *mrz.Record
	Failure  *StrategyFailure
	Duration time.Duration
}

// Outcome returns "valid" or the failure kind.
func (a Attempt) Outcome() string {
	if a.Failure == nil {
		return "valid"
	}
	return a.Failure.Kind.String()
}

// Outcome is what a cascade run found on one image.
type Outcome struct {
	// Record is the first valid record, else the first partial one, else nil.
	Record *mrz.Record
	// Strategy names the attempt that produced Record.
	Strategy string
	Attempts []Attempt
}

// Valid reports whether the run found a valid record.
func (o Outcome) Valid() bool { return o.Record.Valid() }

// Partial reports whether the run only found a record without date of birth.
func (o Outcome) Partial() bool { return o.Record.HasSurname() && !o.Record.Valid() }

func (o Outcome) fold(a Attempt) Outcome {
	o.Attempts = append(o.Attempts, a)
	switch {
	case a.Record.Valid():
		o.Record, o.Strategy = a.Record, a.Strategy.Name
	case a.Record.HasSurname() && o.Record == nil:
		o.Record, o.Strategy = a.Record, a.Strategy.Name
	}
	return o
}

// Options configures a Cascade.
type Options struct {
	Parser     *mrz.Parser
	Strategies []Strategy
	// MinHeight is the crop height below which crops are upscaled.
	MinHeight int
	Observer  Observer
	Logger    *slog.Logger
}

// Cascade applies strategies with one recognizer. It is bound to that
// recognizer and must not be shared across goroutines.
type Cascade struct {
	rec        recognizer.Recognizer
	parser     *mrz.Parser
	strategies []Strategy
	minHeight  int
	observer   Observer
	logger     *slog.Logger
}

// New returns a cascade reading through rec.
func New(rec recognizer.Recognizer, opts Options) *Cascade {
	c := &Cascade{
		rec:        rec,
		parser:     opts.Parser,
		strategies: opts.Strategies,
		minHeight:  opts.MinHeight,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
	if c.parser == nil {
		c.parser = mrz.NewParser(mrz.DefaultOptions())
	}
	if len(c.strategies) == 0 {
		c.strategies = DefaultStrategies()
	}
	if c.minHeight <= 0 {
		c.minHeight = utils.DefaultMinHeight
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run tries every strategy on img in order and stops at the first valid
// record. label identifies the image in logs and events. Cancellation of ctx
// ends the run with whatever was found so far.
func (c *Cascade) Run(ctx context.Context, img image.Image, label string) Outcome {
	var out Outcome
	for i, s := range c.strategies {
		var a Attempt
		if err := ctx.Err(); err != nil {
			a = Attempt{Strategy: s, Failure: &StrategyFailure{Strategy: s.Name, Kind: FailureCanceled, Err: err}}
		} else {
			a = c.attempt(ctx, img, s)
		}
		out = out.fold(a)
		c.report(label, i, a)

		if a.Failure != nil && a.Failure.Kind == FailureCanceled {
			break
		}
		if out.Valid() {
			c.logger.Debug("MRZ found", "image", label, "strategy", s.Name, "attempt", i+1)
			return out
		}
	}
	return out
}

func (c *Cascade) attempt(ctx context.Context, img image.Image, s Strategy) Attempt {
	timer := common.NewNamedTimer(s.Name)
	a := Attempt{Strategy: s}

	text, err := c.rec.Recognize(ctx, s.prepare(img, c.minHeight), s.Charset, s.Segmentation())
	if err != nil {
		kind := FailureRecognizer
		if ctx.Err() != nil {
			kind = FailureCanceled
		}
		a.Failure = &StrategyFailure{Strategy: s.Name, Kind: kind, Err: err}
		a.Duration = timer.Stop()
		return a
	}

	rec, ok := c.parser.ParseText(text)
	switch {
	case !ok:
		a.Failure = &StrategyFailure{Strategy: s.Name, Kind: FailureNoMRZ, Err: errNoMRZ}
	case !rec.Valid():
		a.Record = rec
		a.Failure = &StrategyFailure{Strategy: s.Name, Kind: FailurePartial, Err: errPartial}
	default:
		a.Record = rec
	}
	a.Duration = timer.Stop()
	return a
}

func (c *Cascade) report(label string, i int, a Attempt) {
	if a.Failure != nil {
		c.logger.Debug("Strategy attempt failed",
			"image", label,
			"strategy", a.Strategy.Name,
			"kind", a.Failure.Kind.String(),
			"error", a.Failure.Err)
	}
	c.observer.ObserveAttempt(AttemptEvent{
		Image:    label,
		Strategy: a.Strategy.Name,
		Index:    i,
		Total:    len(c.strategies),
		Outcome:  a.Outcome(),
		Duration: a.Duration,
	})
}
