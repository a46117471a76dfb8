// Package common holds helpers shared by the verification stages.
package common

import (
	"fmt"
	"log/slog"
	"time"
)

// Timer measures one stage of a verification, such as a strategy attempt.
type Timer struct {
	name    string
	start   time.Time
	elapsed time.Duration
	stopped bool
}

// NewNamedTimer starts a timer for the stage name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop freezes the timer and returns the elapsed duration. Later calls
// return the same value.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.elapsed = time.Since(t.start)
		t.stopped = true
	}
	return t.elapsed
}

// Elapsed returns the duration so far, or the frozen one after Stop.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.elapsed
	}
	return time.Since(t.start)
}

// Name returns the stage name.
func (t *Timer) Name() string {
	return t.name
}

// LogValue implements slog.LogValuer.
func (t *Timer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("stage", t.name),
		slog.Duration("elapsed", t.Elapsed()),
	)
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.Elapsed())
}
