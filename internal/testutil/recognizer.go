package testutil

import (
	"context"
	"image"
	"sync"

	"github.com/MeKo-Tech/idcheck/internal/recognizer"
)

// Call records one Recognize invocation.
type Call struct {
	Charset recognizer.CharsetMode
	Seg     recognizer.SegmentationMode
	Height  int
}

// ScriptedRecognizer answers Recognize calls from a fixed script: the n-th
// call returns Script[n], later calls return Default.
type ScriptedRecognizer struct {
	Script  []string
	Default string
	// Err, when set, is returned by every call instead of text.
	Err error

	mu     sync.Mutex
	calls  []Call
	closed bool
}

// Recognize implements recognizer.Recognizer.
func (s *ScriptedRecognizer) Recognize(_ context.Context, img image.Image, charset recognizer.CharsetMode, seg recognizer.SegmentationMode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.calls)
	s.calls = append(s.calls, Call{Charset: charset, Seg: seg, Height: img.Bounds().Dy()})
	if s.Err != nil {
		return "", s.Err
	}
	if n < len(s.Script) {
		return s.Script[n], nil
	}
	return s.Default, nil
}

// Close implements recognizer.Recognizer.
func (s *ScriptedRecognizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Calls returns the recorded calls.
func (s *ScriptedRecognizer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Closed reports whether Close was called.
func (s *ScriptedRecognizer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ScriptedFactory hands out a fresh ScriptedRecognizer with the same script
// on every call and keeps them for inspection.
type ScriptedFactory struct {
	Script  []string
	Default string

	mu      sync.Mutex
	created []*ScriptedRecognizer
}

// Factory returns the recognizer.Factory.
func (f *ScriptedFactory) Factory() recognizer.Factory {
	return func() (recognizer.Recognizer, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		r := &ScriptedRecognizer{Script: append([]string(nil), f.Script...), Default: f.Default}
		f.created = append(f.created, r)
		return r, nil
	}
}

// Created returns every recognizer handed out so far.
func (f *ScriptedFactory) Created() []*ScriptedRecognizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ScriptedRecognizer(nil), f.created...)
}

// Garbage is recognizer output that holds no MRZ.
const Garbage = "REPUBLIQUE DU CAMEROUN\nPaix - Travail - Patrie\n"
