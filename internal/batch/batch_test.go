package batch

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// statusVerifier returns a verdict chosen by the profile surname.
type statusVerifier struct {
	inFlight, peak atomic.Int32
	mu             sync.Mutex
	seen           []verify.Request
}

func (s *statusVerifier) Verify(_ context.Context, req verify.Request) (*verify.Verdict, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.seen = append(s.seen, req)
	s.mu.Unlock()

	switch req.Profile.Surname {
	case "Broken":
		return nil, errors.New("create recognizer: engine unavailable")
	case "Old":
		return &verify.Verdict{Status: verify.StatusExpired, Message: verify.MessageExpired}, nil
	case "":
		return &verify.Verdict{Status: verify.StatusRejected, Message: verify.MessageUnreadable}, nil
	}
	return &verify.Verdict{Status: verify.StatusVerified, Verified: true, Message: verify.MessageVerified}, nil
}

func documentFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, testutil.BlankImage(320, 200, color.White), path)
	return path
}

func TestRunner_ContinueOnError(t *testing.T) {
	dir := t.TempDir()
	img := documentFile(t, dir, "doc.png")
	cases := []Case{
		{ID: "ok", Front: img, Surname: "Dupont"},
		{ID: "expired", Back: img, Surname: "Old"},
		{ID: "unreadable", Front: img},
		{ID: "missing", Front: filepath.Join(dir, "nope.png"), Surname: "Dupont"},
		{ID: "broken", Front: img, Surname: "Broken"},
		{ID: "bad-dob", Front: img, Surname: "Dupont", DateOfBirth: "soon"},
	}

	sv := &statusVerifier{}
	res, err := NewRunner(sv, Config{Workers: 2, ContinueOnError: true}, nil).Run(context.Background(), cases)
	require.NoError(t, err)

	require.Len(t, res.Results, len(cases))
	for i, c := range cases {
		assert.Equal(t, c.ID, res.Results[i].Case.ID)
	}
	assert.Equal(t, "VERIFIED", res.Results[0].Status())
	assert.Equal(t, "EXPIRED", res.Results[1].Status())
	assert.Equal(t, "REJECTED", res.Results[2].Status())
	assert.Equal(t, "ERROR", res.Results[3].Status())
	assert.Contains(t, res.Results[3].Error, "nope.png")
	assert.Contains(t, res.Results[4].Error, "engine unavailable")
	assert.Contains(t, res.Results[5].Error, "date of birth")

	assert.Equal(t, Stats{Total: 6, Verified: 1, Rejected: 1, Expired: 1, Failed: 3}, res.Stats())
	assert.Len(t, res.RunID, 36)
	assert.Equal(t, 2, res.WorkerCount)
	assert.LessOrEqual(t, sv.peak.Load(), int32(2))
}

func TestRunner_StopsOnError(t *testing.T) {
	dir := t.TempDir()
	img := documentFile(t, dir, "doc.png")
	cases := []Case{
		{ID: "broken", Front: img, Surname: "Broken"},
		{ID: "ok", Front: img, Surname: "Dupont"},
	}

	_, err := NewRunner(&statusVerifier{}, Config{Workers: 1}, nil).Run(context.Background(), cases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case broken")
}

func TestRunner_CorruptBackStillVerified(t *testing.T) {
	dir := t.TempDir()
	front := documentFile(t, dir, "front.png")
	back := filepath.Join(dir, "back.png")
	require.NoError(t, os.WriteFile(back, []byte("\x89PNG\r\n\x1a\ncorrupt"), 0o600))

	f := &testutil.ScriptedFactory{Script: []string{testutil.Text(testutil.Dupont().TD1())}, Default: testutil.Garbage}
	opts := verify.DefaultOptions()
	opts.Factory = f.Factory()
	opts.Now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	v, err := verify.New(opts)
	require.NoError(t, err)

	cases := []Case{
		{ID: "corrupt-back", Front: front, Back: back, Surname: "Dupont", GivenName: "Jean", DateOfBirth: "1990-05-12", DocumentType: "CNI"},
		{ID: "corrupt-only", Back: back, Surname: "Dupont"},
	}
	res, err := NewRunner(v, Config{Workers: 1}, nil).Run(context.Background(), cases)
	require.NoError(t, err)

	assert.Equal(t, "VERIFIED", res.Results[0].Status())
	assert.Empty(t, res.Results[0].Error)
	assert.Equal(t, "front:crop35/binarize/restricted", res.Results[0].Verdict.Source)

	assert.Equal(t, "REJECTED", res.Results[1].Status())
	assert.Equal(t, verify.MessageUnreadable, res.Results[1].Verdict.Message)
	assert.Len(t, f.Created(), 1)
}

func TestRunner_NoCases(t *testing.T) {
	_, err := NewRunner(&statusVerifier{}, Config{}, nil).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunner_OneRecognizerPerCase(t *testing.T) {
	dir := t.TempDir()
	img := documentFile(t, dir, "doc.png")

	f := &testutil.ScriptedFactory{Script: []string{testutil.Text(testutil.Dupont().TD1())}, Default: testutil.Garbage}
	opts := verify.DefaultOptions()
	opts.Factory = f.Factory()
	opts.Now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	v, err := verify.New(opts)
	require.NoError(t, err)

	cases := []Case{
		{ID: "a", Back: img, Surname: "Dupont", GivenName: "Jean", DateOfBirth: "1990-05-12", DocumentType: "CNI"},
		{ID: "b", Back: img, Surname: "Dupont", GivenName: "Jean", DateOfBirth: "1990-05-12", DocumentType: "CNI"},
		{ID: "c", Back: img, Surname: "Martin", GivenName: "Jean", DateOfBirth: "1990-05-12"},
	}
	res, err := NewRunner(v, Config{Workers: 3}, nil).Run(context.Background(), cases)
	require.NoError(t, err)

	assert.Equal(t, "VERIFIED", res.Results[0].Status())
	assert.Equal(t, "VERIFIED", res.Results[1].Status())
	assert.Equal(t, "REJECTED", res.Results[2].Status())
	assert.Equal(t, "Identity mismatch: surname", res.Results[2].Verdict.Message)

	created := f.Created()
	require.Len(t, created, 3)
	for _, r := range created {
		assert.True(t, r.Closed())
		assert.Len(t, r.Calls(), 1)
	}
}
