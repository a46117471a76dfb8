package server

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/idcheck/internal/cascade"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// fakeVerifier replays events to the request observer and returns a fixed
// verdict.
type fakeVerifier struct {
	verdict *verify.Verdict
	err     error
	events  []cascade.AttemptEvent

	mu       sync.Mutex
	requests []verify.Request
}

func (f *fakeVerifier) Verify(_ context.Context, req verify.Request) (*verify.Verdict, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if req.Observer != nil {
		for _, e := range f.events {
			req.Observer.ObserveAttempt(e)
		}
	}
	return f.verdict, f.err
}

func (f *fakeVerifier) lastRequest(t *testing.T) verify.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "verifier was not called")
	return f.requests[len(f.requests)-1]
}

func verifiedVerdict() *verify.Verdict {
	return &verify.Verdict{
		Status:    verify.StatusVerified,
		Verified:  true,
		Message:   verify.MessageVerified,
		NameMatch: true, GivenNameMatch: true, DOBMatch: true,
		Source:    "back:crop35/binarize/restricted",
		Attempts:  1,
		CheckedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestServer(v verifier) *Server {
	return NewServer(Config{CORSOrigin: "*", MaxUploadMB: 5, TimeoutSec: 5}, v, nil)
}

// scriptedVerifier is a real verifier whose recognizer returns texts.
func scriptedVerifier(t *testing.T, texts ...string) *verify.Verifier {
	t.Helper()
	f := &testutil.ScriptedFactory{Script: texts, Default: testutil.Garbage}
	opts := verify.DefaultOptions()
	opts.Factory = f.Factory()
	opts.Now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	v, err := verify.New(opts)
	require.NoError(t, err)
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.BlankImage(320, 200, color.White)))
	return buf.Bytes()
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func dupontFields() map[string]string {
	return map[string]string{
		"surname":       "Dupont",
		"given_name":    "Jean",
		"date_of_birth": "1990-05-12",
		"document_type": "CNI",
	}
}
