package support

import (
	"context"
	"fmt"
	"image"
	"net/http/httptest"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/server"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Verification inputs
	Today        time.Time
	Profile      verify.Profile
	Holder       *testutil.Identity
	Layout       string
	Script       []string
	DocumentType mrz.DocumentType
	Front        image.Image
	Back         image.Image
	Unreadable   []string

	// Verification results
	Factory  *testutil.ScriptedFactory
	Verdicts []*verify.Verdict
	LastErr  error

	// HTTP state
	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   []byte
}

// NewTestContext creates a context with a fixed date and a rendered card.
func NewTestContext() *TestContext {
	cfg := testutil.DefaultDocumentConfig()
	cfg.Header = []string{"REPUBLIQUE FRANCAISE", "CARTE NATIONALE D'IDENTITE"}
	return &TestContext{
		Today: time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC),
		Front: testutil.GenerateDocument(cfg),
	}
}

func (testCtx *TestContext) now() time.Time {
	return testCtx.Today
}

// mrzText renders the holder's MRZ in the selected layout.
func (testCtx *TestContext) mrzText() (string, error) {
	if testCtx.Holder == nil {
		return "", fmt.Errorf("no document holder defined")
	}
	switch testCtx.Layout {
	case "TD1":
		return testutil.Text(testCtx.Holder.TD1()), nil
	case "TD2":
		return testutil.Text(testCtx.Holder.TD2()), nil
	case "TD3":
		return testutil.Text(testCtx.Holder.TD3()), nil
	}
	return "", fmt.Errorf("unknown MRZ layout %q", testCtx.Layout)
}

// newVerifier builds a verifier whose recognizers replay the scenario script.
func (testCtx *TestContext) newVerifier() (*verify.Verifier, error) {
	if testCtx.Factory == nil {
		testCtx.Factory = &testutil.ScriptedFactory{Script: testCtx.Script, Default: testutil.Garbage}
	}
	opts := verify.DefaultOptions()
	opts.Factory = testCtx.Factory.Factory()
	opts.Now = testCtx.now
	return verify.New(opts)
}

func (testCtx *TestContext) request() verify.Request {
	return verify.Request{
		Profile:      testCtx.Profile,
		Front:        testCtx.Front,
		Back:         testCtx.Back,
		DocumentType: testCtx.DocumentType,
		Unreadable:   testCtx.Unreadable,
	}
}

func (testCtx *TestContext) verifyOnce() error {
	v, err := testCtx.newVerifier()
	if err != nil {
		return err
	}
	verdict, err := v.Verify(context.Background(), testCtx.request())
	testCtx.LastErr = err
	if err == nil {
		testCtx.Verdicts = append(testCtx.Verdicts, verdict)
	}
	return nil
}

// lastVerdict returns the most recent verdict.
func (testCtx *TestContext) lastVerdict() (*verify.Verdict, error) {
	if testCtx.LastErr != nil {
		return nil, fmt.Errorf("verification failed: %w", testCtx.LastErr)
	}
	if len(testCtx.Verdicts) == 0 {
		return nil, fmt.Errorf("no verification has run")
	}
	return testCtx.Verdicts[len(testCtx.Verdicts)-1], nil
}

// startServer serves the verification API over httptest.
func (testCtx *TestContext) startServer() error {
	v, err := testCtx.newVerifier()
	if err != nil {
		return err
	}
	srv := server.NewServer(server.Config{Version: "test"}, v, nil)
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

// Cleanup releases scenario resources.
func (testCtx *TestContext) Cleanup() {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
}
