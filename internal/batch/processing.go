package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/acquire"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// runCase loads the documents of c and verifies them. Failures are reported
// in the result rather than returned.
func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	start := time.Now()
	res := CaseResult{Case: c}

	req, err := r.buildRequest(c)
	if err == nil {
		res.Verdict, err = r.verifier.Verify(ctx, req)
	}
	if err != nil {
		res.Error = err.Error()
		res.Verdict = nil
	}
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) buildRequest(c Case) (verify.Request, error) {
	profile, err := verify.NewProfile(c.Surname, c.GivenName, c.DateOfBirth)
	if err != nil {
		return verify.Request{}, err
	}
	req := verify.Request{Profile: profile}

	if c.DocumentType != "" {
		dt, ok := mrz.ParseDocumentType(c.DocumentType)
		if !ok {
			return verify.Request{}, fmt.Errorf("unknown document type: %s", c.DocumentType)
		}
		req.DocumentType = dt
	}

	if err := r.load(&req, verify.SideFront, c.Front); err != nil {
		return verify.Request{}, err
	}
	if err := r.load(&req, verify.SideBack, c.Back); err != nil {
		return verify.Request{}, err
	}
	return req, nil
}

// load reads the document of side into req; an empty path is skipped. A
// document that cannot be decoded leaves the side unreadable and the case
// is still verified.
func (r *Runner) load(req *verify.Request, side, path string) error {
	if path == "" {
		return nil
	}
	img, err := r.loader.Load(path)
	if err != nil && !acquire.IsDecodeError(err) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err != nil {
		r.logger.Warn("Document image not decodable", "side", side, "path", path, "error", err)
	}
	req.SetImage(side, img, err)
	return nil
}
