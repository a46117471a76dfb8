package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Workers bounds the number of concurrent verifications.
	Workers int
	// ContinueOnError records per-case failures instead of aborting the run.
	ContinueOnError bool
	// MaxImageWidth bounds decoded documents; zero selects the default.
	MaxImageWidth int

	Format     string
	OutputFile string
	Quiet      bool
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case     Case            `json:"case"`
	Verdict  *verify.Verdict `json:"verdict,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration_ns"`
}

// Status is the verdict status, or "ERROR" for failed cases.
func (r CaseResult) Status() string {
	if r.Verdict == nil {
		return "ERROR"
	}
	return string(r.Verdict.Status)
}

// Result holds the result of batch processing, in manifest order.
type Result struct {
	RunID       string        `json:"run_id"`
	Results     []CaseResult  `json:"results"`
	Duration    time.Duration `json:"duration_ns"`
	WorkerCount int           `json:"workers"`
}

// Stats counts results per status.
type Stats struct {
	Total    int
	Verified int
	Rejected int
	Expired  int
	Failed   int
}

// Stats summarizes r.
func (r *Result) Stats() Stats {
	s := Stats{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status() {
		case string(verify.StatusVerified):
			s.Verified++
		case string(verify.StatusRejected):
			s.Rejected++
		case string(verify.StatusExpired):
			s.Expired++
		default:
			s.Failed++
		}
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err := fmt.Fprint(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nBatch %s:\n", r.RunID)
	_, _ = fmt.Fprintf(w, "  Cases: %d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Verified: %d\n", s.Verified)
	_, _ = fmt.Fprintf(w, "  Rejected: %d\n", s.Rejected)
	_, _ = fmt.Fprintf(w, "  Expired: %d\n", s.Expired)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per case: %v\n", (r.Duration / time.Duration(s.Total)).Round(time.Millisecond))
	}
}
