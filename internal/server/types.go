package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/idcheck/internal/acquire"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// verifier is the part of *verify.Verifier the server needs.
type verifier interface {
	Verify(ctx context.Context, req verify.Request) (*verify.Verdict, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	verifier    verifier
	parser      *mrz.Parser
	loader      *acquire.Loader
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	version     string
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// MaxImageWidth bounds decoded uploads; zero selects the default.
	MaxImageWidth int
	RateLimit     RateLimitConfig
	Version       string
	Logger        *slog.Logger
}

// RateLimitConfig enables the per-client limiter.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDayMB   int64
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// VerifyResponse wraps a verdict.
type VerifyResponse struct {
	RequestID string          `json:"request_id,omitempty"`
	Verdict   *verify.Verdict `json:"verdict"`
}

// ParseRequest is the body of /v1/mrz/parse.
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResponse reports the record found in submitted MRZ text.
type ParseResponse struct {
	Found  bool        `json:"found"`
	Record *mrz.Record `json:"record,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer creates a verification server around v. parser decodes text
// submitted to /v1/mrz/parse; nil selects the default parser options.
func NewServer(config Config, v verifier, parser *mrz.Parser) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		opts := mrz.DefaultOptions()
		opts.Logger = logger
		parser = mrz.NewParser(opts)
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}

	s := &Server{
		verifier:    v,
		parser:      parser,
		loader:      acquire.NewLoader(config.MaxImageWidth),
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		version:     config.Version,
		logger:      logger,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDayMB*1024*1024,
		)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.chain(s.healthHandler))
	mux.HandleFunc("/v1/verify", s.chain(s.rateLimitMiddleware(s.verifyHandler)))
	mux.HandleFunc("/v1/mrz/parse", s.chain(s.rateLimitMiddleware(s.parseHandler)))
	mux.HandleFunc("/ws/verify", s.requestIDMiddleware(s.verifyWebSocketHandler))
	mux.Handle("/metrics", metricsHandler())
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) chain(h http.HandlerFunc) http.HandlerFunc {
	return s.requestIDMiddleware(s.corsMiddleware(h))
}
