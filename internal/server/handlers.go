package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/acquire"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

const channelHTTP = "http"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// verifyHandler checks uploaded document images against the submitted
// profile. Form fields: front, back (files), surname, given_name,
// date_of_birth (YYYY-MM-DD) and document_type.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.verifier == nil {
		s.writeErrorResponse(w, r, "Verifier not initialized", http.StatusServiceUnavailable)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, r, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, r, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	front, status, err := s.readUpload(r, verify.SideFront)
	if err != nil {
		s.writeErrorResponse(w, r, err.Error(), status)
		return
	}
	back, status, err := s.readUpload(r, verify.SideBack)
	if err != nil {
		s.writeErrorResponse(w, r, err.Error(), status)
		return
	}
	if front == nil && back == nil {
		s.writeErrorResponse(w, r, "No document image provided", http.StatusBadRequest)
		return
	}

	req, err := buildRequest(r.FormValue("surname"), r.FormValue("given_name"),
		r.FormValue("date_of_birth"), r.FormValue("document_type"))
	if err != nil {
		s.writeErrorResponse(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	s.attachDocument(r.Context(), &req, front)
	s.attachDocument(r.Context(), &req, back)
	req.Observer = AttemptMetrics

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	start := time.Now()
	verdict, err := s.verifier.Verify(ctx, req)
	recordVerification(channelHTTP, verdict, err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Verification failed", "request_id", RequestID(r.Context()), "error", err)
		if errors.Is(err, verify.ErrNoImage) {
			s.writeErrorResponse(w, r, "No document image provided", http.StatusBadRequest)
			return
		}
		s.writeErrorResponse(w, r, "Verification failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Verification served",
		"request_id", RequestID(r.Context()),
		"status", verdict.Status,
		"attempts", verdict.Attempts)
	s.writeJSON(w, http.StatusOK, VerifyResponse{RequestID: RequestID(r.Context()), Verdict: verdict})
}

// parseHandler decodes MRZ text without OCR. It accepts a JSON
// ParseRequest or a text/plain body.
func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64*1024))
	if err != nil {
		s.writeErrorResponse(w, r, "Failed to read request body", http.StatusBadRequest)
		return
	}

	text := string(body)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		var req ParseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeErrorResponse(w, r, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		text = req.Text
	}
	if strings.TrimSpace(text) == "" {
		s.writeErrorResponse(w, r, "No MRZ text provided", http.StatusBadRequest)
		return
	}

	rec, found := s.parser.ParseText(text)
	s.writeJSON(w, http.StatusOK, ParseResponse{Found: found, Record: rec})
}

// document is one uploaded side before decoding.
type document struct {
	side string
	name string
	data []byte
}

// readUpload reads the optional file in field. A missing field yields nil
// and no error.
func (s *Server) readUpload(r *http.Request, field string) (*document, int, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid %s upload", field)
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		return nil, http.StatusRequestEntityTooLarge, errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read %s upload", field)
	}
	return &document{side: field, name: header.Filename, data: data}, 0, nil
}

// attachDocument decodes doc into req. A side that cannot be decoded is
// logged and left for the verifier to report as unreadable.
func (s *Server) attachDocument(ctx context.Context, req *verify.Request, doc *document) {
	if doc == nil {
		return
	}
	name := doc.name
	if name == "" {
		name = doc.side
	}
	img, err := s.loader.LoadBytes(name, doc.data)
	if err != nil {
		s.logger.Warn("Document image not decodable",
			"request_id", RequestID(ctx),
			"side", doc.side,
			"unsupported", errors.Is(err, acquire.ErrUnsupported),
			"error", err)
	}
	req.SetImage(doc.side, img, err)
}

// buildRequest validates the profile fields and the declared document type.
func buildRequest(surname, givenName, dateOfBirth, documentType string) (verify.Request, error) {
	profile, err := verify.NewProfile(surname, givenName, dateOfBirth)
	if err != nil {
		return verify.Request{}, err
	}
	req := verify.Request{Profile: profile}
	if strings.TrimSpace(documentType) != "" {
		dt, ok := mrz.ParseDocumentType(documentType)
		if !ok {
			return verify.Request{}, fmt.Errorf("unknown document type: %s", documentType)
		}
		req.DocumentType = dt
	}
	return req, nil
}

func (s *Server) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeoutSec > 0 {
		return context.WithTimeout(parent, time.Duration(s.timeoutSec)*time.Second)
	}
	return context.WithCancel(parent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message, RequestID: RequestID(r.Context())})
}
