package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	s := NewServer(Config{Version: "1.2.3"}, &fakeVerifier{}, nil)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Time)

	w = serve(s, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestVerifyHandler_PassesRequest(t *testing.T) {
	fv := &fakeVerifier{verdict: verifiedVerdict()}
	s := newTestServer(fv)

	w := serve(s, multipartRequest(t, dupontFields(),
		upload{"front", "front.png", pngBytes(t)},
		upload{"back", "back.png", pngBytes(t)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.StatusVerified, resp.Verdict.Status)
	assert.Equal(t, w.Header().Get(RequestIDHeader), resp.RequestID)

	req := fv.lastRequest(t)
	assert.Equal(t, "Dupont", req.Profile.Surname)
	assert.Equal(t, "Jean", req.Profile.GivenName)
	require.NotNil(t, req.Profile.DateOfBirth)
	assert.Equal(t, "1990-05-12", req.Profile.DateOfBirth.String())
	assert.Equal(t, mrz.DocumentCNI, req.DocumentType)
	assert.NotNil(t, req.Front)
	assert.NotNil(t, req.Back)
	assert.NotNil(t, req.Observer)
}

func TestVerifyHandler_EndToEnd(t *testing.T) {
	s := newTestServer(scriptedVerifier(t, testutil.Text(testutil.Dupont().TD1())))

	w := serve(s, multipartRequest(t, dupontFields(), upload{"back", "back.png", pngBytes(t)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.StatusVerified, resp.Verdict.Status)
	assert.Equal(t, verify.MessageVerified, resp.Verdict.Message)
	require.NotNil(t, resp.Verdict.Record)
	assert.Equal(t, "DUPONT", resp.Verdict.Record.Surname)
}

func TestVerifyHandler_Unreadable(t *testing.T) {
	s := newTestServer(scriptedVerifier(t))

	w := serve(s, multipartRequest(t, dupontFields(), upload{"front", "front.png", pngBytes(t)}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.StatusRejected, resp.Verdict.Status)
	assert.Equal(t, verify.MessageUnreadable, resp.Verdict.Message)
}

func TestVerifyHandler_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		files   []upload
		status  int
		message string
	}{
		{
			name:    "no images",
			fields:  dupontFields(),
			status:  http.StatusBadRequest,
			message: "No document image provided",
		},
		{
			name:    "bad date of birth",
			fields:  map[string]string{"surname": "Dupont", "date_of_birth": "12/05/1990"},
			files:   []upload{{"front", "front.png", nil}},
			status:  http.StatusBadRequest,
			message: "date of birth",
		},
		{
			name:    "unknown document type",
			fields:  map[string]string{"surname": "Dupont", "document_type": "LIBRARY_CARD"},
			files:   []upload{{"front", "front.png", nil}},
			status:  http.StatusBadRequest,
			message: "unknown document type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := &fakeVerifier{verdict: verifiedVerdict()}
			files := make([]upload, len(tt.files))
			for i, f := range tt.files {
				if f.data == nil {
					f.data = pngBytes(t)
				}
				files[i] = f
			}

			w := serve(newTestServer(fv), multipartRequest(t, tt.fields, files...))
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Contains(t, resp.Error, tt.message)
			assert.NotEmpty(t, resp.RequestID)
			assert.Empty(t, fv.requests)
		})
	}
}

func corruptPNG() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, []byte("corrupt")...)
}

func TestVerifyHandler_CorruptBackStillVerifies(t *testing.T) {
	s := newTestServer(scriptedVerifier(t, testutil.Text(testutil.Dupont().TD1())))

	w := serve(s, multipartRequest(t, dupontFields(),
		upload{"front", "front.png", pngBytes(t)},
		upload{"back", "back.png", corruptPNG()}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.StatusVerified, resp.Verdict.Status)
	assert.Equal(t, "front:crop35/binarize/restricted", resp.Verdict.Source)
}

func TestVerifyHandler_UndecodableSides(t *testing.T) {
	fv := &fakeVerifier{verdict: verifiedVerdict()}
	w := serve(newTestServer(fv), multipartRequest(t, dupontFields(),
		upload{"front", "front.png", pngBytes(t)},
		upload{"back", "notes.txt", []byte("not an image at all")}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := fv.lastRequest(t)
	assert.NotNil(t, req.Front)
	assert.Nil(t, req.Back)
	assert.Equal(t, []string{verify.SideBack}, req.Unreadable)
}

func TestVerifyHandler_NothingDecodable(t *testing.T) {
	s := newTestServer(scriptedVerifier(t))

	w := serve(s, multipartRequest(t, dupontFields(),
		upload{"front", "notes.txt", []byte("not an image at all")},
		upload{"back", "back.png", corruptPNG()}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.StatusRejected, resp.Verdict.Status)
	assert.Equal(t, verify.MessageUnreadable, resp.Verdict.Message)
	assert.Zero(t, resp.Verdict.Attempts)
}

func TestVerifyHandler_TooLarge(t *testing.T) {
	s := NewServer(Config{MaxUploadMB: 1}, &fakeVerifier{verdict: verifiedVerdict()}, nil)

	big := make([]byte, 2*1024*1024)
	w := serve(s, multipartRequest(t, dupontFields(), upload{"front", "front.png", big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestVerifyHandler_VerifierError(t *testing.T) {
	s := newTestServer(&fakeVerifier{err: errors.New("create recognizer: no tessdata")})

	w := serve(s, multipartRequest(t, dupontFields(), upload{"front", "front.png", pngBytes(t)}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Verification failed", decodeError(t, w).Error)
}

func TestVerifyHandler_MethodNotAllowed(t *testing.T) {
	w := serve(newTestServer(&fakeVerifier{}), httptest.NewRequest(http.MethodGet, "/v1/verify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestVerifyHandler_NoVerifier(t *testing.T) {
	w := serve(newTestServer(nil), multipartRequest(t, dupontFields()))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestParseHandler(t *testing.T) {
	s := newTestServer(&fakeVerifier{})
	text := testutil.Text(testutil.Dupont().TD1())

	body, err := json.Marshal(ParseRequest{Text: text})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/mrz/parse", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")

	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ParseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	require.NotNil(t, resp.Record)
	assert.Equal(t, mrz.FormatTD1, resp.Record.Format)
	assert.Equal(t, "FRA", resp.Record.IssuingCountry)
	assert.Equal(t, "JEAN", resp.Record.GivenNames)
}

func TestParseHandler_PlainText(t *testing.T) {
	s := newTestServer(&fakeVerifier{})
	req := httptest.NewRequest(http.MethodPost, "/v1/mrz/parse", strings.NewReader(testutil.Text(testutil.Dupont().TD3())))
	req.Header.Set("Content-Type", "text/plain")

	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ParseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, mrz.FormatTD3, resp.Record.Format)
}

func TestParseHandler_NotFoundAndErrors(t *testing.T) {
	s := newTestServer(&fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/v1/mrz/parse", strings.NewReader(`{"text":"`+"no mrz here"+`"}`))
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ParseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Found)
	assert.Nil(t, resp.Record)

	w = serve(s, httptest.NewRequest(http.MethodPost, "/v1/mrz/parse", strings.NewReader(`{"text":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, httptest.NewRequest(http.MethodPost, "/v1/mrz/parse", strings.NewReader(`{"text":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest("Dupont", "Jean", "", "passport_cmr")
	require.NoError(t, err)
	assert.Equal(t, mrz.DocumentPassport, req.DocumentType)
	assert.Nil(t, req.Profile.DateOfBirth)

	req, err = buildRequest("Dupont", "", "", "")
	require.NoError(t, err)
	assert.Empty(t, req.DocumentType)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeVerifier{verdict: verifiedVerdict()})
	serve(s, multipartRequest(t, dupontFields(), upload{"front", "front.png", pngBytes(t)}))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "idcheck_verifications_total")
	assert.Contains(t, w.Body.String(), "idcheck_http_requests_total")
}
