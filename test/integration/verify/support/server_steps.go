package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func (testCtx *TestContext) theVerificationAPIIsRunning() error {
	return testCtx.startServer()
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = body
	return nil
}

// iUploadTheFrontImageFor posts the scenario's front image as multipart form
// data together with the given identity.
func (testCtx *TestContext) iUploadTheFrontImageFor(surname, givenName, dob string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{"surname": surname, "given_name": givenName, "date_of_birth": dob}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("front", "front.png")
	if err != nil {
		return err
	}
	if err := png.Encode(part, testCtx.Front); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, testCtx.HTTPServer.URL+"/v1/verify", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iPostTheMRZTextToTheParseEndpoint() error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	text, err := testCtx.mrzText()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.HTTPServer.URL+"/v1/mrz/parse", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

func (testCtx *TestContext) theHTTPStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected HTTP %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

// theJSONFieldShouldBe looks up a dotted path such as "verdict.status".
func (testCtx *TestContext) theJSONFieldShouldBe(path, want string) error {
	var data any
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	current := data
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q is not an object in %s", part, testCtx.LastHTTPResponse)
		}
		if current, ok = obj[part]; !ok {
			return fmt.Errorf("field %q not found in %s", path, testCtx.LastHTTPResponse)
		}
	}
	if got := fmt.Sprint(current); got != want {
		return fmt.Errorf("expected %s=%q, got %q", path, want, got)
	}
	return nil
}

// RegisterServerSteps registers the HTTP API step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the verification API is running$`, testCtx.theVerificationAPIIsRunning)
	sc.Step(`^I upload the front image for "([^"]*)" "([^"]*)" born "([^"]*)"$`, testCtx.iUploadTheFrontImageFor)
	sc.Step(`^I post the MRZ text to the parse endpoint$`, testCtx.iPostTheMRZTextToTheParseEndpoint)
	sc.Step(`^the HTTP status should be (\d+)$`, testCtx.theHTTPStatusShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
}
