package cmd

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/idcheck/internal/acquire"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

func TestVerifyCommand_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no images", []string{"--front", "", "--back", "", "--surname", "DUPONT"}, "at least one of --front or --back"},
		{"bad date", []string{"--front", "card.jpg", "--dob", "12/05/1990"}, "date of birth"},
		{"bad type", []string{"--front", "card.jpg", "--dob", "", "--type", "driving_licence"}, "unknown document type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"verify"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func sampleVerdict() *verify.Verdict {
	return &verify.Verdict{
		Status:         verify.StatusRejected,
		Message:        "Identity mismatch: given name",
		NameMatch:      true,
		GivenNameMatch: false,
		DOBMatch:       true,
		Record: &mrz.Record{
			Format:         mrz.FormatTD1,
			DocumentType:   mrz.DocumentCNI,
			IssuingCountry: "FRA",
			DocumentNumber: "X4RTBPFW4",
			Surname:        "DUPONT",
			GivenNames:     "JEAN",
			DateOfBirth:    &mrz.Date{Year: 1990, Month: time.May, Day: 12},
			Sex:            mrz.SexMale,
		},
		Source:   "front/mrz-crop",
		Attempts: 3,
	}
}

func TestWriteVerdict_Text(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeVerdict(&b, sampleVerdict(), "text"))
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "REJECTED: Identity mismatch: given name\n"))
	assert.Contains(t, out, "surname:       match")
	assert.Contains(t, out, "given name:    MISMATCH")
	assert.Contains(t, out, "born:          1990-05-12")
	assert.Contains(t, out, "expires:       -")
	assert.Contains(t, out, "sex:           M")
	assert.Contains(t, out, "source:        front/mrz-crop")
	assert.Contains(t, out, "attempts:      3")
}

func TestWriteVerdict_JSON(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeVerdict(&b, sampleVerdict(), "json"))

	var got verify.Verdict
	require.NoError(t, json.Unmarshal([]byte(b.String()), &got))
	assert.Equal(t, verify.StatusRejected, got.Status)
	assert.Equal(t, "DUPONT", got.Record.Surname)
	assert.Equal(t, 3, got.Attempts)
}

func TestWriteVerdict_NoRecord(t *testing.T) {
	var b strings.Builder
	v := &verify.Verdict{Status: verify.StatusRejected, Message: verify.MessageUnreadable, Attempts: 12}
	require.NoError(t, writeVerdict(&b, v, "text"))
	assert.Contains(t, b.String(), "REJECTED: MRZ unreadable")
	assert.NotContains(t, b.String(), "format:")
}

func TestLoadSide(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.BlankImage(120, 80, color.White)))
	good := filepath.Join(dir, "front.png")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0o600))
	corrupt := filepath.Join(dir, "back.png")
	require.NoError(t, os.WriteFile(corrupt, buf.Bytes()[:20], 0o600))

	loader := acquire.NewLoader(0)
	var req verify.Request
	require.NoError(t, loadSide(loader, &req, verify.SideFront, good))
	require.NoError(t, loadSide(loader, &req, verify.SideBack, corrupt))
	assert.NotNil(t, req.Front)
	assert.Nil(t, req.Back)
	assert.Equal(t, []string{verify.SideBack}, req.Unreadable)

	err := loadSide(loader, &req, verify.SideBack, filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.png")
}
