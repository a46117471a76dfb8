package cascade

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/recognizer"
	"github.com/MeKo-Tech/idcheck/internal/recognizer/mocks"
)

func pad(s string, n int) string {
	return s + strings.Repeat("<", n-len(s))
}

var (
	validTD1 = strings.Join([]string{
		pad("IDFRA123456789", 30),
		pad("9005127M3001019FRA", 30),
		pad("DUPONT<<JEAN", 30),
	}, "\n")
	partialTD1 = strings.Join([]string{
		pad("IDFRA123456789", 30),
		pad("<<<<<<<M3001019FRA", 30),
		pad("DUPONT<<JEAN", 30),
	}, "\n")
	otherPartialTD1 = strings.Replace(partialTD1, "DUPONT", "MARTIN", 1)
)

func document() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 200))
	for y := range 200 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

// scripted returns the i-th response on the i-th call and garbage afterwards.
func scripted(responses ...string) func(context.Context, image.Image, recognizer.CharsetMode, recognizer.SegmentationMode) (string, error) {
	i := 0
	return func(context.Context, image.Image, recognizer.CharsetMode, recognizer.SegmentationMode) (string, error) {
		defer func() { i++ }()
		if i < len(responses) {
			return responses[i], nil
		}
		return "REPUBLIQUE", nil
	}
}

func TestDefaultStrategies(t *testing.T) {
	s := DefaultStrategies()
	require.Len(t, s, 14)

	assert.Equal(t, "crop35/binarize/restricted", s[0].Name)
	assert.Equal(t, "crop15/binarize/restricted", s[3].Name)
	assert.Equal(t, "crop35/binarize/full", s[4].Name)
	assert.Equal(t, "crop35/raw/restricted", s[8].Name)
	assert.Equal(t, "crop25/sharpen/restricted", s[11].Name)
	assert.Equal(t, "full/binarize/restricted", s[12].Name)
	assert.Equal(t, "full/binarize/full", s[13].Name)

	for _, st := range s {
		if st.Charset == recognizer.CharsetRestricted {
			assert.Equal(t, recognizer.SegmentUniformBlock, st.Segmentation(), st.Name)
		} else {
			assert.Equal(t, recognizer.SegmentAutomatic, st.Segmentation(), st.Name)
		}
	}
}

func TestStrategyPrepare(t *testing.T) {
	img := document()

	crop := newStrategy(0.25, PrepBinarize, recognizer.CharsetRestricted).prepare(img, 300)
	assert.GreaterOrEqual(t, crop.Bounds().Dy(), 300)

	tall := newStrategy(0.5, PrepBinarize, recognizer.CharsetRestricted).prepare(img, 50)
	_, isGray := tall.(*image.Gray)
	assert.True(t, isGray)
	assert.Equal(t, 100, tall.Bounds().Dy())

	full := newStrategy(0, PrepNone, recognizer.CharsetFull).prepare(img, 100)
	assert.Equal(t, img, full)
}

func TestCascade_StopsAtFirstValid(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)
	rec.EXPECT().
		Recognize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(scripted("garbage", "", validTD1)).
		Times(3)

	out := New(rec, Options{}).Run(context.Background(), document(), "front")

	require.True(t, out.Valid())
	assert.Equal(t, "DUPONT", out.Record.Surname)
	assert.Equal(t, "crop20/binarize/restricted", out.Strategy)
	require.Len(t, out.Attempts, 3)
	assert.Equal(t, FailureNoMRZ, out.Attempts[0].Failure.Kind)
	assert.Nil(t, out.Attempts[2].Failure)
	assert.Equal(t, "valid", out.Attempts[2].Outcome())
}

func TestCascade_KeepsFirstPartial(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)
	rec.EXPECT().
		Recognize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(scripted("", partialTD1, otherPartialTD1)).
		Times(14)

	out := New(rec, Options{}).Run(context.Background(), document(), "back")

	assert.False(t, out.Valid())
	assert.True(t, out.Partial())
	assert.Equal(t, "DUPONT", out.Record.Surname)
	assert.Equal(t, "crop25/binarize/restricted", out.Strategy)
	assert.Len(t, out.Attempts, 14)
	assert.Equal(t, FailurePartial, out.Attempts[1].Failure.Kind)
}

func TestCascade_AbsorbsRecognizerErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)
	boom := errors.New("tesseract crashed")
	rec.EXPECT().
		Recognize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", boom).
		Times(14)

	out := New(rec, Options{}).Run(context.Background(), document(), "front")

	assert.Nil(t, out.Record)
	assert.False(t, out.Partial())
	require.Len(t, out.Attempts, 14)
	for _, a := range out.Attempts {
		require.NotNil(t, a.Failure)
		assert.Equal(t, FailureRecognizer, a.Failure.Kind)
		assert.ErrorIs(t, a.Failure, boom)
	}
}

func TestCascade_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := New(rec, Options{}).Run(ctx, document(), "front")

	require.Len(t, out.Attempts, 1)
	assert.Equal(t, FailureCanceled, out.Attempts[0].Failure.Kind)
	assert.ErrorIs(t, out.Attempts[0].Failure, context.Canceled)
}

func TestCascade_ReportsEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)
	rec.EXPECT().
		Recognize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(scripted("", validTD1)).
		Times(2)

	var events []AttemptEvent
	obs := ObserverFunc(func(e AttemptEvent) { events = append(events, e) })

	strategies := DefaultStrategies()[:3]
	New(rec, Options{Strategies: strategies, Observer: Observers(nil, obs)}).
		Run(context.Background(), document(), "back")

	require.Len(t, events, 2)
	assert.Equal(t, "back", events[0].Image)
	assert.Equal(t, "no_mrz", events[0].Outcome)
	assert.Equal(t, 3, events[0].Total)
	assert.Equal(t, 1, events[1].Index)
	assert.Equal(t, "valid", events[1].Outcome)
}

func TestCascade_CustomParser(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)
	rec.EXPECT().
		Recognize(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(validTD1, nil).
		Times(2)

	parser := mrz.NewParser(mrz.Options{Countries: []string{"CMR"}})
	out := New(rec, Options{Parser: parser, Strategies: DefaultStrategies()[:2]}).
		Run(context.Background(), document(), "front")

	assert.Nil(t, out.Record, "FRA is outside the allow-list")
}

func TestStrategyFailure_Error(t *testing.T) {
	f := &StrategyFailure{Strategy: "crop35/raw/restricted", Kind: FailureNoMRZ, Err: errNoMRZ}
	assert.Equal(t, "strategy crop35/raw/restricted: no_mrz: no MRZ layout in recognized text", f.Error())
	assert.ErrorIs(t, f, errNoMRZ)
}
