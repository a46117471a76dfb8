package cascade

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/idcheck/internal/recognizer"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// Prep is the pixel transform applied to a crop before recognition.
type Prep int

const (
	PrepNone Prep = iota
	PrepBinarize
	PrepSharpen
)

func (p Prep) String() string {
	switch p {
	case PrepBinarize:
		return "binarize"
	case PrepSharpen:
		return "sharpen"
	default:
		return "raw"
	}
}

// Strategy is one way of reading the MRZ out of a document image.
type Strategy struct {
	Name string
	// CropRatio is the bottom fraction of the image to keep; 0 keeps it all.
	CropRatio float64
	Prep      Prep
	Charset   recognizer.CharsetMode
}

// Segmentation returns the layout hint paired with the strategy's charset.
func (s Strategy) Segmentation() recognizer.SegmentationMode {
	if s.Charset == recognizer.CharsetRestricted {
		return recognizer.SegmentUniformBlock
	}
	return recognizer.SegmentAutomatic
}

func newStrategy(ratio float64, prep Prep, charset recognizer.CharsetMode) Strategy {
	region := "full"
	if ratio > 0 {
		region = fmt.Sprintf("crop%02.0f", ratio*100)
	}
	return Strategy{
		Name:      fmt.Sprintf("%s/%s/%s", region, prep, charset),
		CropRatio: ratio,
		Prep:      prep,
		Charset:   charset,
	}
}

// DefaultStrategies returns the attempt order used for every document image:
// binarized bottom crops with the MRZ charset and then with the full charset,
// raw and sharpened wide crops, and finally the whole binarized image.
func DefaultStrategies() []Strategy {
	crops := []float64{0.35, 0.25, 0.20, 0.15}
	wide := crops[:2]

	var out []Strategy
	for _, r := range crops {
		out = append(out, newStrategy(r, PrepBinarize, recognizer.CharsetRestricted))
	}
	for _, r := range crops {
		out = append(out, newStrategy(r, PrepBinarize, recognizer.CharsetFull))
	}
	for _, r := range wide {
		out = append(out, newStrategy(r, PrepNone, recognizer.CharsetRestricted))
	}
	for _, r := range wide {
		out = append(out, newStrategy(r, PrepSharpen, recognizer.CharsetRestricted))
	}
	out = append(out,
		newStrategy(0, PrepBinarize, recognizer.CharsetRestricted),
		newStrategy(0, PrepBinarize, recognizer.CharsetFull),
	)
	return out
}

// prepare produces the buffer handed to the recognizer. Every intermediate is
// owned by this call.
func (s Strategy) prepare(img image.Image, minHeight int) image.Image {
	region := img
	if s.CropRatio > 0 {
		region = utils.CropBottom(img, s.CropRatio)
	}
	switch s.Prep {
	case PrepBinarize:
		region = utils.PreprocessForMRZ(region)
	case PrepSharpen:
		region = utils.Sharpen(region)
	}
	return utils.ScaleUpIfShort(region, minHeight)
}
