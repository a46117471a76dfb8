package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/MeKo-Tech/idcheck/internal/mempool"
	"github.com/MeKo-Tech/idcheck/internal/onnx"
	"github.com/MeKo-Tech/idcheck/internal/utils"
	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"
)

const padWidthMultiple = 8

// ONNXEngine runs a PaddleOCR recognition model line by line.
type ONNXEngine struct {
	mu      sync.Mutex
	session *onnxrt.DynamicAdvancedSession
	charset *Charset
	height  int
	logger  *slog.Logger
}

// NewONNX loads the model and dictionary of cfg into a new session.
func NewONNX(cfg Config) (*ONNXEngine, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := onnx.Initialize(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(inputs[0].Dimensions))
	}
	height := cfg.ImageHeight
	if h := inputs[0].Dimensions[2]; h > 0 {
		height = int(h)
	}
	if height <= 0 {
		height = 48
	}

	charset, err := LoadCharset(cfg.DictPath)
	if err != nil {
		return nil, err
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	if err := onnx.ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger.Debug("ONNX recognizer ready", "model", cfg.ModelPath, "height", height, "charset_size", charset.Size())
	return &ONNXEngine{session: session, charset: charset, height: height, logger: logger}, nil
}

// Recognize reads img line by line. In automatic mode each line is further
// split into blocks on wide gaps, joined back with spaces.
func (e *ONNXEngine) Recognize(ctx context.Context, img image.Image, charset CharsetMode, seg SegmentationMode) (string, error) {
	if img == nil {
		return "", errors.New("input image is nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return "", errors.New("recognizer is closed")
	}

	var lines []string
	for _, line := range SplitLines(img) {
		blocks := []image.Rectangle{line}
		if seg == SegmentAutomatic {
			blocks = SplitColumns(img, line)
		}
		words := make([]string, 0, len(blocks))
		for _, r := range blocks {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			text, err := e.recognizeLine(imaging.Crop(img, r))
			if err != nil {
				return "", err
			}
			if text = strings.TrimSpace(text); text != "" {
				words = append(words, text)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}

	text := strings.Join(lines, "\n")
	if charset == CharsetRestricted {
		text = FilterWhitelist(text)
	}
	return text, nil
}

func (e *ONNXEngine) recognizeLine(img image.Image) (string, error) {
	resized, _, _, err := ResizeForRecognition(img, e.height, 0, padWidthMultiple)
	if err != nil {
		return "", fmt.Errorf("resize: %w", err)
	}
	b := resized.Bounds()
	buf := mempool.GetFloat32(3 * b.Dx() * b.Dy())
	defer mempool.PutFloat32(buf)
	data, w, h, err := utils.NormalizeImageInto(resized, buf)
	if err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}
	ten, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return "", err
	}

	input, err := onnxrt.NewTensor(onnxrt.NewShape(ten.Shape...), ten.Data)
	if err != nil {
		return "", fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := e.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	out, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return "", fmt.Errorf("expected float32 tensor, got %T", outputs[0])
	}
	shape := out.GetShape()
	paths := DecodeCTCGreedy(out.GetData(), shape, 0, classesFirst(shape, e.charset.Size()+2))
	if len(paths) == 0 {
		return "", errors.New("empty decoded output")
	}
	return e.charset.Decode(paths[0]), nil
}

// Close destroys the session. It is safe to call more than once.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
