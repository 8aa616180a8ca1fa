// Package dnn - SSD inference through OpenCV's DNN module.
//
// SSDModel loads a network with gocv.ReadNet, feeds it frames as blobs and
// hands the raw box and score outputs to a detector.Detector.
package dnn

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvr-ai/go-ssd/detector"
	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Options configures an SSDModel.
type Options struct {
	// ConfigPath is the optional network description (.pbtxt) for TensorFlow graphs.
	ConfigPath string `json:"config_path" yaml:"config_path"`
	// Backend is the OpenCV DNN backend name, e.g. "opencv" or "cuda". Empty uses the default.
	Backend string `json:"backend" yaml:"backend"`
	// Target is the OpenCV DNN target name, e.g. "cpu" or "fp16". Empty uses the default.
	Target string `json:"target" yaml:"target"`
	// Timeout bounds a single forward pass. Zero disables the bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// RelevantClasses keeps only objects with these labels. Empty keeps everything.
	RelevantClasses []string `json:"relevant_classes" yaml:"relevant_classes"`
	// Logger receives load and per-frame logs.
	Logger *zap.Logger `json:"-" yaml:"-"`
}

// DefaultOptions returns options with a five second forward pass bound.
func DefaultOptions() Options {
	return Options{Timeout: 5 * time.Second}
}

// SSDModel runs an SSD network with OpenCV and post-processes its outputs.
type SSDModel struct {
	mu       sync.Mutex
	net      gocv.Net
	cfg      model.Config
	det      *detector.Detector
	opts     Options
	relevant map[string]bool
	scale    float64
	mean     gocv.Scalar
	logger   *zap.Logger
	closed   bool
	// infer runs a blob through the network. It defaults to forward.
	infer func(blob gocv.Mat) ([]float32, []float32, error)
}

// NewSSDModel loads the network at det.Config().Path.
//
// OpenCV always feeds NCHW blobs. TensorFlow graphs are converted by OpenCV's
// importer, but ONNX graphs with NHWC inputs must run through ONNX Runtime
// instead.
//
// Arguments:
//   - det: The detector holding the model configuration and anchors.
//   - opts: Loading and runtime options.
//
// Returns:
//   - *SSDModel: The loaded model. The caller must Close it.
//   - error: An error if the model file is missing, unsupported or cannot be loaded.
func NewSSDModel(det *detector.Detector, opts Options) (*SSDModel, error) {
	cfg := det.Config()
	if err := ValidateModel(cfg, opts); err != nil {
		return nil, err
	}
	if len(cfg.Outputs) != 2 {
		return nil, errors.Errorf("model %q must name its box and score outputs", cfg.Name)
	}
	if cfg.Layout == images.LayoutNHWC && strings.EqualFold(filepath.Ext(cfg.Path), ".onnx") {
		return nil, errors.Errorf("model %q expects nhwc input; OpenCV feeds nchw blobs to ONNX graphs", cfg.Name)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	net := gocv.ReadNet(cfg.Path, opts.ConfigPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load SSD model %s (model may be incompatible with OpenCV DNN)", cfg.Path)
	}
	if opts.Backend != "" {
		if err := net.SetPreferableBackend(gocv.ParseNetBackend(opts.Backend)); err != nil {
			net.Close()
			return nil, errors.Wrap(err, "set DNN backend")
		}
	}
	if opts.Target != "" {
		if err := net.SetPreferableTarget(gocv.ParseNetTarget(opts.Target)); err != nil {
			net.Close()
			return nil, errors.Wrap(err, "set DNN target")
		}
	}

	scale, mean := BlobParams(cfg.Normalize)
	m := &SSDModel{
		net:      net,
		cfg:      cfg,
		det:      det,
		opts:     opts,
		relevant: make(map[string]bool, len(opts.RelevantClasses)),
		scale:    scale,
		mean:     mean,
		logger:   logger,
	}
	m.infer = m.forward
	for _, name := range opts.RelevantClasses {
		m.relevant[name] = true
	}

	logger.Info("SSD model loaded with OpenCV DNN",
		zap.String("model", string(cfg.Name)),
		zap.String("path", cfg.Path),
		zap.Int("input_width", cfg.InputWidth),
		zap.Int("input_height", cfg.InputHeight),
		zap.Strings("outputs", cfg.Outputs),
		zap.Strings("relevant_classes", opts.RelevantClasses),
	)
	return m, nil
}

// ValidateModel checks that the model and optional graph description files exist and are not empty.
func ValidateModel(cfg model.Config, opts Options) error {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return errors.Wrap(err, "SSD model file")
	}
	if info.Size() == 0 {
		return errors.Errorf("SSD model file is empty: %s", cfg.Path)
	}
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			return errors.Wrap(err, "SSD graph description file")
		}
	}
	return nil
}

// BlobParams maps a pixel normalization onto BlobFromImage's scale factor and mean.
func BlobParams(n images.Normalization) (scale float64, mean gocv.Scalar) {
	switch n {
	case images.NormalizeZeroToOne:
		return 1.0 / 255.0, gocv.NewScalar(0, 0, 0, 0)
	case images.NormalizeNone:
		return 1.0, gocv.NewScalar(0, 0, 0, 0)
	default:
		// (pixel - 127.5) / 127.5
		return 1.0 / 127.5, gocv.NewScalar(127.5, 127.5, 127.5, 0)
	}
}

type forwardResult struct {
	boxes, scores []float32
	err           error
}

// Detect runs the network on a BGR frame and returns the relevant objects.
//
// The frame is copied into a blob before inference starts, so img may be
// reused or closed as soon as Detect returns, even after a timeout.
func (m *SSDModel) Detect(img gocv.Mat) ([]detector.Object, error) {
	if img.Empty() {
		return nil, errors.New("empty frame")
	}
	width, height := img.Cols(), img.Rows()

	blob := gocv.BlobFromImage(img, m.scale, image.Pt(m.cfg.InputWidth, m.cfg.InputHeight), m.mean, true, false)
	if blob.Empty() {
		blob.Close()
		return nil, errors.New("failed to create input blob")
	}

	// The goroutine owns the blob and closes it when inference ends, which
	// may be after a timeout has already been reported.
	done := make(chan forwardResult, 1)
	go func() {
		defer blob.Close()
		boxes, scores, err := m.infer(blob)
		done <- forwardResult{boxes: boxes, scores: scores, err: err}
	}()

	var res forwardResult
	if m.opts.Timeout > 0 {
		select {
		case res = <-done:
		case <-time.After(m.opts.Timeout):
			return nil, errors.Errorf("SSD inference timeout after %s", m.opts.Timeout)
		}
	} else {
		res = <-done
	}
	if res.err != nil {
		return nil, res.err
	}

	objects, err := m.det.Detect(res.boxes, res.scores, width, height)
	if err != nil {
		return nil, err
	}
	return m.filter(objects), nil
}

// DetectROI runs the network on a region of img and maps the objects back to
// normalized coordinates of the whole frame.
func (m *SSDModel) DetectROI(img gocv.Mat, roi image.Rectangle) ([]detector.Object, error) {
	roi = roi.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if roi.Empty() {
		return nil, errors.New("region of interest is outside the frame")
	}

	region := img.Region(roi)
	defer region.Close()

	objects, err := m.Detect(region)
	if err != nil {
		return nil, err
	}
	for i := range objects {
		objects[i].Box = objects[i].Box.FromRegion(roi, img.Cols(), img.Rows())
	}
	return objects, nil
}

// forward runs one blob through the network and copies both outputs out of
// OpenCV-owned memory.
func (m *SSDModel) forward(blob gocv.Mat) ([]float32, []float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, errors.New("SSD model is closed")
	}

	input := ""
	if len(m.cfg.Inputs) == 1 {
		input = m.cfg.Inputs[0]
	}
	m.net.SetInput(blob, input)

	outs := m.net.ForwardLayers(m.cfg.Outputs)
	defer func() {
		for _, out := range outs {
			out.Close()
		}
	}()
	if len(outs) != 2 {
		return nil, nil, errors.Errorf("SSD inference returned %d outputs, want 2", len(outs))
	}

	boxes, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read box output")
	}
	scores, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read score output")
	}
	return append([]float32(nil), boxes...), append([]float32(nil), scores...), nil
}

// filter keeps the objects whose label is relevant.
func (m *SSDModel) filter(objects []detector.Object) []detector.Object {
	if len(m.relevant) == 0 {
		return objects
	}
	kept := objects[:0]
	for _, obj := range objects {
		if m.relevant[obj.Label] {
			kept = append(kept, obj)
		}
	}
	return kept
}

// IsRelevantClass reports whether objects labeled name are kept.
func (m *SSDModel) IsRelevantClass(name string) bool {
	return len(m.relevant) == 0 || m.relevant[name]
}

// Close releases the network. It is safe to call more than once.
func (m *SSDModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Info("SSD model closed", zap.String("model", string(m.cfg.Name)))
	return m.net.Close()
}
