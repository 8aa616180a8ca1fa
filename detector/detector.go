// Package detector - Runs SSD post-processing for one model, frame after frame.
//
// A Detector generates its anchors once at construction and then turns each
// frame's raw network outputs into labeled, de-duplicated objects:
//
//	decode -> suppress -> crop -> label
//
// Its state is read-only after New, so one Detector can serve many goroutines
// as long as every call passes its own tensors.
package detector

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/models"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/nvr-ai/go-ssd/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Network produces the raw box and score tensors for one input tensor.
// *inference.Session implements it.
type Network interface {
	Run(input []float32) (boxes []float32, scores []float32, err error)
}

// Object is a detection with its class label.
type Object struct {
	postprocess.Detection
	// Label is the class name, or "" when the label set has none.
	Label string `json:"label" yaml:"label"`
}

// Pixels returns the object's box in pixel coordinates of a width x height frame.
func (o Object) Pixels(width, height int) image.Rectangle {
	return o.Box.ToRectangle(width, height)
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLabels overrides the class-id to label mapping derived from the model family.
func WithLabels(labels func(int) string) Option {
	return func(d *Detector) {
		if labels != nil {
			d.labels = labels
		}
	}
}

// Detector holds a model configuration and its anchors.
type Detector struct {
	cfg     model.Config
	nms     postprocess.NMSConfig
	anchors []postprocess.Anchor
	labels  func(int) string
	logger  *zap.Logger
}

// New validates cfg and generates its anchors.
//
// Arguments:
//   - cfg: The model configuration.
//   - opts: Optional logger and label overrides.
//
// Returns:
//   - *Detector: The detector.
//   - error: A *postprocess.ConfigError if cfg is invalid.
//
// Example:
//
// ```go
//
//	cfg, _ := models.NewConfig(model.NameSSDMobileNetV2COCO)
//	det, err := detector.New(cfg, detector.WithLogger(logger))
//	if err != nil {
//	    log.Fatalf("Failed to create detector: %v", err)
//	}
//
//	objects, err := det.Detect(boxes, scores, frame.Cols(), frame.Rows())
//
// ```
func New(cfg model.Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	anchors, err := postprocess.GenerateAnchors(cfg.Anchors)
	if err != nil {
		return nil, errors.Wrap(err, "generate anchors")
	}

	d := &Detector{
		cfg:     cfg,
		nms:     cfg.NMSConfig(),
		anchors: anchors,
		labels:  models.Labeler(cfg.Family),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger.Info("detector ready",
		zap.String("model", string(cfg.Name)),
		zap.String("family", string(cfg.Family)),
		zap.Int("anchors", len(anchors)),
		zap.Int("classes", cfg.NumClasses),
		zap.String("activation", string(cfg.Activation)),
	)
	return d, nil
}

// Config returns the detector's model configuration.
func (d *Detector) Config() model.Config {
	return d.cfg
}

// Anchors returns the anchors shared by every frame. Callers must not modify them.
func (d *Detector) Anchors() []postprocess.Anchor {
	return d.anchors
}

// NumBoxes returns the number of boxes the model emits per frame.
func (d *Detector) NumBoxes() int {
	return len(d.anchors)
}

// Detect post-processes one frame.
//
// boxes is decoded in place and must not be reused afterwards. scores is only
// read; with a sigmoid activation a transformed copy is suppressed instead.
//
// Arguments:
//   - boxes: The raw box tensor, NumBoxes()*BoxSize values.
//   - scores: The raw score tensor, NumBoxes()*NumClasses values.
//   - imageWidth: The frame width in pixels.
//   - imageHeight: The frame height in pixels.
//
// Returns:
//   - []Object: The detections, ordered by class then descending score unless
//     the total cap was applied.
//   - error: A *postprocess.ShapeError or *postprocess.DegenerateBoxError. The
//     frame produces no partial result.
func (d *Detector) Detect(boxes, scores []float32, imageWidth, imageHeight int) ([]Object, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", imageWidth, imageHeight)
	}
	if want := len(d.anchors) * d.cfg.BoxSize; len(boxes) != want {
		return nil, &postprocess.ShapeError{Name: "boxes", Got: len(boxes), Want: want}
	}
	if want := len(d.anchors) * d.cfg.NumClasses; len(scores) != want {
		return nil, &postprocess.ShapeError{Name: "scores", Got: len(scores), Want: want}
	}

	if d.cfg.Activation == model.ActivationSigmoid {
		scores = sigmoid(scores)
	}

	decoded, err := postprocess.DecodeBoxes(boxes, d.anchors, d.cfg.BoxSize)
	if err != nil {
		return nil, errors.Wrap(err, "decode boxes")
	}

	dets, err := postprocess.Suppress(decoded, scores, d.nms)
	if err != nil {
		return nil, errors.Wrap(err, "suppress boxes")
	}

	postprocess.Crop(dets, imageWidth, imageHeight, d.cfg.Margin)

	objects := make([]Object, len(dets))
	for i, det := range dets {
		objects[i] = Object{Detection: det, Label: d.labels(det.Class)}
	}

	d.logger.Debug("frame post-processed",
		zap.String("model", string(d.cfg.Name)),
		zap.Int("detections", len(objects)),
	)
	return objects, nil
}

// DetectImage converts img to the model input, runs net and post-processes
// the outputs against img's size.
func (d *Detector) DetectImage(img image.Image, net Network) ([]Object, error) {
	input, err := images.ToTensor(img, d.cfg.TensorOptions())
	if err != nil {
		return nil, errors.Wrap(err, "prepare input tensor")
	}

	boxes, scores, err := net.Run(input)
	if err != nil {
		return nil, errors.Wrap(err, "run network")
	}

	bounds := img.Bounds()
	return d.Detect(boxes, scores, bounds.Dx(), bounds.Dy())
}

// sigmoid returns 1/(1+exp(-x)) for every score, in a new slice.
func sigmoid(scores []float32) []float32 {
	out := make([]float32, len(scores))
	for i, x := range scores {
		out[i] = 1 / (1 + math32.Exp(-x))
	}
	return out
}
