// Package model - Per-model detector configuration.
//
// A Config carries everything the post-processing pipeline needs to know
// about one SSD network: its input tensor, output names, anchor pyramid,
// class count, suppression thresholds and crop margin. It replaces any
// process-wide state, so several detectors with different models can run
// side by side.
package model

import (
	"fmt"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/models/postprocess"
)

// Family is the label map a model's class ids index into.
type Family string

const (
	// FamilyCOCO is the 80 contiguous COCO classes plus background.
	FamilyCOCO Family = "coco"
	// FamilyTF is the TensorFlow COCO label map: 90 ids with gaps, plus background.
	FamilyTF Family = "tf"
	// FamilyVOC is the 20 Pascal VOC classes plus background.
	FamilyVOC Family = "voc"
	// FamilyFace is a single face class plus background.
	FamilyFace Family = "face"
)

// Name is the unique identifier of a model preset.
type Name string

const (
	// NameSSDMobileNetV2COCO is SSD MobileNet v2 trained on COCO (TF object detection API export).
	NameSSDMobileNetV2COCO Name = "ssd_mobilenet_v2_coco"
	// NameSSDFace is a single-class SSD face detector.
	NameSSDFace Name = "ssd_face"
)

// Activation is applied to the raw class scores before suppression.
type Activation string

const (
	// ActivationNone uses the scores as supplied by the network.
	ActivationNone Activation = "none"
	// ActivationSigmoid maps raw logits through 1/(1+exp(-x)).
	ActivationSigmoid Activation = "sigmoid"
)

// Config describes one SSD model end to end.
type Config struct {
	// Name identifies the model, usually a preset name.
	Name Name `json:"name" yaml:"name"`
	// Family selects the label map for class ids.
	Family Family `json:"family" yaml:"family"`
	// Path is the model file to load, if any.
	Path string `json:"path" yaml:"path"`
	// InputWidth is the network input width in pixels.
	InputWidth int `json:"input_width" yaml:"input_width"`
	// InputHeight is the network input height in pixels.
	InputHeight int `json:"input_height" yaml:"input_height"`
	// Layout is the input tensor layout.
	Layout images.Layout `json:"layout" yaml:"layout"`
	// Normalize is the input pixel normalization.
	Normalize images.Normalization `json:"normalize" yaml:"normalize"`
	// Inputs holds the name of the image input tensor.
	Inputs []string `json:"inputs" yaml:"inputs"`
	// Outputs holds the names of the box and score tensors, in that order.
	Outputs []string `json:"outputs" yaml:"outputs"`
	// BoxSize is the number of values per anchor in the box tensor.
	BoxSize int `json:"box_size" yaml:"box_size"`
	// NumClasses is the number of score columns per anchor, background included.
	// It overrides NMS.NumClasses.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// Activation is applied to a copy of the scores before suppression.
	Activation Activation `json:"activation" yaml:"activation"`
	// Anchors is the anchor pyramid matching the network's output order.
	Anchors postprocess.AnchorConfig `json:"anchors" yaml:"anchors"`
	// NMS holds the suppression thresholds and caps.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`
	// Margin scales accepted boxes around their centers (left, right, top, bottom).
	Margin postprocess.Margin `json:"margin" yaml:"margin"`
}

// DefaultConfig returns a 300x300 SSD MobileNet configuration with generic
// tensor names and scores used as supplied.
func DefaultConfig() Config {
	nms := postprocess.DefaultNMSConfig()
	return Config{
		Family:      FamilyTF,
		InputWidth:  300,
		InputHeight: 300,
		Layout:      images.LayoutNHWC,
		Normalize:   images.NormalizeMinusOneToOne,
		Inputs:      []string{"input"},
		Outputs:     []string{"boxes", "scores"},
		BoxSize:     postprocess.DefaultBoxSize,
		NumClasses:  nms.NumClasses,
		Activation:  ActivationNone,
		Anchors:     postprocess.DefaultAnchorConfig(),
		NMS:         nms,
		Margin:      postprocess.DefaultMargin,
	}
}

// NMSConfig returns the suppression settings with NumClasses taken from the model.
func (c Config) NMSConfig() postprocess.NMSConfig {
	nms := c.NMS
	nms.NumClasses = c.NumClasses
	return nms
}

// TensorOptions returns the input conversion settings for images.ToTensor.
func (c Config) TensorOptions() images.TensorOptions {
	return images.TensorOptions{
		Width:     c.InputWidth,
		Height:    c.InputHeight,
		Layout:    c.Layout,
		Normalize: c.Normalize,
	}
}

// NumBoxes returns the number of anchors, and so boxes, the model emits per frame.
func (c Config) NumBoxes() (int, error) {
	return postprocess.AnchorCount(c.Anchors)
}

// Validate reports the first invalid field as a *postprocess.ConfigError.
func (c Config) Validate() error {
	switch {
	case c.InputWidth <= 0:
		return configError("input_width", "must be positive, got %d", c.InputWidth)
	case c.InputHeight <= 0:
		return configError("input_height", "must be positive, got %d", c.InputHeight)
	case c.Layout != images.LayoutNHWC && c.Layout != images.LayoutNCHW:
		return configError("layout", "unsupported layout %q", c.Layout)
	case len(c.Inputs) > 1:
		return configError("inputs", "expected at most one input tensor, got %d", len(c.Inputs))
	case len(c.Outputs) != 0 && len(c.Outputs) != 2:
		return configError("outputs", "expected box and score tensor names, got %d names", len(c.Outputs))
	case c.BoxSize < 4:
		return configError("box_size", "must be at least 4, got %d", c.BoxSize)
	case c.Activation != "" && c.Activation != ActivationNone && c.Activation != ActivationSigmoid:
		return configError("activation", "unsupported activation %q", c.Activation)
	}

	switch c.Normalize {
	case "", images.NormalizeZeroToOne, images.NormalizeMinusOneToOne, images.NormalizeNone:
	default:
		return configError("normalize", "unsupported normalization %q", c.Normalize)
	}

	for i, m := range c.Margin {
		if m <= 0 {
			return configError(fmt.Sprintf("margin[%d]", i), "must be positive, got %g", m)
		}
	}

	if _, err := c.NumBoxes(); err != nil {
		return err
	}
	return c.NMSConfig().Validate()
}

func configError(field, format string, args ...any) error {
	return &postprocess.ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
