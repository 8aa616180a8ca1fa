package models

import (
	"fmt"
	"io"
	"sort"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/nvr-ai/go-ssd/models/postprocess"
)

// presets maps every built-in model name to its configuration constructor.
var presets = map[model.Name]func() model.Config{
	model.NameSSDMobileNetV2COCO: ssdMobileNetV2COCO,
	model.NameSSDFace:            ssdFace,
}

// NewConfig returns the configuration of a built-in model preset.
//
// This factory is the entry point for model selection: callers name a model
// and receive a complete, validated model.Config that can be handed to a
// detector or an inference session.
//
// Arguments:
//   - name: The preset name.
//
// Returns:
//   - model.Config: A fresh copy of the preset, safe to modify.
//   - error: An error if the preset name is unknown.
//
// Example:
//
// ```go
//
//	cfg, err := models.NewConfig(model.NameSSDMobileNetV2COCO)
//	if err != nil {
//	    log.Fatalf("Failed to resolve model preset: %v", err)
//	}
//
//	cfg.NMS.ScoreThreshold = 0.4
//
// ```
func NewConfig(name model.Name) (model.Config, error) {
	preset, ok := presets[name]
	if !ok {
		return model.Config{}, fmt.Errorf("unsupported model name: %s", name)
	}
	return preset(), nil
}

// NewConfigWithOverrides resolves a preset and decodes YAML overrides onto it.
func NewConfigWithOverrides(name model.Name, overrides io.Reader) (model.Config, error) {
	base, err := NewConfig(name)
	if err != nil {
		return model.Config{}, err
	}
	return model.DecodeConfig(overrides, base)
}

// Presets lists the built-in model names in sorted order.
func Presets() []model.Name {
	names := make([]model.Name, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ssdMobileNetV2COCO is the TF object detection API SSD MobileNet v2 export,
// scoring raw logits for all 91 TF label map ids over 1917 anchors.
func ssdMobileNetV2COCO() model.Config {
	cfg := model.DefaultConfig()
	cfg.Name = model.NameSSDMobileNetV2COCO
	cfg.Family = model.FamilyTF
	cfg.Inputs = []string{"normalized_input_image_tensor"}
	cfg.Outputs = []string{"raw_outputs/box_encodings", "raw_outputs/class_predictions"}
	cfg.NumClasses = len(TFCOCOClasses.Classes)
	cfg.Activation = model.ActivationSigmoid
	cfg.NMS.NumClasses = cfg.NumClasses
	return cfg
}

// ssdFace is a two-layer, square-anchor face detector. Its crop margin widens
// boxes slightly and extends them upward to take in the forehead.
func ssdFace() model.Config {
	cfg := model.DefaultConfig()
	cfg.Name = model.NameSSDFace
	cfg.Family = model.FamilyFace
	cfg.Layout = images.LayoutNCHW
	cfg.Normalize = images.NormalizeZeroToOne
	cfg.Inputs = []string{"input"}
	cfg.Outputs = []string{"boxes", "scores"}
	cfg.NumClasses = len(FaceClasses.Classes)
	cfg.Activation = model.ActivationSigmoid
	cfg.Anchors = postprocess.AnchorConfig{
		MinScale:                     0.1,
		MaxScale:                     0.5,
		AspectRatios:                 []float32{1},
		BaseAnchorSize:               [2]float32{1, 1},
		FeatureMapShapes:             [][2]int{{19, 19}, {10, 10}},
		InterpolatedScaleAspectRatio: 1,
		ReduceBoxesInLowestLayer:     false,
	}
	cfg.NMS = postprocess.NMSConfig{
		ScoreThreshold:        0.5,
		IoUThreshold:          0.3,
		MaxDetectionsPerClass: 50,
		MaxTotalDetections:    50,
		NumClasses:            cfg.NumClasses,
		NumWorkers:            1,
	}
	cfg.Margin = postprocess.Margin{1.1, 1.1, 1.3, 1.05}
	return cfg
}
