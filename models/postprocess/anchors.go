package postprocess

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Anchor is a reference box at a fixed grid position, scale and aspect ratio.
// All values are normalized to [0, 1] relative to the network input.
type Anchor struct {
	YCenter float32
	XCenter float32
	Height  float32
	Width   float32
}

// AnchorConfig describes the feature-map pyramid of an SSD-style detector.
type AnchorConfig struct {
	// MinScale is the anchor scale of the lowest pyramid layer.
	MinScale float32 `json:"min_scale" yaml:"min_scale"`
	// MaxScale is the anchor scale of the highest pyramid layer.
	MaxScale float32 `json:"max_scale" yaml:"max_scale"`
	// AspectRatios are the width/height ratios emitted per grid cell, in order.
	AspectRatios []float32 `json:"aspect_ratios" yaml:"aspect_ratios"`
	// BaseAnchorSize multiplies every anchor's height and width.
	BaseAnchorSize [2]float32 `json:"base_anchor_size" yaml:"base_anchor_size"`
	// FeatureMapShapes lists the (gridHeight, gridWidth) of each pyramid layer,
	// in the order the network concatenates its outputs.
	FeatureMapShapes [][2]int `json:"feature_map_shapes" yaml:"feature_map_shapes"`
	// InterpolatedScaleAspectRatio adds one extra anchor per cell at the
	// geometric mean of this layer's and the next layer's scale. 0 disables it.
	InterpolatedScaleAspectRatio float32 `json:"interpolated_scale_aspect_ratio" yaml:"interpolated_scale_aspect_ratio"`
	// ReduceBoxesInLowestLayer replaces layer 0's box specs with a fixed set of three.
	ReduceBoxesInLowestLayer bool `json:"reduce_boxes_in_lowest_layer" yaml:"reduce_boxes_in_lowest_layer"`
}

// DefaultAnchorConfig returns the SSD MobileNet v2 300x300 pyramid, which
// yields 1917 anchors.
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{
		MinScale:                     0.2,
		MaxScale:                     0.95,
		AspectRatios:                 []float32{1.0, 2.0, 0.5, 3.0, 1.0 / 3.0},
		BaseAnchorSize:               [2]float32{1, 1},
		FeatureMapShapes:             [][2]int{{19, 19}, {10, 10}, {5, 5}, {3, 3}, {2, 2}, {1, 1}},
		InterpolatedScaleAspectRatio: 1.0,
		ReduceBoxesInLowestLayer:     true,
	}
}

// boxSpec is one (scale, aspect ratio) pair emitted at every cell of a layer.
type boxSpec struct {
	scale       float32
	aspectRatio float32
}

// GenerateAnchors builds the anchors for every cell of every pyramid layer.
//
// The output order is layer-major, then grid row, then grid column, then box
// spec. It must match the flattening order of the network's box and score
// outputs; a mismatch does not fail, it silently produces wrong boxes.
//
// Arguments:
//   - cfg: The pyramid configuration.
//
// Returns:
//   - []Anchor: The anchors, to be generated once per model and shared read-only.
//   - error: A *ConfigError if the pyramid is degenerate.
//
// Example:
//
// ```go
//
//	anchors, err := GenerateAnchors(DefaultAnchorConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(anchors)) // 1917
//
// ```
func GenerateAnchors(cfg AnchorConfig) ([]Anchor, error) {
	layers, err := layerSpecs(cfg)
	if err != nil {
		return nil, err
	}

	total := 0
	for i, specs := range layers {
		shape := cfg.FeatureMapShapes[i]
		total += shape[0] * shape[1] * len(specs)
	}

	anchors := make([]Anchor, 0, total)
	for i, specs := range layers {
		gridHeight, gridWidth := cfg.FeatureMapShapes[i][0], cfg.FeatureMapShapes[i][1]

		// The per-spec sizes do not depend on the cell.
		heights := make([]float32, len(specs))
		widths := make([]float32, len(specs))
		for k, spec := range specs {
			ratioSqrt := math32.Sqrt(spec.aspectRatio)
			heights[k] = spec.scale / ratioSqrt * cfg.BaseAnchorSize[0]
			widths[k] = spec.scale * ratioSqrt * cfg.BaseAnchorSize[0]
		}

		for h := 0; h < gridHeight; h++ {
			yCenter := (float32(h) + 0.5) / float32(gridHeight)
			for w := 0; w < gridWidth; w++ {
				xCenter := (float32(w) + 0.5) / float32(gridWidth)
				for k := range specs {
					anchors = append(anchors, Anchor{
						YCenter: yCenter,
						XCenter: xCenter,
						Height:  heights[k],
						Width:   widths[k],
					})
				}
			}
		}
	}

	return anchors, nil
}

// AnchorCount returns the number of anchors GenerateAnchors would produce,
// without allocating them.
func AnchorCount(cfg AnchorConfig) (int, error) {
	layers, err := layerSpecs(cfg)
	if err != nil {
		return 0, err
	}

	total := 0
	for i, specs := range layers {
		shape := cfg.FeatureMapShapes[i]
		total += shape[0] * shape[1] * len(specs)
	}
	return total, nil
}

// layerSpecs validates cfg and returns the ordered box specs of each layer.
func layerSpecs(cfg AnchorConfig) ([][]boxSpec, error) {
	numLayers := len(cfg.FeatureMapShapes)
	if numLayers == 0 {
		return nil, &ConfigError{Field: "feature_map_shapes", Reason: "at least one layer is required"}
	}

	for i, shape := range cfg.FeatureMapShapes {
		if shape[0] <= 0 || shape[1] <= 0 {
			return nil, &ConfigError{
				Field:  fmt.Sprintf("feature_map_shapes[%d]", i),
				Reason: fmt.Sprintf("grid must be positive, got %dx%d", shape[0], shape[1]),
			}
		}
	}

	scales := make([]float32, numLayers)
	for i := range scales {
		if numLayers == 1 {
			scales[i] = cfg.MinScale
			continue
		}
		scales[i] = cfg.MinScale + (cfg.MaxScale-cfg.MinScale)*float32(i)/float32(numLayers-1)
	}

	layers := make([][]boxSpec, numLayers)
	for i := range layers {
		if i == 0 && cfg.ReduceBoxesInLowestLayer {
			layers[i] = []boxSpec{
				{scale: 0.1, aspectRatio: 1.0},
				{scale: scales[i], aspectRatio: 2.0},
				{scale: scales[i], aspectRatio: 0.5},
			}
			continue
		}

		if len(cfg.AspectRatios) == 0 {
			return nil, &ConfigError{Field: "aspect_ratios", Reason: "at least one aspect ratio is required"}
		}

		specs := make([]boxSpec, 0, len(cfg.AspectRatios)+1)
		for _, ratio := range cfg.AspectRatios {
			if ratio <= 0 {
				return nil, &ConfigError{
					Field:  "aspect_ratios",
					Reason: fmt.Sprintf("aspect ratio must be positive, got %g", ratio),
				}
			}
			specs = append(specs, boxSpec{scale: scales[i], aspectRatio: ratio})
		}

		if cfg.InterpolatedScaleAspectRatio > 0 {
			scaleNext := float32(1.0)
			if i < numLayers-1 {
				scaleNext = scales[i+1]
			}
			specs = append(specs, boxSpec{
				scale:       math32.Sqrt(scales[i] * scaleNext),
				aspectRatio: cfg.InterpolatedScaleAspectRatio,
			})
		}

		layers[i] = specs
	}

	return layers, nil
}
