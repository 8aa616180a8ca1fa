// Package postprocess - Turns raw SSD box and score tensors into detections.
//
// The pipeline runs in a fixed order: GenerateAnchors once per model, then per
// frame DecodeBoxes, Suppress and Crop.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-ssd/images"
)

// Detection is a single labeled box produced by Suppress. It does not share
// memory with the tensors it was read from.
type Detection struct {
	// The bounding box of the detection, in normalized coordinates.
	Box images.Rect `json:"box" yaml:"box"`
	// The score of the detection, as supplied by the network.
	Score float32 `json:"score" yaml:"score"`
	// The class index of the detection. Never 0 (background).
	Class int `json:"class" yaml:"class"`
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d (score %f): %s", d.Class, d.Score, d.Box)
}
