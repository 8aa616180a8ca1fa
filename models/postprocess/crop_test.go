package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/stretchr/testify/assert"
)

func TestCrop(t *testing.T) {
	tests := []struct {
		name     string
		box      images.Rect
		width    int
		height   int
		margin   Margin
		expected images.Rect
	}{
		{
			name:     "Default margin is a no-op inside bounds",
			box:      images.Rect{YMin: 0.2, XMin: 0.3, YMax: 0.4, XMax: 0.7},
			width:    640,
			height:   480,
			margin:   DefaultMargin,
			expected: images.Rect{YMin: 0.2, XMin: 0.3, YMax: 0.4, XMax: 0.7},
		},
		{
			name:     "Uniform expansion doubles the box",
			box:      images.Rect{YMin: 0.4, XMin: 0.4, YMax: 0.6, XMax: 0.6},
			width:    640,
			height:   480,
			margin:   Margin{2, 2, 2, 2},
			expected: images.Rect{YMin: 0.3, XMin: 0.3, YMax: 0.7, XMax: 0.7},
		},
		{
			name:     "Per-side margins",
			box:      images.Rect{YMin: 0.4, XMin: 0.4, YMax: 0.6, XMax: 0.6},
			width:    640,
			height:   480,
			margin:   Margin{1, 3, 0.5, 2},
			expected: images.Rect{YMin: 0.45, XMin: 0.4, YMax: 0.7, XMax: 0.8},
		},
		{
			name:     "Negative corners clamp to zero",
			box:      images.Rect{YMin: -0.2, XMin: -0.1, YMax: 0.3, XMax: 0.5},
			width:    640,
			height:   480,
			margin:   DefaultMargin,
			expected: images.Rect{YMin: 0, XMin: 0, YMax: 0.3, XMax: 0.5},
		},
		{
			name:     "Upper bounds are the pixel dimensions",
			box:      images.Rect{YMin: 0, XMin: 0, YMax: 4, XMax: 6},
			width:    5,
			height:   3,
			margin:   DefaultMargin,
			expected: images.Rect{YMin: 0, XMin: 0, YMax: 3, XMax: 5},
		},
		{
			name:     "Normalized overflow survives real frame sizes",
			box:      images.Rect{YMin: 0.8, XMin: 0.8, YMax: 1.2, XMax: 1.1},
			width:    300,
			height:   300,
			margin:   DefaultMargin,
			expected: images.Rect{YMin: 0.8, XMin: 0.8, YMax: 1.2, XMax: 1.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets := []Detection{{Box: tt.box, Score: 0.9, Class: 1}}
			Crop(dets, tt.width, tt.height, tt.margin)

			assertRectInDelta(t, tt.expected, dets[0].Box, 1e-5)
			assert.Equal(t, float32(0.9), dets[0].Score)
			assert.Equal(t, 1, dets[0].Class)
		})
	}
}

// TestCrop_InPlace mutates every detection of the slice it is given.
func TestCrop_InPlace(t *testing.T) {
	dets := []Detection{
		{Box: images.Rect{YMin: -1, XMin: -1, YMax: 0.5, XMax: 0.5}, Score: 0.5, Class: 1},
		{Box: images.Rect{YMin: 0.5, XMin: -0.5, YMax: 0.9, XMax: 0.2}, Score: 0.4, Class: 2},
	}
	Crop(dets, 100, 100, DefaultMargin)

	assert.Equal(t, float32(0), dets[0].Box.YMin)
	assert.Equal(t, float32(0), dets[0].Box.XMin)
	assert.Equal(t, float32(0), dets[1].Box.XMin)

	Crop(nil, 100, 100, DefaultMargin)
}
