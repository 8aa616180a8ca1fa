package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRect_Geometry validates width, height, area and center against known boxes.
func TestRect_Geometry(t *testing.T) {
	tests := []struct {
		name    string
		r       Rect
		width   float32
		height  float32
		area    float32
		centerY float32
		centerX float32
	}{
		{
			name:    "Unit box",
			r:       Rect{YMin: 0, XMin: 0, YMax: 1, XMax: 1},
			width:   1,
			height:  1,
			area:    1,
			centerY: 0.5,
			centerX: 0.5,
		},
		{
			name:    "Off-center box",
			r:       Rect{YMin: 0.1, XMin: 0.2, YMax: 0.5, XMax: 0.4},
			width:   0.2,
			height:  0.4,
			area:    0.08,
			centerY: 0.3,
			centerX: 0.3,
		},
		{
			name:    "Degenerate point",
			r:       Rect{YMin: 0.3, XMin: 0.3, YMax: 0.3, XMax: 0.3},
			width:   0,
			height:  0,
			area:    0,
			centerY: 0.3,
			centerX: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.width, tt.r.Width(), 1e-6)
			assert.InDelta(t, tt.height, tt.r.Height(), 1e-6)
			assert.InDelta(t, tt.area, tt.r.Area(), 1e-6)

			cy, cx := tt.r.Center()
			assert.InDelta(t, tt.centerY, cy, 1e-6)
			assert.InDelta(t, tt.centerX, cx, 1e-6)
		})
	}
}

func TestRectFromSlot(t *testing.T) {
	slot := []float32{0.1, 0.2, 0.3, 0.4, 99}
	assert.Equal(t, Rect{YMin: 0.1, XMin: 0.2, YMax: 0.3, XMax: 0.4}, RectFromSlot(slot))
}

// TestRect_ToRectangle checks normalized-to-pixel scaling and canonicalization.
func TestRect_ToRectangle(t *testing.T) {
	r := Rect{YMin: 0.25, XMin: 0.5, YMax: 0.75, XMax: 1.0}
	assert.Equal(t, image.Rect(320, 120, 640, 360), r.ToRectangle(640, 480))

	inverted := Rect{YMin: 0.75, XMin: 1.0, YMax: 0.25, XMax: 0.5}
	assert.Equal(t, image.Rect(320, 120, 640, 360), inverted.ToRectangle(640, 480))
}

// TestRect_FromRegion maps a box found in a crop back onto the full frame.
func TestRect_FromRegion(t *testing.T) {
	tests := []struct {
		name     string
		r        Rect
		region   image.Rectangle
		expected Rect
	}{
		{
			name:     "Whole frame is identity",
			r:        Rect{YMin: 0.1, XMin: 0.2, YMax: 0.3, XMax: 0.4},
			region:   image.Rect(0, 0, 200, 100),
			expected: Rect{YMin: 0.1, XMin: 0.2, YMax: 0.3, XMax: 0.4},
		},
		{
			name:     "Bottom right quadrant",
			r:        Rect{YMin: 0, XMin: 0, YMax: 1, XMax: 1},
			region:   image.Rect(100, 50, 200, 100),
			expected: Rect{YMin: 0.5, XMin: 0.5, YMax: 1, XMax: 1},
		},
		{
			name:     "Center of an offset region",
			r:        Rect{YMin: 0.25, XMin: 0.25, YMax: 0.75, XMax: 0.75},
			region:   image.Rect(40, 20, 120, 60),
			expected: Rect{YMin: 0.3, XMin: 0.3, YMax: 0.5, XMax: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.FromRegion(tt.region, 200, 100)
			assert.InDelta(t, tt.expected.YMin, got.YMin, 1e-6)
			assert.InDelta(t, tt.expected.XMin, got.XMin, 1e-6)
			assert.InDelta(t, tt.expected.YMax, got.YMax, 1e-6)
			assert.InDelta(t, tt.expected.XMax, got.XMax, 1e-6)
		})
	}
}
