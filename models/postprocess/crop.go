package postprocess

import "github.com/chewxy/math32"

// Margin scales each side of a box around its own center, ordered
// left, right, top, bottom. 1.0 keeps a side where it is.
type Margin [4]float32

// DefaultMargin leaves boxes unchanged apart from clamping.
var DefaultMargin = Margin{1, 1, 1, 1}

// Crop expands or shrinks every detection's box around its center by margin
// and clamps it to [0, imageWidthPx] x [0, imageHeightPx], in place.
//
// Boxes are still normalized at this stage while the bounds are pixel counts,
// so for real frames only the lower clamp ever binds.
//
// Arguments:
//   - dets: The detections to adjust.
//   - imageWidthPx: The frame width used as the x upper bound.
//   - imageHeightPx: The frame height used as the y upper bound.
//   - margin: Per-side scale factors (left, right, top, bottom).
func Crop(dets []Detection, imageWidthPx, imageHeightPx int, margin Margin) {
	width := float32(imageWidthPx)
	height := float32(imageHeightPx)

	for i := range dets {
		box := &dets[i].Box
		centerY, centerX := box.Center()
		halfHeight := box.Height() / 2
		halfWidth := box.Width() / 2

		box.YMin = math32.Max(0, centerY-halfHeight*margin[2])
		box.YMax = math32.Min(height, centerY+halfHeight*margin[3])
		box.XMin = math32.Max(0, centerX-halfWidth*margin[0])
		box.XMax = math32.Min(width, centerX+halfWidth*margin[1])
	}
}
