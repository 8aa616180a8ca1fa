package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-ssd/images"
)

// IoU (Intersection over Union) measures the overlap between two boxes as
//
//	IoU = Area of Intersection / Area of Union
//
// where the union uses inclusion-exclusion: area(a) + area(b) - intersection.
// 1.0 means the boxes are identical, 0.0 means they do not overlap.
//
// Unlike most IoU helpers this one does not quietly return 0 when the union is
// empty. Two zero-area boxes that do not overlap have no meaningful IoU, and
// that is reported as a *DegenerateBoxError so the frame is rejected rather
// than silently keeping both boxes.
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - float32: The IoU score.
//   - error: A *DegenerateBoxError if the union area is exactly zero.
//
// Example Usage:
// ```go
//
//	a := images.Rect{YMin: 0, XMin: 0, YMax: 0.2, XMax: 0.2}
//	b := images.Rect{YMin: 0.1, XMin: 0.1, YMax: 0.3, XMax: 0.3}
//	iou, _ := IoU(a, b) // 0.01 / (0.04 + 0.04 - 0.01) ≈ 0.142857
//
// ```
func IoU(a, b images.Rect) (float32, error) {
	interH := math32.Max(0, math32.Min(a.YMax, b.YMax)-math32.Max(a.YMin, b.YMin))
	interW := math32.Max(0, math32.Min(a.XMax, b.XMax)-math32.Max(a.XMin, b.XMin))
	intersection := interH * interW

	union := a.Area() + b.Area() - intersection
	if union == 0 {
		return 0, &DegenerateBoxError{A: a, B: b}
	}

	return intersection / union, nil
}
