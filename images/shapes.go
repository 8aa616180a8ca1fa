// Package images - Box geometry and frame-to-tensor utilities.
package images

import (
	"fmt"
	"image"
)

// Rect is a bounding box in normalized image space.
//
// Coordinates follow the TensorFlow detection convention of (y, x) ordering, so a
// Rect can be read straight out of a decoded box tensor slot with
// RectFromSlot. Values are normally in [0, 1] but are not clamped: decoded boxes
// near the border routinely extend past the image.
type Rect struct {
	YMin float32 `json:"y_min" yaml:"y_min"`
	XMin float32 `json:"x_min" yaml:"x_min"`
	YMax float32 `json:"y_max" yaml:"y_max"`
	XMax float32 `json:"x_max" yaml:"x_max"`
}

// RectFromSlot reads a Rect from the first four values of a tensor slot.
func RectFromSlot(slot []float32) Rect {
	return Rect{YMin: slot[0], XMin: slot[1], YMax: slot[2], XMax: slot[3]}
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 {
	return r.XMax - r.XMin
}

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 {
	return r.YMax - r.YMin
}

// Area returns Width*Height. Inverted boxes yield a negative area.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Center returns the (y, x) center of the box.
func (r Rect) Center() (y, x float32) {
	return (r.YMin + r.YMax) / 2, (r.XMin + r.XMax) / 2
}

// ToRectangle scales the normalized box to a width x height pixel grid.
//
// This loses precision, but it is only used for drawing and reporting, where
// fractional pixels around the edges do not matter.
//
// Arguments:
//   - width: The pixel width of the target image.
//   - height: The pixel height of the target image.
//
// Returns:
//   - image.Rectangle: The canonicalized pixel rectangle.
//
// Example:
//
// ```go
//
//	r := Rect{YMin: 0.25, XMin: 0.5, YMax: 0.75, XMax: 1.0}
//	px := r.ToRectangle(640, 480) // (320,120)-(640,360)
//
// ```
func (r Rect) ToRectangle(width, height int) image.Rectangle {
	return image.Rect(
		int(r.XMin*float32(width)),
		int(r.YMin*float32(height)),
		int(r.XMax*float32(width)),
		int(r.YMax*float32(height)),
	).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.4f, %.4f)-(%.4f, %.4f)", r.YMin, r.XMin, r.YMax, r.XMax)
}

// FromRegion maps a box normalized to region back to a box normalized to the
// width x height frame the region was cut from.
func (r Rect) FromRegion(region image.Rectangle, width, height int) Rect {
	rw := float32(region.Dx()) / float32(width)
	rh := float32(region.Dy()) / float32(height)
	ox := float32(region.Min.X) / float32(width)
	oy := float32(region.Min.Y) / float32(height)
	return Rect{
		YMin: oy + r.YMin*rh,
		XMin: ox + r.XMin*rw,
		YMax: oy + r.YMax*rh,
		XMax: ox + r.XMax*rw,
	}
}
