package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-ssd/images"
)

// DefaultBoxSize is the number of values per anchor in a plain box tensor.
const DefaultBoxSize = 4

// DefaultBoxScales are the Faster-RCNN box coder scale factors for (ty, tx, th, tw).
var DefaultBoxScales = [4]float32{10.0, 10.0, 5.0, 5.0}

// Boxes is a decoded view over a box tensor. It shares storage with the slice
// passed to DecodeBoxes.
type Boxes struct {
	data    []float32
	boxSize int
}

// Len returns the number of boxes.
func (b Boxes) Len() int {
	if b.boxSize == 0 {
		return 0
	}
	return len(b.data) / b.boxSize
}

// BoxSize returns the number of values per box slot.
func (b Boxes) BoxSize() int {
	return b.boxSize
}

// At returns the i-th decoded box.
func (b Boxes) At(i int) images.Rect {
	return images.RectFromSlot(b.data[i*b.boxSize : i*b.boxSize+4])
}

// Slot returns the full i-th slot, including any values past the box corners.
func (b Boxes) Slot(i int) []float32 {
	return b.data[i*b.boxSize : (i+1)*b.boxSize]
}

// DecodeBoxes converts per-anchor regression deltas into box corners, in place.
//
// Each slot of raw holds (ty, tx, th, tw) followed by boxSize-4 values that are
// left untouched. The deltas are divided by DefaultBoxScales and applied to the
// matching anchor:
//
//	h = exp(th) * anchor.Height
//	w = exp(tw) * anchor.Width
//	yCenter = ty * anchor.Height + anchor.YCenter
//	xCenter = tx * anchor.Width + anchor.XCenter
//
// and the slot is overwritten with (yMin, xMin, yMax, xMax).
//
// Ownership of raw passes to the returned Boxes: do not alias it elsewhere.
// Decoding is destructive and not idempotent. Decoding an already decoded
// tensor reinterprets corners as deltas and produces garbage.
//
// Arguments:
//   - raw: The network's box output, length len(anchors)*boxSize.
//   - anchors: The anchors the network was trained against, in output order.
//   - boxSize: Values per slot, at least 4.
//
// Returns:
//   - Boxes: A view over raw's storage.
//   - error: A *ShapeError if the lengths disagree.
func DecodeBoxes(raw []float32, anchors []Anchor, boxSize int) (Boxes, error) {
	if boxSize < 4 {
		return Boxes{}, &ShapeError{Name: "box_size", Got: boxSize, Want: DefaultBoxSize}
	}
	if len(raw)%boxSize != 0 {
		return Boxes{}, &ShapeError{Name: "boxes", Got: len(raw), Want: (len(raw)/boxSize + 1) * boxSize}
	}
	numBoxes := len(raw) / boxSize
	if len(anchors) != numBoxes {
		return Boxes{}, &ShapeError{Name: "anchors", Got: len(anchors), Want: numBoxes}
	}

	for i, anchor := range anchors {
		slot := raw[i*boxSize : i*boxSize+4]

		ty := slot[0] / DefaultBoxScales[0]
		tx := slot[1] / DefaultBoxScales[1]
		th := slot[2] / DefaultBoxScales[2]
		tw := slot[3] / DefaultBoxScales[3]

		w := math32.Exp(tw) * anchor.Width
		h := math32.Exp(th) * anchor.Height
		yCenter := ty*anchor.Height + anchor.YCenter
		xCenter := tx*anchor.Width + anchor.XCenter

		slot[0] = yCenter - h/2
		slot[1] = xCenter - w/2
		slot[2] = yCenter + h/2
		slot[3] = xCenter + w/2
	}

	return Boxes{data: raw, boxSize: boxSize}, nil
}

// NewBoxes wraps an already decoded box tensor, for models whose network
// emits corners directly.
func NewBoxes(decoded []float32, boxSize int) (Boxes, error) {
	if boxSize < 4 {
		return Boxes{}, &ShapeError{Name: "box_size", Got: boxSize, Want: DefaultBoxSize}
	}
	if len(decoded)%boxSize != 0 {
		return Boxes{}, &ShapeError{Name: "boxes", Got: len(decoded), Want: (len(decoded)/boxSize + 1) * boxSize}
	}
	return Boxes{data: decoded, boxSize: boxSize}, nil
}
