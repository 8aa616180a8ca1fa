package detector

import (
	"github.com/nvr-ai/go-ssd/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DetectTensors post-processes one frame given as dense tensors.
//
// boxes must be [N, BoxSize] or [1, N, BoxSize] and scores [N, NumClasses] or
// [1, N, NumClasses], both float32. A dense box tensor's backing data is
// decoded in place. A view (a slice or transpose of another tensor) is
// materialized into a copy first, so the copy is decoded and the viewed
// tensor keeps its deltas.
func (d *Detector) DetectTensors(boxes, scores *tensor.Dense, imageWidth, imageHeight int) ([]Object, error) {
	boxData, err := flatten("boxes", boxes, len(d.anchors), d.cfg.BoxSize)
	if err != nil {
		return nil, err
	}
	scoreData, err := flatten("scores", scores, len(d.anchors), d.cfg.NumClasses)
	if err != nil {
		return nil, err
	}
	return d.Detect(boxData, scoreData, imageWidth, imageHeight)
}

// flatten checks t against a [rows, cols] or [1, rows, cols] float32 layout and
// returns its backing slice.
func flatten(name string, t *tensor.Dense, rows, cols int) ([]float32, error) {
	if t == nil {
		return nil, errors.Errorf("%s tensor is nil", name)
	}
	if t.Dtype() != tensor.Float32 {
		return nil, errors.Errorf("%s tensor must be float32, got %v", name, t.Dtype())
	}

	shape := t.Shape()
	switch {
	case len(shape) == 3 && shape[0] == 1:
		shape = shape[1:]
	case len(shape) == 2:
	default:
		return nil, errors.Errorf("%s tensor must be [N, %d] or [1, N, %d], got %v", name, cols, cols, shape)
	}
	if shape[1] != cols {
		return nil, &postprocess.ShapeError{Name: name, Got: shape[1], Want: cols}
	}
	if shape[0] != rows {
		return nil, &postprocess.ShapeError{Name: name, Got: shape[0], Want: rows}
	}

	if t.IsMaterializable() {
		dense, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return nil, errors.Errorf("%s tensor view cannot be materialized", name)
		}
		t = dense
	}

	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("%s tensor has no float32 backing", name)
	}
	return data, nil
}
