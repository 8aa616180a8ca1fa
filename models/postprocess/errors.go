package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/pkg/errors"
)

var (
	// ErrConfig matches every *ConfigError via errors.Is.
	ErrConfig = errors.New("invalid configuration")
	// ErrShape matches every *ShapeError via errors.Is.
	ErrShape = errors.New("tensor shape mismatch")
	// ErrDegenerateBox matches every *DegenerateBoxError via errors.Is.
	ErrDegenerateBox = errors.New("degenerate box pair")
)

// ConfigError reports an invalid anchor, NMS or detector configuration.
type ConfigError struct {
	// Field is the offending configuration field.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ShapeError reports a tensor whose length or shape does not match the
// declared box count, class count or box size.
type ShapeError struct {
	// Name identifies the tensor ("boxes", "scores", "anchors").
	Name string
	// Got is the observed length or dimension.
	Got int
	// Want is the expected length or dimension.
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor shape mismatch: %s: got %d, want %d", e.Name, e.Got, e.Want)
}

// Is reports whether target is ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// DegenerateBoxError reports an IoU computed over a pair of boxes whose union
// area is exactly zero.
type DegenerateBoxError struct {
	A, B images.Rect
}

func (e *DegenerateBoxError) Error() string {
	return fmt.Sprintf("degenerate box pair: zero union area between %s and %s", e.A, e.B)
}

// Is reports whether target is ErrDegenerateBox.
func (e *DegenerateBoxError) Is(target error) bool {
	return target == ErrDegenerateBox
}
