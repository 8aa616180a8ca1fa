package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Layout is the memory layout of an image input tensor.
type Layout string

const (
	// LayoutNHWC is batch, height, width, channel ordering (TensorFlow exports).
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW is batch, channel, height, width ordering (PyTorch exports).
	LayoutNCHW Layout = "nchw"
)

// Normalization defines how 8-bit pixel values are mapped to float32.
type Normalization string

const (
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne Normalization = "zero_one"
	// NormalizeMinusOneToOne scales pixel values to [-1, 1], the usual SSD MobileNet input range.
	NormalizeMinusOneToOne Normalization = "minus_one_one"
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone Normalization = "none"
)

// TensorOptions describes the network input a frame is converted to.
type TensorOptions struct {
	// Width is the network input width in pixels.
	Width int
	// Height is the network input height in pixels.
	Height int
	// Layout is the tensor memory layout.
	Layout Layout
	// Normalize is the pixel normalization.
	Normalize Normalization
}

// ToTensor resizes img to the network input size and converts it to a float32
// RGB tensor with a leading batch dimension of 1.
//
// The resize is a plain stretch (no letterboxing): SSD anchors are defined in
// normalized coordinates, so detections map back onto the original frame by
// scaling alone.
//
// Arguments:
//   - img: The source frame.
//   - opts: The target input shape, layout and normalization.
//
// Returns:
//   - []float32: The tensor data, length 3*Width*Height.
//   - error: An error if the options are invalid.
func ToTensor(img image.Image, opts TensorOptions) ([]float32, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("invalid tensor dimensions: %dx%d", opts.Width, opts.Height)
	}

	scale, offset, err := normalization(opts.Normalize)
	if err != nil {
		return nil, err
	}

	resized := img
	if b := img.Bounds(); b.Dx() != opts.Width || b.Dy() != opts.Height {
		resized = resize.Resize(uint(opts.Width), uint(opts.Height), img, resize.Bilinear)
	}

	plane := opts.Width * opts.Height
	data := make([]float32, 3*plane)
	bounds := resized.Bounds()

	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [3]float32{
				float32(r>>8)*scale + offset,
				float32(g>>8)*scale + offset,
				float32(b>>8)*scale + offset,
			}

			pixel := y*opts.Width + x
			switch opts.Layout {
			case LayoutNCHW:
				data[pixel] = rgb[0]
				data[plane+pixel] = rgb[1]
				data[2*plane+pixel] = rgb[2]
			case LayoutNHWC, "":
				copy(data[pixel*3:pixel*3+3], rgb[:])
			default:
				return nil, errors.Errorf("unsupported tensor layout: %q", opts.Layout)
			}
		}
	}

	return data, nil
}

func normalization(n Normalization) (scale, offset float32, err error) {
	switch n {
	case NormalizeZeroToOne:
		return 1.0 / 255.0, 0, nil
	case NormalizeMinusOneToOne, "":
		return 1.0 / 127.5, -1, nil
	case NormalizeNone:
		return 1, 0, nil
	default:
		return 0, 0, errors.Errorf("unsupported normalization: %q", n)
	}
}
