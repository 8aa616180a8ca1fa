package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(w, h int) image.Image {
	// A solid red image keeps every resampled pixel identical.
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	return img
}

// TestToTensor validates tensor size, layout and normalization for resized frames.
func TestToTensor(t *testing.T) {
	tests := []struct {
		name      string
		opts      TensorOptions
		wantRed   float32
		wantGreen float32
		delta     float64
	}{
		{
			name:      "NHWC minus one to one",
			opts:      TensorOptions{Width: 30, Height: 20, Layout: LayoutNHWC, Normalize: NormalizeMinusOneToOne},
			wantRed:   1,
			wantGreen: -1,
			delta:     0.01,
		},
		{
			name:      "NCHW zero to one",
			opts:      TensorOptions{Width: 30, Height: 20, Layout: LayoutNCHW, Normalize: NormalizeZeroToOne},
			wantRed:   1,
			wantGreen: 0,
			delta:     0.01,
		},
		{
			name:      "No normalization",
			opts:      TensorOptions{Width: 8, Height: 8, Layout: LayoutNHWC, Normalize: NormalizeNone},
			wantRed:   255,
			wantGreen: 0,
			delta:     1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ToTensor(getTestImage(100, 60), tt.opts)
			require.NoError(t, err)
			require.Len(t, data, 3*tt.opts.Width*tt.opts.Height)

			plane := tt.opts.Width * tt.opts.Height
			var red, green float32
			if tt.opts.Layout == LayoutNCHW {
				red, green = data[plane/2], data[plane+plane/2]
			} else {
				red, green = data[3*(plane/2)], data[3*(plane/2)+1]
			}
			assert.InDelta(t, tt.wantRed, red, tt.delta)
			assert.InDelta(t, tt.wantGreen, green, tt.delta)
		})
	}
}

func TestToTensor_Errors(t *testing.T) {
	_, err := ToTensor(nil, TensorOptions{Width: 10, Height: 10})
	assert.Error(t, err, "nil image should be rejected")

	_, err = ToTensor(getTestImage(10, 10), TensorOptions{Width: 0, Height: 10})
	assert.Error(t, err, "zero width should be rejected")

	_, err = ToTensor(getTestImage(10, 10), TensorOptions{Width: 10, Height: 10, Layout: "hwcn"})
	assert.Error(t, err, "unknown layout should be rejected")

	_, err = ToTensor(getTestImage(10, 10), TensorOptions{Width: 10, Height: 10, Normalize: "imagenet"})
	assert.Error(t, err, "unknown normalization should be rejected")
}

// TestToTensor_NoResize confirms a frame already at the input size is read as-is.
func TestToTensor_NoResize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	data, err := ToTensor(img, TensorOptions{Width: 2, Height: 1, Layout: LayoutNHWC, Normalize: NormalizeNone})
	require.NoError(t, err)
	assert.Equal(t, []float32{255, 0, 0, 0, 0, 255}, data)
}
