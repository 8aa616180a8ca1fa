package images

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation is a pixel rectangle to outline on a frame, with an optional caption.
type Annotation struct {
	Rect  image.Rectangle
	Text  string
	Color color.RGBA
}

// captionHeight is the pixel height of basicfont.Face7x13 including one pixel of padding.
const captionHeight = 14

// Annotate returns a copy of img with every annotation outlined with a
// thickness pixel border and its caption written above the box, or inside it
// when the box touches the top edge.
func Annotate(img image.Image, annotations []Annotation, thickness int) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	thickness = max(thickness, 1)
	for _, a := range annotations {
		r := a.Rect.Canon().Intersect(bounds)
		if r.Empty() {
			continue
		}
		outline(out, r, a.Color, thickness)
		if a.Text != "" {
			caption(out, r, a.Text, a.Color)
		}
	}
	return out
}

// outline draws the border of r, growing inwards.
func outline(dst *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	src := image.NewUniform(c)
	t := min(thickness, r.Dx(), r.Dy())
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

// caption writes text in white on a filled band of color c.
func caption(dst *image.RGBA, r image.Rectangle, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text).Ceil() + 2

	top := r.Min.Y - captionHeight
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	band := image.Rect(r.Min.X, top, r.Min.X+width, top+captionHeight).Intersect(dst.Bounds())
	draw.Draw(dst, band, image.NewUniform(c), image.Point{}, draw.Src)

	d.Dot = fixed.Point26_6{
		X: fixed.I(r.Min.X + 1),
		Y: fixed.I(top + basicfont.Face7x13.Ascent),
	}
	d.DrawString(text)
}
