package main

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-ssd/images"
	"github.com/pkg/errors"
)

var palette = []color.RGBA{
	{0, 255, 0, 255},
	{255, 64, 64, 255},
	{64, 128, 255, 255},
	{255, 200, 0, 255},
	{200, 0, 255, 255},
	{0, 200, 200, 255},
}

// annotations turns a frame report into outlined, captioned boxes colored by class.
func annotations(fr FrameReport) []images.Annotation {
	out := make([]images.Annotation, 0, len(fr.Objects))
	for _, obj := range fr.Objects {
		label := obj.Label
		if label == "" {
			label = fmt.Sprintf("class %d", obj.Class)
		}
		out = append(out, images.Annotation{
			Rect:  image.Rect(obj.Box.X0, obj.Box.Y0, obj.Box.X1, obj.Box.Y1),
			Text:  fmt.Sprintf("%s %.2f", label, obj.Score),
			Color: palette[obj.Class%len(palette)],
		})
	}
	return out
}

// annotatedPath is the output path for a frame. WebP frames are written as PNG.
func annotatedPath(dir, name string) string {
	if strings.EqualFold(filepath.Ext(name), ".webp") {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}
	return filepath.Join(dir, name)
}

// saveAnnotated draws the report's boxes on img and writes it under dir.
func saveAnnotated(dir, name string, img image.Image, fr FrameReport) error {
	out := images.Annotate(img, annotations(fr), 2)
	path := annotatedPath(dir, name)
	if err := imaging.Save(out, path); err != nil {
		return errors.Wrapf(err, "save annotated frame %s", path)
	}
	return nil
}
