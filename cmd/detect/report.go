package main

import (
	"encoding/json"
	"image"
	"io"
	"strings"

	"github.com/nvr-ai/go-ssd/detector"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Box is a detection in pixel coordinates of its frame.
type Box struct {
	X0 int `json:"x0" yaml:"x0"`
	Y0 int `json:"y0" yaml:"y0"`
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
}

// ObjectReport is one detected object.
type ObjectReport struct {
	Class int     `json:"class" yaml:"class"`
	Label string  `json:"label" yaml:"label"`
	Score float32 `json:"score" yaml:"score"`
	Box   Box     `json:"box" yaml:"box"`
}

// FrameReport holds the objects found in one frame.
type FrameReport struct {
	Path    string         `json:"path" yaml:"path"`
	Frame   int            `json:"frame" yaml:"frame"`
	Width   int            `json:"width" yaml:"width"`
	Height  int            `json:"height" yaml:"height"`
	Objects []ObjectReport `json:"objects" yaml:"objects"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the output of a detection run over a directory.
type Report struct {
	Model  string         `json:"model" yaml:"model"`
	Frames []FrameReport  `json:"frames" yaml:"frames"`
	Counts map[string]int `json:"counts" yaml:"counts"`
}

// add records a frame and tallies its labels.
func (r *Report) add(frame FrameReport) {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	for _, obj := range frame.Objects {
		r.Counts[obj.Label]++
	}
	r.Frames = append(r.Frames, frame)
}

// newFrameReport converts detector objects to pixel boxes of a width x height frame.
func newFrameReport(path string, frame int, bounds image.Rectangle, objects []detector.Object) FrameReport {
	fr := FrameReport{
		Path:    path,
		Frame:   frame,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Objects: make([]ObjectReport, 0, len(objects)),
	}
	for _, obj := range objects {
		px := obj.Pixels(fr.Width, fr.Height)
		fr.Objects = append(fr.Objects, ObjectReport{
			Class: obj.Class,
			Label: obj.Label,
			Score: obj.Score,
			Box:   Box{X0: px.Min.X, Y0: px.Min.Y, X1: px.Max.X, Y1: px.Max.Y},
		})
	}
	return fr
}

// writeReport encodes r as "yaml" or "json".
func writeReport(w io.Writer, r Report, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "encode yaml report")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(r), "encode json report")
	default:
		return errors.Errorf("unsupported report format %q", format)
	}
}
