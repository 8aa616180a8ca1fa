package main

import (
	"github.com/nvr-ai/go-ssd/detector"
	"github.com/nvr-ai/go-ssd/inference"
	"github.com/nvr-ai/go-ssd/models/model"
	"gocv.io/x/gocv"
)

// frameRunner runs the network on one frame and post-processes its outputs.
type frameRunner interface {
	Detect(frame gocv.Mat) ([]detector.Object, error)
	Close() error
}

// onnxRunner runs the network with ONNX Runtime.
type onnxRunner struct {
	session *inference.Session
	det     *detector.Detector
}

func newONNXRunner(cfg model.Config, det *detector.Detector, opts inference.SessionOptions) (*onnxRunner, error) {
	session, err := inference.NewSession(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &onnxRunner{session: session, det: det}, nil
}

func (r *onnxRunner) Detect(frame gocv.Mat) ([]detector.Object, error) {
	img, err := frame.ToImage()
	if err != nil {
		return nil, err
	}
	return r.det.DetectImage(img, r.session)
}

func (r *onnxRunner) Close() error {
	return r.session.Close()
}
