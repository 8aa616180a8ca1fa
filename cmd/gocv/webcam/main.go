// Command webcam runs an SSD model on a capture device and draws the detections.
//
// The network runs either through OpenCV's DNN module or through ONNX Runtime;
// both feed the same detector post-processing.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/nvr-ai/go-ssd/detector"
	"github.com/nvr-ai/go-ssd/dnn"
	"github.com/nvr-ai/go-ssd/inference"
	"github.com/nvr-ai/go-ssd/inference/providers"
	"github.com/nvr-ai/go-ssd/models"
	"github.com/nvr-ai/go-ssd/models/model"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type flags struct {
	device  int
	model   string
	graph   string
	config  string
	preset  string
	engine  string
	ortLib  string
	backend string
	target  string
	classes string
	workers int
	window  bool
	debug   bool
}

func parseFlags() flags {
	var f flags
	flag.IntVar(&f.device, "device", 0, "video capture device id")
	flag.StringVar(&f.model, "model", "", "model file (overrides the config path)")
	flag.StringVar(&f.graph, "graph", "", "TensorFlow graph description .pbtxt (opencv engine)")
	flag.StringVar(&f.config, "config", "", "YAML model config; overrides -preset")
	flag.StringVar(&f.preset, "preset", string(model.NameSSDMobileNetV2COCO), "built-in model preset")
	flag.StringVar(&f.engine, "engine", "opencv", "network runner: opencv or onnx")
	flag.StringVar(&f.ortLib, "ort-lib", "", "ONNX Runtime shared library (onnx engine)")
	flag.StringVar(&f.backend, "backend", "", "OpenCV DNN backend, or ONNX Runtime execution provider (default cpu)")
	flag.StringVar(&f.target, "target", "", "OpenCV DNN target (opencv engine)")
	flag.StringVar(&f.classes, "classes", "", "comma separated labels to keep, e.g. person,car (opencv engine)")
	flag.IntVar(&f.workers, "workers", 1, "goroutines used for per-class suppression")
	flag.BoolVar(&f.window, "window", true, "display frames in a window")
	flag.BoolVar(&f.debug, "debug", false, "enable debug logging")
	flag.Parse()
	return f
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig(f flags) (model.Config, error) {
	var (
		cfg model.Config
		err error
	)
	if f.config != "" {
		cfg, err = model.LoadConfig(f.config)
	} else {
		cfg, err = models.NewConfig(model.Name(f.preset))
	}
	if err != nil {
		return model.Config{}, err
	}
	if f.model != "" {
		cfg.Path = f.model
	}
	cfg.NMS.NumWorkers = f.workers
	return cfg, nil
}

func main() {
	f := parseFlags()

	logger, err := newLogger(f.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(f, logger); err != nil {
		logger.Fatal("webcam detector stopped", zap.Error(err))
	}
}

func run(f flags, logger *zap.Logger) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	det, err := detector.New(cfg, detector.WithLogger(logger))
	if err != nil {
		return err
	}

	var runner frameRunner
	switch f.engine {
	case "opencv":
		opts := dnn.DefaultOptions()
		opts.ConfigPath = f.graph
		opts.Backend = f.backend
		opts.Target = f.target
		opts.RelevantClasses = splitClasses(f.classes)
		opts.Logger = logger
		runner, err = dnn.NewSSDModel(det, opts)
	case "onnx":
		opts := inference.DefaultSessionOptions()
		opts.LibraryPath = f.ortLib
		if f.backend != "" {
			opts.Provider.Backend = providers.Backend(f.backend)
		}
		opts.Logger = logger
		runner, err = newONNXRunner(cfg, det, opts)
	default:
		err = fmt.Errorf("unknown engine %q", f.engine)
	}
	if err != nil {
		return err
	}
	defer runner.Close()

	webcam, err := gocv.OpenVideoCapture(f.device)
	if err != nil {
		return err
	}
	defer webcam.Close()

	var window *gocv.Window
	if f.window {
		window = gocv.NewWindow(fmt.Sprintf("SSD: %s", cfg.Name))
		defer window.Close()
	}

	img := gocv.NewMat()
	defer img.Close()

	// FPS tracking variables
	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	logger.Info("start reading camera device", zap.Int("device", f.device), zap.String("engine", f.engine))
	for {
		if ok := webcam.Read(&img); !ok {
			return fmt.Errorf("cannot read device %d", f.device)
		}
		if img.Empty() {
			continue
		}

		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
		}

		objects, err := runner.Detect(img)
		if err != nil {
			logger.Warn("skipping frame", zap.Error(err))
			continue
		}
		logger.Debug("frame detections", zap.Int("objects", len(objects)), zap.Float64("fps", fps))

		if window == nil {
			continue
		}
		draw(&img, objects)
		window.IMShow(img)
		if window.WaitKey(1) == 27 {
			return nil
		}
	}
}

// splitClasses parses the -classes flag.
func splitClasses(s string) []string {
	var classes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

var boxColor = color.RGBA{0, 255, 0, 0}

// draw outlines every object on img and writes its label and score above it.
func draw(img *gocv.Mat, objects []detector.Object) {
	for _, obj := range objects {
		r := obj.Pixels(img.Cols(), img.Rows())
		gocv.Rectangle(img, r, boxColor, 2)
		text := fmt.Sprintf("%s %.2f", obj.Label, obj.Score)
		gocv.PutText(img, text, image.Pt(r.Min.X, r.Min.Y-5), gocv.FontHersheyPlain, 1.2, boxColor, 2)
	}
}
