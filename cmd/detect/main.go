// Command detect runs an SSD model over a directory of frames with ONNX
// Runtime and writes the detections as YAML or JSON.
//
// With -bench it instead times every pipeline stage over the same frames and
// saves the metrics under -bench-out.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/nvr-ai/go-ssd/benchmark"
	"github.com/nvr-ai/go-ssd/detector"
	"github.com/nvr-ai/go-ssd/inference"
	"github.com/nvr-ai/go-ssd/inference/providers"
	"github.com/nvr-ai/go-ssd/models"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/nvr-ai/go-ssd/util"
	"go.uber.org/zap"
)

type flags struct {
	dir        string
	model      string
	config     string
	preset     string
	ortLib     string
	backend    string
	workers    int
	format     string
	out        string
	annotate   string
	bench      bool
	benchOut   string
	iterations int
	warmup     int
	debug      bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.dir, "dir", "", "directory of frames (jpg, png, webp)")
	flag.StringVar(&f.model, "model", "", "ONNX model file (overrides the config path)")
	flag.StringVar(&f.config, "config", "", "YAML model config; overrides -preset")
	flag.StringVar(&f.preset, "preset", string(model.NameSSDMobileNetV2COCO), "built-in model preset")
	flag.StringVar(&f.ortLib, "ort-lib", "", "ONNX Runtime shared library")
	flag.StringVar(&f.backend, "backend", string(providers.BackendCPU), "ONNX Runtime execution provider")
	flag.IntVar(&f.workers, "workers", 1, "goroutines used for per-class suppression")
	flag.StringVar(&f.format, "format", "yaml", "report format: yaml or json")
	flag.StringVar(&f.out, "out", "", "report file (default stdout)")
	flag.StringVar(&f.annotate, "annotate", "", "directory to write frames with the detections drawn on")
	flag.BoolVar(&f.bench, "bench", false, "benchmark the pipeline instead of reporting detections")
	flag.StringVar(&f.benchOut, "bench-out", "benchmark_results", "benchmark output directory")
	flag.IntVar(&f.iterations, "iterations", 100, "benchmark frames per scenario")
	flag.IntVar(&f.warmup, "warmup", 10, "benchmark warmup frames per scenario")
	flag.BoolVar(&f.debug, "debug", false, "enable debug logging")
	flag.Parse()
	return f
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

	var (
		logger *zap.Logger
		err    error
	)
	if f.debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, f, logger); err != nil {
		logger.Fatal("detect failed", zap.Error(err))
	}
}

func run(ctx context.Context, f flags, logger *zap.Logger) error {
	if f.dir == "" {
		return fmt.Errorf("-dir is required")
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	files, err := util.LoadDirectoryImageFiles(f.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no frames in %s", f.dir)
	}
	logger.Info("frames loaded", zap.String("dir", f.dir), zap.Int("frames", len(files)))

	det, err := detector.New(cfg, detector.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := inference.DefaultSessionOptions()
	opts.LibraryPath = f.ortLib
	opts.Provider.Backend = providers.Backend(f.backend)
	opts.Logger = logger
	session, err := inference.NewSession(cfg, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	if f.bench {
		return runBenchmark(ctx, f, det, session, files, logger)
	}

	if f.annotate != "" {
		if err := os.MkdirAll(f.annotate, 0o755); err != nil {
			return err
		}
	}

	report, err := detectFrames(ctx, det, session, files, f.annotate, logger)
	if err != nil {
		return err
	}
	report.Model = string(cfg.Name)

	stats := session.Stats()
	logger.Info("detection finished",
		zap.Int("frames", len(report.Frames)),
		zap.Int64("runs", stats.Runs),
		zap.Duration("avg_inference", stats.Average()),
	)

	var w io.Writer = os.Stdout
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	return writeReport(w, report, f.format)
}

// detectFrames decodes and runs every file. A frame that fails is recorded
// with its error and the run continues. When annotateDir is set, each
// detected frame is also written there with its boxes drawn.
func detectFrames(ctx context.Context, det *detector.Detector, net detector.Network, files []util.ImageFile, annotateDir string, logger *zap.Logger) (Report, error) {
	var report Report
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		img, err := file.Decode()
		if err != nil {
			logger.Warn("skipping frame", zap.String("path", file.Path), zap.Error(err))
			report.add(FrameReport{Path: file.Path, Frame: file.Frame, Error: err.Error()})
			continue
		}

		objects, err := det.DetectImage(img, net)
		if err != nil {
			logger.Warn("detection failed", zap.String("path", file.Path), zap.Error(err))
			fr := newFrameReport(file.Path, file.Frame, img.Bounds(), nil)
			fr.Error = err.Error()
			report.add(fr)
			continue
		}
		fr := newFrameReport(file.Path, file.Frame, img.Bounds(), objects)
		report.add(fr)

		if annotateDir != "" {
			if err := saveAnnotated(annotateDir, file.Name(), img, fr); err != nil {
				logger.Warn("annotation failed", zap.String("path", file.Path), zap.Error(err))
			}
		}
	}
	return report, nil
}

func runBenchmark(ctx context.Context, f flags, det *detector.Detector, net detector.Network, files []util.ImageFile, logger *zap.Logger) error {
	suite := benchmark.NewSuite(det, net, f.benchOut, logger)
	if err := suite.LoadFrames(files); err != nil {
		return err
	}

	suite.AddScenario(benchmark.NewScenarioBuilder("native").
		WithIterations(f.iterations).
		WithWarmupRuns(f.warmup).
		Build())
	for _, res := range benchmark.CommonResolutions {
		suite.AddScenario(benchmark.NewScenarioBuilder(res.Name).
			WithResolution(res.Width, res.Height).
			WithIterations(f.iterations).
			WithWarmupRuns(f.warmup).
			Build())
	}
	return suite.RunAllScenarios(ctx)
}
