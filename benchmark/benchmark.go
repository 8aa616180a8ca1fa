// Package benchmark - Timing the SSD pipeline stage by stage over a frame corpus.
package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-ssd/detector"
	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Resolution represents the frame size fed to the pipeline. A zero
// Resolution keeps the corpus frames at their native size.
type Resolution struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Name   string `json:"name" yaml:"name"`
}

// CommonResolutions are the camera resolutions worth comparing.
var CommonResolutions = []Resolution{
	{Width: 640, Height: 480, Name: "640x480"},
	{Width: 1280, Height: 720, Name: "1280x720"},
	{Width: 1920, Height: 1080, Name: "1920x1080"},
}

// Scenario defines a specific test configuration
type Scenario struct {
	Name       string     `json:"name" yaml:"name"`
	Resolution Resolution `json:"resolution" yaml:"resolution"`
	Iterations int        `json:"iterations" yaml:"iterations"`
	WarmupRuns int        `json:"warmup_runs" yaml:"warmup_runs"`
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the frame resolution
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = Resolution{
		Width:  width,
		Height: height,
		Name:   fmt.Sprintf("%dx%d", width, height),
	}
	return sb
}

// WithIterations sets the number of measured frames
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured frames run first
func (sb *ScenarioBuilder) WithWarmupRuns(warmupRuns int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmupRuns
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// Suite manages and executes benchmark scenarios against one detector and network.
type Suite struct {
	det       *detector.Detector
	net       detector.Network
	outputDir string
	logger    *zap.Logger

	mu        sync.RWMutex
	scenarios []Scenario
	frames    []image.Image
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite. A nil logger disables logging.
func NewSuite(det *detector.Detector, net detector.Network, outputDir string, logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		det:       det,
		net:       net,
		outputDir: outputDir,
		logger:    logger,
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// LoadFrames decodes the corpus used by every scenario. Files that fail to
// decode are skipped with a warning.
func (s *Suite) LoadFrames(files []util.ImageFile) error {
	frames := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := f.Decode()
		if err != nil {
			s.logger.Warn("skipping corpus frame", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return errors.New("no decodable frames in corpus")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	return nil
}

// RunScenario executes a single benchmark scenario
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	s.mu.RLock()
	frames := s.frames
	s.mu.RUnlock()

	if len(frames) == 0 {
		return nil, errors.New("no frames loaded")
	}
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %q: iterations must be positive, got %d", scenario.Name, scenario.Iterations)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, _, _ = s.processFrame(frames[i%len(frames)], scenario.Resolution)
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)
	startProc := sampleProcess()

	var rec recorder
	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		detections, timings, err := s.processFrame(frames[i%len(frames)], scenario.Resolution)
		if err != nil {
			s.logger.Debug("benchmark frame failed", zap.String("scenario", scenario.Name), zap.Error(err))
			rec.fail()
			continue
		}
		rec.observe(timings, detections)
	}
	elapsed := time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)
	endProc := sampleProcess()

	metrics := &PerformanceMetrics{
		Scenario:    scenario,
		Timestamp:   start,
		MemoryStats: memoryDelta(startMem, endMem, endProc),
		CPUStats:    cpuDelta(startProc, endProc),
	}
	rec.fill(metrics, scenario.Iterations, elapsed)
	return metrics, nil
}

// processFrame runs one frame through every pipeline stage and times each.
func (s *Suite) processFrame(img image.Image, res Resolution) (int, stageTimings, error) {
	var t stageTimings

	mark := time.Now()
	if res.Width > 0 && res.Height > 0 {
		img = resize.Resize(uint(res.Width), uint(res.Height), img, resize.Bilinear)
	}
	t.resize = time.Since(mark)

	cfg := s.det.Config()
	mark = time.Now()
	input, err := images.ToTensor(img, cfg.TensorOptions())
	if err != nil {
		return 0, t, errors.Wrap(err, "preprocess")
	}
	t.preprocess = time.Since(mark)

	mark = time.Now()
	boxes, scores, err := s.net.Run(input)
	if err != nil {
		return 0, t, errors.Wrap(err, "inference")
	}
	t.inference = time.Since(mark)

	bounds := img.Bounds()
	mark = time.Now()
	objects, err := s.det.Detect(boxes, scores, bounds.Dx(), bounds.Dy())
	if err != nil {
		return 0, t, errors.Wrap(err, "post-process")
	}
	t.postProcess = time.Since(mark)

	return len(objects), t, nil
}

// RunAllScenarios executes all configured benchmark scenarios and saves the results.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	s.mu.RLock()
	scenarios := make([]Scenario, len(s.scenarios))
	copy(scenarios, s.scenarios)
	s.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Error("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.logger.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Duration("p95", metrics.LatencyP95),
			zap.Float64("error_rate", metrics.ErrorRate),
		)
	}

	return s.SaveResults()
}

// SaveResults persists benchmark results to the output directory as JSON and a CSV summary.
func (s *Suite) SaveResults() error {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return errors.Wrap(err, "failed to save summary CSV")
	}

	s.logger.Info("benchmark results saved", zap.String("results", resultsFile), zap.String("summary", summaryFile))
	return nil
}

var summaryHeader = []string{
	"Scenario", "Resolution", "Frames", "FPS", "Total_Duration_ms",
	"Inference_ms", "Post_Process_ms", "P95_ms", "CPU_User_ms", "RSS_MB", "Detections", "Error_Rate",
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Scenario.Name,
			r.Scenario.Resolution.Name,
			strconv.Itoa(r.Frames),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			millis(r.TotalDuration),
			millis(r.InferenceDuration),
			millis(r.PostProcessDuration),
			millis(r.LatencyP95),
			millis(r.CPUStats.UserTime),
			strconv.FormatFloat(float64(r.MemoryStats.RSSBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Nanoseconds())/1e6, 'f', 2, 64)
}

// Results returns all benchmark results
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]PerformanceMetrics, len(s.results))
	copy(results, s.results)
	return results
}
