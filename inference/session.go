// Package inference - ONNX Runtime sessions for SSD models.
package inference

import (
	"os"
	"sync"
	"time"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/inference/providers"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// SessionOptions configures how a Session loads and runs its model.
type SessionOptions struct {
	// LibraryPath is the ONNX Runtime shared library. Empty falls back to
	// providers.SharedLibraryPathEnv, then the platform default.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// Provider selects the execution provider.
	Provider providers.Config `json:"provider" yaml:"provider"`
	// Logger receives session lifecycle and per-run timing logs.
	Logger *zap.Logger `json:"-" yaml:"-"`
}

// DefaultSessionOptions runs on the CPU with the library resolved from the environment.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{Provider: providers.DefaultConfig()}
}

// Stats reports the run count and timing of a Session.
type Stats struct {
	// Runs is the number of completed Run calls.
	Runs int64
	// Total is the time spent inside ONNX Runtime.
	Total time.Duration
}

// Average returns the mean run time, or 0 before the first run.
func (s Stats) Average() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Runs)
}

// Session runs an SSD network that takes one image tensor and produces a box
// tensor and a score tensor.
//
// Input and output tensors are allocated once and bound to the native session,
// so Run calls are serialized.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	boxes   *ort.Tensor[float32]
	scores  *ort.Tensor[float32]
	logger  *zap.Logger
	name    model.Name
	stats   Stats
}

var envMu sync.Mutex

// initEnvironment loads the native library once per process.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)
	return errors.Wrap(ort.InitializeEnvironment(), "initialize ORT environment")
}

// inputShape returns the image tensor shape for cfg's layout.
func inputShape(cfg model.Config) ort.Shape {
	w, h := int64(cfg.InputWidth), int64(cfg.InputHeight)
	if cfg.Layout == images.LayoutNCHW {
		return ort.NewShape(1, 3, h, w)
	}
	return ort.NewShape(1, h, w, 3)
}

// NewSession creates an ONNX Runtime session for the model described by cfg.
//
// Order of operations:
//  1. Config check: the model must name its input, its two outputs and a model file.
//  2. Environment setup: the native library is loaded on first use.
//  3. Tensor allocation: fixed buffers for the image, boxes [1, N, BoxSize] and scores [1, N, NumClasses].
//  4. Session options and execution provider from opts.Provider.
//  5. Session creation, binding the buffers to the graph.
//
// Arguments:
//   - cfg: The model configuration. cfg.Path is the ONNX file.
//   - opts: The runtime options.
//
// Returns:
//   - *Session: The session. The caller must Close it.
//   - error: An error if cfg is invalid or ONNX Runtime fails to load the model.
func NewSession(cfg model.Config, opts SessionOptions) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, errors.New("model path is required")
	}
	if len(cfg.Inputs) != 1 || len(cfg.Outputs) != 2 {
		return nil, errors.Errorf("model %q must name one input and two outputs", cfg.Name)
	}
	if err := opts.Provider.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	libPath := providers.SharedLibraryPath(opts.LibraryPath)
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	numBoxes, err := cfg.NumBoxes()
	if err != nil {
		return nil, err
	}

	s := &Session{logger: logger, name: cfg.Name}

	s.input, err = ort.NewEmptyTensor[float32](inputShape(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	s.boxes, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(numBoxes), int64(cfg.BoxSize)))
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create box tensor")
	}
	s.scores, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(numBoxes), int64(cfg.NumClasses)))
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create score tensor")
	}

	options, err := providers.NewSessionOptions(opts.Provider)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSession(
		cfg.Path,
		cfg.Inputs,
		cfg.Outputs,
		[]ort.Value{s.input},
		[]ort.Value{s.boxes, s.scores},
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "create ORT session for %s", cfg.Path)
	}

	logger.Info("onnx session ready",
		zap.String("model", string(cfg.Name)),
		zap.String("path", cfg.Path),
		zap.String("backend", string(opts.Provider.Backend)),
		zap.Int("boxes", numBoxes),
		zap.Int("classes", cfg.NumClasses),
	)
	return s, nil
}

// InputLen returns the number of float32 values Run expects.
func (s *Session) InputLen() int {
	return len(s.input.GetData())
}

// Run executes the network on one input tensor.
//
// Arguments:
//   - input: The image tensor, as produced by images.ToTensor.
//
// Returns:
//   - []float32: The raw box tensor, owned by the caller.
//   - []float32: The raw score tensor, owned by the caller.
//   - error: An error if the input size is wrong or the run fails.
func (s *Session) Run(input []float32) ([]float32, []float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, nil, errors.New("session is closed")
	}
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, nil, errors.Errorf("input tensor holds %d values, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	start := time.Now()
	if err := s.session.Run(); err != nil {
		return nil, nil, errors.Wrap(err, "run ORT session")
	}
	elapsed := time.Since(start)
	s.stats.Runs++
	s.stats.Total += elapsed

	s.logger.Debug("inference complete",
		zap.String("model", string(s.name)),
		zap.Duration("elapsed", elapsed),
	)

	// The bound output buffers are overwritten by the next run.
	boxes := append([]float32(nil), s.boxes.GetData()...)
	scores := append([]float32(nil), s.scores.GetData()...)
	return boxes, scores, nil
}

// Stats returns a snapshot of the session's run statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases the native session and its tensors. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = errors.Wrap(s.session.Destroy(), "destroy ORT session")
		s.session = nil
	}
	for _, t := range []**ort.Tensor[float32]{&s.input, &s.boxes, &s.scores} {
		if *t != nil {
			(*t).Destroy()
			*t = nil
		}
	}
	return err
}
