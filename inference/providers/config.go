// Package providers - ONNX Runtime execution provider selection.
//
// A Config names one execution backend and its options. NewSessionOptions turns
// it into native session options for an inference session.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend represents an ONNX Runtime execution provider.
type Backend string

const (
	// BackendCPU uses the default CPU provider.
	BackendCPU Backend = "cpu"
	// BackendCUDA uses NVIDIA CUDA for GPU acceleration.
	BackendCUDA Backend = "cuda"
	// BackendCoreML uses Apple CoreML for macOS acceleration.
	BackendCoreML Backend = "coreml"
	// BackendOpenVINO uses Intel OpenVINO for CPU/GPU/VPU acceleration.
	BackendOpenVINO Backend = "openvino"
)

// GraphOptimization is the ONNX Runtime graph rewrite level.
type GraphOptimization string

const (
	// GraphOptimizationDisabled runs the graph as exported.
	GraphOptimizationDisabled GraphOptimization = "disabled"
	// GraphOptimizationBasic applies semantics-preserving rewrites such as constant folding.
	GraphOptimizationBasic GraphOptimization = "basic"
	// GraphOptimizationExtended adds node fusions.
	GraphOptimizationExtended GraphOptimization = "extended"
	// GraphOptimizationAll adds layout optimizations.
	GraphOptimizationAll GraphOptimization = "all"
)

// Config represents the execution provider configuration of one session.
type Config struct {
	// Backend specifies the execution provider to use.
	Backend Backend `json:"backend" yaml:"backend"`
	// IntraOpThreads is the thread count inside a node (0 lets ONNX Runtime decide).
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads is the thread count across independent nodes (0 lets ONNX Runtime decide).
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// GraphOptimization is the graph rewrite level applied at load time.
	GraphOptimization GraphOptimization `json:"graph_optimization" yaml:"graph_optimization"`
	// Parallel runs independent graph branches concurrently.
	Parallel bool `json:"parallel" yaml:"parallel"`
	// CUDA holds the options used when Backend is BackendCUDA.
	CUDA CUDAOptions `json:"cuda" yaml:"cuda"`
	// CoreML holds the options used when Backend is BackendCoreML.
	CoreML CoreMLOptions `json:"coreml" yaml:"coreml"`
	// OpenVINO holds the options used when Backend is BackendOpenVINO.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns a CPU configuration with extended graph optimizations.
func DefaultConfig() Config {
	return Config{
		Backend:           BackendCPU,
		GraphOptimization: GraphOptimizationExtended,
		OpenVINO:          DefaultOpenVINOOptions(),
	}
}

// Validate checks the backend and thread settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendCPU, BackendCUDA, BackendCoreML, BackendOpenVINO:
	default:
		return fmt.Errorf("unsupported execution provider: %q", c.Backend)
	}
	if c.IntraOpThreads < 0 {
		return fmt.Errorf("intra_op_threads must not be negative, got %d", c.IntraOpThreads)
	}
	if c.InterOpThreads < 0 {
		return fmt.Errorf("inter_op_threads must not be negative, got %d", c.InterOpThreads)
	}
	if _, err := c.graphOptimizationLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) graphOptimizationLevel() (ort.GraphOptimizationLevel, error) {
	switch c.GraphOptimization {
	case GraphOptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", GraphOptimizationExtended:
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, fmt.Errorf("unsupported graph optimization level: %q", c.GraphOptimization)
	}
}
