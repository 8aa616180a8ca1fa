package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// NewSessionOptions creates native session options for cfg.
//
// Order of operations:
//  1. Threading: intra-op and inter-op thread counts.
//  2. Graph: optimization level and execution mode.
//  3. Execution provider: CUDA, CoreML or OpenVINO when selected; CPU needs no setup.
//
// The ONNX Runtime environment must already be initialized. The caller must
// Destroy the returned options once the session has been created.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The configured options.
//   - error: An error if cfg is invalid or the provider cannot be enabled.
func NewSessionOptions(cfg Config) (*ort.SessionOptions, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := cfg.graphOptimizationLevel()
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create ORT session options")
	}

	if err := configure(options, cfg, level); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, cfg Config, level ort.GraphOptimizationLevel) error {
	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		return errors.Wrap(err, "set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		return errors.Wrap(err, "set inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}
	mode := ort.ExecutionModeSequential
	if cfg.Parallel {
		mode = ort.ExecutionModeParallel
	}
	if err := options.SetExecutionMode(mode); err != nil {
		return errors.Wrap(err, "set execution mode")
	}

	switch cfg.Backend {
	case BackendCUDA:
		cuda, err := cfg.CUDA.ToNativeProviderOptions()
		if err != nil {
			return errors.Wrap(err, "convert CUDA options")
		}
		defer cuda.Destroy()
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "enable CUDA")
		}
	case BackendCoreML:
		if err := options.AppendExecutionProviderCoreML(cfg.CoreML.Flags()); err != nil {
			return errors.Wrap(err, "enable CoreML")
		}
	case BackendOpenVINO:
		if err := options.AppendExecutionProviderOpenVINO(cfg.OpenVINO.Map()); err != nil {
			return errors.Wrap(err, "enable OpenVINO")
		}
	}
	return nil
}
