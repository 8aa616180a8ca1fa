package providers

import "strconv"

// Precision represents the inference precision OpenVINO compiles the model for.
type Precision string

const (
	// PrecisionAccuracy keeps the model's own precision (OpenVINO's default).
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 represents 32-bit floating point precision.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 represents 16-bit floating point precision.
	PrecisionFP16 Precision = "FP16"
)

// OpenVINOOptions represents the configuration options for the OpenVINO execution provider.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// DeviceType is the target device, e.g. "CPU", "GPU" or "NPU".
	DeviceType string `json:"device_type" yaml:"device_type"`
	// Precision is the inference precision.
	Precision Precision `json:"precision" yaml:"precision"`
	// NumOfThreads is the CPU thread count (0 lets OpenVINO decide).
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads"`
	// NumStreams is the number of parallel inference streams.
	NumStreams int `json:"num_streams" yaml:"num_streams"`
	// CacheDir enables the compiled blob cache in this directory.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// DefaultOpenVINOOptions targets the CPU at full precision.
func DefaultOpenVINOOptions() OpenVINOOptions {
	return OpenVINOOptions{
		DeviceType: "CPU",
		Precision:  PrecisionFP32,
		NumStreams: 1,
	}
}

// Map returns the options as ONNX Runtime provider option keys.
func (o OpenVINOOptions) Map() map[string]string {
	opts := map[string]string{
		"device_type": o.DeviceType,
		"precision":   string(o.Precision),
		"num_streams": strconv.Itoa(o.NumStreams),
	}
	if o.NumOfThreads > 0 {
		opts["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	if o.CacheDir != "" {
		opts["cache_dir"] = o.CacheDir
	}
	return opts
}
