package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Default", func(c *Config) {}, false},
		{"CUDA", func(c *Config) { c.Backend = BackendCUDA }, false},
		{"Unknown backend", func(c *Config) { c.Backend = "tpu" }, true},
		{"Negative intra-op threads", func(c *Config) { c.IntraOpThreads = -1 }, true},
		{"Negative inter-op threads", func(c *Config) { c.InterOpThreads = -2 }, true},
		{"Unknown optimization level", func(c *Config) { c.GraphOptimization = "max" }, true},
		{"Empty optimization level", func(c *Config) { c.GraphOptimization = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestCoreMLOptions_Flags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001), CoreMLOptions{UseCPUOnly: true}.Flags())
	assert.Equal(t, uint32(0x002|0x010), CoreMLOptions{EnableOnSubgraphs: true, MLProgram: true}.Flags())
	assert.Equal(t, uint32(0x01f), CoreMLOptions{
		UseCPUOnly:               true,
		EnableOnSubgraphs:        true,
		RequireANE:               true,
		RequireStaticInputShapes: true,
		MLProgram:                true,
	}.Flags())
}

func TestCUDAOptions_Map(t *testing.T) {
	opts := CUDAOptions{DeviceID: 1, UseTF32: true}.Map()
	assert.Equal(t, map[string]string{
		"device_id":                 "1",
		"do_copy_in_default_stream": "0",
		"use_tf32":                  "1",
	}, opts)

	opts = CUDAOptions{GPUMemLimit: 2 << 30, CudnnConvAlgoSearch: "HEURISTIC"}.Map()
	assert.Equal(t, "2147483648", opts["gpu_mem_limit"])
	assert.Equal(t, "HEURISTIC", opts["cudnn_conv_algo_search"])
}

func TestOpenVINOOptions_Map(t *testing.T) {
	opts := DefaultOpenVINOOptions().Map()
	assert.Equal(t, "CPU", opts["device_type"])
	assert.Equal(t, "FP32", opts["precision"])
	assert.NotContains(t, opts, "num_of_threads")
	assert.NotContains(t, opts, "cache_dir")

	custom := OpenVINOOptions{DeviceType: "GPU", Precision: PrecisionFP16, NumOfThreads: 4, CacheDir: "/tmp/ov"}
	assert.Equal(t, "4", custom.Map()["num_of_threads"])
	assert.Equal(t, "/tmp/ov", custom.Map()["cache_dir"])
}

func TestSharedLibraryPath(t *testing.T) {
	t.Setenv(SharedLibraryPathEnv, "/opt/ort/libonnxruntime.so")
	assert.Equal(t, "/explicit.so", SharedLibraryPath("/explicit.so"))
	assert.Equal(t, "/opt/ort/libonnxruntime.so", SharedLibraryPath(""))

	t.Setenv(SharedLibraryPathEnv, "")
	assert.NotEmpty(t, SharedLibraryPath(""))

	assert.Equal(t, "./third_party/onnxruntime.dll", defaultSharedLibraryPath("windows", "amd64"))
	assert.Equal(t, "./third_party/libonnxruntime.dylib", defaultSharedLibraryPath("darwin", "arm64"))
	assert.Equal(t, "./third_party/onnxruntime_arm64.so", defaultSharedLibraryPath("linux", "arm64"))
	assert.Equal(t, "./third_party/onnxruntime.so", defaultSharedLibraryPath("linux", "amd64"))
}
