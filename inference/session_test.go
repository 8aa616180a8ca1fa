package inference

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/inference/providers"
	"github.com/nvr-ai/go-ssd/models"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/nvr-ai/go-ssd/models/postprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInputShape(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.InputWidth, cfg.InputHeight = 320, 240

	assert.Equal(t, []int64{1, 240, 320, 3}, []int64(inputShape(cfg)))

	cfg.Layout = images.LayoutNCHW
	assert.Equal(t, []int64{1, 3, 240, 320}, []int64(inputShape(cfg)))
}

func TestStats_Average(t *testing.T) {
	assert.Equal(t, time.Duration(0), Stats{}.Average())
	assert.Equal(t, 5*time.Millisecond, Stats{Runs: 4, Total: 20 * time.Millisecond}.Average())
}

func TestNewSession_Errors(t *testing.T) {
	valid := model.DefaultConfig()
	valid.Path = "model.onnx"

	tests := []struct {
		name   string
		mutate func(*model.Config, *SessionOptions)
	}{
		{"Invalid model config", func(c *model.Config, _ *SessionOptions) { c.BoxSize = 1 }},
		{"Missing model path", func(c *model.Config, _ *SessionOptions) { c.Path = "" }},
		{"Missing output names", func(c *model.Config, _ *SessionOptions) { c.Outputs = nil }},
		{"Unknown backend", func(_ *model.Config, o *SessionOptions) { o.Provider.Backend = "tpu" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			opts := DefaultSessionOptions()
			tt.mutate(&cfg, &opts)

			s, err := NewSession(cfg, opts)
			require.Error(t, err)
			assert.Nil(t, s)
		})
	}

	t.Run("Invalid model config is a ConfigError", func(t *testing.T) {
		cfg := valid
		cfg.NumClasses = 0
		_, err := NewSession(cfg, DefaultSessionOptions())
		assert.True(t, errors.Is(err, postprocess.ErrConfig))
	})
}

func TestNewSession_MissingLibrary(t *testing.T) {
	if os.Getenv(providers.SharedLibraryPathEnv) != "" {
		t.Skip("ONNX Runtime may already be initialized in this process")
	}

	cfg := model.DefaultConfig()
	cfg.Path = "model.onnx"
	opts := DefaultSessionOptions()
	opts.LibraryPath = filepath.Join(t.TempDir(), "libonnxruntime.so")

	_, err := NewSession(cfg, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestSession_Run needs the native library and an exported SSD MobileNet v2 model.
func TestSession_Run(t *testing.T) {
	if os.Getenv(providers.SharedLibraryPathEnv) == "" {
		t.Skipf("%s not set", providers.SharedLibraryPathEnv)
	}
	modelPath := os.Getenv("SSD_MODEL_PATH")
	if modelPath == "" {
		t.Skip("SSD_MODEL_PATH not set")
	}

	cfg, err := models.NewConfig(model.NameSSDMobileNetV2COCO)
	require.NoError(t, err)
	cfg.Path = modelPath

	opts := DefaultSessionOptions()
	opts.Logger = zaptest.NewLogger(t)

	s, err := NewSession(cfg, opts)
	require.NoError(t, err)
	defer s.Close()

	boxes, scores, err := s.Run(make([]float32, s.InputLen()))
	require.NoError(t, err)
	assert.Len(t, boxes, 1917*cfg.BoxSize)
	assert.Len(t, scores, 1917*cfg.NumClasses)
	assert.Equal(t, int64(1), s.Stats().Runs)

	_, _, err = s.Run(make([]float32, 3))
	assert.Error(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, _, err = s.Run(make([]float32, 3))
	assert.Error(t, err)
}
