package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/models/postprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		check func(t *testing.T, cfg Config)
	}{
		{
			name: "Empty document keeps defaults",
			yaml: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "Nested sections merge over defaults",
			yaml: `
name: custom
anchors:
  min_scale: 0.15
nms:
  score_threshold: 0.4
`,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, Name("custom"), cfg.Name)
				assert.Equal(t, float32(0.15), cfg.Anchors.MinScale)
				assert.Equal(t, float32(0.95), cfg.Anchors.MaxScale)
				assert.True(t, cfg.Anchors.ReduceBoxesInLowestLayer)
				assert.Equal(t, float32(0.4), cfg.NMS.ScoreThreshold)
				assert.Equal(t, float32(0.5), cfg.NMS.IoUThreshold)
			},
		},
		{
			name: "Full face model",
			yaml: `
name: ssd_face
family: face
input_width: 320
input_height: 240
layout: nchw
normalize: zero_one
outputs: [loc, conf]
num_classes: 2
activation: sigmoid
anchors:
  aspect_ratios: [1]
  feature_map_shapes: [[4, 4], [2, 2]]
  reduce_boxes_in_lowest_layer: false
margin: [1.2, 1.2, 1.5, 1.1]
`,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, FamilyFace, cfg.Family)
				assert.Equal(t, 320, cfg.InputWidth)
				assert.Equal(t, images.LayoutNCHW, cfg.Layout)
				assert.Equal(t, []string{"loc", "conf"}, cfg.Outputs)
				assert.Equal(t, ActivationSigmoid, cfg.Activation)
				assert.Equal(t, [][2]int{{4, 4}, {2, 2}}, cfg.Anchors.FeatureMapShapes)
				assert.Equal(t, postprocess.Margin{1.2, 1.2, 1.5, 1.1}, cfg.Margin)

				numBoxes, err := cfg.NumBoxes()
				require.NoError(t, err)
				assert.Equal(t, 4*4*2+2*2*2, numBoxes)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ReadConfig(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestReadConfig_Errors(t *testing.T) {
	t.Run("Malformed YAML", func(t *testing.T) {
		_, err := ReadConfig(strings.NewReader("anchors: [unterminated"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, postprocess.ErrConfig))
	})

	t.Run("Wrong margin length", func(t *testing.T) {
		_, err := ReadConfig(strings.NewReader("margin: [1, 1]"))
		require.Error(t, err)
	})

	t.Run("Invalid values", func(t *testing.T) {
		_, err := ReadConfig(strings.NewReader("box_size: 3"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, postprocess.ErrConfig))
	})
}

func TestWriteAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")

	cfg := DefaultConfig()
	cfg.Name = NameSSDFace
	cfg.Family = FamilyFace
	cfg.NumClasses = 2
	cfg.Margin = postprocess.Margin{1.1, 1.1, 1.3, 1.1}
	require.NoError(t, WriteConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: ssd_face")
	assert.Contains(t, string(data), "feature_map_shapes:")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
