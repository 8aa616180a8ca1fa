package models

import (
	"strings"
	"testing"

	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/nvr-ai/go-ssd/models/postprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name       model.Name
		family     model.Family
		numBoxes   int
		numClasses int
	}{
		{model.NameSSDMobileNetV2COCO, model.FamilyTF, 1917, 91},
		{model.NameSSDFace, model.FamilyFace, 19*19*2 + 10*10*2, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			cfg, err := NewConfig(tt.name)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, tt.family, cfg.Family)
			assert.Equal(t, tt.numClasses, cfg.NumClasses)
			assert.Equal(t, tt.numClasses, cfg.NMS.NumClasses)
			assert.Len(t, cfg.Outputs, 2)

			numBoxes, err := cfg.NumBoxes()
			require.NoError(t, err)
			assert.Equal(t, tt.numBoxes, numBoxes)

			// Every non-background class id has a label.
			for c := 1; c < cfg.NumClasses; c++ {
				assert.NotEmpty(t, LookupName(cfg.Family, c), "class %d", c)
			}
		})
	}
}

func TestNewConfig_ReturnsCopies(t *testing.T) {
	a, err := NewConfig(model.NameSSDFace)
	require.NoError(t, err)
	a.Anchors.AspectRatios[0] = 2
	a.Outputs[0] = "changed"

	b, err := NewConfig(model.NameSSDFace)
	require.NoError(t, err)
	assert.Equal(t, float32(1), b.Anchors.AspectRatios[0])
	assert.Equal(t, "boxes", b.Outputs[0])
}

func TestNewConfig_Unknown(t *testing.T) {
	_, err := NewConfig("yolov4")
	assert.Error(t, err)
}

func TestNewConfigWithOverrides(t *testing.T) {
	cfg, err := NewConfigWithOverrides(model.NameSSDFace, strings.NewReader("nms:\n  score_threshold: 0.7\n"))
	require.NoError(t, err)
	assert.Equal(t, float32(0.7), cfg.NMS.ScoreThreshold)
	assert.Equal(t, float32(0.3), cfg.NMS.IoUThreshold)
	assert.Equal(t, postprocess.Margin{1.1, 1.1, 1.3, 1.05}, cfg.Margin)

	_, err = NewConfigWithOverrides(model.NameSSDFace, strings.NewReader("box_size: 1\n"))
	assert.True(t, errors.Is(err, postprocess.ErrConfig))
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []model.Name{model.NameSSDFace, model.NameSSDMobileNetV2COCO}, Presets())
}
