package dnn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvr-ai/go-ssd/detector"
	"github.com/nvr-ai/go-ssd/images"
	"github.com/nvr-ai/go-ssd/models"
	"github.com/nvr-ai/go-ssd/models/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"
)

func TestBlobParams(t *testing.T) {
	tests := []struct {
		name  string
		n     images.Normalization
		scale float64
		mean  float64
	}{
		{"Minus one to one", images.NormalizeMinusOneToOne, 1.0 / 127.5, 127.5},
		{"Zero to one", images.NormalizeZeroToOne, 1.0 / 255.0, 0},
		{"None", images.NormalizeNone, 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, mean := BlobParams(tt.n)
			assert.InDelta(t, tt.scale, scale, 1e-12)
			assert.InDelta(t, tt.mean, mean.Val1, 1e-12)
			assert.InDelta(t, tt.mean, mean.Val2, 1e-12)
			assert.InDelta(t, tt.mean, mean.Val3, 1e-12)

			// 255 must land on the top of the normalized range.
			top := (255 - mean.Val1) * scale
			switch tt.n {
			case images.NormalizeMinusOneToOne, images.NormalizeZeroToOne:
				assert.InDelta(t, 1.0, top, 1e-9)
			default:
				assert.InDelta(t, 255.0, top, 1e-9)
			}
		})
	}
}

func writeModelFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestValidateModel(t *testing.T) {
	cfg := model.DefaultConfig()

	cfg.Path = filepath.Join(t.TempDir(), "missing.pb")
	err := ValidateModel(cfg, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	cfg.Path = writeModelFile(t, "empty.pb", nil)
	assert.ErrorContains(t, ValidateModel(cfg, Options{}), "empty")

	cfg.Path = writeModelFile(t, "model.pb", []byte("graph"))
	require.NoError(t, ValidateModel(cfg, Options{}))

	err = ValidateModel(cfg, Options{ConfigPath: filepath.Join(t.TempDir(), "missing.pbtxt")})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewSSDModel_RejectsNHWCONNX(t *testing.T) {
	cfg, err := models.NewConfig(model.NameSSDMobileNetV2COCO)
	require.NoError(t, err)
	cfg.Path = writeModelFile(t, "ssd.onnx", []byte("onnx"))
	require.Equal(t, images.LayoutNHWC, cfg.Layout)

	det, err := detector.New(cfg)
	require.NoError(t, err)

	_, err = NewSSDModel(det, Options{Logger: zaptest.NewLogger(t)})
	assert.ErrorContains(t, err, "nhwc")
}

func TestSSDModel_Filter(t *testing.T) {
	objects := []detector.Object{
		{Label: "person"},
		{Label: "car"},
		{Label: "dog"},
		{Label: "person"},
	}

	all := &SSDModel{relevant: map[string]bool{}}
	assert.Len(t, all.filter(append([]detector.Object(nil), objects...)), 4)
	assert.True(t, all.IsRelevantClass("anything"))

	people := &SSDModel{relevant: map[string]bool{"person": true, "car": true}}
	kept := people.filter(append([]detector.Object(nil), objects...))
	require.Len(t, kept, 3)
	for _, obj := range kept {
		assert.NotEqual(t, "dog", obj.Label)
	}
	assert.False(t, people.IsRelevantClass("dog"))
}

// newFakeModel returns a model over a single 2x2 anchor layer whose forward
// pass is infer.
func newFakeModel(t *testing.T, timeout time.Duration, infer func(gocv.Mat) ([]float32, []float32, error)) *SSDModel {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Name = "grid"
	cfg.InputWidth, cfg.InputHeight = 8, 8
	cfg.NumClasses = 3
	cfg.Normalize = images.NormalizeMinusOneToOne
	cfg.Anchors.FeatureMapShapes = [][2]int{{2, 2}}
	cfg.Anchors.AspectRatios = []float32{1}
	cfg.Anchors.InterpolatedScaleAspectRatio = 0
	cfg.Anchors.ReduceBoxesInLowestLayer = false

	det, err := detector.New(cfg)
	require.NoError(t, err)

	scale, mean := BlobParams(cfg.Normalize)
	return &SSDModel{
		cfg:      cfg,
		det:      det,
		opts:     Options{Timeout: timeout},
		relevant: map[string]bool{},
		scale:    scale,
		mean:     mean,
		logger:   zaptest.NewLogger(t),
		infer:    infer,
	}
}

func whiteFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 4, 4, gocv.MatTypeCV8UC3)
}

func TestSSDModel_Detect(t *testing.T) {
	m := newFakeModel(t, time.Second, func(blob gocv.Mat) ([]float32, []float32, error) {
		scores := make([]float32, 4*3)
		scores[1] = 0.9
		return make([]float32, 4*4), scores, nil
	})

	img := whiteFrame()
	defer img.Close()

	objects, err := m.Detect(img)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, 1, objects[0].Class)
	assert.InDelta(t, 0.9, objects[0].Score, 1e-6)
	assert.InDelta(t, 0.15, objects[0].Box.YMin, 1e-6)
}

func TestSSDModel_Detect_Empty(t *testing.T) {
	m := newFakeModel(t, time.Second, func(gocv.Mat) ([]float32, []float32, error) {
		t.Fatal("empty frames must not reach the network")
		return nil, nil, nil
	})

	img := gocv.NewMat()
	defer img.Close()

	_, err := m.Detect(img)
	assert.ErrorContains(t, err, "empty frame")
}

// TestSSDModel_Detect_TimeoutOwnsBlob closes the source frame while a timed
// out forward pass is still running; the pass must still see the frame's pixels.
func TestSSDModel_Detect_TimeoutOwnsBlob(t *testing.T) {
	release := make(chan struct{})
	seen := make(chan []float32, 1)
	m := newFakeModel(t, 10*time.Millisecond, func(blob gocv.Mat) ([]float32, []float32, error) {
		<-release
		data, err := blob.DataPtrFloat32()
		if err != nil {
			seen <- nil
			return nil, nil, err
		}
		seen <- append([]float32(nil), data...)
		return nil, nil, errors.New("abandoned")
	})

	img := whiteFrame()
	_, err := m.Detect(img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	// The caller is free to recycle the frame once Detect has returned.
	require.NoError(t, img.Close())
	close(release)

	var data []float32
	select {
	case data = <-seen:
	case <-time.After(5 * time.Second):
		t.Fatal("forward pass never finished")
	}
	require.Len(t, data, 3*8*8)
	for i, v := range data {
		require.InDelta(t, 1.0, v, 1e-5, "blob value %d", i)
	}
}
