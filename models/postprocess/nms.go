package postprocess

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// NMSConfig defines parameters for per-class Non-Maximum Suppression.
type NMSConfig struct {
	// ScoreThreshold discards candidates whose score is not strictly above it.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// IoUThreshold suppresses a candidate whose overlap with an accepted box is at least this.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// MaxDetectionsPerClass caps the accepted boxes of each class.
	MaxDetectionsPerClass int `json:"max_detections_per_class" yaml:"max_detections_per_class"`
	// MaxTotalDetections caps the merged result across classes.
	MaxTotalDetections int `json:"max_total_detections" yaml:"max_total_detections"`
	// NumClasses is the number of score columns per anchor, background included.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// NumWorkers is the number of goroutines suppressing classes in parallel.
	// Values below 2 run every class on the calling goroutine.
	NumWorkers int `json:"num_workers" yaml:"num_workers"`
}

// DefaultNMSConfig returns the thresholds used by the COCO SSD detectors.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		ScoreThreshold:        0.1,
		IoUThreshold:          0.5,
		MaxDetectionsPerClass: 10,
		MaxTotalDetections:    100,
		NumClasses:            91,
		NumWorkers:            1,
	}
}

// Validate reports the first invalid field as a *ConfigError.
func (c NMSConfig) Validate() error {
	switch {
	case c.NumClasses < 1:
		return &ConfigError{Field: "num_classes", Reason: fmt.Sprintf("must be at least 1, got %d", c.NumClasses)}
	case c.MaxDetectionsPerClass < 0:
		return &ConfigError{Field: "max_detections_per_class", Reason: fmt.Sprintf("must not be negative, got %d", c.MaxDetectionsPerClass)}
	case c.MaxTotalDetections < 0:
		return &ConfigError{Field: "max_total_detections", Reason: fmt.Sprintf("must not be negative, got %d", c.MaxTotalDetections)}
	}
	return nil
}

// candidate is an anchor whose score for the current class passed the threshold.
type candidate struct {
	index int
	score float32
}

// Suppress runs greedy Non-Maximum Suppression independently for every
// non-background class and merges the survivors.
//
// For each class c in [1, NumClasses):
//  1. Anchors scoring strictly above ScoreThreshold become candidates, in anchor order.
//  2. The highest-scoring remaining candidate is accepted (ties go to the one
//     collected first) and every other candidate overlapping it with
//     IoU >= IoUThreshold is dropped. This repeats until no candidates remain or
//     MaxDetectionsPerClass have been accepted.
//
// The result is ordered by class, then by descending score within a class. If
// it holds more than MaxTotalDetections, it is reduced to exactly the
// MaxTotalDetections highest scores by partial selection, which leaves the
// order unspecified.
//
// Arguments:
//   - boxes: The decoded boxes, one per anchor.
//   - scores: Per-anchor, per-class scores, length boxes.Len()*NumClasses.
//   - cfg: The suppression configuration.
//
// Returns:
//   - []Detection: The surviving detections.
//   - error: A *ShapeError, *ConfigError or *DegenerateBoxError. No partial result is returned.
//     When several classes fail, the lowest class is reported whatever NumWorkers is.
func Suppress(boxes Boxes, scores []float32, cfg NMSConfig) ([]Detection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	numBoxes := boxes.Len()
	if want := numBoxes * cfg.NumClasses; len(scores) != want {
		return nil, &ShapeError{Name: "scores", Got: len(scores), Want: want}
	}

	perClass := make([][]Detection, cfg.NumClasses)

	if cfg.NumWorkers < 2 || cfg.NumClasses <= 2 {
		for c := 1; c < cfg.NumClasses; c++ {
			dets, err := suppressClass(boxes, scores, cfg, c)
			if err != nil {
				return nil, errors.Wrapf(err, "suppress class %d", c)
			}
			perClass[c] = dets
		}
	} else {
		// Every class runs to completion so the reported error is always the
		// lowest failing class, as on the serial path.
		classErrs := make([]error, cfg.NumClasses)
		var g errgroup.Group
		g.SetLimit(cfg.NumWorkers)
		for c := 1; c < cfg.NumClasses; c++ {
			c := c
			g.Go(func() error {
				perClass[c], classErrs[c] = suppressClass(boxes, scores, cfg, c)
				return nil
			})
		}
		_ = g.Wait()
		for c, err := range classErrs {
			if err != nil {
				return nil, errors.Wrapf(err, "suppress class %d", c)
			}
		}
	}

	total := 0
	for _, dets := range perClass {
		total += len(dets)
	}

	detections := make([]Detection, 0, total)
	for _, dets := range perClass {
		detections = append(detections, dets...)
	}

	if len(detections) > cfg.MaxTotalDetections {
		SelectTopK(detections, cfg.MaxTotalDetections)
		detections = detections[:cfg.MaxTotalDetections]
	}

	return detections, nil
}

// suppressClass runs the greedy loop for a single class.
func suppressClass(boxes Boxes, scores []float32, cfg NMSConfig, class int) ([]Detection, error) {
	var candidates []candidate
	for i := 0; i < boxes.Len(); i++ {
		if score := scores[i*cfg.NumClasses+class]; score > cfg.ScoreThreshold {
			candidates = append(candidates, candidate{index: i, score: score})
		}
	}
	if len(candidates) == 0 || cfg.MaxDetectionsPerClass == 0 {
		return nil, nil
	}

	accepted := make([]Detection, 0, min(len(candidates), cfg.MaxDetectionsPerClass))
	for len(candidates) > 0 && len(accepted) < cfg.MaxDetectionsPerClass {
		best := 0
		for j := 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[best].score {
				best = j
			}
		}

		picked := candidates[best]
		box := boxes.At(picked.index)
		accepted = append(accepted, Detection{Box: box, Score: picked.score, Class: class})

		// Filter in place, preserving collection order for later tie-breaks.
		remaining := candidates[:0]
		for j, cand := range candidates {
			if j == best {
				continue
			}
			iou, err := IoU(box, boxes.At(cand.index))
			if err != nil {
				return nil, err
			}
			if iou >= cfg.IoUThreshold {
				continue
			}
			remaining = append(remaining, cand)
		}
		candidates = remaining
	}

	return accepted, nil
}
