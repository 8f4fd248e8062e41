// Package classifier defines the sequence-model boundary and its implementations.
package classifier

import (
	"context"
	"errors"
	"math"

	"github.com/ayusman/signify/internal/window"
)

// ErrBadOutput is returned when a model produces an unusable distribution.
var ErrBadOutput = errors.New("classifier returned no probabilities")

// ErrServiceNotFound is returned when the classifier service script cannot be located.
var ErrServiceNotFound = errors.New("sequence_classifier.py not found")

// Classifier maps a (1, T, D) window tensor to a probability per class.
// The returned slice is treated as already normalized.
type Classifier interface {
	Classify(ctx context.Context, t window.Tensor) ([]float32, error)
	Close() error
}

// ArgMax returns the index and value of the largest probability. Ties go to
// the lowest index. NaN entries are skipped; it returns -1 when no entry is
// a number.
func ArgMax(probs []float32) (int, float32) {
	best := -1
	var bestVal float32
	for i, p := range probs {
		if math.IsNaN(float64(p)) {
			continue
		}
		if best == -1 || p > bestVal {
			best = i
			bestVal = p
		}
	}
	return best, bestVal
}
