package recognizer

import (
	"github.com/ayusman/signify/internal/classifier"
	"github.com/ayusman/signify/internal/labels"
)

// DefaultConfidenceThreshold is the reference minimum top-class probability.
const DefaultConfidenceThreshold = 0.82

// Prediction is the outcome of one classifier call.
type Prediction struct {
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
	// Label is empty when Certain is false.
	Label   string `json:"label,omitempty"`
	Certain bool   `json:"certain"`
}

// Resolve picks the top class of probs. The prediction is certain only
// when its probability is strictly greater than threshold; only then is the
// label looked up. An empty or all-NaN distribution is never certain.
func Resolve(probs []float32, threshold float32, table *labels.Table) Prediction {
	idx, conf := classifier.ArgMax(probs)
	p := Prediction{Index: idx, Confidence: conf}
	if idx < 0 || !(conf > threshold) {
		return p
	}
	p.Certain = true
	p.Label = table.Lookup(idx)
	return p
}
