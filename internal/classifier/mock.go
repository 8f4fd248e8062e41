package classifier

import (
	"context"
	"sync"

	"github.com/ayusman/signify/internal/window"
)

// MockClassifier is a test implementation of the Classifier interface.
type MockClassifier struct {
	probs  []float32
	err    error
	calls  int
	shapes []window.Shape
	closed bool
	mu     sync.Mutex
}

// NewMockClassifier returns a mock that answers with probs.
func NewMockClassifier(probs []float32) *MockClassifier {
	return &MockClassifier{probs: probs}
}

// SetProbabilities changes the answer for subsequent calls.
func (m *MockClassifier) SetProbabilities(probs []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probs = probs
}

// SetError makes subsequent calls fail with err.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Classify invocations.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Shapes returns the tensor shapes seen so far.
func (m *MockClassifier) Shapes() []window.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]window.Shape(nil), m.shapes...)
}

// Classify records the call and returns the configured answer.
func (m *MockClassifier) Classify(ctx context.Context, t window.Tensor) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.shapes = append(m.shapes, t.Shape)
	if m.err != nil {
		return nil, m.err
	}
	return m.probs, nil
}

// Close records that the classifier was released.
func (m *MockClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClassifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// OneHot returns a distribution of n classes with p on idx and the rest
// spread evenly.
func OneHot(n, idx int, p float32) []float32 {
	probs := make([]float32, n)
	if n == 0 {
		return probs
	}
	rest := float32(0)
	if n > 1 {
		rest = (1 - p) / float32(n-1)
	}
	for i := range probs {
		probs[i] = rest
	}
	probs[idx] = p
	return probs
}
