// Package window implements the bounded, ordered buffer of per-frame feature
// vectors that is fed to the sequence classifier.
package window

import (
	"math"

	"github.com/ayusman/signify/internal/feature"
)

// DefaultCapacity is the sequence length the bundled models expect.
const DefaultCapacity = 30

// Window is a fixed-capacity FIFO of feature vectors. Appending to a full
// window evicts the oldest vector. Order always equals append order.
//
// A Window is owned by a single session loop and is not safe for
// concurrent use.
type Window struct {
	frames   []feature.Vector
	capacity int
}

// New creates an empty Window. A capacity below 1 is raised to 1.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		frames:   make([]feature.Vector, 0, capacity),
		capacity: capacity,
	}
}

// Append adds v as the newest entry, evicting the oldest when full.
func (w *Window) Append(v feature.Vector) {
	if len(w.frames) >= w.capacity {
		// Shift left by 1, dropping the oldest vector.
		copy(w.frames, w.frames[1:])
		w.frames = w.frames[:w.capacity-1]
	}
	w.frames = append(w.frames, v)
}

// Clear empties the window.
func (w *Window) Clear() {
	for i := range w.frames {
		w.frames[i] = nil
	}
	w.frames = w.frames[:0]
}

// IsFull reports whether the window holds exactly Capacity vectors.
func (w *Window) IsFull() bool {
	return len(w.frames) == w.capacity
}

// Len returns the number of buffered vectors.
func (w *Window) Len() int {
	return len(w.frames)
}

// Capacity returns the maximum number of buffered vectors.
func (w *Window) Capacity() int {
	return w.capacity
}

// Snapshot returns the buffered vectors, oldest first. The slice is a copy;
// the vectors themselves are shared and must not be modified.
func (w *Window) Snapshot() []feature.Vector {
	out := make([]feature.Vector, len(w.frames))
	copy(out, w.frames)
	return out
}

// Tensor packs the window into a (1, Len, D) row-major float32 tensor.
// D is the common vector length; when vectors disagree on length the
// reported shape carries -1 in that position and Data is nil.
func (w *Window) Tensor() Tensor {
	n := len(w.frames)
	if n == 0 {
		return Tensor{Shape: Shape{1, 0, 0}}
	}

	dim := len(w.frames[0])
	for _, v := range w.frames[1:] {
		if len(v) != dim {
			return Tensor{Shape: Shape{1, n, -1}}
		}
	}

	data := make([]float32, 0, n*dim)
	for _, v := range w.frames {
		data = append(data, v...)
	}
	return Tensor{Shape: Shape{1, n, dim}, Data: data}
}

// Shape is a rank-3 tensor shape: batch, time, features.
type Shape [3]int

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape Shape
	Data  []float32
}

// Finite reports whether every element is a finite number.
func (t Tensor) Finite() bool {
	for _, x := range t.Data {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
