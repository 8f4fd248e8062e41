package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters
const (
	// GaussianBlurSize is the kernel size used to smooth sensor noise.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts as motion.
	DiffThreshold = 25
	// DefaultMotionThreshold is the share of changed pixels, in percent,
	// above which a frame counts as moving.
	DefaultMotionThreshold = 1.0
)

// Motion is the result of comparing a frame with its predecessor.
type Motion struct {
	Detected bool
	// ChangePercent is the share of changed pixels in [0, 100].
	ChangePercent float64
}

// MotionDetector compares consecutive frames by blurred grayscale
// differencing. It keeps the previous frame as its baseline.
type MotionDetector struct {
	threshold float64
	baseline  gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels that must change; values <= 0 select DefaultMotionThreshold.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		baseline:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and makes frame the new
// baseline. The first frame only primes the baseline and never reports
// motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) Motion {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Motion{}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.primed || blurred.Rows() != m.baseline.Rows() || blurred.Cols() != m.baseline.Cols() {
		m.swapBaseline(blurred)
		return Motion{}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.baseline, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0

	m.swapBaseline(blurred)

	return Motion{Detected: changed > m.threshold, ChangePercent: changed}
}

// swapBaseline takes ownership of next as the comparison baseline.
func (m *MotionDetector) swapBaseline(next gocv.Mat) {
	m.baseline.Close()
	m.baseline = next
	m.primed = true
}

// Threshold returns the changed-pixel percentage that counts as motion.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Reset drops the baseline; the next frame primes it again.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.baseline.Close()
	m.baseline = gocv.NewMat()
	m.primed = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.Reset()
}
