// Package app runs the recognition loop: read a frame, detect landmarks,
// advance the session and hand the status to every sink.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signify/internal/capture"
	"github.com/ayusman/signify/internal/classifier"
	"github.com/ayusman/signify/internal/detector"
	"github.com/ayusman/signify/internal/feature"
	"github.com/ayusman/signify/internal/labels"
	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/metrics"
	"github.com/ayusman/signify/internal/recognizer"
)

// Sink receives the status of every processed frame. Sinks are called from
// the loop goroutine and must not block for long.
type Sink interface {
	Publish(sessionID string, st recognizer.Status) error
}

// Config holds configuration options for the application.
type Config struct {
	Recognition recognizer.Config
	// Selector picks face and pose landmarks; nil uses the default.
	Selector        *feature.Selector
	MotionThreshold float64
	// Preview keeps an annotated JPEG of the latest frame for streaming.
	Preview bool
}

// Deps are the resources the loop drives. Run releases all of them.
type Deps struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier classifier.Classifier
	Labels     *labels.Table
	Sinks      []Sink
}

type tuning struct {
	threshold float32
	floor     int
}

// App owns one recognition session and the loop that drives it.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	classifier classifier.Classifier
	motion     *capture.MotionDetector
	rate       *capture.RateController
	session    *recognizer.Session
	sinks      []Sink

	mu      sync.RWMutex
	enabled bool
	pending *tuning

	frameMu   sync.RWMutex
	latest    []byte
	latestSeq uint64
}

// New creates an App. It does not touch the camera until Run.
func New(config Config, deps Deps) (*App, error) {
	if deps.Camera == nil || deps.Detector == nil || deps.Classifier == nil {
		return nil, errors.New("camera, detector and classifier are required")
	}
	if err := config.Recognition.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recognition config: %w", err)
	}

	return &App{
		config:     config,
		camera:     deps.Camera,
		detector:   deps.Detector,
		classifier: deps.Classifier,
		motion:     capture.NewMotionDetector(config.MotionThreshold),
		rate:       capture.NewRateController(capture.IdleFPS, capture.ActiveFPS, capture.DefaultIdleAfter),
		session:    recognizer.NewSession(config.Recognition, feature.NewExtractor(config.Selector), deps.Labels, deps.Classifier),
		sinks:      deps.Sinks,
		enabled:    true,
	}, nil
}

// SessionID returns the id of the running session.
func (a *App) SessionID() string {
	return a.session.ID()
}

// SetEnabled enables or disables recognition. Frames keep being read while
// disabled but are not processed.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// ApplySettings schedules new decision constants. They take effect before
// the next frame.
func (a *App) ApplySettings(threshold float32, floor int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &tuning{threshold: threshold, floor: floor}
}

// LatestFrame returns the latest annotated frame as JPEG and its sequence
// number. The sequence is zero until the first frame.
func (a *App) LatestFrame() ([]byte, uint64) {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.latest, a.latestSeq
}

// Run opens the camera and processes frames until ctx is cancelled or the
// source ends. Camera, detector and classifier are released on every
// return path. A camera that cannot be opened is fatal.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if rerr := a.release(); err == nil {
			err = rerr
		}
	}()

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(a.rate.FPS())

	logging.Info(logging.Fields{"session": a.SessionID()}, "recognition session started")
	defer logging.Info(logging.Fields{"session": a.SessionID()}, "recognition session stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := a.step(ctx)
		if errors.Is(err, capture.ErrEndOfStream) {
			logging.Info(logging.Fields{"session": a.SessionID()}, "end of stream")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// step processes a single frame.
func (a *App) step(ctx context.Context) error {
	a.applyPending()

	frame, err := a.camera.ReadFrame()
	if errors.Is(err, capture.ErrEmptyFrame) {
		metrics.RecordDropped("empty_frame")
		return nil
	}
	if err != nil {
		return err
	}
	defer frame.Close()

	if fps, changed := a.rate.Observe(a.motion.Detect(frame)); changed {
		a.camera.SetFPS(fps)
		logging.Debug(logging.Fields{"fps": fps, "active": a.rate.Active()}, "capture rate changed")
	}

	if !a.IsEnabled() {
		return nil
	}

	start := time.Now()
	result, err := a.detector.Detect(frame)
	metrics.ObserveDetect(time.Since(start))
	if err != nil {
		metrics.RecordDropped("detect_error")
		logging.Warn(logging.Fields{"session": a.SessionID(), "error": err.Error()}, "landmark detection failed, skipping frame")
		return nil
	}

	st := a.session.Process(ctx, result)
	logging.Debug(logging.Fields{
		"session": a.SessionID(),
		"state":   st.State.String(),
		"frames":  st.Frames,
	}, st.Text)

	for _, s := range a.sinks {
		if err := s.Publish(a.SessionID(), st); err != nil {
			logging.Warn(logging.Fields{"error": err.Error()}, "status sink failed")
		}
	}

	if a.config.Preview {
		a.render(frame, st)
	}
	return nil
}

func (a *App) applyPending() {
	a.mu.Lock()
	p := a.pending
	a.pending = nil
	a.mu.Unlock()

	if p == nil {
		return
	}
	a.session.Tune(p.threshold, p.floor)
	logging.Info(logging.Fields{
		"confidence_threshold": p.threshold,
		"signal_floor":         p.floor,
	}, "recognition settings applied")
}

// render draws the status onto frame and keeps it as the latest preview.
func (a *App) render(frame *gocv.Mat, st recognizer.Status) {
	capture.DrawStatus(frame, st.Text, st.LowSignal)

	jpeg, err := capture.EncodeJPEG(frame)
	if err != nil {
		logging.Debug(logging.Fields{"error": err.Error()}, "preview encode failed")
		return
	}

	a.frameMu.Lock()
	a.latest = jpeg
	a.latestSeq++
	a.frameMu.Unlock()
}

// release closes every resource the loop owns and joins their errors.
func (a *App) release() error {
	var errs []error
	if err := a.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	a.motion.Close()
	if err := a.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	if err := a.classifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close classifier: %w", err))
	}
	return errors.Join(errs...)
}
