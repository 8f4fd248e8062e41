// Package recognizer implements the per-session windowed inference state
// machine: gate each frame, buffer it, classify full windows and resolve
// the result against the label table.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signify/internal/classifier"
	"github.com/ayusman/signify/internal/detector"
	"github.com/ayusman/signify/internal/feature"
	"github.com/ayusman/signify/internal/labels"
	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/metrics"
	"github.com/ayusman/signify/internal/window"
)

// Config holds the tunables of a session.
type Config struct {
	SequenceLength      int
	FeatureDim          int
	SignalFloor         int
	ConfidenceThreshold float32
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		SequenceLength:      window.DefaultCapacity,
		FeatureDim:          feature.VectorLen,
		SignalFloor:         feature.DefaultSignalFloor,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// Validate reports configuration values the state machine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.SequenceLength < 1 {
		errs = append(errs, fmt.Errorf("sequence length %d must be at least 1", c.SequenceLength))
	}
	if c.FeatureDim < 1 {
		errs = append(errs, fmt.Errorf("feature dim %d must be at least 1", c.FeatureDim))
	}
	if c.SignalFloor < 0 {
		errs = append(errs, fmt.Errorf("signal floor %d must not be negative", c.SignalFloor))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("confidence threshold %v must be in [0, 1)", c.ConfidenceThreshold))
	}
	return errors.Join(errs...)
}

// Session owns the window and status of one recognition session. It is
// driven by a single loop and is not safe for concurrent use.
type Session struct {
	id         string
	config     Config
	extractor  *feature.Extractor
	gate       feature.Gate
	window     *window.Window
	table      *labels.Table
	classifier classifier.Classifier
	expected   window.Shape
	last       Status
	lastLabel  string
}

// NewSession creates a session. A nil extractor uses the default landmark
// selection.
func NewSession(cfg Config, extractor *feature.Extractor, table *labels.Table, clf classifier.Classifier) *Session {
	if extractor == nil {
		extractor = feature.NewExtractor(nil)
	}
	return &Session{
		id:         uuid.NewString(),
		config:     cfg,
		extractor:  extractor,
		gate:       feature.NewGate(cfg.SignalFloor),
		window:     window.New(cfg.SequenceLength),
		table:      table,
		classifier: clf,
		expected:   window.Shape{1, cfg.SequenceLength, cfg.FeatureDim},
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Config returns the session's settings.
func (s *Session) Config() Config { return s.config }

// WindowLen returns the number of buffered frames.
func (s *Session) WindowLen() int { return s.window.Len() }

// Last returns the status produced by the most recent frame.
func (s *Session) Last() Status { return s.last }

// LastLabel returns the most recent certain label, or "".
func (s *Session) LastLabel() string { return s.lastLabel }

// Tune replaces the confidence threshold and the signal floor. The window
// is kept.
func (s *Session) Tune(threshold float32, floor int) {
	s.config.ConfidenceThreshold = threshold
	s.config.SignalFloor = floor
	s.gate = feature.NewGate(floor)
}

// Process extracts features from one detection and advances the session.
func (s *Session) Process(ctx context.Context, r *detector.Result) Status {
	f := s.extractor.Extract(r)
	if f.DuplicateHands > 0 {
		metrics.RecordDuplicateHands(f.DuplicateHands)
		logging.Debug(logging.Fields{
			"session":  s.id,
			"replaced": f.DuplicateHands,
		}, "multiple hands reported for the same side, keeping the last")
	}
	return s.Step(ctx, f.Vector)
}

// Step advances the session by one feature vector:
//
//  1. low-signal vectors are dropped and the window is left as is
//  2. otherwise the vector is appended
//  3. a window that is not yet full reports progress
//  4. a full window with the expected shape is classified
//  5. a full window with any other shape is cleared
func (s *Session) Step(ctx context.Context, v feature.Vector) Status {
	st := s.step(ctx, v)
	st.Frames = s.window.Len()
	st.Capacity = s.window.Capacity()
	st.LastLabel = s.lastLabel

	metrics.RecordFrame(st.State.String())
	metrics.SetWindowFill(st.Frames)

	s.last = st
	return st
}

func (s *Session) step(ctx context.Context, v feature.Vector) Status {
	if s.gate.LowSignal(v) {
		return Status{State: Suppressed, Text: TextLowSignal, LowSignal: true}
	}

	s.window.Append(v)

	if !s.window.IsFull() {
		return Status{
			State: Gathering,
			Text:  fmt.Sprintf(gatheringFormat, s.window.Len(), s.window.Capacity()),
		}
	}

	tensor := s.window.Tensor()
	if tensor.Shape != s.expected || !tensor.Finite() {
		logging.Warn(logging.Fields{
			"session":  s.id,
			"shape":    tensor.Shape,
			"expected": s.expected,
			"finite":   tensor.Finite(),
		}, "window tensor mismatch, clearing window")
		s.window.Clear()
		return Status{State: Mismatch, Text: TextMismatch}
	}

	start := time.Now()
	probs, err := s.classifier.Classify(ctx, tensor)
	metrics.ObserveInference(time.Since(start), err)
	if err != nil {
		logging.Warn(logging.Fields{
			"session": s.id,
			"error":   err.Error(),
		}, "classifier failed")
		return Status{State: Failed, Text: TextClassifierError}
	}

	pred := Resolve(probs, s.config.ConfidenceThreshold, s.table)
	metrics.RecordPrediction(pred.Certain)

	st := Status{State: Ready, Prediction: &pred}
	if pred.Certain {
		s.lastLabel = pred.Label
		st.Text = fmt.Sprintf("%s (%.2f)", pred.Label, pred.Confidence)
	} else {
		st.Text = TextUncertain
	}
	return st
}
