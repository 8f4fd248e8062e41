// Package metrics exposes Prometheus metrics for the recognition loop.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signify"

var (
	// framesTotal counts processed frames by resulting state.
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames processed by resulting state",
		},
		[]string{"state"}, // gathering, ready, mismatch, suppressed, failed
	)

	// framesDroppedTotal counts frames that never reached the session.
	framesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped before recognition",
		},
		[]string{"reason"}, // read_error, detect_error
	)

	// inferenceDuration is a histogram of classifier call duration.
	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Duration of sequence classifier calls in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"status"}, // success, error
	)

	// detectDuration is a histogram of landmark detector call duration.
	detectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detect_duration_seconds",
			Help:      "Duration of landmark detector calls in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// predictionsTotal counts classifier results by certainty.
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of resolved predictions",
		},
		[]string{"result"}, // certain, uncertain
	)

	// duplicateHandsTotal counts hands dropped for sharing a side.
	duplicateHandsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_hands_total",
			Help:      "Total number of hands replaced by a later hand of the same side",
		},
	)

	// windowFill is the number of frames currently buffered.
	windowFill = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_frames",
			Help:      "Number of frames currently in the sliding window",
		},
	)

	// actionsTotal counts plugin actions triggered by recognized labels.
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of label actions by result",
		},
		[]string{"plugin", "result"}, // success, failed, error, dropped
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		framesTotal,
		framesDroppedTotal,
		inferenceDuration,
		detectDuration,
		predictionsTotal,
		duplicateHandsTotal,
		windowFill,
		actionsTotal,
	}
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
)

// Registry returns the registry holding all recognition metrics plus the
// Go runtime and process collectors.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		for _, c := range allMetrics {
			registry.MustRegister(c)
		}
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordFrame counts a processed frame.
func RecordFrame(state string) {
	framesTotal.WithLabelValues(state).Inc()
}

// RecordDropped counts a frame dropped before recognition.
func RecordDropped(reason string) {
	framesDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveInference records one classifier call.
func ObserveInference(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	inferenceDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveDetect records one detector call.
func ObserveDetect(d time.Duration) {
	detectDuration.Observe(d.Seconds())
}

// RecordPrediction counts a resolved prediction.
func RecordPrediction(certain bool) {
	result := "uncertain"
	if certain {
		result = "certain"
	}
	predictionsTotal.WithLabelValues(result).Inc()
}

// RecordDuplicateHands counts replaced hands.
func RecordDuplicateHands(n int) {
	if n > 0 {
		duplicateHandsTotal.Add(float64(n))
	}
}

// SetWindowFill records the current window length.
func SetWindowFill(n int) {
	windowFill.Set(float64(n))
}

// RecordAction counts one label action outcome.
func RecordAction(plugin, result string) {
	actionsTotal.WithLabelValues(plugin, result).Inc()
}
