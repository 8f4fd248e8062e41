package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/metrics"
	"github.com/ayusman/signify/internal/recognizer"
)

const queueSize = 16

type job struct {
	plugin  *Plugin
	request *Request
}

// Dispatcher runs the actions bound to a label when that label is
// recognized. A label fires once until a different classification result
// or a window reset is seen. Actions run on a single worker so the
// recognition loop never waits for a plugin.
type Dispatcher struct {
	executor *Executor
	bindings map[string][]resolved

	mu     sync.Mutex
	last   string
	closed bool
	queue  chan job
	cancel context.CancelFunc
	done   chan struct{}
}

type resolved struct {
	plugin *Plugin
	action string
	params json.RawMessage
}

// NewDispatcher resolves bindings against the discovered plugins and starts
// the worker. Every binding must name a known plugin and a declared action.
func NewDispatcher(manager *Manager, executor *Executor, bindings []Binding) (*Dispatcher, error) {
	byLabel := make(map[string][]resolved)
	var errs []error
	for _, b := range bindings {
		r, err := resolve(manager, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %q: %w", b.Label, err))
			continue
		}
		byLabel[b.Label] = append(byLabel[b.Label], r)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		executor: executor,
		bindings: byLabel,
		queue:    make(chan job, queueSize),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.worker(ctx)
	return d, nil
}

func resolve(manager *Manager, b Binding) (resolved, error) {
	if b.Label == "" {
		return resolved{}, errors.New("label is required")
	}
	p, err := manager.Get(b.Plugin)
	if err != nil {
		return resolved{}, fmt.Errorf("%s: %w", b.Plugin, err)
	}
	if !p.Manifest.Supports(b.Action) {
		return resolved{}, fmt.Errorf("plugin %s has no action %q", b.Plugin, b.Action)
	}

	var params json.RawMessage
	if len(b.Params) > 0 {
		params, err = json.Marshal(b.Params)
		if err != nil {
			return resolved{}, fmt.Errorf("params: %w", err)
		}
	}
	return resolved{plugin: p, action: b.Action, params: params}, nil
}

// Labels returns the number of labels with at least one action.
func (d *Dispatcher) Labels() int {
	return len(d.bindings)
}

// Publish queues the actions for a newly recognized label. It satisfies
// the app's status sink interface and never blocks.
func (d *Dispatcher) Publish(sessionID string, st recognizer.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	switch st.State {
	case recognizer.Ready:
		if st.Prediction == nil || !st.Prediction.Certain {
			d.last = ""
			return nil
		}
	case recognizer.Gathering, recognizer.Mismatch:
		d.last = ""
		return nil
	default:
		return nil
	}

	label := st.Prediction.Label
	if label == d.last {
		return nil
	}
	d.last = label

	for _, r := range d.bindings[label] {
		j := job{plugin: r.plugin, request: &Request{
			Action:     r.action,
			Label:      label,
			Confidence: st.Prediction.Confidence,
			SessionID:  sessionID,
			Params:     r.params,
		}}
		select {
		case d.queue <- j:
		default:
			metrics.RecordAction(r.plugin.Manifest.Name, "dropped")
			logging.Warn(logging.Fields{
				"plugin": r.plugin.Manifest.Name,
				"label":  label,
			}, "action queue full, dropping action")
		}
	}
	return nil
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer close(d.done)
	for j := range d.queue {
		d.run(ctx, j)
	}
}

func (d *Dispatcher) run(ctx context.Context, j job) {
	name := j.plugin.Manifest.Name
	fields := logging.Fields{
		"plugin": name,
		"action": j.request.Action,
		"label":  j.request.Label,
	}

	resp, err := d.executor.Execute(ctx, j.plugin, j.request)
	switch {
	case err != nil:
		metrics.RecordAction(name, "error")
		fields["error"] = err
		logging.Warn(fields, "action failed")
	case !resp.Success:
		metrics.RecordAction(name, "failed")
		fields["error"] = resp.Error
		logging.Warn(fields, "plugin reported failure")
	default:
		metrics.RecordAction(name, "success")
		logging.Debug(fields, "action done")
	}
}

// Close stops accepting statuses, finishes queued actions and waits for
// the worker. A running plugin is killed if it outlives the executor
// timeout.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	d.cancel()
	return nil
}
