package classifier

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ayusman/signify/internal/sidecar"
	"github.com/ayusman/signify/internal/window"
)

// ServiceScript is the file name of the Python sequence model service.
const ServiceScript = "sequence_classifier.py"

// ProcessConfig configures a ProcessClassifier.
type ProcessConfig struct {
	ModelPath  string // model weights passed to the service
	ScriptPath string // empty means search the usual script locations
	PythonPath string // empty means venv, then python3
	NumClasses int    // when positive, outputs of any other length are rejected; zero accepts any
}

// ProcessClassifier runs the sequence model in a Python subprocess.
//
// Request payload: three big-endian uint32 dimensions followed by the tensor
// data as little-endian float32. Response: {"probabilities": [...]} or
// {"error": "..."} on a single line.
type ProcessClassifier struct {
	config ProcessConfig
	proc   *sidecar.Process
}

// NewProcessClassifier starts the model service. It fails when the script
// cannot be found or the interpreter cannot be launched.
func NewProcessClassifier(config ProcessConfig) (*ProcessClassifier, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = sidecar.FindScript(ServiceScript)
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	proc := sidecar.New(sidecar.Config{
		Name:   "classifier",
		Python: config.PythonPath,
		Script: scriptPath,
		Args:   []string{"--model", config.ModelPath},
		// Loading the model is slow; keep it resident for the whole session.
		IdleTimeout: -1,
	})
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("start classifier service: %w", err)
	}

	return &ProcessClassifier{config: config, proc: proc}, nil
}

// Classify sends t to the service and returns its probability vector.
func (c *ProcessClassifier) Classify(ctx context.Context, t window.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line, err := c.proc.Call(EncodeTensor(t))
	if err != nil {
		return nil, err
	}

	return decodeResponse(line, c.config.NumClasses)
}

// Close stops the service.
func (c *ProcessClassifier) Close() error {
	return c.proc.Close()
}

// EncodeTensor serializes t in the service wire format.
func EncodeTensor(t window.Tensor) []byte {
	buf := make([]byte, 12+4*len(t.Data))
	for i, d := range t.Shape {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(d))
	}
	for i, x := range t.Data {
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(x))
	}
	return buf
}

type serviceResponse struct {
	Probabilities []float32 `json:"probabilities"`
	Error         string    `json:"error"`
}

func decodeResponse(line []byte, numClasses int) ([]float32, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("classifier service: %s", resp.Error)
	}
	if len(resp.Probabilities) == 0 {
		return nil, ErrBadOutput
	}
	if numClasses > 0 && len(resp.Probabilities) != numClasses {
		return nil, fmt.Errorf("%w: got %d classes, want %d", ErrBadOutput, len(resp.Probabilities), numClasses)
	}
	return resp.Probabilities, nil
}
