package detector

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/signify/internal/sidecar"
)

// ServiceScript is the file name of the Python holistic landmark service.
const ServiceScript = "mediapipe_holistic.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// running the face mesh, pose and hands solutions on every frame.
type MediaPipeDetector struct {
	config Config
	proc   *sidecar.Process
}

// NewMediaPipeDetector creates a new MediaPipe detector and starts the
// Python process so that a missing interpreter or model fails here rather
// than on the first frame.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = sidecar.FindScript(ServiceScript)
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	proc := sidecar.New(sidecar.Config{
		Name:   "mediapipe",
		Python: config.PythonPath,
		Script: scriptPath,
		Args: []string{
			"--max-hands", strconv.Itoa(config.MaxHands),
			"--min-detection", strconv.FormatFloat(config.MinConfidence, 'f', 2, 64),
			"--min-tracking", strconv.FormatFloat(config.MinTrackingConf, 'f', 2, 64),
		},
	})
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	return &MediaPipeDetector{
		config: config,
		proc:   proc,
	}, nil
}

// Detect analyzes a frame and returns the detected landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*Result, error) {
	// Encode frame as JPEG
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	line, err := d.proc.Call(buf.GetBytes())
	if err != nil {
		return nil, err
	}

	return parseResponse(line)
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.proc.Close()
}

// jsonResponse represents the JSON structure from the Python service.
type jsonResponse struct {
	Face  []jsonPoint `json:"face"`
	Pose  []jsonPoint `json:"pose"`
	Hands []jsonHand  `json:"hands"`
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func parseResponse(line []byte) (*Result, error) {
	var response jsonResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := &Result{
		Face: toMesh(response.Face),
		Pose: toMesh(response.Pose),
	}
	if len(response.Hands) > 0 {
		result.Hands = make([]HandLandmarks, len(response.Hands))
		for i, h := range response.Hands {
			result.Hands[i] = h.toHandLandmarks()
		}
	}

	return result, nil
}

func toMesh(points []jsonPoint) *Mesh {
	if len(points) == 0 {
		return nil
	}
	mesh := &Mesh{Points: make([]Point3D, len(points))}
	for i, p := range points {
		mesh.Points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}
	return mesh
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
