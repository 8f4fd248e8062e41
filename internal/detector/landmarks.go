// Package detector provides landmark detection interfaces and types for sign recognition.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Mesh sizes reported by the MediaPipe holistic solutions.
const (
	NumFaceLandmarks = 468
	NumPoseLandmarks = 33
)

// Handedness labels reported by the detector.
const (
	HandLeft  = "Left"
	HandRight = "Right"
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p translated by -o.
func (p Point3D) Sub(o Point3D) Point3D {
	return Point3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Mesh is a variable-length landmark set for face or body pose.
// The detector returns the full mesh; feature extraction picks a subset.
type Mesh struct {
	Points []Point3D `json:"points"`
}

// Result is everything the detector found in one frame. Face and Pose are
// nil when that modality was not detected. Hands holds zero to two entries.
type Result struct {
	Face  *Mesh           `json:"face,omitempty"`
	Pose  *Mesh           `json:"pose,omitempty"`
	Hands []HandLandmarks `json:"hands,omitempty"`
}

// Empty reports whether no modality was detected.
func (r *Result) Empty() bool {
	return r == nil || (r.Face == nil && r.Pose == nil && len(r.Hands) == 0)
}
