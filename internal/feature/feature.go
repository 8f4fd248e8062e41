// Package feature turns per-frame landmark detections into the fixed-layout
// numeric vectors consumed by the sequence classifier.
//
// Vector layout (171 values, never reordered):
//
//	[  0,  27) face: 9 selected mesh points
//	[ 27,  45) pose: 6 selected body points
//	[ 45, 108) left hand: 21 wrist-relative points
//	[108, 171) right hand: 21 wrist-relative points
//
// Each point contributes x, y, z in that order.
package feature

import "github.com/ayusman/signify/internal/detector"

// Group sizes and the resulting vector length.
const (
	FaceGroupLen = 9
	PoseGroupLen = 6
	HandGroupLen = detector.NumLandmarks
	Coords       = 3

	VectorLen = (FaceGroupLen + PoseGroupLen + 2*HandGroupLen) * Coords
)

// Reference landmark selections used to train the bundled models.
var (
	DefaultFaceIndices = [FaceGroupLen]int{1, 4, 33, 61, 199, 263, 291, 362, 454}
	DefaultPoseIndices = [PoseGroupLen]int{11, 12, 13, 14, 15, 16}
)

// Fixed-length landmark groups. A modality that was not detected is
// represented by the zero value.
type (
	FaceGroup [FaceGroupLen]detector.Point3D
	PoseGroup [PoseGroupLen]detector.Point3D
	HandGroup [HandGroupLen]detector.Point3D
)

// Groups holds the four groups of one frame in vector order.
type Groups struct {
	Face  FaceGroup
	Pose  PoseGroup
	Left  HandGroup
	Right HandGroup
}

// Frame is the outcome of feature extraction for one frame.
type Frame struct {
	Vector Vector
	// DuplicateHands counts hand detections that were dropped because a later
	// detection claimed the same side.
	DuplicateHands int
}

// Extractor runs selection, hand normalization and assembly.
type Extractor struct {
	selector *Selector
}

// NewExtractor returns an Extractor using selector, or the default
// selection when selector is nil.
func NewExtractor(selector *Selector) *Extractor {
	if selector == nil {
		selector = DefaultSelector()
	}
	return &Extractor{selector: selector}
}

// Extract builds the feature vector for r. It is deterministic: the same
// detection always yields an identical vector.
func (e *Extractor) Extract(r *detector.Result) Frame {
	var g Groups
	var dup int

	if r != nil {
		g.Face, g.Pose = e.selector.Select(r)

		var slots HandSlots
		slots, dup = AssignHands(r.Hands)
		g.Left = NormalizeHand(slots.Left())
		g.Right = NormalizeHand(slots.Right())
	}

	return Frame{Vector: Assemble(g), DuplicateHands: dup}
}
