package feature

import (
	"fmt"

	"github.com/ayusman/signify/internal/detector"
)

// Selector picks a fixed subset of points from the face mesh and body pose.
type Selector struct {
	face [FaceGroupLen]int
	pose [PoseGroupLen]int
}

// DefaultSelector returns a Selector for DefaultFaceIndices and DefaultPoseIndices.
func DefaultSelector() *Selector {
	return &Selector{face: DefaultFaceIndices, pose: DefaultPoseIndices}
}

// NewSelector validates the index lists and returns a Selector. The list
// lengths are part of the vector layout and cannot change.
func NewSelector(face, pose []int) (*Selector, error) {
	if len(face) != FaceGroupLen {
		return nil, fmt.Errorf("face indices: got %d, want %d", len(face), FaceGroupLen)
	}
	if len(pose) != PoseGroupLen {
		return nil, fmt.Errorf("pose indices: got %d, want %d", len(pose), PoseGroupLen)
	}

	s := &Selector{}
	for i, idx := range face {
		if idx < 0 {
			return nil, fmt.Errorf("face index %d is negative", idx)
		}
		s.face[i] = idx
	}
	for i, idx := range pose {
		if idx < 0 {
			return nil, fmt.Errorf("pose index %d is negative", idx)
		}
		s.pose[i] = idx
	}
	return s, nil
}

// Select returns the face and pose groups for r. A missing modality yields
// an all-zero group, and so does any selected index beyond the detected mesh.
func (s *Selector) Select(r *detector.Result) (FaceGroup, PoseGroup) {
	var face FaceGroup
	var pose PoseGroup
	if r == nil {
		return face, pose
	}

	pick(face[:], r.Face, s.face[:])
	pick(pose[:], r.Pose, s.pose[:])
	return face, pose
}

func pick(dst []detector.Point3D, mesh *detector.Mesh, indices []int) {
	if mesh == nil {
		return
	}
	for i, idx := range indices {
		if idx < len(mesh.Points) {
			dst[i] = mesh.Points[idx]
		}
	}
}
