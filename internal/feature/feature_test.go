package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signify/internal/detector"
)

func TestVectorLen(t *testing.T) {
	assert.Equal(t, 171, VectorLen)
}

func TestExtract_FixedLength(t *testing.T) {
	e := NewExtractor(nil)
	left := detector.OpenPalmLandmarks()
	left.Handedness = detector.HandLeft

	tests := []struct {
		name   string
		result *detector.Result
	}{
		{"nil result", nil},
		{"nothing detected", &detector.Result{}},
		{"face only", &detector.Result{Face: detector.FaceMeshFixture()}},
		{"pose only", &detector.Result{Pose: detector.PoseFixture()}},
		{"right hand only", &detector.Result{Hands: []detector.HandLandmarks{detector.ThumbsUpLandmarks()}}},
		{"left hand only", &detector.Result{Hands: []detector.HandLandmarks{left}}},
		{"everything", detector.SigningResult()},
		{"truncated face mesh", &detector.Result{Face: &detector.Mesh{Points: make([]detector.Point3D, 5)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := e.Extract(tt.result)
			assert.Len(t, f.Vector, VectorLen)
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(nil)
	r := detector.SigningResult()

	first := e.Extract(r)
	second := e.Extract(r)

	assert.Equal(t, first.Vector, second.Vector)
}

func TestExtract_SegmentOrder(t *testing.T) {
	e := NewExtractor(nil)
	r := detector.SigningResult()

	v := e.Extract(r).Vector

	// Face segment starts with mesh point 1.
	face1 := r.Face.Points[1]
	assert.Equal(t, float32(face1.X), v[0])
	assert.Equal(t, float32(face1.Y), v[1])
	assert.Equal(t, float32(face1.Z), v[2])

	// Pose segment starts with body point 11.
	pose11 := r.Pose.Points[11]
	assert.Equal(t, float32(pose11.X), v[27])

	// Both wrists sit at the origin.
	assert.Equal(t, []float32{0, 0, 0}, []float32(v[45:48]))
	assert.Equal(t, []float32{0, 0, 0}, []float32(v[108:111]))

	// Left segment holds the open palm, right segment the thumbs up.
	palm := r.Hands[0]
	want := float32(palm.Points[detector.MiddleTip].Y - palm.Points[detector.Wrist].Y)
	assert.Equal(t, want, v[45+detector.MiddleTip*3+1])

	thumb := r.Hands[1]
	want = float32(thumb.Points[detector.ThumbTip].Y - thumb.Points[detector.Wrist].Y)
	assert.Equal(t, want, v[108+detector.ThumbTip*3+1])
}

func TestExtract_MissingModalitiesAreZero(t *testing.T) {
	e := NewExtractor(nil)
	v := e.Extract(&detector.Result{Pose: detector.PoseFixture()}).Vector

	for i := 0; i < 27; i++ {
		assert.Zero(t, v[i], "face entry %d", i)
	}
	for i := 45; i < VectorLen; i++ {
		assert.Zero(t, v[i], "hand entry %d", i)
	}
	assert.Equal(t, PoseGroupLen*Coords, v.NonZero())
}

func TestSelector(t *testing.T) {
	t.Run("rejects wrong lengths", func(t *testing.T) {
		_, err := NewSelector([]int{1, 2, 3}, DefaultPoseIndices[:])
		assert.Error(t, err)

		_, err = NewSelector(DefaultFaceIndices[:], []int{1})
		assert.Error(t, err)
	})

	t.Run("rejects negative index", func(t *testing.T) {
		face := DefaultFaceIndices
		face[3] = -1
		_, err := NewSelector(face[:], DefaultPoseIndices[:])
		assert.Error(t, err)
	})

	t.Run("custom indices", func(t *testing.T) {
		s, err := NewSelector([]int{0, 1, 2, 3, 4, 5, 6, 7, 8}, []int{0, 1, 2, 3, 4, 5})
		require.NoError(t, err)

		mesh := detector.FaceMeshFixture()
		face, pose := s.Select(&detector.Result{Face: mesh})

		assert.Equal(t, mesh.Points[8], face[8])
		assert.Equal(t, PoseGroup{}, pose)
	})

	t.Run("index beyond mesh is zero", func(t *testing.T) {
		mesh := &detector.Mesh{Points: make([]detector.Point3D, 100)}
		for i := range mesh.Points {
			mesh.Points[i] = detector.Point3D{X: 1, Y: 1, Z: 1}
		}

		face, _ := DefaultSelector().Select(&detector.Result{Face: mesh})

		// Indices 1, 4, 33, 61 are in range; 199 and above are not.
		for i := 0; i < 4; i++ {
			assert.Equal(t, detector.Point3D{X: 1, Y: 1, Z: 1}, face[i])
		}
		for i := 4; i < FaceGroupLen; i++ {
			assert.Equal(t, detector.Point3D{}, face[i])
		}
	})
}

func TestNormalizeHand(t *testing.T) {
	t.Run("wrist relative", func(t *testing.T) {
		var h detector.HandLandmarks
		h.Points[detector.Wrist] = detector.Point3D{X: 0.5, Y: 0.5, Z: 0.0}
		h.Points[detector.IndexTip] = detector.Point3D{X: 0.6, Y: 0.5, Z: 0.0}

		g := NormalizeHand(&h)

		assert.Equal(t, detector.Point3D{}, g[detector.Wrist])
		assert.InDelta(t, 0.1, g[detector.IndexTip].X, 1e-9)
		assert.InDelta(t, 0.0, g[detector.IndexTip].Y, 1e-9)
		assert.InDelta(t, 0.0, g[detector.IndexTip].Z, 1e-9)
	})

	t.Run("absent hand is zero", func(t *testing.T) {
		assert.Equal(t, HandGroup{}, NormalizeHand(nil))
	})

	t.Run("no scaling", func(t *testing.T) {
		h := detector.OpenPalmLandmarks()
		g := NormalizeHand(&h)
		want := h.Points[detector.MiddleTip].Sub(h.Points[detector.Wrist])
		assert.Equal(t, want, g[detector.MiddleTip])
	})
}

func TestAssignHands(t *testing.T) {
	left := detector.OpenPalmLandmarks()
	left.Handedness = detector.HandLeft
	right := detector.ThumbsUpLandmarks()

	t.Run("one per side", func(t *testing.T) {
		hands := []detector.HandLandmarks{right, left}
		slots, dup := AssignHands(hands)

		assert.Zero(t, dup)
		assert.Same(t, &hands[1], slots.Left())
		assert.Same(t, &hands[0], slots.Right())
	})

	t.Run("last detection wins on duplicate side", func(t *testing.T) {
		second := left
		second.Score = 0.5
		hands := []detector.HandLandmarks{left, second}

		slots, dup := AssignHands(hands)

		assert.Equal(t, 1, dup)
		assert.Same(t, &hands[1], slots.Left())
		assert.Nil(t, slots.Right())
	})

	t.Run("unknown label goes right", func(t *testing.T) {
		odd := detector.ThumbsUpLandmarks()
		odd.Handedness = ""
		slots, _ := AssignHands([]detector.HandLandmarks{odd})
		assert.NotNil(t, slots.Right())
		assert.Nil(t, slots.Left())
	})

	t.Run("duplicates surface through Extract", func(t *testing.T) {
		f := NewExtractor(nil).Extract(&detector.Result{Hands: []detector.HandLandmarks{right, right, right}})
		assert.Equal(t, 2, f.DuplicateHands)
	})
}

func TestGate(t *testing.T) {
	makeVector := func(nonZero int) Vector {
		v := make(Vector, VectorLen)
		for i := 0; i < nonZero; i++ {
			v[i] = 0.25
		}
		return v
	}

	tests := []struct {
		name    string
		nonZero int
		floor   int
		low     bool
	}{
		{"empty", 0, DefaultSignalFloor, true},
		{"one below floor", 14, DefaultSignalFloor, true},
		{"exactly floor", 15, DefaultSignalFloor, false},
		{"full", VectorLen, DefaultSignalFloor, false},
		{"zero floor accepts empty", 0, 0, false},
		{"custom floor", 29, 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.low, NewGate(tt.floor).LowSignal(makeVector(tt.nonZero)))
		})
	}

	t.Run("negative zero counts as zero", func(t *testing.T) {
		v := makeVector(0)
		var negZero float32
		negZero = -negZero
		v[0] = negZero
		assert.Zero(t, v.NonZero())
	})
}
