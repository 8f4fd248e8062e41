package detector

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoint3D_Sub(t *testing.T) {
	p := Point3D{X: 0.6, Y: 0.5, Z: 0.1}
	got := p.Sub(Point3D{X: 0.5, Y: 0.5, Z: 0.1})

	assert.InDelta(t, 0.1, got.X, 1e-9)
	assert.InDelta(t, 0.0, got.Y, 1e-9)
	assert.InDelta(t, 0.0, got.Z, 1e-9)
}

func TestResult_Empty(t *testing.T) {
	var nilResult *Result
	assert.True(t, nilResult.Empty())
	assert.True(t, (&Result{}).Empty())
	assert.False(t, (&Result{Pose: PoseFixture()}).Empty())
	assert.False(t, (&Result{Hands: []HandLandmarks{ThumbsUpLandmarks()}}).Empty())
}

func TestParseResponse(t *testing.T) {
	t.Run("all modalities", func(t *testing.T) {
		line := []byte(`{"face":[{"x":0.1,"y":0.2,"z":0.3},{"x":0.4,"y":0.5,"z":0.6}],` +
			`"pose":[{"x":1,"y":2,"z":3}],` +
			`"hands":[{"handedness":"Left","score":0.9,"points":[{"x":0.5,"y":0.5,"z":0}]}]}` + "\n")

		r, err := parseResponse(line)
		require.NoError(t, err)

		require.NotNil(t, r.Face)
		assert.Len(t, r.Face.Points, 2)
		assert.Equal(t, Point3D{X: 0.4, Y: 0.5, Z: 0.6}, r.Face.Points[1])

		require.NotNil(t, r.Pose)
		assert.Equal(t, Point3D{X: 1, Y: 2, Z: 3}, r.Pose.Points[0])

		require.Len(t, r.Hands, 1)
		assert.Equal(t, HandLeft, r.Hands[0].Handedness)
		assert.Equal(t, Point3D{X: 0.5, Y: 0.5}, r.Hands[0].Points[Wrist])
		// Missing points stay at zero.
		assert.Equal(t, Point3D{}, r.Hands[0].Points[PinkyTip])
	})

	t.Run("nothing detected", func(t *testing.T) {
		r, err := parseResponse([]byte(`{"face":null,"pose":[],"hands":[]}`))
		require.NoError(t, err)
		assert.Nil(t, r.Face)
		assert.Nil(t, r.Pose)
		assert.Nil(t, r.Hands)
		assert.True(t, r.Empty())
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseResponse([]byte("not json"))
		assert.Error(t, err)
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	_, err := NewMediaPipeDetector(DefaultConfig())
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty result by default", func(t *testing.T) {
		mock := NewMockDetector()

		r, err := mock.Detect(nil)

		require.NoError(t, err)
		assert.True(t, r.Empty())
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("replays queue then fixed result", func(t *testing.T) {
		mock := NewMockDetector()
		fixed := SigningResult()
		mock.SetResult(fixed)
		mock.Enqueue(&Result{}, &Result{Pose: PoseFixture()})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		assert.True(t, first.Empty())
		assert.NotNil(t, second.Pose)
		assert.Nil(t, second.Face)
		assert.Same(t, fixed, third)
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		r, err := mock.Detect(nil)

		assert.Equal(t, expectedErr, err)
		assert.Nil(t, r)
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestFixtures(t *testing.T) {
	t.Run("meshes are full size and non-zero", func(t *testing.T) {
		face := FaceMeshFixture()
		pose := PoseFixture()
		assert.Len(t, face.Points, NumFaceLandmarks)
		assert.Len(t, pose.Points, NumPoseLandmarks)
		for _, p := range append(face.Points, pose.Points...) {
			assert.NotZero(t, p.X)
			assert.NotZero(t, p.Y)
			assert.NotZero(t, p.Z)
		}
	})

	t.Run("signing result has one hand per side", func(t *testing.T) {
		r := SigningResult()
		require.Len(t, r.Hands, 2)
		assert.Equal(t, HandLeft, r.Hands[0].Handedness)
		assert.Equal(t, HandRight, r.Hands[1].Handedness)
	})

	t.Run("thumbs up has thumb above curled fingers", func(t *testing.T) {
		lm := ThumbsUpLandmarks()
		assert.Less(t, lm.Points[ThumbTip].Y, lm.Points[ThumbMCP].Y)
		assert.LessOrEqual(t, lm.Points[IndexMCP].Y-lm.Points[IndexTip].Y, 0.15)
	})

	t.Run("open palm has extended fingers", func(t *testing.T) {
		lm := OpenPalmLandmarks()
		for _, f := range [][2]int{{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
			assert.GreaterOrEqual(t, lm.Points[f[0]].Y-lm.Points[f[1]].Y, 0.2)
		}
	})
}
