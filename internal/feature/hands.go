package feature

import "github.com/ayusman/signify/internal/detector"

// Side identifies a hand slot.
type Side int

const (
	Left Side = iota
	Right
)

// SideOf maps a handedness label to a slot. Only "Left" maps to the left
// slot; any other label, including an empty one, is treated as right.
func SideOf(handedness string) Side {
	if handedness == detector.HandLeft {
		return Left
	}
	return Right
}

// HandSlots holds at most one hand per side.
type HandSlots [2]*detector.HandLandmarks

// Left returns the left-slot hand or nil.
func (s HandSlots) Left() *detector.HandLandmarks { return s[Left] }

// Right returns the right-slot hand or nil.
func (s HandSlots) Right() *detector.HandLandmarks { return s[Right] }

// AssignHands places detections into slots by handedness. When two
// detections claim the same side the later one in detector order wins;
// the number of replaced detections is returned so callers can report it.
func AssignHands(hands []detector.HandLandmarks) (HandSlots, int) {
	var slots HandSlots
	replaced := 0
	for i := range hands {
		side := SideOf(hands[i].Handedness)
		if slots[side] != nil {
			replaced++
		}
		slots[side] = &hands[i]
	}
	return slots, replaced
}

// NormalizeHand translates the hand so the wrist is at the origin. A nil
// hand yields an all-zero group. Unlike a full pose normalization no
// scaling is applied: the classifier was trained on wrist-relative,
// unscaled coordinates.
func NormalizeHand(h *detector.HandLandmarks) HandGroup {
	var g HandGroup
	if h == nil {
		return g
	}

	wrist := h.Points[detector.Wrist]
	for i, p := range h.Points {
		g[i] = p.Sub(wrist)
	}
	return g
}
