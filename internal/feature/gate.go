package feature

// DefaultSignalFloor is the reference minimum number of non-zero entries.
const DefaultSignalFloor = 15

// Gate rejects frames in which too little was detected to be useful.
type Gate struct {
	// Floor is the minimum non-zero count for a frame to pass. It does not
	// scale with the vector length.
	Floor int
}

// NewGate returns a Gate with the given floor.
func NewGate(floor int) Gate {
	return Gate{Floor: floor}
}

// LowSignal reports whether v has fewer than Floor non-zero entries.
func (g Gate) LowSignal(v Vector) bool {
	return v.NonZero() < g.Floor
}
