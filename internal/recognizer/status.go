package recognizer

import "fmt"

// State is the inference trigger state after a frame.
type State int

const (
	// Gathering means the window is not yet full.
	Gathering State = iota
	// Ready means a full window was classified.
	Ready
	// Mismatch means a full window had an unexpected shape and was cleared.
	Mismatch
	// Suppressed means the frame was rejected as low signal.
	Suppressed
	// Failed means the classifier returned an error; the window is kept.
	Failed
)

var stateNames = [...]string{
	Gathering:  "gathering",
	Ready:      "ready",
	Mismatch:   "mismatch",
	Suppressed: "suppressed",
	Failed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Status texts shown to the user.
const (
	TextLowSignal       = "low landmark data"
	TextUncertain       = "uncertain"
	TextMismatch        = "shape mismatch"
	TextClassifierError = "classifier error"

	gatheringFormat = "gathering (%d/%d)"
)

// Status is what the display boundary renders for a frame.
type Status struct {
	State State  `json:"state"`
	Text  string `json:"text"`
	// LowSignal selects the alert color.
	LowSignal  bool        `json:"low_signal"`
	Frames     int         `json:"frames"`
	Capacity   int         `json:"capacity"`
	Prediction *Prediction `json:"prediction,omitempty"`
	LastLabel  string      `json:"last_label,omitempty"`
}
