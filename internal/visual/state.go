package visual

// Estimator constants. With a 25 Hz clock the 0.9 decay gives the pulse a
// time constant of roughly 380 ms.
const (
	EnergyWindow    = 512
	EnergyThreshold = 0.02
	SpikePulse      = 1.3
	PulseDecay      = 0.9
	CursorStride    = 300
	HueStep         = 0.004
)

// State is the visualizer's per-frame state. Only the animation tick mutates
// it; the renderer reads it.
type State struct {
	Cursor int     // read index into the sample buffer
	Pulse  float64 // decaying swell, at most SpikePulse before decay
	Hue    float64 // color phase in [0, 1)
}

// Energy returns the sum of squared amplitudes over the window starting at
// cursor. The window stops at the end of the buffer rather than wrapping.
func Energy(samples []float32, cursor int) float64 {
	if cursor < 0 || cursor >= len(samples) {
		return 0
	}
	end := cursor + EnergyWindow
	if end > len(samples) {
		end = len(samples)
	}
	var e float64
	for _, s := range samples[cursor:end] {
		e += float64(s) * float64(s)
	}
	return e
}

// Advance runs one animation tick of the envelope follower. An empty buffer
// leaves the state untouched.
func (s *State) Advance(samples []float32) {
	n := len(samples)
	if n == 0 {
		return
	}
	if Energy(samples, s.Cursor) > EnergyThreshold {
		s.Pulse = SpikePulse
	}
	s.Pulse *= PulseDecay

	s.Cursor = (s.Cursor + CursorStride) % n

	s.Hue += HueStep
	for s.Hue >= 1 {
		s.Hue--
	}
}

// Reset rewinds the cursor and clears the pulse. Hue keeps cycling.
func (s *State) Reset() {
	s.Cursor = 0
	s.Pulse = 0
}
