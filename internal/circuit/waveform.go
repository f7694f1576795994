package circuit

import "math"

// Waveform is a source value as a function of time.
type Waveform interface {
	At(t float64) float64
}

// DC is a constant level.
type DC float64

func (d DC) At(float64) float64 { return float64(d) }

// Step switches from Before to After at Delay.
type Step struct {
	Before float64
	After  float64
	Delay  float64
}

func (s Step) At(t float64) float64 {
	if t < s.Delay {
		return s.Before
	}
	return s.After
}

// Sine is Offset + Amplitude*sin(2*pi*Freq*t + Phase), with Phase in radians.
type Sine struct {
	Offset    float64
	Amplitude float64
	Freq      float64
	Phase     float64
}

func (s Sine) At(t float64) float64 {
	return s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Freq*t+s.Phase)
}

// Pulse holds V2 for Width seconds of every Period, starting at Delay, and V1 otherwise.
// A zero Period gives a single pulse.
type Pulse struct {
	V1     float64
	V2     float64
	Delay  float64
	Width  float64
	Period float64
}

func (p Pulse) At(t float64) float64 {
	if t < p.Delay {
		return p.V1
	}
	local := t - p.Delay
	if p.Period > 0 {
		local = math.Mod(local, p.Period)
	}
	if local < p.Width {
		return p.V2
	}
	return p.V1
}

func sourceValue(w Waveform, dc float64, t float64) float64 {
	if w == nil {
		return dc
	}
	return w.At(t)
}
