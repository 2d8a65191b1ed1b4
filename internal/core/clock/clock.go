package clock

import "time"

// Clock tracks simulation and real time for the frame loop. Times are
// advanced only by Step, so a clock driven with fixed deltas is fully
// deterministic.
//
// SimulationTime is seconds since the simulation started. The two clock
// times are microseconds since the Unix epoch; the simulation clock runs at
// TimeScale and stops while paused.
type Clock struct {
	simTime   float64
	simClock  int64
	realClock int64
	scale     float64
	paused    bool
}

// New starts a clock at the current wall time.
func New() *Clock {
	return NewAt(time.Now().UnixMicro())
}

// NewAt starts a clock whose real and simulation clocks read micros.
func NewAt(micros int64) *Clock {
	return &Clock{simClock: micros, realClock: micros, scale: 1}
}

func (c *Clock) SimulationTime() float64         { return c.simTime }
func (c *Clock) SimulationClockTime() int64      { return c.simClock }
func (c *Clock) RealClockTime() int64            { return c.realClock }
func (c *Clock) TimeScale() float64              { return c.scale }
func (c *Clock) IsPaused() bool                  { return c.paused }
func (c *Clock) SetPaused(p bool)                { c.paused = p }
func (c *Clock) SetSimulationTime(t float64)     { c.simTime = t }
func (c *Clock) SetSimulationClockTime(us int64) { c.simClock = us }

// SetTimeScale changes the sim/real ratio. Negative scales clamp to zero.
func (c *Clock) SetTimeScale(s float64) {
	if s < 0 {
		s = 0
	}
	c.scale = s
}

// Step advances the clock by deltaReal seconds of wall time and returns the
// simulation seconds that elapsed, which is zero while paused.
func (c *Clock) Step(deltaReal float64) float64 {
	if deltaReal < 0 {
		deltaReal = 0
	}
	c.realClock += seconds(deltaReal)
	if c.paused {
		return 0
	}
	deltaSim := deltaReal * c.scale
	c.simTime += deltaSim
	c.simClock += seconds(deltaSim)
	return deltaSim
}

// StepDuration is Step for a time.Duration.
func (c *Clock) StepDuration(d time.Duration) float64 {
	return c.Step(d.Seconds())
}

func seconds(s float64) int64 {
	return int64(s * 1e6)
}
