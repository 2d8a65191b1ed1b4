package system

import (
	"fmt"
	"time"
)

// Runner drives registered systems once per host tick, phase by phase.
// Within a phase systems keep their registration order.
type Runner struct {
	phases [phaseCount][]System
	count  int
}

func NewRunner() *Runner {
	return &Runner{}
}

// Register adds s to the bucket of its phase. A system reporting a phase
// outside Input..Cleanup is a wiring bug.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic(fmt.Sprintf("system: register %T with invalid phase %d", s, int(p)))
	}
	r.phases[p] = append(r.phases[p], s)
	r.count++
}

func (r *Runner) Len() int { return r.count }

// Systems returns the systems of one phase in run order.
func (r *Runner) Systems(p Phase) []System {
	if p < 0 || p >= phaseCount {
		return nil
	}
	return r.phases[p]
}

func (r *Runner) Tick(dt time.Duration) {
	for p := Phase(0); p < phaseCount; p++ {
		r.TickPhase(p, dt)
	}
}

// TickPhase runs only the systems of one phase. The host uses it to poll
// input between full ticks.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	for _, s := range r.Systems(phase) {
		s.Update(dt)
	}
}
