package system

import "time"

// Phase orders systems within one host tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain inbound bridge traffic, apply script reloads
	PhasePreUpdate               // 1: step the clock
	PhaseUpdate                  // 2: game manager frame
	PhasePostUpdate              // 3: end-of-frame hooks
	PhaseOutput                  // 4: flush outbound transport
	PhasePersist                 // 5: journal batch write
	PhaseCleanup                 // 6: stats, housekeeping

	phaseCount
)

var phaseNames = [...]string{"input", "pre-update", "update", "post-update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a function to System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
