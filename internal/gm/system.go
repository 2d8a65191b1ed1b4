package gm

import (
	"time"

	"github.com/l1jgo/gamemanager/internal/core/clock"
	coresys "github.com/l1jgo/gamemanager/internal/core/system"
)

// FrameSystem advances the clock by the tick length and runs one game
// manager frame. Phase 2 (Update).
type FrameSystem struct {
	m     *Manager
	clock *clock.Clock
}

func NewFrameSystem(m *Manager, c *clock.Clock) *FrameSystem {
	return &FrameSystem{m: m, clock: c}
}

func (s *FrameSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *FrameSystem) Update(dt time.Duration) {
	deltaSim := s.clock.StepDuration(dt)
	s.m.PreFrame(deltaSim, dt.Seconds())
	s.m.PostFrame()
}
