package gm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	coresys "github.com/l1jgo/gamemanager/internal/core/system"
)

func TestFrameSystemRunsFrames(t *testing.T) {
	h := newHarness(t, nil)
	s := NewFrameSystem(h.m, h.clock)
	assert.Equal(t, coresys.PhaseUpdate, s.Phase())

	r := coresys.NewRunner()
	r.Register(s)
	r.Tick(100 * time.Millisecond)
	r.Tick(100 * time.Millisecond)

	assert.Equal(t, uint64(2), h.m.Stats().Frames)
	assert.InDelta(t, 0.2, h.m.SimulationTime(), 1e-9)
	ticks := h.rec.processedOf(msg.TickLocal)
	if assert.Len(t, ticks, 2) {
		assert.InDelta(t, 0.1, msg.TickOf(ticks[1]).DeltaSimTime, 1e-9)
	}
}
