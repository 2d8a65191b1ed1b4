package gm

import (
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// SetPaused stops or restarts simulation time and announces it with
// INFO_PAUSED or INFO_RESUMED. Setting the current state again does nothing.
func (m *Manager) SetPaused(paused bool) {
	if m.clock.IsPaused() == paused {
		return
	}
	m.clock.SetPaused(paused)
	t := msg.InfoResumed
	if paused {
		t = msg.InfoPaused
	}
	m.log.Info("simulation pause state changed", zap.Bool("paused", paused))
	m.emit(m.factory.Create(t))
}

func (m *Manager) IsPaused() bool { return m.clock.IsPaused() }

// ChangeTimeSettings jumps the simulation clock and changes its rate, and
// announces the new settings with INFO_TIME_CHANGED.
func (m *Manager) ChangeTimeSettings(simTime, timeScale float64, simClockTime int64) {
	m.clock.SetSimulationTime(simTime)
	m.clock.SetTimeScale(timeScale)
	m.clock.SetSimulationClockTime(simClockTime)

	c := m.factory.Create(msg.InfoTimeChanged)
	c.SetParam(msg.ParamSimulationTime, simTime)
	c.SetParam(msg.ParamTimeScale, m.clock.TimeScale())
	c.SetParam(msg.ParamSimulationClockTime, simClockTime)
	m.emit(c)
}

func (m *Manager) SimulationTime() float64    { return m.clock.SimulationTime() }
func (m *Manager) SimulationClockTime() int64 { return m.clock.SimulationClockTime() }
func (m *Manager) RealClockTime() int64       { return m.clock.RealClockTime() }
func (m *Manager) TimeScale() float64         { return m.clock.TimeScale() }
