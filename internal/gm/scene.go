package gm

import "github.com/l1jgo/gamemanager/internal/core/actor"

// Scene is the render/physics world actors are placed into. The game
// manager only tells it what entered and left.
type Scene interface {
	AddDrawable(p *actor.Proxy)
	RemoveDrawable(p *actor.Proxy)
	RemoveAllDrawables()
}

// NopScene is the scene of a headless host.
type NopScene struct{}

func (NopScene) AddDrawable(*actor.Proxy)    {}
func (NopScene) RemoveDrawable(*actor.Proxy) {}
func (NopScene) RemoveAllDrawables()         {}

// MapLoader produces the actors of a named map.
type MapLoader interface {
	LoadMap(name string) ([]*actor.Proxy, error)
}

// Clock is the time source the frame loop reads and the time-control
// operations write.
type Clock interface {
	SimulationTime() float64
	SimulationClockTime() int64
	RealClockTime() int64
	TimeScale() float64
	IsPaused() bool
	SetPaused(p bool)
	SetTimeScale(s float64)
	SetSimulationTime(t float64)
	SetSimulationClockTime(us int64)
}
