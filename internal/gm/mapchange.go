package gm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/msg"
)

type mapState uint8

const (
	mapIdle mapState = iota
	mapUnload
	mapLoad
)

// mapChange advances one state per frame: unload the current map, then load
// the next one.
type mapChange struct {
	state    mapState
	current  string
	next     string
	loadNext bool
}

func (c *mapChange) idle() bool { return c.state == mapIdle }

// CurrentMap is the name of the loaded map, or "" when none is.
func (m *Manager) CurrentMap() string { return m.mapChange.current }

func (m *Manager) IsMapChangeInProgress() bool { return !m.mapChange.idle() }

// ChangeMap starts replacing the current map with name. The old map is
// unloaded at the start of the next frame and the new one loaded in the
// frame after that. While the change runs, actors added or deleted do not
// produce created or deleted messages.
func (m *Manager) ChangeMap(name string) error {
	if m.maps == nil {
		return ErrNoMapLoader
	}
	if !m.mapChange.idle() {
		return fmt.Errorf("change to %q: %w", name, ErrMapChangeInProgress)
	}
	m.mapChange.next = name
	m.mapChange.loadNext = true
	if m.mapChange.current != "" {
		m.mapChange.state = mapUnload
	} else {
		m.mapChange.state = mapLoad
	}
	m.log.Info("map change begin", zap.String("from", m.mapChange.current), zap.String("to", name))
	m.emit(m.mapMessage(msg.InfoMapChangeBegin, name))
	return nil
}

// CloseCurrentMap unloads the current map without loading another.
func (m *Manager) CloseCurrentMap() error {
	if !m.mapChange.idle() {
		return fmt.Errorf("close map: %w", ErrMapChangeInProgress)
	}
	if m.mapChange.current == "" {
		return nil
	}
	m.mapChange.next = ""
	m.mapChange.loadNext = false
	m.mapChange.state = mapUnload
	m.emit(m.mapMessage(msg.InfoMapChangeBegin, ""))
	return nil
}

func (m *Manager) mapMessage(t *msg.Type, name string) *msg.Message {
	mm := m.factory.Create(t)
	mm.SetParam(msg.ParamMapName, name)
	return mm
}

func (m *Manager) continueMapChange() {
	switch m.mapChange.state {
	case mapUnload:
		old := m.mapChange.current
		m.DeleteAllActors(false)
		m.DeleteAllPrototypes()
		m.mapChange.current = ""
		m.log.Info("map unloaded", zap.String("map", old))
		m.emit(m.mapMessage(msg.InfoMapUnloaded, old))
		if m.mapChange.loadNext {
			m.mapChange.state = mapLoad
		} else {
			m.mapChange.state = mapIdle
		}
	case mapLoad:
		name := m.mapChange.next
		if err := m.loadMap(name); err != nil {
			m.log.Error("map load failed", zap.String("map", name), zap.Error(err))
		} else {
			m.mapChange.current = name
			m.emit(m.mapMessage(msg.InfoMapLoaded, name))
			m.emit(m.mapMessage(msg.InfoMapChanged, name))
		}
		m.mapChange.state = mapIdle
	}
}

// loadMap adds every actor of the named map. All actors are registered and
// placed into the scene before any entered-world hook runs.
func (m *Manager) loadMap(name string) error {
	proxies, err := m.maps.LoadMap(name)
	if err != nil {
		return err
	}
	games := make([]*actor.GameProxy, 0, len(proxies))
	for _, p := range proxies {
		if m.hasActor(p.ID()) {
			m.log.Error("duplicate actor in map", zap.String("map", name), zap.String("actor", p.ID().String()))
			continue
		}
		g, err := p.Game()
		if err != nil {
			m.plainActors[p.ID()] = p
			m.scene.AddDrawable(p)
			continue
		}
		if g.Ownership() == actor.OwnershipPrototype {
			m.prototypes[g.ID()] = g
			continue
		}
		m.track(g, false)
		games = append(games, g)
	}
	games = depthFirst(games)
	for _, g := range games {
		m.safeCall("entered world "+g.ID().String(), g.InvokeEnteredWorld)
	}
	for _, g := range games {
		if g.Ownership() != actor.OwnershipServerPublished {
			continue
		}
		if err := m.PublishActor(g); err != nil {
			m.log.Error("publish map actor", zap.String("actor", g.ID().String()), zap.Error(err))
		}
	}
	m.log.Info("map loaded",
		zap.String("map", name),
		zap.Int("game_actors", len(games)),
		zap.Int("plain_actors", len(m.plainActors)),
		zap.Int("prototypes", len(m.prototypes)),
	)
	return nil
}

// depthFirst orders games so that every actor follows its ancestors and
// siblings keep their child order. Actors whose ancestors are not in the
// list start a new tree in list order.
func depthFirst(games []*actor.GameProxy) []*actor.GameProxy {
	in := make(map[*actor.Proxy]bool, len(games))
	for _, g := range games {
		in[g.Proxy] = true
	}
	out := make([]*actor.GameProxy, 0, len(games))
	seen := make(map[*actor.Proxy]bool, len(games))
	for _, g := range games {
		if hasAncestorIn(g.Proxy, in) {
			continue
		}
		for _, p := range g.Subtree() {
			if in[p] && !seen[p] {
				seen[p] = true
				member, _ := p.Game()
				out = append(out, member)
			}
		}
	}
	return out
}

func hasAncestorIn(p *actor.Proxy, set map[*actor.Proxy]bool) bool {
	for a := p.Parent(); a != nil; a = a.Parent() {
		if set[a] {
			return true
		}
	}
	return false
}
