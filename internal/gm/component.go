package gm

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// Priority orders components. Lower values see every message first.
type Priority int

const (
	PriorityHighest Priority = iota + 1
	PriorityHigher
	PriorityNormal
	PriorityLower
	PriorityLowest
)

func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "HIGHEST"
	case PriorityHigher:
		return "HIGHER"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLower:
		return "LOWER"
	case PriorityLowest:
		return "LOWEST"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// Component is a manager-level subsystem. Components see every processed
// message before any actor does, and are the only receivers of messages
// headed for the network.
type Component interface {
	Name() string
	OnAddedToGM(m *Manager)
	OnRemovedFromGM()
	ProcessMessage(m *msg.Message)
	DispatchNetworkMessage(m *msg.Message)
}

// BaseComponent implements Component with no-op message hooks. Embed it and
// override what the component needs.
type BaseComponent struct {
	name string
	gm   *Manager
}

func NewBaseComponent(name string) BaseComponent {
	return BaseComponent{name: name}
}

func (b *BaseComponent) Name() string                        { return b.name }
func (b *BaseComponent) GameManager() *Manager               { return b.gm }
func (b *BaseComponent) OnAddedToGM(m *Manager)              { b.gm = m }
func (b *BaseComponent) OnRemovedFromGM()                    { b.gm = nil }
func (b *BaseComponent) ProcessMessage(*msg.Message)         {}
func (b *BaseComponent) DispatchNetworkMessage(*msg.Message) {}

// componentEntry is shared between list generations. removed is set when
// the component is uninstalled so loops over an older generation skip it.
type componentEntry struct {
	c        Component
	priority Priority
	removed  bool
}

// AddComponent installs c at the given priority. Components of equal
// priority keep the order they were added in.
//
// The component list is copy-on-write: a delivery loop that is running
// while components are added or removed keeps iterating the list it
// started with. A component added mid-loop sees the next message.
func (m *Manager) AddComponent(c Component, priority Priority) error {
	if m.ComponentByName(c.Name()) != nil {
		m.log.Error("duplicate component", zap.String("component", c.Name()))
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name())
	}
	next := make([]*componentEntry, 0, len(m.components)+1)
	next = append(next, m.components...)
	next = append(next, &componentEntry{c: c, priority: priority})
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].priority < next[j].priority
	})
	m.components = next
	c.OnAddedToGM(m)
	m.log.Debug("component added", zap.String("component", c.Name()), zap.Stringer("priority", priority))
	return nil
}

// RemoveComponent uninstalls c. A removed component receives nothing more,
// not even the rest of a delivery already under way.
func (m *Manager) RemoveComponent(c Component) bool {
	for i, e := range m.components {
		if e.c != c {
			continue
		}
		e.removed = true
		next := make([]*componentEntry, 0, len(m.components)-1)
		next = append(next, m.components[:i]...)
		next = append(next, m.components[i+1:]...)
		m.components = next
		c.OnRemovedFromGM()
		return true
	}
	return false
}

// eachComponent calls fn for every component installed when the loop
// starts, skipping any removed since. It stops once the manager shuts down.
func (m *Manager) eachComponent(fn func(Component)) {
	for _, e := range m.components {
		if m.shutdown {
			return
		}
		if e.removed {
			continue
		}
		c := e.c
		m.safeCall("component "+c.Name(), func() { fn(c) })
	}
}

func (m *Manager) ComponentByName(name string) Component {
	for _, e := range m.components {
		if e.c.Name() == name {
			return e.c
		}
	}
	return nil
}

// Components lists the installed components in delivery order.
func (m *Manager) Components() []Component {
	out := make([]Component, len(m.components))
	for i, e := range m.components {
		out[i] = e.c
	}
	return out
}
