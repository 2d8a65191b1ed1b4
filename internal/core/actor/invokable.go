package actor

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/listener"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// Names of the invokables every game actor gets from BuildInvokables.
const (
	InvokableProcessMessage = "Process Message"
	InvokableTickLocal      = "Tick Local"
	InvokableTickRemote     = "Tick Remote"
)

// Invokable is a named message handler owned by a game actor.
type Invokable struct {
	name string
	fn   func(m *msg.Message)
}

func NewInvokable(name string, fn func(m *msg.Message)) *Invokable {
	return &Invokable{name: name, fn: fn}
}

func (i *Invokable) Name() string          { return i.name }
func (i *Invokable) Invoke(m *msg.Message) { i.fn(m) }
func (i *Invokable) String() string        { return i.name }

// AddInvokable registers inv under its name. A second invokable with the
// same name is rejected and the original is kept.
func (g *GameProxy) AddInvokable(inv *Invokable) error {
	if _, ok := g.invokables[inv.name]; ok {
		g.logger().Error("duplicate invokable",
			zap.String("invokable", inv.name),
			zap.String("actor", g.ID().String()),
		)
		return fmt.Errorf("%w: %q on %s", ErrDuplicateInvokable, inv.name, g.ID())
	}
	g.invokables[inv.name] = inv
	return nil
}

// RemoveInvokable drops the named invokable along with any self-handler
// entries that point at it.
func (g *GameProxy) RemoveInvokable(name string) bool {
	inv, ok := g.invokables[name]
	if !ok {
		return false
	}
	return g.RemoveInvokableInstance(inv)
}

// RemoveInvokableInstance is RemoveInvokable by identity. It does nothing
// if a different invokable is registered under inv's name.
func (g *GameProxy) RemoveInvokableInstance(inv *Invokable) bool {
	if cur, ok := g.invokables[inv.name]; !ok || cur != inv {
		return false
	}
	delete(g.invokables, inv.name)
	for t, list := range g.handlers {
		kept := list[:0]
		for _, h := range list {
			if h != inv {
				kept = append(kept, h)
			}
		}
		if len(kept) == 0 {
			delete(g.handlers, t)
		} else {
			g.handlers[t] = kept
		}
	}
	return true
}

// Invokable looks an invokable up by name.
func (g *GameProxy) Invokable(name string) (*Invokable, bool) {
	inv, ok := g.invokables[name]
	return inv, ok
}

// Invokables lists every invokable, ordered by name.
func (g *GameProxy) Invokables() []*Invokable {
	out := make([]*Invokable, 0, len(g.invokables))
	for _, inv := range g.invokables {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// BuildInvokables installs the standard invokables: the two tick handlers,
// and "Process Message" when the behavior is a MessageProcessor. Calling it
// again leaves existing entries alone.
func (g *GameProxy) BuildInvokables() {
	if mp, ok := g.behavior.(MessageProcessor); ok {
		g.addIfMissing(InvokableProcessMessage, func(m *msg.Message) { mp.ProcessMessage(g, m) })
	}
	g.addIfMissing(InvokableTickLocal, func(m *msg.Message) { g.behavior.OnTickLocal(g, msg.TickOf(m)) })
	g.addIfMissing(InvokableTickRemote, func(m *msg.Message) { g.behavior.OnTickRemote(g, msg.TickOf(m)) })
}

func (g *GameProxy) addIfMissing(name string, fn func(*msg.Message)) {
	if _, ok := g.invokables[name]; !ok {
		g.invokables[name] = NewInvokable(name, fn)
	}
}

// RegisterForMessagesAboutSelf routes messages of type t that are about
// this actor to the named invokable. The invokable must already exist.
func (g *GameProxy) RegisterForMessagesAboutSelf(t *msg.Type, invokable string) error {
	inv, ok := g.invokables[invokable]
	if !ok {
		g.logger().Warn("self registration for unknown invokable",
			zap.String("invokable", invokable),
			zap.String("type", t.Name()),
			zap.String("actor", g.ID().String()),
		)
		return fmt.Errorf("%w: %q on %s", ErrUnknownInvokable, invokable, g.ID())
	}
	for _, h := range g.handlers[t] {
		if h == inv {
			return fmt.Errorf("%w: %s -> %q", ErrDuplicateHandler, t.Name(), invokable)
		}
	}
	g.handlers[t] = append(g.handlers[t], inv)
	return nil
}

// UnregisterForMessagesAboutSelf removes one self-handler entry.
func (g *GameProxy) UnregisterForMessagesAboutSelf(t *msg.Type, invokable string) bool {
	list := g.handlers[t]
	for i, h := range list {
		if h.name == invokable {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(g.handlers, t)
			} else {
				g.handlers[t] = list
			}
			return true
		}
	}
	return false
}

// MessageHandlers returns the self handlers for t in registration order.
func (g *GameProxy) MessageHandlers(t *msg.Type) []*Invokable {
	list := g.handlers[t]
	if len(list) == 0 {
		return nil
	}
	out := make([]*Invokable, len(list))
	copy(out, list)
	return out
}

// RegisterForMessages subscribes one of this actor's invokables to every
// message of type t.
func (g *GameProxy) RegisterForMessages(t *msg.Type, invokable string) (listener.Handle, error) {
	if g.host == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotInGM, g.ID())
	}
	return g.host.RegisterGlobalMessageListener(t, g.ID(), invokable)
}

// RegisterForMessagesAboutOtherActor subscribes one of this actor's
// invokables to messages of type t about target.
func (g *GameProxy) RegisterForMessagesAboutOtherActor(t *msg.Type, target uid.ID, invokable string) (listener.Handle, error) {
	if g.host == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotInGM, g.ID())
	}
	return g.host.RegisterGameActorMessageListener(t, target, g.ID(), invokable)
}

func (g *GameProxy) UnregisterForMessages(t *msg.Type, invokable string) bool {
	if g.host == nil {
		return false
	}
	return g.host.UnregisterGlobalMessageListener(t, g.ID(), invokable)
}

func (g *GameProxy) UnregisterForMessagesAboutOtherActor(t *msg.Type, target uid.ID, invokable string) bool {
	if g.host == nil {
		return false
	}
	return g.host.UnregisterGameActorMessageListener(t, target, g.ID(), invokable)
}
