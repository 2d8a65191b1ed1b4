package actor

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/listener"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// Ownership says which side of the network owns and publishes an actor.
type Ownership uint8

const (
	OwnershipServerPublished Ownership = iota
	OwnershipServerLocal
	OwnershipClientLocal
	OwnershipClientAndServerLocal
	OwnershipPrototype
)

var ownershipNames = [...]string{
	"Server+Published",
	"Server Local",
	"Client Local",
	"Client and Server Local",
	"PROTOTYPE",
}

func (o Ownership) String() string {
	if int(o) < len(ownershipNames) {
		return ownershipNames[o]
	}
	return fmt.Sprintf("Ownership(%d)", int(o))
}

func ParseOwnership(s string) (Ownership, error) {
	for i, n := range ownershipNames {
		if n == s {
			return Ownership(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ownership %q", s)
}

// UpdatePolicy controls how a local actor treats incoming actor updates.
type UpdatePolicy uint8

const (
	UpdateIgnoreAll UpdatePolicy = iota
	UpdateAcceptAll
	UpdateAcceptWithPropertyFilter
)

var policyNames = [...]string{"IGNORE_ALL", "ACCEPT_ALL", "ACCEPT_WITH_PROPERTY_FILTER"}

func (u UpdatePolicy) String() string {
	if int(u) < len(policyNames) {
		return policyNames[u]
	}
	return fmt.Sprintf("UpdatePolicy(%d)", int(u))
}

func ParseUpdatePolicy(s string) (UpdatePolicy, error) {
	for i, n := range policyNames {
		if n == s {
			return UpdatePolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown update policy %q", s)
}

// Host is the part of the game manager an actor may call back into. The
// reference is set when the actor is added and cleared when it is removed.
type Host interface {
	Logger() *zap.Logger
	MessageFactory() *msg.Factory
	SendMessage(m *msg.Message)
	ProcessMessage(m *msg.Message)
	FindGameActorByID(id uid.ID) (*GameProxy, bool)
	RegisterGlobalMessageListener(t *msg.Type, listenerID uid.ID, invokable string) (listener.Handle, error)
	UnregisterGlobalMessageListener(t *msg.Type, listenerID uid.ID, invokable string) bool
	RegisterGameActorMessageListener(t *msg.Type, target, listenerID uid.ID, invokable string) (listener.Handle, error)
	UnregisterGameActorMessageListener(t *msg.Type, target, listenerID uid.ID, invokable string) bool
}

// Behavior is the game logic behind a game actor.
type Behavior interface {
	OnEnteredWorld(p *GameProxy)
	OnRemovedFromWorld(p *GameProxy)
	OnTickLocal(p *GameProxy, tick msg.Tick)
	OnTickRemote(p *GameProxy, tick msg.Tick)
}

// MessageProcessor is implemented by behaviors that take every message
// delivered to the actor's "Process Message" invokable.
type MessageProcessor interface {
	ProcessMessage(p *GameProxy, m *msg.Message)
}

// NopBehavior does nothing. Embed it to implement only some hooks.
type NopBehavior struct{}

func (NopBehavior) OnEnteredWorld(*GameProxy)         {}
func (NopBehavior) OnRemovedFromWorld(*GameProxy)     {}
func (NopBehavior) OnTickLocal(*GameProxy, msg.Tick)  {}
func (NopBehavior) OnTickRemote(*GameProxy, msg.Tick) {}

// Component is a named part attached to a game actor that follows the
// actor in and out of the world.
type Component interface {
	Name() string
	OnEnteredWorld(owner *GameProxy)
	OnRemovedFromWorld(owner *GameProxy)
}

// GameProxy is an actor that takes part in the message bus: it owns named
// invokables, a table of handlers for messages about itself, and a
// behavior.
type GameProxy struct {
	*Proxy

	ownership Ownership
	policy    UpdatePolicy
	accepted  map[string]struct{}

	remote    bool
	published bool
	host      Host

	behavior   Behavior
	invokables map[string]*Invokable
	handlers   map[*msg.Type][]*Invokable
	components []Component
}

// NewGameProxy creates a game actor of type t. A nil behavior means
// NopBehavior.
func NewGameProxy(t *Type, b Behavior) *GameProxy {
	return NewGameProxyWithID(t, uid.New(), b)
}

func NewGameProxyWithID(t *Type, id uid.ID, b Behavior) *GameProxy {
	if b == nil {
		b = NopBehavior{}
	}
	g := &GameProxy{
		Proxy:      NewProxyWithID(t, id),
		policy:     UpdateAcceptAll,
		accepted:   make(map[string]struct{}),
		behavior:   b,
		invokables: make(map[string]*Invokable, 4),
		handlers:   make(map[*msg.Type][]*Invokable, 4),
	}
	g.Proxy.game = g
	return g
}

func (g *GameProxy) Behavior() Behavior                 { return g.behavior }
func (g *GameProxy) Ownership() Ownership               { return g.ownership }
func (g *GameProxy) SetOwnership(o Ownership)           { g.ownership = o }
func (g *GameProxy) UpdatePolicy() UpdatePolicy         { return g.policy }
func (g *GameProxy) SetUpdatePolicy(u UpdatePolicy)     { g.policy = u }
func (g *GameProxy) IsRemote() bool                     { return g.remote }
func (g *GameProxy) IsPublished() bool                  { return g.published }
func (g *GameProxy) Host() Host                         { return g.host }
func (g *GameProxy) IsInGM() bool                       { return g.host != nil }
func (g *GameProxy) AddAcceptedProperty(name string)    { g.accepted[name] = struct{}{} }
func (g *GameProxy) RemoveAcceptedProperty(name string) { delete(g.accepted, name) }

// SetRemote, SetPublished and SetHost are driven by the game manager as the
// actor moves through its lifecycle.
func (g *GameProxy) SetRemote(r bool)    { g.remote = r }
func (g *GameProxy) SetPublished(p bool) { g.published = p }
func (g *GameProxy) SetHost(h Host)      { g.host = h }

// AcceptedProperties lists the property filter, sorted.
func (g *GameProxy) AcceptedProperties() []string {
	out := make([]string, 0, len(g.accepted))
	for n := range g.accepted {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ShouldAcceptProperty reports whether an incoming update may change the
// named property under the current policy.
func (g *GameProxy) ShouldAcceptProperty(name string) bool {
	switch g.policy {
	case UpdateAcceptAll:
		return true
	case UpdateAcceptWithPropertyFilter:
		_, ok := g.accepted[name]
		return ok
	default:
		return false
	}
}

func (g *GameProxy) logger() *zap.Logger {
	if g.host != nil {
		if l := g.host.Logger(); l != nil {
			return l
		}
	}
	return zap.NewNop()
}

// AddComponent attaches c. Names are unique per actor.
func (g *GameProxy) AddComponent(c Component) error {
	for _, x := range g.components {
		if x.Name() == c.Name() {
			return fmt.Errorf("component %s already attached to %s", c.Name(), g.ID())
		}
	}
	g.components = append(g.components, c)
	return nil
}

func (g *GameProxy) RemoveComponent(name string) bool {
	for i, x := range g.components {
		if x.Name() == name {
			g.components = append(g.components[:i], g.components[i+1:]...)
			return true
		}
	}
	return false
}

func (g *GameProxy) Components() []Component {
	out := make([]Component, len(g.components))
	copy(out, g.components)
	return out
}

// InvokeEnteredWorld runs the entered-world hooks of this actor: the
// behavior first, then attached components. Child actors are not visited;
// the game manager calls each member of a subtree itself, depth first.
func (g *GameProxy) InvokeEnteredWorld() {
	g.behavior.OnEnteredWorld(g)
	for _, c := range g.components {
		c.OnEnteredWorld(g)
	}
}

// InvokeRemovedFromWorld runs the removed-from-world hooks in the reverse
// order of InvokeEnteredWorld.
func (g *GameProxy) InvokeRemovedFromWorld() {
	for i := len(g.components) - 1; i >= 0; i-- {
		g.components[i].OnRemovedFromWorld(g)
	}
	g.behavior.OnRemovedFromWorld(g)
}
