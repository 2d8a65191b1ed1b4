package gm

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// CreateActor instantiates an actor of a registered type. Game actors come
// back with their standard invokables built. The actor is not added.
func (m *Manager) CreateActor(category, name string) (*actor.Proxy, error) {
	p, err := m.library.CreateByName(category, name)
	if err != nil {
		return nil, err
	}
	if g, err := p.Game(); err == nil {
		g.BuildInvokables()
	}
	return p, nil
}

// AddActor puts a game actor into the simulation together with every
// descendant not already in the manager. All members are registered before
// any entered-world hook runs; hooks then run depth first. Local members
// announce themselves with INFO_ACTOR_CREATED and, with publish, are
// published.
func (m *Manager) AddActor(g *actor.GameProxy, remote, publish bool) error {
	if m.shutdown {
		return ErrShutdown
	}
	if g.ID().IsNull() {
		return fmt.Errorf("add %q: %w", g.Name(), ErrNullActorID)
	}
	if m.hasActor(g.ID()) {
		m.log.Error("duplicate actor id", zap.String("actor", g.ID().String()))
		return fmt.Errorf("%w: %s", ErrDuplicateActor, g.ID())
	}
	if publish && remote {
		return fmt.Errorf("add %s: %w", g.ID(), ErrActorIsRemote)
	}

	var games []*actor.GameProxy
	var plains []*actor.Proxy
	for _, p := range g.Subtree() {
		if m.hasActor(p.ID()) {
			continue
		}
		if p.ID().IsNull() {
			return fmt.Errorf("add %s child %q: %w", g.ID(), p.Name(), ErrNullActorID)
		}
		if member, err := p.Game(); err == nil {
			games = append(games, member)
		} else {
			plains = append(plains, p)
		}
	}

	for _, p := range plains {
		m.plainActors[p.ID()] = p
		m.scene.AddDrawable(p)
	}
	for _, member := range games {
		m.track(member, remote)
	}
	for _, member := range games {
		m.safeCall("entered world "+member.ID().String(), member.InvokeEnteredWorld)
	}
	if !remote && m.mapChange.idle() {
		for _, member := range games {
			created := m.factory.Create(msg.InfoActorCreated)
			member.PopulateActorUpdate(created)
			m.emit(created)
		}
	}
	if !publish {
		return nil
	}
	for _, member := range games {
		if err := m.PublishActor(member); err != nil {
			return err
		}
	}
	return nil
}

// track registers g with the manager and the scene without running hooks.
func (m *Manager) track(g *actor.GameProxy, remote bool) {
	g.SetRemote(remote)
	g.SetHost(m)
	g.BuildInvokables()
	m.gameActors[g.ID()] = g
	m.scene.AddDrawable(g.Proxy)
}

// AddPlainActor adds an actor that takes no part in messaging. It is only
// placed into the scene.
func (m *Manager) AddPlainActor(p *actor.Proxy) error {
	if m.shutdown {
		return ErrShutdown
	}
	if p.IsGameActor() {
		g, _ := p.Game()
		return m.AddActor(g, false, false)
	}
	if p.ID().IsNull() {
		return fmt.Errorf("add %q: %w", p.Name(), ErrNullActorID)
	}
	if m.hasActor(p.ID()) {
		return fmt.Errorf("%w: %s", ErrDuplicateActor, p.ID())
	}
	m.plainActors[p.ID()] = p
	m.scene.AddDrawable(p)
	return nil
}

func (m *Manager) hasActor(id uid.ID) bool {
	if _, ok := m.gameActors[id]; ok {
		return true
	}
	_, ok := m.plainActors[id]
	return ok
}

// PublishActor marks a local game actor as published and announces it with
// exactly one INFO_ACTOR_PUBLISHED.
func (m *Manager) PublishActor(g *actor.GameProxy) error {
	if cur, ok := m.gameActors[g.ID()]; !ok || cur != g {
		return fmt.Errorf("publish %s: %w", g.ID(), ErrActorNotInGM)
	}
	if g.IsRemote() {
		return fmt.Errorf("publish %s: %w", g.ID(), ErrActorIsRemote)
	}
	g.SetPublished(true)
	pub := m.factory.Create(msg.InfoActorPublished)
	pub.SetAboutActorID(g.ID())
	pub.SetSendingActorID(g.ID())
	m.emit(pub)
	return nil
}

// DeleteActor schedules p and its descendants for removal. Game actors
// stay resolvable until the end of the frame in which the delete is
// flushed; children leave before their parents. Plain actors go at once.
// Deleting an actor twice is the same as deleting it once.
func (m *Manager) DeleteActor(p *actor.Proxy) error {
	if !p.IsGameActor() {
		if _, ok := m.plainActors[p.ID()]; !ok {
			return fmt.Errorf("delete %s: %w", p.ID(), ErrActorNotInGM)
		}
		delete(m.plainActors, p.ID())
		m.scene.RemoveDrawable(p)
		return nil
	}

	g, _ := p.Game()
	if cur, ok := m.gameActors[g.ID()]; !ok || cur != g {
		return fmt.Errorf("delete %s: %w", g.ID(), ErrActorNotInGM)
	}
	members := g.Subtree()
	for i := len(members) - 1; i >= 0; i-- {
		m.markForRemoval(members[i])
	}
	return nil
}

func (m *Manager) markForRemoval(p *actor.Proxy) {
	id := p.ID()
	g, err := p.Game()
	if err != nil {
		if cur, ok := m.plainActors[id]; ok && cur == p {
			delete(m.plainActors, id)
			m.scene.RemoveDrawable(p)
		}
		return
	}
	if cur, ok := m.gameActors[id]; !ok || cur != g {
		return
	}
	if _, pending := m.pendingDelete[id]; pending {
		return
	}
	m.pendingDelete[id] = struct{}{}
	m.deleteList = append(m.deleteList, g)

	if !g.IsRemote() && m.mapChange.idle() {
		m.emit(m.deletedMessage(g))
	}
}

// DeleteActorByID is DeleteActor for an id.
func (m *Manager) DeleteActorByID(id uid.ID) error {
	p, ok := m.FindActorByID(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrActorNotInGM)
	}
	return m.DeleteActor(p)
}

// IsPendingDelete reports whether id is queued for removal.
func (m *Manager) IsPendingDelete(id uid.ID) bool {
	_, ok := m.pendingDelete[id]
	return ok
}

func (m *Manager) deletedMessage(g *actor.GameProxy) *msg.Message {
	d := m.factory.Create(msg.InfoActorDeleted)
	d.SetAboutActorID(g.ID())
	d.SetSendingActorID(g.ID())
	return d
}

// DeleteAllActors removes every actor right away, together with all
// listener registrations, timers and pending deletes. With sendMessages set,
// each local game actor is announced with INFO_ACTOR_DELETED first.
// Children leave before their parents.
func (m *Manager) DeleteAllActors(sendMessages bool) {
	ordered := depthFirst(m.sortedGameActors())
	for i := len(ordered) - 1; i >= 0; i-- {
		g := ordered[i]
		if sendMessages && !g.IsRemote() {
			m.emit(m.deletedMessage(g))
		}
		m.safeCall("removed from world "+g.ID().String(), g.InvokeRemovedFromWorld)
		g.SetHost(nil)
		g.SetPublished(false)
	}
	m.gameActors = make(map[uid.ID]*actor.GameProxy, 256)
	m.plainActors = make(map[uid.ID]*actor.Proxy, 64)
	m.scene.RemoveAllDrawables()
	m.listeners.Clear()
	m.realTimers = nil
	m.simTimers = nil
	m.deleteList = nil
	m.pendingDelete = make(map[uid.ID]struct{}, 16)
}

// sortedGameActors lists game actors ordered by id, giving bulk operations
// a stable order.
func (m *Manager) sortedGameActors() []*actor.GameProxy {
	out := make([]*actor.GameProxy, 0, len(m.gameActors))
	for _, g := range m.gameActors {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// FindGameActorByID resolves a game actor. Actors pending delete still
// resolve until the flush.
func (m *Manager) FindGameActorByID(id uid.ID) (*actor.GameProxy, bool) {
	g, ok := m.gameActors[id]
	return g, ok
}

// FindActorByID resolves any actor, game or plain.
func (m *Manager) FindActorByID(id uid.ID) (*actor.Proxy, bool) {
	if g, ok := m.gameActors[id]; ok {
		return g.Proxy, true
	}
	p, ok := m.plainActors[id]
	return p, ok
}

// FindActorsByName returns every actor with the given name, ordered by id.
func (m *Manager) FindActorsByName(name string) []*actor.Proxy {
	return m.findActors(func(p *actor.Proxy) bool { return p.Name() == name })
}

// FindActorsByType returns every actor of the given type, ordered by id.
func (m *Manager) FindActorsByType(t *actor.Type) []*actor.Proxy {
	return m.findActors(func(p *actor.Proxy) bool { return p.Type() == t })
}

func (m *Manager) findActors(match func(*actor.Proxy) bool) []*actor.Proxy {
	var out []*actor.Proxy
	for _, g := range m.gameActors {
		if match(g.Proxy) {
			out = append(out, g.Proxy)
		}
	}
	for _, p := range m.plainActors {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// GameActors lists game actors ordered by id.
func (m *Manager) GameActors() []*actor.GameProxy { return m.sortedGameActors() }

// PlainActors lists plain actors ordered by id.
func (m *Manager) PlainActors() []*actor.Proxy {
	out := make([]*actor.Proxy, 0, len(m.plainActors))
	for _, p := range m.plainActors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ActorCount is the number of game and plain actors.
func (m *Manager) ActorCount() int { return len(m.gameActors) + len(m.plainActors) }

// AddActorAsPrototype keeps g as a template for CreateActorFromPrototype.
// Prototypes are never in the simulation.
func (m *Manager) AddActorAsPrototype(g *actor.GameProxy) error {
	if _, ok := m.prototypes[g.ID()]; ok {
		return fmt.Errorf("%w: prototype %s", ErrDuplicateActor, g.ID())
	}
	g.SetOwnership(actor.OwnershipPrototype)
	m.prototypes[g.ID()] = g
	return nil
}

func (m *Manager) FindPrototypeByID(id uid.ID) (*actor.GameProxy, bool) {
	g, ok := m.prototypes[id]
	return g, ok
}

// Prototypes lists prototypes ordered by id.
func (m *Manager) Prototypes() []*actor.GameProxy {
	out := make([]*actor.GameProxy, 0, len(m.prototypes))
	for _, g := range m.prototypes {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CreateActorFromPrototype builds a new actor of the prototype's type with
// a fresh id and the prototype's property values. The clone is not added.
func (m *Manager) CreateActorFromPrototype(id uid.ID) (*actor.GameProxy, error) {
	proto, ok := m.prototypes[id]
	if !ok {
		return nil, fmt.Errorf("prototype %s: %w", id, ErrActorNotInGM)
	}
	p, err := m.library.Create(proto.Type())
	if err != nil {
		return nil, fmt.Errorf("clone prototype %s: %w", id, err)
	}
	g, err := p.Game()
	if err != nil {
		return nil, fmt.Errorf("clone prototype %s: %w", id, err)
	}
	g.CopyPropertiesFrom(proto.Proxy)
	g.SetOwnership(actor.OwnershipServerPublished)
	g.SetUpdatePolicy(proto.UpdatePolicy())
	for _, n := range proto.AcceptedProperties() {
		g.AddAcceptedProperty(n)
	}
	g.BuildInvokables()
	return g, nil
}

func (m *Manager) DeletePrototype(id uid.ID) bool {
	if _, ok := m.prototypes[id]; !ok {
		return false
	}
	delete(m.prototypes, id)
	return true
}

func (m *Manager) DeleteAllPrototypes() {
	m.prototypes = make(map[uid.ID]*actor.GameProxy, 16)
}
