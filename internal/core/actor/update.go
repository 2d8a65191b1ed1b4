package actor

import (
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// Update property names that are carried in message headers rather than
// as update parameters.
const (
	PropertyName   = "Name"
	PropertyParent = "Parent"
)

// PopulateActorUpdate fills an actor-update message from this actor: name,
// type, parent, ids and property values. With names empty every published,
// writable property is written; otherwise only the named ones.
func (g *GameProxy) PopulateActorUpdate(m *msg.Message, names ...string) {
	m.SetActorName(g.Name())
	m.SetActorType(g.Type().FullName())
	m.SetAboutActorID(g.ID())
	m.SetSendingActorID(g.ID())
	m.SetPartialUpdate(len(names) > 0)
	if g.parent != nil {
		m.SetParentID(g.parent.ID())
	} else {
		m.SetParentID(uid.Null)
	}

	write := func(p *Property) {
		if p.IsReadOnly() || m.UpdateParams() == nil {
			return
		}
		dst, err := m.AddUpdateParam(p.Name(), p.Kind())
		if err != nil {
			return
		}
		dst.SetFrom(p.Param)
	}

	if len(names) == 0 {
		g.props.Each(func(p *Property) {
			if !p.noPublish {
				write(p)
			}
		})
		return
	}
	for _, n := range names {
		if p := g.props.Get(n); p != nil {
			write(p)
		}
	}
}

// PartialUpdateProperties lists the properties flagged for partial updates.
func (g *GameProxy) PartialUpdateProperties() []string {
	var out []string
	g.props.Each(func(p *Property) {
		if p.partial && !p.readOnly {
			out = append(out, p.Name())
		}
	})
	return out
}

// ApplyActorUpdate copies the contents of an actor-update message into this
// actor. A failing property is logged and skipped so the rest still apply.
// With checkPolicy set, a local actor honors its UpdatePolicy.
func (g *GameProxy) ApplyActorUpdate(m *msg.Message, checkPolicy bool) {
	log := g.logger()
	if checkPolicy && !g.remote && g.policy == UpdateIgnoreAll {
		return
	}
	filtered := checkPolicy && !g.remote && g.policy == UpdateAcceptWithPropertyFilter
	accept := func(name string) bool {
		return !filtered || g.ShouldAcceptProperty(name)
	}

	if accept(PropertyName) {
		if name := m.ActorName(); name != "" || m.Type() == msg.InfoActorCreated {
			g.SetName(name)
		}
	}

	if pid, ok := m.ParentID(); ok && accept(PropertyParent) {
		g.applyParent(pid, log)
	}

	updates := m.UpdateParams()
	if updates == nil {
		return
	}
	updates.Each(func(up *msg.Param) {
		if !accept(up.Name()) {
			return
		}
		p := g.props.Get(up.Name())
		if p == nil {
			log.Warn("actor update for unknown property",
				zap.String("property", up.Name()),
				zap.String("actor", g.ID().String()),
				zap.String("type", g.Type().FullName()),
			)
			return
		}
		if p.IsReadOnly() {
			return
		}
		if err := p.Param.SetFrom(up); err != nil {
			log.Error("apply actor update property",
				zap.String("property", up.Name()),
				zap.String("actor", g.ID().String()),
				zap.Error(err),
			)
		}
	})
}

func (g *GameProxy) applyParent(pid uid.ID, log *zap.Logger) {
	if pid.IsNull() {
		if err := g.SetParent(nil); err != nil {
			log.Error("detach parent", zap.String("actor", g.ID().String()), zap.Error(err))
		}
		return
	}
	if g.host == nil {
		log.Debug("parent in actor update ignored, actor not in game manager",
			zap.String("actor", g.ID().String()))
		return
	}
	parent, ok := g.host.FindGameActorByID(pid)
	if !ok {
		log.Error("actor update names unknown parent",
			zap.String("actor", g.ID().String()),
			zap.String("parent", pid.String()),
		)
		return
	}
	if err := g.SetParent(parent.Proxy); err != nil {
		log.Error("set parent", zap.String("actor", g.ID().String()), zap.Error(err))
	}
}

// NotifyFullActorUpdate sends an INFO_ACTOR_UPDATED carrying every published
// property. Remote actors and actors outside a game manager send nothing.
func (g *GameProxy) NotifyFullActorUpdate() {
	g.notifyUpdate(nil)
}

// NotifyPartialActorUpdate is NotifyFullActorUpdate limited to names, or to
// the partial-update properties when names is empty.
func (g *GameProxy) NotifyPartialActorUpdate(names ...string) {
	if len(names) == 0 {
		names = g.PartialUpdateProperties()
	}
	if len(names) == 0 {
		return
	}
	g.notifyUpdate(names)
}

func (g *GameProxy) notifyUpdate(names []string) {
	if g.host == nil || g.remote {
		return
	}
	m := g.host.MessageFactory().Create(msg.InfoActorUpdated)
	g.PopulateActorUpdate(m, names...)
	g.host.SendMessage(m)
}
