package gm

import (
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// RemoteProcessorName is the component name of RemoteActorProcessor.
const RemoteProcessorName = "DefaultMessageProcessor"

// RemoteActorProcessor mirrors actors owned by other machines and applies
// their time commands. Messages from this machine are ignored.
type RemoteActorProcessor struct {
	BaseComponent

	// AcceptRequests lets REQUEST_PAUSE from other machines pause the
	// simulation. When unset, such requests are rejected.
	AcceptRequests bool
}

func NewRemoteActorProcessor() *RemoteActorProcessor {
	return &RemoteActorProcessor{BaseComponent: NewBaseComponent(RemoteProcessorName)}
}

func (p *RemoteActorProcessor) ProcessMessage(m *msg.Message) {
	g := p.GameManager()
	if g == nil || g.Machine().Equal(m.Source()) {
		return
	}
	switch m.Type() {
	case msg.InfoActorCreated, msg.InfoActorUpdated:
		p.applyRemoteUpdate(g, m)
	case msg.InfoActorDeleted:
		p.deleteRemote(g, m)
	case msg.CommandPause:
		g.SetPaused(true)
	case msg.CommandResume:
		g.SetPaused(false)
	case msg.RequestPause:
		if p.AcceptRequests {
			g.SetPaused(true)
			return
		}
		g.RejectMessage(m, "pause requests are not accepted")
	}
}

func (p *RemoteActorProcessor) applyRemoteUpdate(g *Manager, m *msg.Message) {
	id := m.AboutActorID()
	if existing, ok := g.FindGameActorByID(id); ok {
		if !existing.IsRemote() {
			g.Logger().Warn("remote update for a local actor ignored",
				zap.String("actor", id.String()),
				zap.String("source", m.Source().String()),
			)
			return
		}
		existing.ApplyActorUpdate(m, true)
		return
	}
	if m.IsPartialUpdate() {
		g.Logger().Debug("partial update for unknown remote actor dropped", zap.String("actor", id.String()))
		return
	}

	t, ok := g.Library().FindTypeByFullName(m.ActorType())
	if !ok {
		g.Logger().Warn("remote actor of unknown type",
			zap.String("actor", id.String()),
			zap.String("type", m.ActorType()),
		)
		return
	}
	proxy, err := g.Library().CreateWithID(t, id)
	if err != nil {
		g.Logger().Error("create remote actor", zap.String("actor", id.String()), zap.Error(err))
		return
	}
	remote, err := proxy.Game()
	if err != nil {
		g.Logger().Warn("remote actor is not a game actor", zap.String("actor", id.String()))
		return
	}
	remote.SetRemote(true)
	remote.ApplyActorUpdate(m, false)
	if err := g.AddActor(remote, true, false); err != nil {
		g.Logger().Error("add remote actor", zap.String("actor", id.String()), zap.Error(err))
		return
	}
	// The parent can only be resolved once the actor is in the manager.
	if pid, ok := m.ParentID(); ok && !pid.IsNull() {
		remote.ApplyActorUpdate(m, false)
	}
}

func (p *RemoteActorProcessor) deleteRemote(g *Manager, m *msg.Message) {
	existing, ok := g.FindGameActorByID(m.AboutActorID())
	if !ok || !existing.IsRemote() {
		return
	}
	if err := g.DeleteActor(existing.Proxy); err != nil {
		g.Logger().Error("delete remote actor", zap.String("actor", existing.ID().String()), zap.Error(err))
	}
}
