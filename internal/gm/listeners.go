package gm

import (
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/listener"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// RegisterGlobalMessageListener routes every message of type t to the named
// invokable on the listener actor. Registering the same pair twice is
// logged and rejected with listener.ErrDuplicate.
func (m *Manager) RegisterGlobalMessageListener(t *msg.Type, listenerID uid.ID, invokable string) (listener.Handle, error) {
	h, err := m.listeners.RegisterGlobal(t, listenerID, invokable)
	if err != nil {
		m.log.Error("register global listener", zap.Error(err))
	}
	return h, err
}

func (m *Manager) UnregisterGlobalMessageListener(t *msg.Type, listenerID uid.ID, invokable string) bool {
	return m.listeners.UnregisterGlobal(t, listenerID, invokable)
}

// RegisterGameActorMessageListener routes messages of type t about target
// to the named invokable on the listener actor.
func (m *Manager) RegisterGameActorMessageListener(t *msg.Type, target, listenerID uid.ID, invokable string) (listener.Handle, error) {
	h, err := m.listeners.RegisterAbout(t, target, listenerID, invokable)
	if err != nil {
		m.log.Error("register actor listener", zap.Error(err))
	}
	return h, err
}

func (m *Manager) UnregisterGameActorMessageListener(t *msg.Type, target, listenerID uid.ID, invokable string) bool {
	return m.listeners.UnregisterAbout(t, target, listenerID, invokable)
}

// UnregisterListener drops a registration by handle. Stale handles are
// ignored.
func (m *Manager) UnregisterListener(h listener.Handle) bool {
	return m.listeners.Unregister(h)
}

// UnregisterAllMessageListenersForActor removes every registration made by
// id and every registration about id.
func (m *Manager) UnregisterAllMessageListenersForActor(id uid.ID) int {
	return m.listeners.UnregisterAllForActor(id)
}

// GlobalRegistrants lists the global registrations for t.
func (m *Manager) GlobalRegistrants(t *msg.Type) []listener.Entry {
	return entries(m.listeners.Global(t))
}

// AboutRegistrants lists the registrations for t about target.
func (m *Manager) AboutRegistrants(t *msg.Type, target uid.ID) []listener.Entry {
	return entries(m.listeners.About(t, target))
}

func entries(regs []listener.Registration) []listener.Entry {
	if len(regs) == 0 {
		return nil
	}
	out := make([]listener.Entry, len(regs))
	for i, r := range regs {
		out[i] = r.Entry
	}
	return out
}
