package gm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/listener"
	"github.com/l1jgo/gamemanager/internal/core/msg"
)

var _ actor.Host = (*Manager)(nil)

// outbound is a send-queue entry. local is set when the message still has
// to be processed on this machine once it has been dispatched.
type outbound struct {
	m     *msg.Message
	local bool
}

// SendMessage queues m for the network. At the start of the next frame it
// is handed to every component's DispatchNetworkMessage and, unless it is
// addressed to another machine, processed locally in that frame.
func (m *Manager) SendMessage(message *msg.Message) {
	if m.shutdown {
		return
	}
	m.sendQueue = append(m.sendQueue, outbound{m: message, local: m.isLocalDestination(message)})
}

// emit is used for events the manager itself originates: they are
// processed locally in the current drain and dispatched to the network at
// the start of the next frame.
func (m *Manager) emit(message *msg.Message) {
	if m.shutdown {
		return
	}
	m.processQueue = append(m.processQueue, message)
	m.sendQueue = append(m.sendQueue, outbound{m: message})
}

// ProcessMessage queues m for local delivery in the current or next frame.
func (m *Manager) ProcessMessage(message *msg.Message) {
	if m.shutdown {
		return
	}
	m.processQueue = append(m.processQueue, message)
}

// RejectMessage answers cause with SERVER_REQUEST_REJECTED. A rejection for
// this machine is processed locally; any other goes out on the network only.
func (m *Manager) RejectMessage(cause *msg.Message, reason string) {
	r := m.factory.CreateRejection(cause, reason)
	if m.machine.Equal(cause.Source()) {
		m.ProcessMessage(r)
		return
	}
	if m.shutdown {
		return
	}
	// A cause without a source leaves the rejection without a destination,
	// which SendMessage would treat as local.
	m.sendQueue = append(m.sendQueue, outbound{m: r})
}

func (m *Manager) isLocalDestination(message *msg.Message) bool {
	d := message.Destination()
	return d == nil || m.machine.Equal(d)
}

// PreFrame runs one frame: network dispatch, map change progress, ticks,
// timers, local delivery, deferred deletes and statistics.
func (m *Manager) PreFrame(deltaSim, deltaReal float64) {
	if m.shutdown {
		return
	}
	start := time.Now()
	processedBefore, sentBefore := m.stats.MessagesProcessed, m.stats.MessagesSent

	m.drainSendQueue()
	if m.shutdown {
		return
	}
	m.continueMapChange()

	simTime := m.clock.SimulationTime()
	tick := msg.Tick{
		DeltaSimTime:   deltaSim,
		DeltaRealTime:  deltaReal,
		SimTimeScale:   m.clock.TimeScale(),
		SimulationTime: simTime,
	}
	m.ProcessMessage(m.tickMessage(msg.TickLocal, tick))
	m.ProcessMessage(m.tickMessage(msg.TickRemote, tick))

	m.processTimers(&m.realTimers, m.clock.RealClockTime())
	m.processTimers(&m.simTimers, m.clock.SimulationClockTime())

	m.drainProcessQueue()
	if m.shutdown {
		return
	}
	m.flushDeletes()

	end := m.tickMessage(msg.TickEndOfFrame, tick)
	m.eachComponent(func(c Component) { c.ProcessMessage(end) })
	if m.shutdown {
		return
	}

	m.stats.Frames++
	m.stats.LastFrame = time.Since(start)
	m.metrics.FrameDone(m.stats.LastFrame,
		int(m.stats.MessagesProcessed-processedBefore),
		int(m.stats.MessagesSent-sentBefore),
	)
	m.metrics.Actors(len(m.gameActors), len(m.plainActors), len(m.prototypes))
	m.logStats()
}

// PostFrame is called by the host after every PreFrame. It has no work of
// its own.
func (m *Manager) PostFrame() {}

func (m *Manager) tickMessage(t *msg.Type, tick msg.Tick) *msg.Message {
	tm := m.factory.Create(t)
	tm.SetDestination(m.machine)
	msg.SetTick(tm, tick)
	return tm
}

func (m *Manager) drainSendQueue() {
	for i := 0; i < len(m.sendQueue); i++ {
		out := m.sendQueue[i]
		m.sendQueue[i] = outbound{}
		message := out.m
		m.stats.MessagesSent++
		m.metrics.MessageSent(message.Type())
		m.eachComponent(func(c Component) { c.DispatchNetworkMessage(message) })
		if m.shutdown {
			return
		}
		if out.local {
			m.processQueue = append(m.processQueue, message)
		}
	}
	m.sendQueue = m.sendQueue[:0]
}

// drainProcessQueue delivers queued messages in FIFO order. Messages queued
// by handlers are appended and delivered in the same drain.
func (m *Manager) drainProcessQueue() {
	for i := 0; i < len(m.processQueue); i++ {
		message := m.processQueue[i]
		m.processQueue[i] = nil
		m.deliver(message)
		if m.shutdown {
			break
		}
	}
	m.processQueue = m.processQueue[:0]
}

// deliver fans one message out: components, global listeners, the about
// actor's own handlers, then listeners registered for the about actor.
func (m *Manager) deliver(message *msg.Message) {
	m.stats.MessagesProcessed++
	m.metrics.MessageProcessed(message.Type())
	t := message.Type()

	m.eachComponent(func(c Component) { c.ProcessMessage(message) })
	if m.shutdown {
		return
	}

	for _, reg := range m.listeners.Global(t) {
		if m.listeners.Alive(reg.Handle) {
			m.invokeListener(reg.Entry, message)
		}
	}

	about := message.AboutActorID()
	if about.IsNull() {
		return
	}
	if target, ok := m.gameActors[about]; ok {
		for _, inv := range target.MessageHandlers(t) {
			m.invoke(target, inv, message)
		}
	} else {
		m.log.Warn("message about an actor that is not in the game manager",
			zap.String("type", t.Name()),
			zap.String("about", about.String()),
		)
	}

	for _, reg := range m.listeners.About(t, about) {
		if m.listeners.Alive(reg.Handle) {
			m.invokeListener(reg.Entry, message)
		}
	}
}

func (m *Manager) invokeListener(e listener.Entry, message *msg.Message) {
	ga, ok := m.gameActors[e.Listener]
	if !ok {
		m.log.Warn("listener actor not found",
			zap.String("listener", e.Listener.String()),
			zap.String("type", e.Type.Name()),
			zap.String("invokable", e.Invokable),
		)
		return
	}
	inv, ok := ga.Invokable(e.Invokable)
	if !ok {
		m.log.Warn("listener invokable not found",
			zap.String("listener", e.Listener.String()),
			zap.String("type", e.Type.Name()),
			zap.String("invokable", e.Invokable),
		)
		return
	}
	m.invoke(ga, inv, message)
}

func (m *Manager) invoke(ga *actor.GameProxy, inv *actor.Invokable, message *msg.Message) {
	m.safeCall(fmt.Sprintf("%s/%s", ga.ID(), inv.Name()), func() { inv.Invoke(message) })
}

// safeCall runs one handler with panic recovery so a faulty handler costs
// its own delivery and nothing else.
func (m *Manager) safeCall(where string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			m.stats.HandlerPanics++
			m.metrics.HandlerPanic(where)
			m.log.Error("handler panic recovered",
				zap.String("handler", where),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()
	fn()
}

// flushDeletes removes every actor queued for deletion before this call.
// Deletes requested while flushing wait for the next frame.
func (m *Manager) flushDeletes() {
	if len(m.deleteList) == 0 {
		return
	}
	list := m.deleteList
	m.deleteList = nil
	for _, ga := range list {
		id := ga.ID()
		delete(m.pendingDelete, id)
		if _, ok := m.gameActors[id]; !ok {
			continue
		}
		m.safeCall("removed from world "+id.String(), ga.InvokeRemovedFromWorld)
		m.removeGameActor(ga)
		m.stats.ActorsDeleted++
	}
}

// removeGameActor drops every trace of ga from the manager.
func (m *Manager) removeGameActor(ga *actor.GameProxy) {
	id := ga.ID()
	m.listeners.UnregisterAllForActor(id)
	m.clearTimersForActor(id)
	delete(m.gameActors, id)
	m.scene.RemoveDrawable(ga.Proxy)
	ga.SetHost(nil)
	ga.SetPublished(false)
}

func (m *Manager) logStats() {
	if m.statsInterval <= 0 {
		return
	}
	now := m.clock.RealClockTime()
	if float64(now-m.lastStatsLog)/1e6 < m.statsInterval {
		return
	}
	m.lastStatsLog = now
	m.log.Info("frame stats",
		zap.Uint64("frames", m.stats.Frames),
		zap.Uint64("processed", m.stats.MessagesProcessed),
		zap.Uint64("sent", m.stats.MessagesSent),
		zap.Uint64("panics", m.stats.HandlerPanics),
		zap.Int("game_actors", len(m.gameActors)),
		zap.Int("plain_actors", len(m.plainActors)),
		zap.Duration("last_frame", m.stats.LastFrame),
	)
}
