package gm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/clock"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

var (
	tankType = actor.NewType("test", "Tank", true,
		actor.PropertySpec{Name: "Armor", Kind: msg.TypeInt, Default: 100},
	)
	rockType = actor.NewType("test", "Rock", false)
)

// recorder is a component that remembers every message it was shown.
type recorder struct {
	BaseComponent
	processed  []*msg.Message
	dispatched []*msg.Message
	trace      *[]string
}

func newRecorder(name string) *recorder {
	return &recorder{BaseComponent: NewBaseComponent(name)}
}

func (r *recorder) ProcessMessage(m *msg.Message) {
	r.processed = append(r.processed, m)
	if r.trace != nil {
		*r.trace = append(*r.trace, r.Name()+":process:"+m.Type().Name())
	}
}

func (r *recorder) DispatchNetworkMessage(m *msg.Message) {
	r.dispatched = append(r.dispatched, m)
	if r.trace != nil {
		*r.trace = append(*r.trace, r.Name()+":send:"+m.Type().Name())
	}
}

func (r *recorder) processedOf(t *msg.Type) []*msg.Message  { return filter(r.processed, t) }
func (r *recorder) dispatchedOf(t *msg.Type) []*msg.Message { return filter(r.dispatched, t) }

func filter(list []*msg.Message, t *msg.Type) []*msg.Message {
	var out []*msg.Message
	for _, m := range list {
		if m.Type() == t {
			out = append(out, m)
		}
	}
	return out
}

type fakeScene struct {
	drawables map[uid.ID]*actor.Proxy
	cleared   int
}

func newFakeScene() *fakeScene { return &fakeScene{drawables: make(map[uid.ID]*actor.Proxy)} }

func (s *fakeScene) AddDrawable(p *actor.Proxy)    { s.drawables[p.ID()] = p }
func (s *fakeScene) RemoveDrawable(p *actor.Proxy) { delete(s.drawables, p.ID()) }
func (s *fakeScene) RemoveAllDrawables() {
	s.drawables = make(map[uid.ID]*actor.Proxy)
	s.cleared++
}

type hookBehavior struct {
	actor.NopBehavior
	entered func(g *actor.GameProxy)
	removed func(g *actor.GameProxy)
}

func (b *hookBehavior) OnEnteredWorld(g *actor.GameProxy) {
	if b.entered != nil {
		b.entered(g)
	}
}

func (b *hookBehavior) OnRemovedFromWorld(g *actor.GameProxy) {
	if b.removed != nil {
		b.removed(g)
	}
}

type harness struct {
	m     *Manager
	clock *clock.Clock
	scene *fakeScene
	rec   *recorder
}

func newHarness(t *testing.T, maps MapLoader) *harness {
	t.Helper()
	lib := actor.NewLibrary()
	require.NoError(t, lib.Register(tankType, nil))
	require.NoError(t, lib.Register(rockType, nil))

	h := &harness{clock: clock.NewAt(0), scene: newFakeScene(), rec: newRecorder("recorder")}
	h.m = New(Options{
		Machine: msg.NewMachineInfo("server", "localhost"),
		Library: lib,
		Clock:   h.clock,
		Scene:   h.scene,
		Maps:    maps,
	}, zap.NewNop())
	require.NoError(t, h.m.AddComponent(h.rec, PriorityNormal))
	return h
}

// frame advances the clock by d real seconds and runs one frame.
func (h *harness) frame(d float64) {
	ds := h.clock.Step(d)
	h.m.PreFrame(ds, d)
	h.m.PostFrame()
}

func (h *harness) addTank(t *testing.T, name string, b actor.Behavior) *actor.GameProxy {
	t.Helper()
	g := actor.NewGameProxy(tankType, b)
	g.SetName(name)
	require.NoError(t, h.m.AddActor(g, false, false))
	return g
}

func (h *harness) event(about uid.ID) *msg.Message {
	e := h.m.MessageFactory().Create(msg.InfoGameEvent)
	e.SetAboutActorID(about)
	return e
}

func addCounter(t *testing.T, g *actor.GameProxy, name string, n *int) {
	t.Helper()
	require.NoError(t, g.AddInvokable(actor.NewInvokable(name, func(*msg.Message) { *n++ })))
}

func addTracer(t *testing.T, g *actor.GameProxy, name string, trace *[]string) {
	t.Helper()
	require.NoError(t, g.AddInvokable(actor.NewInvokable(name, func(*msg.Message) {
		*trace = append(*trace, g.Name()+":"+name)
	})))
}

func TestAddActorThenFind(t *testing.T) {
	h := newHarness(t, nil)
	a := h.addTank(t, "A", nil)

	got, ok := h.m.FindGameActorByID(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.True(t, a.IsInGM())
	assert.False(t, a.IsRemote())
	assert.Contains(t, h.scene.drawables, a.ID())

	p, ok := h.m.FindActorByID(a.ID())
	require.True(t, ok)
	assert.Same(t, a.Proxy, p)

	_, ok = h.m.FindGameActorByID(uid.New())
	assert.False(t, ok)

	require.ErrorIs(t, h.m.AddActor(a, false, false), ErrDuplicateActor)
	require.ErrorIs(t, h.m.AddActor(actor.NewGameProxy(tankType, nil), true, true), ErrActorIsRemote)
}

func TestAddActorAnnouncesLocalActorsOnly(t *testing.T) {
	h := newHarness(t, nil)
	local := h.addTank(t, "local", nil)
	remote := actor.NewGameProxy(tankType, nil)
	require.NoError(t, h.m.AddActor(remote, true, false))

	h.frame(0.016)

	created := h.rec.processedOf(msg.InfoActorCreated)
	require.Len(t, created, 1)
	assert.Equal(t, local.ID(), created[0].AboutActorID())
	assert.Equal(t, "local", created[0].ActorName())
	assert.Equal(t, "test.Tank", created[0].ActorType())
	assert.Len(t, h.rec.dispatchedOf(msg.InfoActorCreated), 1)
}

func TestEnteredWorldHookSeesItself(t *testing.T) {
	h := newHarness(t, nil)
	var found bool
	b := &hookBehavior{entered: func(g *actor.GameProxy) {
		_, found = g.Host().FindGameActorByID(g.ID())
	}}
	h.addTank(t, "A", b)
	assert.True(t, found)
}

func TestFrameScenario(t *testing.T) {
	h := newHarness(t, nil)
	a := actor.NewGameProxy(tankType, nil)
	require.NoError(t, h.m.AddActor(a, false, false))

	h.m.PreFrame(0.016, 0.016)

	local := h.rec.processedOf(msg.TickLocal)
	remote := h.rec.processedOf(msg.TickRemote)
	require.Len(t, local, 1)
	require.Len(t, remote, 1)
	assert.Equal(t, 0.016, msg.TickOf(local[0]).DeltaSimTime)
	assert.Equal(t, 0.016, msg.TickOf(remote[0]).DeltaSimTime)

	require.NoError(t, h.m.DeleteActor(a.Proxy))
	_, ok := h.m.FindGameActorByID(a.ID())
	assert.True(t, ok, "still resolvable until the next frame")

	h.m.PreFrame(0.016, 0.016)
	_, ok = h.m.FindGameActorByID(a.ID())
	assert.False(t, ok)
}

func TestDeleteActorDropsRegistrations(t *testing.T) {
	h := newHarness(t, nil)
	var n int
	a := h.addTank(t, "A", nil)
	b := h.addTank(t, "B", nil)
	addCounter(t, a, "Watch", &n)
	addCounter(t, b, "Watch", &n)

	_, err := a.RegisterForMessages(msg.InfoGameEvent, "Watch")
	require.NoError(t, err)
	_, err = a.RegisterForMessagesAboutOtherActor(msg.InfoGameEvent, b.ID(), "Watch")
	require.NoError(t, err)
	_, err = b.RegisterForMessagesAboutOtherActor(msg.InfoGameEvent, a.ID(), "Watch")
	require.NoError(t, err)
	h.m.SetTimer("t", a.ID(), 10, false, false)

	require.NoError(t, h.m.DeleteActor(a.Proxy))
	assert.True(t, h.m.IsPendingDelete(a.ID()))
	assert.Len(t, h.m.GlobalRegistrants(msg.InfoGameEvent), 1)

	h.frame(0.016)

	assert.False(t, h.m.IsPendingDelete(a.ID()))
	assert.Empty(t, h.m.GlobalRegistrants(msg.InfoGameEvent))
	assert.Empty(t, h.m.AboutRegistrants(msg.InfoGameEvent, a.ID()))
	assert.Empty(t, h.m.AboutRegistrants(msg.InfoGameEvent, b.ID()))
	assert.Zero(t, h.m.TimerCount())
	assert.False(t, a.IsInGM())
	assert.NotContains(t, h.scene.drawables, a.ID())
	assert.Len(t, h.rec.processedOf(msg.InfoActorDeleted), 1)
	assert.Equal(t, uint64(1), h.m.Stats().ActorsDeleted)
}

func TestDeleteIsIdempotentAndBlocksReAdd(t *testing.T) {
	h := newHarness(t, nil)
	a := h.addTank(t, "A", nil)

	require.NoError(t, h.m.DeleteActor(a.Proxy))
	require.NoError(t, h.m.DeleteActor(a.Proxy))
	require.ErrorIs(t, h.m.AddActor(a, false, false), ErrDuplicateActor)

	h.frame(0.016)
	assert.Len(t, h.rec.processedOf(msg.InfoActorDeleted), 1)
	require.ErrorIs(t, h.m.DeleteActor(a.Proxy), ErrActorNotInGM)
	require.ErrorIs(t, h.m.DeleteActorByID(a.ID()), ErrActorNotInGM)

	require.NoError(t, h.m.AddActor(a, false, false))
	_, ok := h.m.FindGameActorByID(a.ID())
	assert.True(t, ok)
}

func TestDeleteFromHandlerTakesEffectAtFrameEnd(t *testing.T) {
	h := newHarness(t, nil)
	var calls int
	var removed bool
	a := h.addTank(t, "A", &hookBehavior{removed: func(*actor.GameProxy) { removed = true }})
	require.NoError(t, a.AddInvokable(actor.NewInvokable("Die", func(*msg.Message) {
		calls++
		require.NoError(t, h.m.DeleteActor(a.Proxy))
		_, ok := h.m.FindGameActorByID(a.ID())
		assert.True(t, ok)
	})))
	_, err := a.RegisterForMessages(msg.InfoGameEvent, "Die")
	require.NoError(t, err)

	h.m.ProcessMessage(h.event(uid.Null))
	h.m.ProcessMessage(h.event(uid.Null))
	h.frame(0.016)

	assert.Equal(t, 2, calls)
	assert.True(t, removed)
	_, ok := h.m.FindGameActorByID(a.ID())
	assert.False(t, ok)
	assert.Len(t, h.rec.processedOf(msg.InfoActorDeleted), 1)
}

func TestPublishActor(t *testing.T) {
	h := newHarness(t, nil)
	var published int
	l := h.addTank(t, "listener", nil)
	addCounter(t, l, "Published", &published)
	_, err := l.RegisterForMessages(msg.InfoActorPublished, "Published")
	require.NoError(t, err)

	remote := actor.NewGameProxy(tankType, nil)
	require.NoError(t, h.m.AddActor(remote, true, false))
	require.ErrorIs(t, h.m.PublishActor(remote), ErrActorIsRemote)
	assert.False(t, remote.IsPublished())

	require.ErrorIs(t, h.m.PublishActor(actor.NewGameProxy(tankType, nil)), ErrActorNotInGM)

	local := h.addTank(t, "local", nil)
	require.NoError(t, h.m.PublishActor(local))
	assert.True(t, local.IsPublished())

	h.frame(0.016)
	h.frame(0.016)
	assert.Equal(t, 1, published)

	pub := h.rec.processedOf(msg.InfoActorPublished)
	require.Len(t, pub, 1)
	assert.Equal(t, local.ID(), pub[0].AboutActorID())
	assert.Len(t, h.rec.dispatchedOf(msg.InfoActorPublished), 1)
}

func TestGlobalListenerInvokedOncePerEnqueue(t *testing.T) {
	h := newHarness(t, nil)
	var n int
	l := h.addTank(t, "listener", nil)
	addCounter(t, l, "Count", &n)
	_, err := l.RegisterForMessages(msg.InfoGameEvent, "Count")
	require.NoError(t, err)

	h.m.SendMessage(h.event(uid.Null))
	h.frame(0.016)
	assert.Equal(t, 1, n)

	h.m.ProcessMessage(h.event(uid.Null))
	h.frame(0.016)
	assert.Equal(t, 2, n)

	h.frame(0.016)
	assert.Equal(t, 2, n)

	_, err = l.RegisterForMessages(msg.InfoGameEvent, "Count")
	require.Error(t, err)
	assert.Len(t, h.m.GlobalRegistrants(msg.InfoGameEvent), 1)
}

func TestDeliveryOrder(t *testing.T) {
	h := newHarness(t, nil)
	var trace []string
	h.rec.trace = &trace

	b := h.addTank(t, "B", nil)
	c := h.addTank(t, "C", nil)
	g := h.addTank(t, "G", nil)
	addTracer(t, c, "Watch", &trace)
	addTracer(t, g, "Global", &trace)
	addTracer(t, b, "Self", &trace)

	// Registered before the self handler on purpose.
	_, err := c.RegisterForMessagesAboutOtherActor(msg.InfoGameEvent, b.ID(), "Watch")
	require.NoError(t, err)
	_, err = g.RegisterForMessages(msg.InfoGameEvent, "Global")
	require.NoError(t, err)
	require.NoError(t, b.RegisterForMessagesAboutSelf(msg.InfoGameEvent, "Self"))

	h.frame(0.016)
	trace = trace[:0]

	h.m.ProcessMessage(h.event(b.ID()))
	h.frame(0.016)

	assert.Equal(t, []string{
		"recorder:process:INFO_GAME_EVENT",
		"G:Global",
		"B:Self",
		"C:Watch",
		"recorder:process:TICK_LOCAL",
		"recorder:process:TICK_REMOTE",
		"recorder:process:TICK_END_OF_FRAME",
	}, trace)
}

func TestSendQueueDrainsBeforeProcessQueue(t *testing.T) {
	h := newHarness(t, nil)
	var trace []string
	h.rec.trace = &trace
	peer := msg.NewMachineInfo("client", "peer")

	out := h.m.MessageFactory().Create(msg.InfoGameEvent)
	out.SetDestination(peer)
	local := h.m.MessageFactory().Create(msg.InfoRestarted)
	h.m.SendMessage(out)
	h.m.SendMessage(local)
	assert.Empty(t, h.rec.dispatched)

	h.frame(0.016)

	assert.Equal(t, []string{
		"recorder:send:INFO_GAME_EVENT",
		"recorder:send:INFO_RESTARTED",
		"recorder:process:INFO_RESTARTED",
		"recorder:process:TICK_LOCAL",
		"recorder:process:TICK_REMOTE",
		"recorder:process:TICK_END_OF_FRAME",
	}, trace)
	assert.Equal(t, uint64(2), h.m.Stats().MessagesSent)
}

func TestMessagesQueuedByHandlersRunInSameDrain(t *testing.T) {
	h := newHarness(t, nil)
	var n int
	a := h.addTank(t, "A", nil)
	require.NoError(t, a.AddInvokable(actor.NewInvokable("Chain", func(*msg.Message) {
		n++
		if n < 3 {
			h.m.ProcessMessage(h.event(uid.Null))
		}
	})))
	_, err := a.RegisterForMessages(msg.InfoGameEvent, "Chain")
	require.NoError(t, err)

	h.m.ProcessMessage(h.event(uid.Null))
	h.frame(0.016)
	assert.Equal(t, 3, n)
}

func TestEndOfFrameTickReachesComponentsOnly(t *testing.T) {
	h := newHarness(t, nil)
	var n int
	a := h.addTank(t, "A", nil)
	addCounter(t, a, "End", &n)
	_, err := a.RegisterForMessages(msg.TickEndOfFrame, "End")
	require.NoError(t, err)

	h.frame(0.016)

	last := h.rec.processed[len(h.rec.processed)-1]
	assert.Equal(t, msg.TickEndOfFrame, last.Type())
	assert.Zero(t, n)
}

func TestUnresolvableListenerIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	var n int
	a := h.addTank(t, "A", nil)
	b := h.addTank(t, "B", nil)
	addCounter(t, b, "Count", &n)

	_, err := h.m.RegisterGlobalMessageListener(msg.InfoGameEvent, a.ID(), "Missing")
	require.NoError(t, err)
	_, err = h.m.RegisterGlobalMessageListener(msg.InfoGameEvent, uid.New(), "Count")
	require.NoError(t, err)
	_, err = b.RegisterForMessages(msg.InfoGameEvent, "Count")
	require.NoError(t, err)

	h.m.ProcessMessage(h.event(uid.New()))
	h.frame(0.016)
	assert.Equal(t, 1, n)
}

func TestHandlerPanicIsContained(t *testing.T) {
	h := newHarness(t, nil)
	var n int
	a := h.addTank(t, "A", nil)
	b := h.addTank(t, "B", nil)
	require.NoError(t, a.AddInvokable(actor.NewInvokable("Boom", func(*msg.Message) { panic("boom") })))
	addCounter(t, b, "Count", &n)
	_, err := a.RegisterForMessages(msg.InfoGameEvent, "Boom")
	require.NoError(t, err)
	_, err = b.RegisterForMessages(msg.InfoGameEvent, "Count")
	require.NoError(t, err)

	h.m.ProcessMessage(h.event(uid.Null))
	h.frame(0.016)

	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), h.m.Stats().HandlerPanics)
	assert.Len(t, h.rec.processedOf(msg.TickLocal), 1)
}

func TestRejectMessage(t *testing.T) {
	h := newHarness(t, nil)
	peer := msg.NewMachineInfo("client", "peer")

	own := h.m.MessageFactory().Create(msg.RequestPause)
	h.m.RejectMessage(own, "not now")
	h.frame(0.016)

	rej := h.rec.processedOf(msg.ServerRequestRejected)
	require.Len(t, rej, 1)
	assert.Same(t, own, rej[0].CausingMessage())
	assert.Equal(t, "not now", rej[0].Cause())
	assert.Empty(t, h.rec.dispatchedOf(msg.ServerRequestRejected))

	foreign := msg.New(msg.RequestPause, peer)
	h.m.RejectMessage(foreign, "denied")
	h.frame(0.016)

	assert.Len(t, h.rec.processedOf(msg.ServerRequestRejected), 1)
	sent := h.rec.dispatchedOf(msg.ServerRequestRejected)
	require.Len(t, sent, 1)
	assert.True(t, peer.Equal(sent[0].Destination()))
	assert.Equal(t, "denied", sent[0].Cause())
}

func TestRejectMessageWithoutSourceIsOnlySent(t *testing.T) {
	h := newHarness(t, nil)
	anon := msg.New(msg.RequestPause, nil)
	h.m.RejectMessage(anon, "who are you")
	h.frame(0.016)
	h.frame(0.016)

	assert.Empty(t, h.rec.processedOf(msg.ServerRequestRejected))
	sent := h.rec.dispatchedOf(msg.ServerRequestRejected)
	require.Len(t, sent, 1)
	assert.Nil(t, sent[0].Destination())
	assert.Same(t, anon, sent[0].CausingMessage())
}

func TestComponents(t *testing.T) {
	h := newHarness(t, nil)
	low := newRecorder("low")
	high := newRecorder("high")
	require.NoError(t, h.m.AddComponent(low, PriorityLowest))
	require.NoError(t, h.m.AddComponent(high, PriorityHighest))
	require.ErrorIs(t, h.m.AddComponent(newRecorder("low"), PriorityNormal), ErrDuplicateComponent)

	var names []string
	for _, c := range h.m.Components() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"high", "recorder", "low"}, names)
	assert.Same(t, h.m, low.GameManager())
	assert.Same(t, high, h.m.ComponentByName("high"))

	require.True(t, h.m.RemoveComponent(low))
	assert.Nil(t, low.GameManager())
	assert.Nil(t, h.m.ComponentByName("low"))
	assert.False(t, h.m.RemoveComponent(low))
}

func TestTimers(t *testing.T) {
	h := newHarness(t, nil)
	var fired []*msg.Message
	a := h.addTank(t, "A", nil)
	require.NoError(t, a.AddInvokable(actor.NewInvokable("Timer", func(m *msg.Message) { fired = append(fired, m) })))
	require.NoError(t, a.RegisterForMessagesAboutSelf(msg.InfoTimerElapsed, "Timer"))

	h.m.SetTimer("once", a.ID(), 1.0, false, false)
	h.m.SetTimer("every", a.ID(), 0.5, true, true)
	assert.Equal(t, 2, h.m.TimerCount())

	h.frame(0.4)
	assert.Empty(t, fired)

	h.frame(0.2)
	require.Len(t, fired, 1)
	assert.Equal(t, "every", fired[0].Str(msg.ParamTimerName))
	assert.InDelta(t, 0.1, fired[0].Float(msg.ParamLateTime), 1e-6)

	h.frame(0.5)
	require.Len(t, fired, 3)
	assert.Equal(t, "every", fired[1].Str(msg.ParamTimerName))
	assert.Equal(t, "once", fired[2].Str(msg.ParamTimerName))
	assert.Equal(t, a.ID(), fired[2].AboutActorID())
	assert.Equal(t, 1, h.m.TimerCount())

	h.m.ClearTimer("every", a.ID())
	assert.Zero(t, h.m.TimerCount())
}

func TestSimTimersStopWhilePaused(t *testing.T) {
	h := newHarness(t, nil)
	h.m.SetTimer("sim", uid.Null, 0.5, false, false)
	h.m.SetPaused(true)

	h.frame(1)
	assert.Empty(t, h.rec.processedOf(msg.InfoTimerElapsed))

	h.m.SetPaused(false)
	h.frame(1)
	assert.Len(t, h.rec.processedOf(msg.InfoTimerElapsed), 1)
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t, nil)
	h.m.SetPaused(true)
	h.m.SetPaused(true)
	assert.True(t, h.m.IsPaused())

	h.frame(1)
	assert.Len(t, h.rec.processedOf(msg.InfoPaused), 1)
	assert.Zero(t, msg.TickOf(h.rec.processedOf(msg.TickLocal)[0]).DeltaSimTime)
	assert.Equal(t, 1.0, msg.TickOf(h.rec.processedOf(msg.TickLocal)[0]).DeltaRealTime)
	assert.Zero(t, h.m.SimulationTime())

	h.m.SetPaused(false)
	h.frame(1)
	assert.Len(t, h.rec.processedOf(msg.InfoResumed), 1)
	assert.Equal(t, 1.0, h.m.SimulationTime())
}

func TestChangeTimeSettings(t *testing.T) {
	h := newHarness(t, nil)
	h.m.ChangeTimeSettings(100, 2, 5_000_000)

	assert.Equal(t, 100.0, h.m.SimulationTime())
	assert.Equal(t, 2.0, h.m.TimeScale())
	assert.Equal(t, int64(5_000_000), h.m.SimulationClockTime())

	h.m.PreFrame(0, 0)
	changed := h.rec.processedOf(msg.InfoTimeChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, 2.0, changed[0].Float(msg.ParamTimeScale))
	assert.Equal(t, int64(5_000_000), changed[0].Int(msg.ParamSimulationClockTime))

	tick := msg.TickOf(h.rec.processedOf(msg.TickLocal)[0])
	assert.Equal(t, 2.0, tick.SimTimeScale)
	assert.Equal(t, 100.0, tick.SimulationTime)
}

func TestDeleteAllActors(t *testing.T) {
	h := newHarness(t, nil)
	var left []string
	b := &hookBehavior{removed: func(g *actor.GameProxy) { left = append(left, g.Name()) }}
	var n int
	a := h.addTank(t, "A", b)
	h.addTank(t, "B", b)
	remote := actor.NewGameProxy(tankType, b)
	remote.SetName("R")
	require.NoError(t, h.m.AddActor(remote, true, false))
	rock := actor.NewProxy(rockType)
	require.NoError(t, h.m.AddPlainActor(rock))
	addCounter(t, a, "Count", &n)
	_, err := a.RegisterForMessages(msg.InfoGameEvent, "Count")
	require.NoError(t, err)
	h.m.SetTimer("t", a.ID(), 1, true, true)
	require.NoError(t, h.m.DeleteActor(a.Proxy))

	h.m.DeleteAllActors(true)

	assert.Zero(t, h.m.ActorCount())
	assert.Zero(t, h.m.TimerCount())
	assert.False(t, h.m.IsPendingDelete(a.ID()))
	assert.Empty(t, h.m.GlobalRegistrants(msg.InfoGameEvent))
	assert.Equal(t, 1, h.scene.cleared)
	assert.ElementsMatch(t, []string{"A", "B", "R"}, left)
	assert.False(t, a.IsInGM())

	h.frame(0.016)
	// one from DeleteActor, then one per local actor
	assert.Len(t, h.rec.processedOf(msg.InfoActorDeleted), 3)
	assert.Zero(t, n)
}

func TestPlainActors(t *testing.T) {
	h := newHarness(t, nil)
	rock := actor.NewProxy(rockType)
	rock.SetName("boulder")
	require.NoError(t, h.m.AddPlainActor(rock))
	require.ErrorIs(t, h.m.AddPlainActor(rock), ErrDuplicateActor)
	tank := h.addTank(t, "boulder", nil)

	assert.Len(t, h.m.FindActorsByName("boulder"), 2)
	byType := h.m.FindActorsByType(rockType)
	require.Len(t, byType, 1)
	assert.Same(t, rock, byType[0])
	assert.Len(t, h.m.PlainActors(), 1)
	assert.Len(t, h.m.GameActors(), 1)
	_, ok := h.m.FindGameActorByID(rock.ID())
	assert.False(t, ok)

	require.NoError(t, h.m.DeleteActor(rock))
	_, ok = h.m.FindActorByID(rock.ID())
	assert.False(t, ok, "plain actors go at once")
	assert.NotContains(t, h.scene.drawables, rock.ID())

	require.NoError(t, h.m.DeleteActorByID(tank.ID()))
	assert.True(t, h.m.IsPendingDelete(tank.ID()))
}

func TestPrototypes(t *testing.T) {
	h := newHarness(t, nil)
	p, err := h.m.CreateActor("test", "Tank")
	require.NoError(t, err)
	proto, err := p.Game()
	require.NoError(t, err)
	proto.SetName("proto")
	require.NoError(t, proto.Property("Armor").Set(int64(7)))
	proto.SetUpdatePolicy(actor.UpdateIgnoreAll)

	require.NoError(t, h.m.AddActorAsPrototype(proto))
	require.ErrorIs(t, h.m.AddActorAsPrototype(proto), ErrDuplicateActor)
	assert.Equal(t, actor.OwnershipPrototype, proto.Ownership())
	_, ok := h.m.FindGameActorByID(proto.ID())
	assert.False(t, ok)
	got, ok := h.m.FindPrototypeByID(proto.ID())
	require.True(t, ok)
	assert.Same(t, proto, got)
	assert.Len(t, h.m.Prototypes(), 1)

	clone, err := h.m.CreateActorFromPrototype(proto.ID())
	require.NoError(t, err)
	assert.NotEqual(t, proto.ID(), clone.ID())
	assert.Equal(t, "proto", clone.Name())
	assert.Equal(t, int64(7), clone.Property("Armor").Int())
	assert.Equal(t, actor.OwnershipServerPublished, clone.Ownership())
	assert.Equal(t, actor.UpdateIgnoreAll, clone.UpdatePolicy())
	_, ok = clone.Invokable(actor.InvokableTickLocal)
	assert.True(t, ok)
	require.NoError(t, h.m.AddActor(clone, false, true))
	assert.True(t, clone.IsPublished())

	_, err = h.m.CreateActorFromPrototype(uid.New())
	require.ErrorIs(t, err, ErrActorNotInGM)

	assert.True(t, h.m.DeletePrototype(proto.ID()))
	assert.False(t, h.m.DeletePrototype(proto.ID()))
}

func TestCreateActor(t *testing.T) {
	h := newHarness(t, nil)
	p, err := h.m.CreateActor("test", "Tank")
	require.NoError(t, err)
	g, err := p.Game()
	require.NoError(t, err)
	_, ok := g.Invokable(actor.InvokableTickRemote)
	assert.True(t, ok)
	assert.False(t, g.IsInGM())

	_, err = h.m.CreateActor("test", "Plane")
	require.ErrorIs(t, err, actor.ErrUnknownType)
}

func TestNotifyActorUpdateReachesNetworkAndLocal(t *testing.T) {
	h := newHarness(t, nil)
	p, err := h.m.CreateActor("test", "Tank")
	require.NoError(t, err)
	g, _ := p.Game()
	require.NoError(t, h.m.AddActor(g, false, true))
	require.NoError(t, g.Property("Armor").Set(int64(5)))

	g.NotifyFullActorUpdate()
	h.frame(0.016)

	upd := h.rec.processedOf(msg.InfoActorUpdated)
	require.Len(t, upd, 1)
	assert.Equal(t, int64(5), upd[0].UpdateParams().Get("Armor").Int())
	assert.Len(t, h.rec.dispatchedOf(msg.InfoActorUpdated), 1)
}

func TestShutdown(t *testing.T) {
	h := newHarness(t, nil)
	a := h.addTank(t, "A", nil)
	h.m.SetTimer("t", a.ID(), 1, false, true)
	h.m.SendMessage(h.event(uid.Null))

	h.m.Shutdown()

	assert.True(t, h.m.IsShutdown())
	assert.Empty(t, h.m.Components())
	assert.Nil(t, h.rec.GameManager())
	assert.Zero(t, h.m.ActorCount())
	assert.Zero(t, h.m.TimerCount())
	assert.False(t, a.IsInGM())
	require.ErrorIs(t, h.m.AddActor(actor.NewGameProxy(tankType, nil), false, false), ErrShutdown)

	before := len(h.rec.processed)
	h.frame(0.016)
	assert.Len(t, h.rec.processed, before)
	assert.Zero(t, h.m.Stats().Frames)
	h.m.Shutdown()
}

func TestStatistics(t *testing.T) {
	h := newHarness(t, nil)
	h.m.SetStatisticsInterval(0.5)
	h.addTank(t, "A", nil)

	h.frame(0.3)
	h.frame(0.3)

	s := h.m.Stats()
	assert.Equal(t, uint64(2), s.Frames)
	// created, then two ticks per frame
	assert.Equal(t, uint64(5), s.MessagesProcessed)
	assert.Equal(t, uint64(1), s.MessagesSent)
}
