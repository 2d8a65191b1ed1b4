// Package bridge connects game managers on different machines over NATS.
package bridge

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	coresys "github.com/l1jgo/gamemanager/internal/core/system"
	"github.com/l1jgo/gamemanager/internal/core/uid"
	"github.com/l1jgo/gamemanager/internal/gm"
)

const (
	ComponentName = "NetworkBridge"

	defaultPrefix     = "gm"
	defaultBuffer     = 1024
	defaultMaxPerTick = 256
)

// Publisher is the part of *nats.Conn the bridge sends through.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Config struct {
	SubjectPrefix string
	InboundBuffer int
	MaxPerTick    int
}

// Bridge is a game manager component. Outbound it publishes what the
// manager sends to the network; inbound it buffers envelopes received on
// the NATS goroutine until InboundSystem hands them to the manager.
//
// Only published actors are visible to other machines: INFO_ACTOR_PUBLISHED
// goes out as a full INFO_ACTOR_CREATED snapshot, and updates and deletes of
// unpublished actors stay local.
type Bridge struct {
	gm.BaseComponent
	pub     Publisher
	subject string
	inbound chan []byte
	max     int
	log     *zap.Logger

	published map[uid.ID]struct{}

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
}

func New(pub Publisher, cfg Config, log *zap.Logger) *Bridge {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaultPrefix
	}
	if cfg.InboundBuffer <= 0 {
		cfg.InboundBuffer = defaultBuffer
	}
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = defaultMaxPerTick
	}
	return &Bridge{
		BaseComponent: gm.NewBaseComponent(ComponentName),
		pub:           pub,
		subject:       cfg.SubjectPrefix + ".msg",
		inbound:       make(chan []byte, cfg.InboundBuffer),
		max:           cfg.MaxPerTick,
		log:           log.With(zap.String("component", ComponentName)),
		published:     make(map[uid.ID]struct{}),
	}
}

// Connect dials NATS with the options the host uses.
func Connect(url, name string, log *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func (b *Bridge) Subject() string  { return b.subject }
func (b *Bridge) Sent() uint64     { return b.sent.Load() }
func (b *Bridge) Received() uint64 { return b.received.Load() }
func (b *Bridge) Dropped() uint64  { return b.dropped.Load() }

// Subscribe feeds the bridge from the bus subject.
func (b *Bridge) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(b.subject, func(m *nats.Msg) { b.Deliver(m.Data) })
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	return sub, nil
}

// Deliver queues raw envelope bytes. It never blocks; when the buffer is
// full the envelope is dropped and counted. Safe to call from any goroutine.
func (b *Bridge) Deliver(data []byte) {
	select {
	case b.inbound <- data:
		b.received.Add(1)
	default:
		b.dropped.Add(1)
	}
}

func (b *Bridge) DispatchNetworkMessage(m *msg.Message) {
	host := b.GameManager()
	if host == nil {
		return
	}
	if d := m.Destination(); d != nil && host.Machine().Equal(d) {
		return
	}
	if m.Type() == msg.InfoMapUnloaded {
		b.retractAll(host)
	}
	if out, ok := b.outbound(host, m); ok {
		b.publish(out)
	}
}

func (b *Bridge) publish(m *msg.Message) {
	data, err := Encode(m)
	if err != nil {
		b.log.Warn("message not encodable", zap.Stringer("type", m.Type()), zap.Error(err))
		return
	}
	if err := b.pub.Publish(b.subject, data); err != nil {
		b.log.Warn("publish failed", zap.Stringer("type", m.Type()), zap.Error(err))
		return
	}
	b.sent.Add(1)
}

// retractAll tells peers that every published actor is gone. A map unload
// deletes actors without INFO_ACTOR_DELETED messages, so peers would keep
// stale copies otherwise.
func (b *Bridge) retractAll(host *gm.Manager) {
	ids := make([]uid.ID, 0, len(b.published))
	for id := range b.published {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		del := host.MessageFactory().Create(msg.InfoActorDeleted)
		del.SetAboutActorID(id)
		del.SetSendingActorID(id)
		b.publish(del)
	}
	clear(b.published)
}

// outbound decides what, if anything, goes on the bus for m.
func (b *Bridge) outbound(host *gm.Manager, m *msg.Message) (*msg.Message, bool) {
	about := m.AboutActorID()
	switch m.Type() {
	case msg.InfoActorPublished:
		g, ok := host.FindGameActorByID(about)
		if !ok || g.IsRemote() {
			return nil, false
		}
		b.published[about] = struct{}{}
		snap := host.MessageFactory().Create(msg.InfoActorCreated)
		g.PopulateActorUpdate(snap)
		return snap, true

	case msg.InfoActorCreated, msg.InfoActorUpdated:
		_, ok := b.published[about]
		return m, ok

	case msg.InfoActorDeleted:
		if _, ok := b.published[about]; !ok {
			return nil, false
		}
		delete(b.published, about)
		return m, true
	}
	return m, true
}

// InboundSystem hands buffered envelopes to the game manager on the game
// goroutine. Phase 0 (Input).
type InboundSystem struct {
	bridge *Bridge
	gm     *gm.Manager
	log    *zap.Logger
}

func NewInboundSystem(b *Bridge, m *gm.Manager) *InboundSystem {
	return &InboundSystem{bridge: b, gm: m, log: b.log}
}

func (s *InboundSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InboundSystem) Update(_ time.Duration) {
	for i := 0; i < s.bridge.max; i++ {
		select {
		case data := <-s.bridge.inbound:
			s.handle(data)
		default:
			return
		}
	}
}

func (s *InboundSystem) handle(data []byte) {
	m, err := Decode(data)
	if err != nil {
		s.log.Warn("inbound envelope dropped", zap.Error(err))
		return
	}
	local := s.gm.Machine()
	if local.Equal(m.Source()) {
		return
	}
	if d := m.Destination(); d != nil && !local.Equal(d) {
		return
	}
	s.gm.ProcessMessage(m)
}
