package gm

import (
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/clock"
	"github.com/l1jgo/gamemanager/internal/core/listener"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// Options wires a Manager to its collaborators. Only Library is required;
// everything else has a headless default.
type Options struct {
	Machine *msg.MachineInfo
	Library *actor.Library
	Clock   Clock
	Scene   Scene
	Maps    MapLoader
	Metrics Metrics

	// StatsInterval is how often, in real seconds, frame statistics are
	// logged. Zero disables the log line.
	StatsInterval float64
}

// Manager owns every actor, listener registration, component, timer and
// message queue of one simulation. All methods must be called from the game
// goroutine.
type Manager struct {
	log     *zap.Logger
	machine *msg.MachineInfo
	factory *msg.Factory
	library *actor.Library
	clock   Clock
	scene   Scene
	maps    MapLoader
	metrics Metrics

	gameActors  map[uid.ID]*actor.GameProxy
	plainActors map[uid.ID]*actor.Proxy
	prototypes  map[uid.ID]*actor.GameProxy

	deleteList    []*actor.GameProxy
	pendingDelete map[uid.ID]struct{}

	listeners  *listener.Registry
	components []*componentEntry

	sendQueue    []outbound
	processQueue []*msg.Message

	realTimers []*timer
	simTimers  []*timer
	timerSeq   uint64

	mapChange mapChange

	stats         Stats
	statsInterval float64
	lastStatsLog  int64
	shutdown      bool
}

func New(opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Machine == nil {
		opts.Machine = msg.NewMachineInfo("gm", "localhost")
	}
	if opts.Library == nil {
		opts.Library = actor.NewLibrary()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Scene == nil {
		opts.Scene = NopScene{}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Manager{
		log:           log,
		machine:       opts.Machine,
		factory:       msg.NewFactory("GameManager", opts.Machine),
		library:       opts.Library,
		clock:         opts.Clock,
		scene:         opts.Scene,
		maps:          opts.Maps,
		metrics:       opts.Metrics,
		gameActors:    make(map[uid.ID]*actor.GameProxy, 256),
		plainActors:   make(map[uid.ID]*actor.Proxy, 64),
		prototypes:    make(map[uid.ID]*actor.GameProxy, 16),
		pendingDelete: make(map[uid.ID]struct{}, 16),
		listeners:     listener.NewRegistry(),
		sendQueue:     make([]outbound, 0, 64),
		processQueue:  make([]*msg.Message, 0, 256),
		statsInterval: opts.StatsInterval,
		lastStatsLog:  opts.Clock.RealClockTime(),
	}
}

func (m *Manager) Logger() *zap.Logger               { return m.log }
func (m *Manager) Machine() *msg.MachineInfo         { return m.machine }
func (m *Manager) MessageFactory() *msg.Factory      { return m.factory }
func (m *Manager) Library() *actor.Library           { return m.library }
func (m *Manager) Clock() Clock                      { return m.clock }
func (m *Manager) Scene() Scene                      { return m.scene }
func (m *Manager) Stats() Stats                      { return m.stats }
func (m *Manager) IsShutdown() bool                  { return m.shutdown }
func (m *Manager) SetStatisticsInterval(sec float64) { m.statsInterval = sec }

// Shutdown removes every component, drops queued messages, timers and all
// actors. The manager accepts no further work afterwards.
func (m *Manager) Shutdown() {
	if m.shutdown {
		return
	}
	m.log.Info("game manager shutting down",
		zap.Int("game_actors", len(m.gameActors)),
		zap.Int("components", len(m.components)),
	)
	for len(m.components) > 0 {
		m.RemoveComponent(m.components[len(m.components)-1].c)
	}
	m.sendQueue = m.sendQueue[:0]
	m.processQueue = m.processQueue[:0]
	m.DeleteAllActors(false)
	m.DeleteAllPrototypes()
	m.shutdown = true
}
