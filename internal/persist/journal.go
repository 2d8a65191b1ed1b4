package persist

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	coresys "github.com/l1jgo/gamemanager/internal/core/system"
	"github.com/l1jgo/gamemanager/internal/gm"
)

const (
	JournalName       = "MessageJournal"
	defaultMaxPending = 50000
	flushTimeout      = 5 * time.Second
)

// BatchWriter stores journal entries. JournalRepo is the production writer.
type BatchWriter interface {
	WriteBatch(ctx context.Context, entries []Entry) error
}

// Journal is a game manager component that records every processed
// message. Entries pile up in memory and are written by Flush, normally
// from a JournalFlushSystem.
type Journal struct {
	gm.BaseComponent
	writer BatchWriter
	log    *zap.Logger

	recordTicks bool
	maxPending  int
	pending     []Entry

	written uint64
	dropped uint64
}

func NewJournal(w BatchWriter, recordTicks bool, log *zap.Logger) *Journal {
	return &Journal{
		BaseComponent: gm.NewBaseComponent(JournalName),
		writer:        w,
		log:           log,
		recordTicks:   recordTicks,
		maxPending:    defaultMaxPending,
	}
}

func (j *Journal) Pending() int        { return len(j.pending) }
func (j *Journal) Written() uint64     { return j.written }
func (j *Journal) Dropped() uint64     { return j.dropped }
func (j *Journal) SetMaxPending(n int) { j.maxPending = n }

func (j *Journal) ProcessMessage(m *msg.Message) {
	if !j.recordTicks && m.Type().Category() == msg.CategoryTick {
		return
	}
	host := j.GameManager()
	if host == nil {
		return
	}
	params, err := json.Marshal(m.Params().Values())
	if err != nil {
		j.log.Warn("journal params not encodable", zap.Stringer("type", m.Type()), zap.Error(err))
		params = []byte("{}")
	}
	e := Entry{
		Machine: host.Machine().Name,
		Frame:   host.Stats().Frames,
		SimTime: host.SimulationTime(),
		Type:    m.Type().Name(),
		About:   m.AboutActorID().String(),
		Sending: m.SendingActorID().String(),
		Params:  params,
	}
	if src := m.Source(); src != nil {
		e.Source = src.Name
	}
	j.pending = append(j.pending, e)
	j.trim()
}

// trim drops the oldest entries once the backlog exceeds maxPending, which
// only happens while the database is unreachable.
func (j *Journal) trim() {
	over := len(j.pending) - j.maxPending
	if j.maxPending <= 0 || over <= 0 {
		return
	}
	j.pending = append(j.pending[:0], j.pending[over:]...)
	j.dropped += uint64(over)
}

// Flush writes the backlog. On failure the entries are kept for the next
// attempt.
func (j *Journal) Flush(ctx context.Context) error {
	if len(j.pending) == 0 {
		return nil
	}
	if err := j.writer.WriteBatch(ctx, j.pending); err != nil {
		return err
	}
	j.written += uint64(len(j.pending))
	j.pending = j.pending[:0]
	return nil
}

// JournalFlushSystem flushes the journal every N ticks. Phase 5 (Persist).
type JournalFlushSystem struct {
	journal   *Journal
	log       *zap.Logger
	interval  int
	tickCount int
}

func NewJournalFlushSystem(j *Journal, intervalTicks int, log *zap.Logger) *JournalFlushSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &JournalFlushSystem{journal: j, log: log, interval: intervalTicks}
}

func (s *JournalFlushSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalFlushSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.flush()
}

// FlushNow writes whatever is pending, for shutdown.
func (s *JournalFlushSystem) FlushNow() {
	s.flush()
}

func (s *JournalFlushSystem) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	n := s.journal.Pending()
	if err := s.journal.Flush(ctx); err != nil {
		s.log.Error("journal flush failed", zap.Int("pending", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Debug("journal flushed", zap.Int("entries", n))
	}
}
