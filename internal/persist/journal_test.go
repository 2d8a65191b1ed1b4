package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/clock"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	coresys "github.com/l1jgo/gamemanager/internal/core/system"
	"github.com/l1jgo/gamemanager/internal/gm"
)

type memWriter struct {
	batches [][]Entry
	fail    error
}

func (w *memWriter) WriteBatch(_ context.Context, entries []Entry) error {
	if w.fail != nil {
		return w.fail
	}
	w.batches = append(w.batches, append([]Entry(nil), entries...))
	return nil
}

func (w *memWriter) all() []Entry {
	var out []Entry
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func newJournalGM(t *testing.T, j *Journal) (*gm.Manager, *clock.Clock) {
	t.Helper()
	c := clock.NewAt(0)
	m := gm.New(gm.Options{Library: actor.NewLibrary(), Clock: c}, zap.NewNop())
	require.NoError(t, m.AddComponent(j, gm.PriorityLowest))
	return m, c
}

func frame(m *gm.Manager, c *clock.Clock, d float64) {
	m.PreFrame(c.Step(d), d)
}

func TestJournalRecordsProcessedMessages(t *testing.T) {
	w := &memWriter{}
	j := NewJournal(w, false, zap.NewNop())
	m, c := newJournalGM(t, j)

	ev := m.MessageFactory().Create(msg.InfoGameEvent)
	require.NoError(t, ev.SetParam(msg.ParamEventName, "flare"))
	m.ProcessMessage(ev)
	frame(m, c, 0.1)

	require.Equal(t, 1, j.Pending())
	require.NoError(t, j.Flush(context.Background()))
	assert.Zero(t, j.Pending())
	assert.Equal(t, uint64(1), j.Written())

	entries := w.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO_GAME_EVENT", e.Type)
	assert.Equal(t, m.Machine().Name, e.Machine)
	assert.Equal(t, m.Machine().Name, e.Source)
	var params map[string]any
	require.NoError(t, json.Unmarshal(e.Params, &params))
	assert.Equal(t, "flare", params[msg.ParamEventName])
}

func TestJournalTicks(t *testing.T) {
	w := &memWriter{}
	quiet := NewJournal(w, false, zap.NewNop())
	m, c := newJournalGM(t, quiet)
	frame(m, c, 0.1)
	assert.Zero(t, quiet.Pending())

	ticks := NewJournal(w, true, zap.NewNop())
	m, c = newJournalGM(t, ticks)
	frame(m, c, 0.1)
	var types []string
	for _, e := range ticks.pending {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"TICK_LOCAL", "TICK_REMOTE", "TICK_END_OF_FRAME"}, types)
}

func TestJournalKeepsBacklogOnFailure(t *testing.T) {
	w := &memWriter{fail: errors.New("db down")}
	j := NewJournal(w, false, zap.NewNop())
	j.SetMaxPending(3)
	m, c := newJournalGM(t, j)

	for i := 0; i < 5; i++ {
		m.ProcessMessage(m.MessageFactory().Create(msg.InfoGameEvent))
	}
	frame(m, c, 0.1)
	require.Error(t, j.Flush(context.Background()))
	assert.Equal(t, 3, j.Pending())
	assert.Equal(t, uint64(2), j.Dropped())

	w.fail = nil
	require.NoError(t, j.Flush(context.Background()))
	assert.Len(t, w.all(), 3)
}

func TestJournalFlushSystem(t *testing.T) {
	w := &memWriter{}
	j := NewJournal(w, false, zap.NewNop())
	m, c := newJournalGM(t, j)
	s := NewJournalFlushSystem(j, 3, zap.NewNop())
	assert.Equal(t, coresys.PhasePersist, s.Phase())

	m.ProcessMessage(m.MessageFactory().Create(msg.InfoGameEvent))
	frame(m, c, 0.1)

	s.Update(0)
	s.Update(0)
	assert.Empty(t, w.batches)
	s.Update(0)
	assert.Len(t, w.batches, 1)

	m.ProcessMessage(m.MessageFactory().Create(msg.InfoGameEvent))
	frame(m, c, 0.1)
	s.FlushNow()
	assert.Len(t, w.batches, 2)

	// an empty backlog is not written
	s.FlushNow()
	assert.Len(t, w.batches, 2)
}
