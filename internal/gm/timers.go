package gm

import (
	"sort"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

type timer struct {
	name     string
	about    uid.ID
	interval int64 // microseconds
	fireAt   int64
	repeat   bool
	seq      uint64
}

// SetTimer arranges for an INFO_TIMER_ELAPSED named name, about the given
// actor, after seconds have passed on the real or simulation clock. A timer
// with the same name and actor is replaced.
func (m *Manager) SetTimer(name string, about uid.ID, seconds float64, repeat, realTime bool) {
	m.ClearTimer(name, about)
	interval := int64(seconds * 1e6)
	if interval < 0 {
		interval = 0
	}
	now, list := m.clock.SimulationClockTime(), &m.simTimers
	if realTime {
		now, list = m.clock.RealClockTime(), &m.realTimers
	}
	m.timerSeq++
	*list = append(*list, &timer{
		name:     name,
		about:    about,
		interval: interval,
		fireAt:   now + interval,
		repeat:   repeat,
		seq:      m.timerSeq,
	})
}

// ClearTimer cancels the timer with the given name and actor on both clocks.
func (m *Manager) ClearTimer(name string, about uid.ID) {
	match := func(t *timer) bool { return t.name == name && t.about == about }
	m.realTimers = removeTimers(m.realTimers, match)
	m.simTimers = removeTimers(m.simTimers, match)
}

// TimerCount is the number of armed timers on both clocks.
func (m *Manager) TimerCount() int { return len(m.realTimers) + len(m.simTimers) }

func (m *Manager) clearTimersForActor(id uid.ID) {
	match := func(t *timer) bool { return t.about == id }
	m.realTimers = removeTimers(m.realTimers, match)
	m.simTimers = removeTimers(m.simTimers, match)
}

func removeTimers(list []*timer, match func(*timer) bool) []*timer {
	kept := list[:0]
	for _, t := range list {
		if !match(t) {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(list); i++ {
		list[i] = nil
	}
	return kept
}

// processTimers queues an INFO_TIMER_ELAPSED for every timer due at now, in
// due-time order. Repeating timers fire at most once per frame and are
// re-armed from their previous due time.
func (m *Manager) processTimers(list *[]*timer, now int64) {
	var due []*timer
	for _, t := range *list {
		if t.fireAt <= now {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].fireAt != due[j].fireAt {
			return due[i].fireAt < due[j].fireAt
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		e := m.factory.Create(msg.InfoTimerElapsed)
		e.SetDestination(m.machine)
		e.SetAboutActorID(t.about)
		e.SetParam(msg.ParamTimerName, t.name)
		e.SetParam(msg.ParamLateTime, float64(now-t.fireAt)/1e6)
		m.ProcessMessage(e)
		if t.repeat {
			t.fireAt += t.interval
		}
	}
	*list = removeTimers(*list, func(t *timer) bool { return !t.repeat && t.fireAt <= now })
}
