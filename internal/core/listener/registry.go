package listener

import (
	"errors"
	"fmt"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

var ErrDuplicate = errors.New("listener already registered")

// Handle identifies one registration. It encodes a 32-bit slot index in the
// lower bits and a 32-bit generation in the upper bits; the generation moves
// on unregister so stale handles stop matching.
type Handle uint64

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == 0 }

// Entry is one subscription: messages of Type (about About, or any actor
// when About is null) go to the Invokable named on the Listener actor.
type Entry struct {
	Type      *msg.Type
	About     uid.ID
	Listener  uid.ID
	Invokable string
}

// IsGlobal reports whether the entry matches messages about any actor.
func (e Entry) IsGlobal() bool { return e.About.IsNull() }

func (e Entry) String() string {
	if e.IsGlobal() {
		return fmt.Sprintf("%s -> %s/%q", e.Type.Name(), e.Listener, e.Invokable)
	}
	return fmt.Sprintf("%s about %s -> %s/%q", e.Type.Name(), e.About, e.Listener, e.Invokable)
}

// Registration pairs an entry with its handle.
type Registration struct {
	Handle Handle
	Entry
}

type slot struct {
	gen   uint32
	live  bool
	entry Entry
}

// Registry holds global and per-target subscriptions. Unregistering is O(1)
// through the handle: the slot is retired at once and the ordered lists that
// reference it are compacted the next time they are read.
type Registry struct {
	slots      []slot
	freeList   []uint32
	global     map[*msg.Type][]Handle
	about      map[*msg.Type]map[uid.ID][]Handle
	byListener map[uid.ID][]Handle
	live       int
}

func NewRegistry() *Registry {
	return &Registry{
		slots:      make([]slot, 0, 256),
		freeList:   make([]uint32, 0, 64),
		global:     make(map[*msg.Type][]Handle, 32),
		about:      make(map[*msg.Type]map[uid.ID][]Handle, 32),
		byListener: make(map[uid.ID][]Handle, 64),
	}
}

// Len is the number of live registrations.
func (r *Registry) Len() int { return r.live }

// Alive reports whether h still names a live registration.
func (r *Registry) Alive(h Handle) bool {
	idx := h.Index()
	if int(idx) >= len(r.slots) {
		return false
	}
	s := &r.slots[idx]
	return s.live && s.gen == h.Generation()
}

// Lookup returns the entry behind a live handle.
func (r *Registry) Lookup(h Handle) (Entry, bool) {
	if !r.Alive(h) {
		return Entry{}, false
	}
	return r.slots[h.Index()].entry, true
}

func (r *Registry) alloc(e Entry) Handle {
	var idx uint32
	if n := len(r.freeList); n > 0 {
		idx = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
	} else {
		idx = uint32(len(r.slots))
		// generation starts at 1 so the zero Handle is never valid
		r.slots = append(r.slots, slot{gen: 1})
	}
	s := &r.slots[idx]
	s.live = true
	s.entry = e
	r.live++
	return newHandle(idx, s.gen)
}

// RegisterGlobal subscribes listener's invokable to every message of type t.
func (r *Registry) RegisterGlobal(t *msg.Type, listener uid.ID, invokable string) (Handle, error) {
	e := Entry{Type: t, Listener: listener, Invokable: invokable}
	if r.find(r.global[t], listener, invokable) != 0 {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, e)
	}
	h := r.alloc(e)
	r.global[t] = append(r.compact(r.global[t]), h)
	r.byListener[listener] = append(r.compact(r.byListener[listener]), h)
	return h, nil
}

// RegisterAbout subscribes listener's invokable to messages of type t
// about the target actor.
func (r *Registry) RegisterAbout(t *msg.Type, target, listener uid.ID, invokable string) (Handle, error) {
	e := Entry{Type: t, About: target, Listener: listener, Invokable: invokable}
	if target.IsNull() {
		return 0, fmt.Errorf("per-target registration needs a target: %s", e)
	}
	byTarget := r.about[t]
	if byTarget == nil {
		byTarget = make(map[uid.ID][]Handle, 4)
		r.about[t] = byTarget
	}
	if r.find(byTarget[target], listener, invokable) != 0 {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, e)
	}
	h := r.alloc(e)
	byTarget[target] = append(r.compact(byTarget[target]), h)
	r.byListener[listener] = append(r.compact(r.byListener[listener]), h)
	return h, nil
}

func (r *Registry) find(list []Handle, listener uid.ID, invokable string) Handle {
	for _, h := range list {
		if !r.Alive(h) {
			continue
		}
		e := &r.slots[h.Index()].entry
		if e.Listener == listener && e.Invokable == invokable {
			return h
		}
	}
	return 0
}

// Unregister retires a registration. Stale or zero handles are ignored.
func (r *Registry) Unregister(h Handle) bool {
	if !r.Alive(h) {
		return false
	}
	s := &r.slots[h.Index()]
	s.live = false
	s.gen++
	s.entry = Entry{}
	r.freeList = append(r.freeList, h.Index())
	r.live--
	return true
}

// UnregisterGlobal removes one global registration by its key.
func (r *Registry) UnregisterGlobal(t *msg.Type, listener uid.ID, invokable string) bool {
	return r.Unregister(r.find(r.global[t], listener, invokable))
}

// UnregisterAbout removes one per-target registration by its key.
func (r *Registry) UnregisterAbout(t *msg.Type, target, listener uid.ID, invokable string) bool {
	return r.Unregister(r.find(r.about[t][target], listener, invokable))
}

// UnregisterAllForActor drops every registration in which id is the
// listener, and every per-target registration about id.
func (r *Registry) UnregisterAllForActor(id uid.ID) int {
	n := 0
	for _, h := range r.byListener[id] {
		if r.Unregister(h) {
			n++
		}
	}
	delete(r.byListener, id)
	for _, byTarget := range r.about {
		list, ok := byTarget[id]
		if !ok {
			continue
		}
		for _, h := range list {
			if r.Unregister(h) {
				n++
			}
		}
		delete(byTarget, id)
	}
	return n
}

// Global returns the live global registrations for t in registration order.
// The result is a snapshot; the registry may change while it is walked.
func (r *Registry) Global(t *msg.Type) []Registration {
	list := r.compact(r.global[t])
	if len(list) == 0 {
		delete(r.global, t)
		return nil
	}
	r.global[t] = list
	return r.snapshot(list)
}

// About returns the live registrations for messages of type t about target.
func (r *Registry) About(t *msg.Type, target uid.ID) []Registration {
	byTarget := r.about[t]
	if byTarget == nil {
		return nil
	}
	list := r.compact(byTarget[target])
	if len(list) == 0 {
		delete(byTarget, target)
		return nil
	}
	byTarget[target] = list
	return r.snapshot(list)
}

// Each walks every live registration in slot order.
func (r *Registry) Each(fn func(Registration)) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			fn(Registration{Handle: newHandle(uint32(i), s.gen), Entry: s.entry})
		}
	}
}

// Clear drops every registration. Outstanding handles go stale.
func (r *Registry) Clear() {
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			s.live = false
			s.gen++
			s.entry = Entry{}
			r.freeList = append(r.freeList, uint32(i))
		}
	}
	r.live = 0
	r.global = make(map[*msg.Type][]Handle, 32)
	r.about = make(map[*msg.Type]map[uid.ID][]Handle, 32)
	r.byListener = make(map[uid.ID][]Handle, 64)
}

func (r *Registry) compact(list []Handle) []Handle {
	kept := list[:0]
	for _, h := range list {
		if r.Alive(h) {
			kept = append(kept, h)
		}
	}
	return kept
}

func (r *Registry) snapshot(list []Handle) []Registration {
	out := make([]Registration, len(list))
	for i, h := range list {
		out[i] = Registration{Handle: h, Entry: r.slots[h.Index()].entry}
	}
	return out
}
