package msg

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrDuplicateType = errors.New("duplicate message type")

// Category groups message types the way they are published on the bus.
type Category int

const (
	CategoryTick Category = iota
	CategoryInfo
	CategoryCommand
	CategoryRequest
	CategoryServer
	CategoryUser
)

func (c Category) String() string {
	switch c {
	case CategoryTick:
		return "Tick"
	case CategoryInfo:
		return "Info"
	case CategoryCommand:
		return "Command"
	case CategoryRequest:
		return "Request"
	case CategoryServer:
		return "Server"
	case CategoryUser:
		return "User"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ParamSpec declares one parameter of a message type's schema.
type ParamSpec struct {
	Name string
	Kind DataType
}

// Type is a canonical message type. Exactly one *Type exists per name, so
// registries key on the pointer and compare by identity.
type Type struct {
	name        string
	category    Category
	id          uint16
	params      []ParamSpec
	actorUpdate bool
}

func (t *Type) Name() string          { return t.name }
func (t *Type) Category() Category    { return t.category }
func (t *Type) ID() uint16            { return t.id }
func (t *Type) Params() []ParamSpec   { return t.params }
func (t *Type) IsActorUpdate() bool   { return t.actorUpdate }
func (t *Type) String() string        { return t.name }
func (t *Type) Less(other *Type) bool { return t.id < other.id }

// types is filled by package init here and in packages that declare their
// own message types. RegisterType is exported, so the table is locked for
// callers outside the game goroutine such as parallel tests.
var types = struct {
	mu     sync.RWMutex
	byName map[string]*Type
	byID   map[uint16]*Type
}{
	byName: make(map[string]*Type, 64),
	byID:   make(map[uint16]*Type, 64),
}

// RegisterType creates the canonical instance for a new message type.
// Names and ids are unique across all types.
func RegisterType(name string, category Category, id uint16, params ...ParamSpec) (*Type, error) {
	return register(&Type{name: name, category: category, id: id, params: params})
}

// MustRegisterType is RegisterType for package-level declarations.
func MustRegisterType(name string, category Category, id uint16, params ...ParamSpec) *Type {
	t, err := RegisterType(name, category, id, params...)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRegisterActorUpdate(name string, id uint16) *Type {
	t, err := register(&Type{name: name, category: CategoryInfo, id: id, actorUpdate: true})
	if err != nil {
		panic(err)
	}
	return t
}

func register(t *Type) (*Type, error) {
	types.mu.Lock()
	defer types.mu.Unlock()
	if _, ok := types.byName[t.name]; ok {
		return nil, fmt.Errorf("%w: name %s", ErrDuplicateType, t.name)
	}
	if other, ok := types.byID[t.id]; ok {
		return nil, fmt.Errorf("%w: id %d already used by %s", ErrDuplicateType, t.id, other.name)
	}
	types.byName[t.name] = t
	types.byID[t.id] = t
	return t, nil
}

// TypeByName returns the canonical type registered under name.
func TypeByName(name string) (*Type, bool) {
	types.mu.RLock()
	defer types.mu.RUnlock()
	t, ok := types.byName[name]
	return t, ok
}

// TypeByID returns the canonical type registered under id.
func TypeByID(id uint16) (*Type, bool) {
	types.mu.RLock()
	defer types.mu.RUnlock()
	t, ok := types.byID[id]
	return t, ok
}

// Types lists every registered type ordered by id.
func Types() []*Type {
	types.mu.RLock()
	out := make([]*Type, 0, len(types.byID))
	for _, t := range types.byID {
		out = append(out, t)
	}
	types.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
