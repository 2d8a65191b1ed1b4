package actor

import (
	"fmt"
	"sort"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// PropertySpec declares a property every actor of a type starts with.
type PropertySpec struct {
	Name      string
	Kind      msg.DataType
	Default   any
	ReadOnly  bool
	Partial   bool // included in partial actor updates
	NoPublish bool // excluded from full actor updates
}

// Type describes a kind of actor: its category/name pair, whether instances
// take part in the message bus, and the properties they start with.
type Type struct {
	category    string
	name        string
	description string
	game        bool
	props       []PropertySpec
}

func NewType(category, name string, game bool, props ...PropertySpec) *Type {
	return &Type{category: category, name: name, game: game, props: props}
}

func (t *Type) Category() string              { return t.category }
func (t *Type) Name() string                  { return t.name }
func (t *Type) FullName() string              { return t.category + "." + t.name }
func (t *Type) IsGameActorType() bool         { return t.game }
func (t *Type) Description() string           { return t.description }
func (t *Type) SetDescription(d string)       { t.description = d }
func (t *Type) PropertySpecs() []PropertySpec { return t.props }

// Constructor builds a new, un-added actor of type t. A constructor for a
// game actor type must return the base proxy of a GameProxy.
type Constructor func(t *Type) (*Proxy, error)

type libraryEntry struct {
	typ  *Type
	ctor Constructor
}

// Library is the set of actor types an application can instantiate. It is
// built at startup and handed to the game manager.
type Library struct {
	entries map[string]*libraryEntry
}

func NewLibrary() *Library {
	return &Library{entries: make(map[string]*libraryEntry, 32)}
}

// Register adds a type. A nil ctor uses the default constructor, which
// creates a plain Proxy or a GameProxy with no behavior.
func (l *Library) Register(t *Type, ctor Constructor) error {
	if _, ok := l.entries[t.FullName()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.FullName())
	}
	l.entries[t.FullName()] = &libraryEntry{typ: t, ctor: ctor}
	return nil
}

// FindType looks a type up by category and name.
func (l *Library) FindType(category, name string) (*Type, bool) {
	e, ok := l.entries[category+"."+name]
	if !ok {
		return nil, false
	}
	return e.typ, true
}

// FindTypeByFullName looks a type up by its "category.name" form, as carried
// in actor-update messages.
func (l *Library) FindTypeByFullName(full string) (*Type, bool) {
	e, ok := l.entries[full]
	if !ok {
		return nil, false
	}
	return e.typ, true
}

// Types lists registered types ordered by full name.
func (l *Library) Types() []*Type {
	out := make([]*Type, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.typ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}

func (l *Library) Count() int { return len(l.entries) }

// Create instantiates an actor of type t with its declared properties.
func (l *Library) Create(t *Type) (*Proxy, error) {
	e, ok := l.entries[t.FullName()]
	if !ok || e.typ != t {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t.FullName())
	}
	var (
		p   *Proxy
		err error
	)
	if e.ctor != nil {
		p, err = e.ctor(t)
		if err != nil {
			return nil, fmt.Errorf("construct %s: %w", t.FullName(), err)
		}
	} else if t.game {
		p = NewGameProxy(t, nil).Proxy
	} else {
		p = NewProxy(t)
	}
	if t.game && !p.IsGameActor() {
		return nil, fmt.Errorf("construct %s: %w", t.FullName(), ErrNotGameActor)
	}
	for _, spec := range t.props {
		if p.Property(spec.Name) != nil {
			continue
		}
		if _, err := p.AddProperty(spec); err != nil {
			return nil, fmt.Errorf("construct %s: %w", t.FullName(), err)
		}
	}
	return p, nil
}

// CreateWithID is Create for an actor whose identity is already known, such
// as the local copy of an actor owned by another machine.
func (l *Library) CreateWithID(t *Type, id uid.ID) (*Proxy, error) {
	p, err := l.Create(t)
	if err != nil {
		return nil, err
	}
	p.id = id
	return p, nil
}

// CreateByName is Create for a category/name pair.
func (l *Library) CreateByName(category, name string) (*Proxy, error) {
	t, ok := l.FindType(category, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownType, category, name)
	}
	return l.Create(t)
}
