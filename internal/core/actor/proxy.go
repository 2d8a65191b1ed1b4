package actor

import (
	"fmt"

	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// Proxy is the identity and property holder of an actor. Plain actors are a
// bare Proxy; game actors are a GameProxy whose embedded Proxy points back
// at it, so code holding a *Proxy can tell the two apart without casting.
type Proxy struct {
	id       uid.ID
	typ      *Type
	name     string
	props    *PropertyList
	parent   *Proxy
	children []*Proxy
	game     *GameProxy
}

// NewProxy creates a plain actor of type t with a fresh id.
func NewProxy(t *Type) *Proxy {
	return NewProxyWithID(t, uid.New())
}

// NewProxyWithID creates a plain actor with a caller-supplied id, as map
// files do. A null id gets a fresh one.
func NewProxyWithID(t *Type, id uid.ID) *Proxy {
	if id.IsNull() {
		id = uid.New()
	}
	return &Proxy{id: id, typ: t, name: t.Name(), props: newPropertyList()}
}

func (p *Proxy) ID() uid.ID                     { return p.id }
func (p *Proxy) Type() *Type                    { return p.typ }
func (p *Proxy) Name() string                   { return p.name }
func (p *Proxy) SetName(name string)            { p.name = name }
func (p *Proxy) Properties() *PropertyList      { return p.props }
func (p *Proxy) Property(name string) *Property { return p.props.Get(name) }
func (p *Proxy) Parent() *Proxy                 { return p.parent }
func (p *Proxy) IsGameActor() bool              { return p.game != nil }

// AddProperty declares a new property on this actor.
func (p *Proxy) AddProperty(spec PropertySpec) (*Property, error) {
	return p.props.add(spec)
}

// Game returns the game-actor view of p, or ErrNotGameActor.
func (p *Proxy) Game() (*GameProxy, error) {
	if p.game == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotGameActor, p.typ.FullName(), p.id)
	}
	return p.game, nil
}

// Children returns a copy of the child list.
func (p *Proxy) Children() []*Proxy {
	out := make([]*Proxy, len(p.children))
	copy(out, p.children)
	return out
}

// Subtree lists p and all of its descendants depth first, each parent
// before its children.
func (p *Proxy) Subtree() []*Proxy {
	return p.appendSubtree(nil)
}

func (p *Proxy) appendSubtree(out []*Proxy) []*Proxy {
	out = append(out, p)
	for _, c := range p.children {
		out = c.appendSubtree(out)
	}
	return out
}

// SetParent moves p under parent. A nil parent detaches p.
func (p *Proxy) SetParent(parent *Proxy) error {
	if parent == p.parent {
		return nil
	}
	for a := parent; a != nil; a = a.parent {
		if a == p {
			return fmt.Errorf("%w: %s would become its own ancestor", ErrInvalidParent, p.id)
		}
	}
	if p.parent != nil {
		p.parent.removeChild(p)
	}
	p.parent = parent
	if parent != nil {
		parent.children = append(parent.children, p)
	}
	return nil
}

func (p *Proxy) removeChild(c *Proxy) {
	for i, x := range p.children {
		if x == c {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

// CopyPropertiesFrom copies every property both actors share. The name is
// copied too; the id never is.
func (p *Proxy) CopyPropertiesFrom(src *Proxy) {
	p.name = src.name
	src.props.Each(func(sp *Property) {
		if dp := p.props.Get(sp.Name()); dp != nil && dp.Kind() == sp.Kind() {
			dp.Param.SetFrom(sp.Param)
		}
	})
}

func (p *Proxy) String() string {
	return fmt.Sprintf("%s[%s %q]", p.typ.FullName(), p.id, p.name)
}
