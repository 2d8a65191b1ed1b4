package actor

import (
	"fmt"

	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// Property is a named, typed value on an actor. The value itself is a
// msg.Param so it can be copied in and out of actor-update messages.
type Property struct {
	*msg.Param
	readOnly  bool
	partial   bool
	noPublish bool
}

func newProperty(spec PropertySpec) (*Property, error) {
	p := &Property{
		Param:     msg.NewParam(spec.Name, spec.Kind),
		readOnly:  spec.ReadOnly,
		partial:   spec.Partial,
		noPublish: spec.NoPublish,
	}
	if spec.Default != nil {
		if err := p.Param.Set(spec.Default); err != nil {
			return nil, fmt.Errorf("default for %s: %w", spec.Name, err)
		}
	}
	return p, nil
}

func (p *Property) IsReadOnly() bool { return p.readOnly }

// SendInPartialUpdate reports whether the property goes out in partial
// actor updates.
func (p *Property) SendInPartialUpdate() bool { return p.partial }

// Set assigns the value unless the property is read only.
func (p *Property) Set(v any) error {
	if p.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnlyProperty, p.Name())
	}
	return p.Param.Set(v)
}

// PropertyList keeps properties in declaration order.
type PropertyList struct {
	order  []*Property
	byName map[string]*Property
}

func newPropertyList() *PropertyList {
	return &PropertyList{byName: make(map[string]*Property, 8)}
}

func (l *PropertyList) add(spec PropertySpec) (*Property, error) {
	if _, ok := l.byName[spec.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateProperty, spec.Name)
	}
	p, err := newProperty(spec)
	if err != nil {
		return nil, err
	}
	l.order = append(l.order, p)
	l.byName[spec.Name] = p
	return p, nil
}

func (l *PropertyList) Get(name string) *Property { return l.byName[name] }
func (l *PropertyList) Len() int                  { return len(l.order) }

func (l *PropertyList) Each(fn func(*Property)) {
	for _, p := range l.order {
		fn(p)
	}
}
