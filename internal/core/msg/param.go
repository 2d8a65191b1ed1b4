package msg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/l1jgo/gamemanager/internal/core/uid"
)

var (
	ErrTypeMismatch   = errors.New("parameter type mismatch")
	ErrDuplicateParam = errors.New("duplicate parameter name")
	ErrUnknownParam   = errors.New("unknown parameter")
)

// DataType is the value kind carried by a Param or an actor property.
type DataType int

const (
	TypeBool DataType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeActorID
	TypeVec3
)

func (d DataType) String() string {
	switch d {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeActorID:
		return "actor_id"
	case TypeVec3:
		return "vec3"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// ParseDataType maps the names used in YAML data files to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(s) {
	case "bool", "boolean":
		return TypeBool, nil
	case "int", "integer":
		return TypeInt, nil
	case "float", "double":
		return TypeFloat, nil
	case "string", "":
		return TypeString, nil
	case "actor_id", "actor":
		return TypeActorID, nil
	case "vec3":
		return TypeVec3, nil
	}
	return TypeString, fmt.Errorf("unknown data type %q", s)
}

// Vec3 is a position/rotation triple.
type Vec3 [3]float64

// Param is a named, typed value. Values are normalized on Set:
// Int is stored as int64, Float as float64, ActorID as uid.ID.
type Param struct {
	name  string
	kind  DataType
	value any
}

// NewParam returns a zeroed parameter of the given kind.
func NewParam(name string, kind DataType) *Param {
	return &Param{name: name, kind: kind, value: zeroValue(kind)}
}

func zeroValue(kind DataType) any {
	switch kind {
	case TypeBool:
		return false
	case TypeInt:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeActorID:
		return uid.Null
	case TypeVec3:
		return Vec3{}
	default:
		return ""
	}
}

func (p *Param) Name() string    { return p.name }
func (p *Param) Kind() DataType  { return p.kind }
func (p *Param) Value() any      { return p.value }
func (p *Param) Bool() bool      { v, _ := p.value.(bool); return v }
func (p *Param) Int() int64      { v, _ := p.value.(int64); return v }
func (p *Param) Float() float64  { v, _ := p.value.(float64); return v }
func (p *Param) Str() string     { v, _ := p.value.(string); return v }
func (p *Param) ActorID() uid.ID { v, _ := p.value.(uid.ID); return v }
func (p *Param) Vec3() Vec3      { v, _ := p.value.(Vec3); return v }

func (p *Param) Clone() *Param {
	c := *p
	return &c
}

// Set assigns v after converting it to the parameter's kind.
// The stored value is left untouched on error.
func (p *Param) Set(v any) error {
	nv, err := coerce(p.kind, v)
	if err != nil {
		return fmt.Errorf("set %s (%s): %w", p.name, p.kind, err)
	}
	p.value = nv
	return nil
}

// SetFrom copies the value of another parameter of a compatible kind.
func (p *Param) SetFrom(o *Param) error {
	return p.Set(o.value)
}

func coerce(kind DataType, v any) (any, error) {
	switch kind {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case float64:
			// JSON and Lua numbers arrive as float64
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int32:
			return float64(n), nil
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeActorID:
		switch id := v.(type) {
		case uid.ID:
			return id, nil
		case string:
			return uid.Parse(id)
		}
	case TypeVec3:
		switch vec := v.(type) {
		case Vec3:
			return vec, nil
		case []float64:
			if len(vec) == 3 {
				return Vec3{vec[0], vec[1], vec[2]}, nil
			}
		case []any:
			if len(vec) == 3 {
				var out Vec3
				for i, e := range vec {
					f, err := coerce(TypeFloat, e)
					if err != nil {
						return nil, err
					}
					out[i] = f.(float64)
				}
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, v, kind)
}

// String renders the value the way it is written in data files.
func (p *Param) String() string {
	switch v := p.value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case uid.ID:
		return v.String()
	case Vec3:
		return fmt.Sprintf("%g,%g,%g", v[0], v[1], v[2])
	case string:
		return v
	}
	return fmt.Sprint(p.value)
}

// ParamList is an ordered set of uniquely named parameters.
type ParamList struct {
	order  []*Param
	byName map[string]*Param
}

func NewParamList() *ParamList {
	return &ParamList{byName: make(map[string]*Param)}
}

// Add appends a zeroed parameter. Names must be unique within the list.
func (l *ParamList) Add(name string, kind DataType) (*Param, error) {
	if _, ok := l.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateParam, name)
	}
	p := NewParam(name, kind)
	l.order = append(l.order, p)
	l.byName[name] = p
	return p, nil
}

// Get returns the named parameter, or nil.
func (l *ParamList) Get(name string) *Param {
	if l == nil {
		return nil
	}
	return l.byName[name]
}

func (l *ParamList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Each visits parameters in insertion order.
func (l *ParamList) Each(fn func(*Param)) {
	if l == nil {
		return
	}
	for _, p := range l.order {
		fn(p)
	}
}

// Values returns the parameters as a name to value map. Actor ids stay
// strings and vectors stay three-element arrays, so the map encodes as
// plain JSON.
func (l *ParamList) Values() map[string]any {
	out := make(map[string]any, l.Len())
	l.Each(func(p *Param) { out[p.name] = p.value })
	return out
}

func (l *ParamList) Clone() *ParamList {
	c := &ParamList{
		order:  make([]*Param, 0, len(l.order)),
		byName: make(map[string]*Param, len(l.order)),
	}
	for _, p := range l.order {
		cp := p.Clone()
		c.order = append(c.order, cp)
		c.byName[cp.name] = cp
	}
	return c
}
