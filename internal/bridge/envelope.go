package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// wireVersion is bumped when the envelope layout changes incompatibly.
const wireVersion = 1

type wireMachine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Hostname string `json:"hostname,omitempty"`
}

type wireParam struct {
	Name  string `json:"n"`
	Kind  string `json:"k"`
	Value any    `json:"v"`
}

// Envelope is the JSON form of a message on the bus.
type Envelope struct {
	Version     int          `json:"ver"`
	Type        string       `json:"type"`
	Source      wireMachine  `json:"src"`
	Destination *wireMachine `json:"dst,omitempty"`
	About       string       `json:"about,omitempty"`
	Sending     string       `json:"sending,omitempty"`
	Params      []wireParam  `json:"params,omitempty"`

	ActorName string      `json:"actor_name,omitempty"`
	ActorType string      `json:"actor_type,omitempty"`
	Parent    *string     `json:"parent,omitempty"`
	Partial   bool        `json:"partial,omitempty"`
	Prototype string      `json:"prototype,omitempty"`
	Updates   []wireParam `json:"updates,omitempty"`
}

func toWireMachine(mi *msg.MachineInfo) wireMachine {
	return wireMachine{ID: mi.ID.String(), Name: mi.Name, Hostname: mi.Hostname}
}

func (w wireMachine) machine() (*msg.MachineInfo, error) {
	id, err := uid.Parse(w.ID)
	if err != nil {
		return nil, err
	}
	return &msg.MachineInfo{ID: id, Name: w.Name, Hostname: w.Hostname}, nil
}

func toWireParams(l *msg.ParamList) []wireParam {
	if l.Len() == 0 {
		return nil
	}
	out := make([]wireParam, 0, l.Len())
	l.Each(func(p *msg.Param) {
		out = append(out, wireParam{Name: p.Name(), Kind: p.Kind().String(), Value: p.Value()})
	})
	return out
}

// Encode renders m as an envelope. Messages without a source cannot be
// routed back and are rejected.
func Encode(m *msg.Message) ([]byte, error) {
	if m.Source() == nil {
		return nil, fmt.Errorf("encode %s: message has no source", m.Type())
	}
	env := Envelope{
		Version: wireVersion,
		Type:    m.Type().Name(),
		Source:  toWireMachine(m.Source()),
		Params:  toWireParams(m.Params()),
	}
	if d := m.Destination(); d != nil {
		w := toWireMachine(d)
		env.Destination = &w
	}
	if id := m.AboutActorID(); !id.IsNull() {
		env.About = id.String()
	}
	if id := m.SendingActorID(); !id.IsNull() {
		env.Sending = id.String()
	}
	if m.Type().IsActorUpdate() {
		env.ActorName = m.ActorName()
		env.ActorType = m.ActorType()
		env.Partial = m.IsPartialUpdate()
		env.Updates = toWireParams(m.UpdateParams())
		if pid, ok := m.ParentID(); ok {
			s := pid.String()
			env.Parent = &s
		}
		if id := m.PrototypeID(); !id.IsNull() {
			env.Prototype = id.String()
		}
	}
	return json.Marshal(env)
}

// Decode rebuilds a message from an envelope. Parameters not in the type's
// schema are added with the kind the sender declared.
func Decode(data []byte) (*msg.Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != wireVersion {
		return nil, fmt.Errorf("decode envelope: unsupported version %d", env.Version)
	}
	t, ok := msg.TypeByName(env.Type)
	if !ok {
		return nil, fmt.Errorf("decode envelope: unknown message type %q", env.Type)
	}
	src, err := env.Source.machine()
	if err != nil {
		return nil, fmt.Errorf("decode envelope source: %w", err)
	}
	m := msg.New(t, src)
	if env.Destination != nil {
		dst, err := env.Destination.machine()
		if err != nil {
			return nil, fmt.Errorf("decode envelope destination: %w", err)
		}
		m.SetDestination(dst)
	}
	if err := setIDs(m, env); err != nil {
		return nil, err
	}
	for _, wp := range env.Params {
		p := m.Param(wp.Name)
		if p == nil {
			kind, err := msg.ParseDataType(wp.Kind)
			if err != nil {
				return nil, fmt.Errorf("decode %s param %s: %w", env.Type, wp.Name, err)
			}
			if p, err = m.Params().Add(wp.Name, kind); err != nil {
				return nil, err
			}
		}
		if err := p.Set(wp.Value); err != nil {
			return nil, fmt.Errorf("decode %s param %s: %w", env.Type, wp.Name, err)
		}
	}
	if !t.IsActorUpdate() {
		return m, nil
	}

	m.SetActorName(env.ActorName)
	m.SetActorType(env.ActorType)
	m.SetPartialUpdate(env.Partial)
	if env.Parent != nil {
		pid, err := uid.Parse(*env.Parent)
		if err != nil {
			return nil, fmt.Errorf("decode %s parent: %w", env.Type, err)
		}
		m.SetParentID(pid)
	}
	if env.Prototype != "" {
		pid, err := uid.Parse(env.Prototype)
		if err != nil {
			return nil, fmt.Errorf("decode %s prototype: %w", env.Type, err)
		}
		m.SetPrototypeID(pid)
	}
	for _, wp := range env.Updates {
		kind, err := msg.ParseDataType(wp.Kind)
		if err != nil {
			return nil, fmt.Errorf("decode %s update %s: %w", env.Type, wp.Name, err)
		}
		p, err := m.AddUpdateParam(wp.Name, kind)
		if err != nil {
			return nil, err
		}
		if err := p.Set(wp.Value); err != nil {
			return nil, fmt.Errorf("decode %s update %s: %w", env.Type, wp.Name, err)
		}
	}
	return m, nil
}

func setIDs(m *msg.Message, env Envelope) error {
	about, err := uid.Parse(env.About)
	if err != nil {
		return fmt.Errorf("decode %s about: %w", env.Type, err)
	}
	sending, err := uid.Parse(env.Sending)
	if err != nil {
		return fmt.Errorf("decode %s sending: %w", env.Type, err)
	}
	m.SetAboutActorID(about)
	m.SetSendingActorID(sending)
	return nil
}
