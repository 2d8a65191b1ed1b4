package msg

import (
	"fmt"

	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// MachineInfo identifies a participant on the bus (this process or a peer).
type MachineInfo struct {
	ID       uid.ID
	Name     string
	Hostname string
}

// NewMachineInfo returns a machine identity with a fresh id.
func NewMachineInfo(name, hostname string) *MachineInfo {
	return &MachineInfo{ID: uid.New(), Name: name, Hostname: hostname}
}

// Equal compares machines by id. A nil machine equals only nil.
func (m *MachineInfo) Equal(o *MachineInfo) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.ID == o.ID
}

func (m *MachineInfo) String() string {
	if m == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s(%s)", m.Name, m.ID)
}

// Message is a structured event routed by the game manager. Messages are
// built by a Factory, filled in by the sender, and treated as read-only once
// they have been enqueued.
type Message struct {
	typ     *Type
	source  *MachineInfo
	dest    *MachineInfo
	about   uid.ID
	sending uid.ID
	params  *ParamList

	// actor-update types only
	actorName   string
	actorType   string
	parentID    uid.ID
	parentSet   bool
	partial     bool
	updates     *ParamList
	prototypeID uid.ID

	// rejection only
	causing *Message
}

// New builds a zeroed message of type t. Use Factory.Create for messages
// originating on this machine.
func New(t *Type, source *MachineInfo) *Message {
	m := &Message{typ: t, source: source, params: NewParamList()}
	for _, ps := range t.params {
		m.params.Add(ps.Name, ps.Kind)
	}
	if t.actorUpdate {
		m.updates = NewParamList()
	}
	return m
}

func (m *Message) Type() *Type               { return m.typ }
func (m *Message) Source() *MachineInfo      { return m.source }
func (m *Message) Destination() *MachineInfo { return m.dest }
func (m *Message) AboutActorID() uid.ID      { return m.about }
func (m *Message) SendingActorID() uid.ID    { return m.sending }
func (m *Message) Params() *ParamList        { return m.params }
func (m *Message) CausingMessage() *Message  { return m.causing }

func (m *Message) SetSource(src *MachineInfo)      { m.source = src }
func (m *Message) SetDestination(dst *MachineInfo) { m.dest = dst }
func (m *Message) SetAboutActorID(id uid.ID)       { m.about = id }
func (m *Message) SetSendingActorID(id uid.ID)     { m.sending = id }
func (m *Message) SetCausingMessage(c *Message)    { m.causing = c }

// Param returns the named schema parameter, or nil.
func (m *Message) Param(name string) *Param { return m.params.Get(name) }

// SetParam assigns a schema parameter.
func (m *Message) SetParam(name string, v any) error {
	p := m.params.Get(name)
	if p == nil {
		return fmt.Errorf("%w: %s on %s", ErrUnknownParam, name, m.typ.name)
	}
	return p.Set(v)
}

func (m *Message) Float(name string) float64 {
	if p := m.params.Get(name); p != nil {
		return p.Float()
	}
	return 0
}

func (m *Message) Str(name string) string {
	if p := m.params.Get(name); p != nil {
		return p.Str()
	}
	return ""
}

func (m *Message) Int(name string) int64 {
	if p := m.params.Get(name); p != nil {
		return p.Int()
	}
	return 0
}

// Cause is the reason text of a rejection message.
func (m *Message) Cause() string { return m.Str(ParamCause) }

// ActorName, ActorType and the update parameters are carried by actor-update
// messages (created/updated). They are empty on every other type.
func (m *Message) ActorName() string        { return m.actorName }
func (m *Message) ActorType() string        { return m.actorType }
func (m *Message) IsPartialUpdate() bool    { return m.partial }
func (m *Message) SetActorName(name string) { m.actorName = name }
func (m *Message) SetActorType(full string) { m.actorType = full }
func (m *Message) SetPartialUpdate(p bool)  { m.partial = p }
func (m *Message) PrototypeID() uid.ID      { return m.prototypeID }
func (m *Message) SetPrototypeID(id uid.ID) { m.prototypeID = id }
func (m *Message) UpdateParams() *ParamList { return m.updates }
func (m *Message) ParentID() (uid.ID, bool) { return m.parentID, m.parentSet }
func (m *Message) SetParentID(id uid.ID)    { m.parentID, m.parentSet = id, true }

// AddUpdateParam appends an update parameter to an actor-update message.
func (m *Message) AddUpdateParam(name string, kind DataType) (*Param, error) {
	if m.updates == nil {
		return nil, fmt.Errorf("%s is not an actor update message", m.typ.name)
	}
	return m.updates.Add(name, kind)
}

func (m *Message) String() string {
	return fmt.Sprintf("%s{source=%s about=%s sending=%s}", m.typ.name, m.source, m.about, m.sending)
}
