package msg

// Factory creates messages stamped with the local machine as their source.
type Factory struct {
	name    string
	machine *MachineInfo
}

func NewFactory(name string, machine *MachineInfo) *Factory {
	return &Factory{name: name, machine: machine}
}

func (f *Factory) Name() string          { return f.name }
func (f *Factory) Machine() *MachineInfo { return f.machine }

// Create returns a zeroed message of type t sourced from the local machine.
func (f *Factory) Create(t *Type) *Message {
	return New(t, f.machine)
}

// CreateRejection builds a SERVER_REQUEST_REJECTED reply addressed to the
// machine that sent cause.
func (f *Factory) CreateRejection(cause *Message, reason string) *Message {
	m := f.Create(ServerRequestRejected)
	m.SetCausingMessage(cause)
	m.SetParam(ParamCause, reason)
	m.SetDestination(cause.Source())
	m.SetAboutActorID(cause.AboutActorID())
	return m
}
