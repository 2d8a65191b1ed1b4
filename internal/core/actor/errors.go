package actor

import "errors"

var (
	ErrDuplicateInvokable = errors.New("invokable already exists")
	ErrUnknownInvokable   = errors.New("no invokable by that name")
	ErrDuplicateHandler   = errors.New("handler already registered for message type")
	ErrDuplicateProperty  = errors.New("property already exists")
	ErrUnknownProperty    = errors.New("unknown property")
	ErrReadOnlyProperty   = errors.New("property is read only")
	ErrDuplicateType      = errors.New("actor type already registered")
	ErrUnknownType        = errors.New("unknown actor type")
	ErrNotGameActor       = errors.New("actor is not a game actor")
	ErrNotInGM            = errors.New("actor is not in the game manager")
	ErrInvalidParent      = errors.New("invalid parent actor")
)
