package gm

import "errors"

var (
	ErrDuplicateActor      = errors.New("actor id already in the game manager")
	ErrDuplicateComponent  = errors.New("component name already in use")
	ErrActorIsRemote       = errors.New("operation not allowed on a remote actor")
	ErrActorNotInGM        = errors.New("actor is not in the game manager")
	ErrMapChangeInProgress = errors.New("map change already in progress")
	ErrNoMapLoader         = errors.New("no map loader configured")
	ErrShutdown            = errors.New("game manager is shut down")
	ErrNullActorID         = errors.New("actor has a null id")
)
