package gm

import (
	"time"

	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// Metrics receives frame-loop measurements.
type Metrics interface {
	FrameDone(d time.Duration, processed, sent int)
	MessageProcessed(t *msg.Type)
	MessageSent(t *msg.Type)
	HandlerPanic(where string)
	Actors(game, plain, prototypes int)
}

type nopMetrics struct{}

func (nopMetrics) FrameDone(time.Duration, int, int) {}
func (nopMetrics) MessageProcessed(*msg.Type)        {}
func (nopMetrics) MessageSent(*msg.Type)             {}
func (nopMetrics) HandlerPanic(string)               {}
func (nopMetrics) Actors(int, int, int)              {}

// Stats are running totals kept by the frame loop.
type Stats struct {
	Frames            uint64
	MessagesProcessed uint64
	MessagesSent      uint64
	HandlerPanics     uint64
	ActorsDeleted     uint64
	LastFrame         time.Duration
}
