// Package metrics exports game manager measurements to Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/gm"
)

// Frame durations are short; the buckets cover 100µs to 1s.
var frameBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

type gmMetrics struct {
	frameDuration     prometheus.Histogram
	framesTotal       prometheus.Counter
	messagesProcessed *prometheus.CounterVec
	messagesSent      *prometheus.CounterVec
	frameProcessed    prometheus.Gauge
	frameSent         prometheus.Gauge
	panicsTotal       *prometheus.CounterVec
	actors            *prometheus.GaugeVec
}

// NewGMMetrics registers the game manager metrics on reg.
func NewGMMetrics(reg prometheus.Registerer) gm.Metrics {
	m := &gmMetrics{
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gm_frame_duration_seconds",
			Help:    "Wall time spent in one game manager frame",
			Buckets: frameBuckets,
		}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gm_frames_total",
			Help: "Total number of frames run",
		}),
		messagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gm_messages_processed_total",
			Help: "Messages delivered locally",
		}, []string{"message_type"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gm_messages_sent_total",
			Help: "Messages handed to the network components",
		}, []string{"message_type"}),
		frameProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gm_frame_messages_processed",
			Help: "Messages processed in the last frame",
		}),
		frameSent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gm_frame_messages_sent",
			Help: "Messages sent in the last frame",
		}),
		panicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gm_handler_panics_total",
			Help: "Recovered handler panics",
		}, []string{"where"}),
		actors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gm_actors",
			Help: "Actors held by the game manager",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.frameDuration,
		m.framesTotal,
		m.messagesProcessed,
		m.messagesSent,
		m.frameProcessed,
		m.frameSent,
		m.panicsTotal,
		m.actors,
	)
	return m
}

func (m *gmMetrics) FrameDone(d time.Duration, processed, sent int) {
	m.frameDuration.Observe(d.Seconds())
	m.framesTotal.Inc()
	m.frameProcessed.Set(float64(processed))
	m.frameSent.Set(float64(sent))
}

func (m *gmMetrics) MessageProcessed(t *msg.Type) {
	m.messagesProcessed.WithLabelValues(t.Name()).Inc()
}

func (m *gmMetrics) MessageSent(t *msg.Type) {
	m.messagesSent.WithLabelValues(t.Name()).Inc()
}

// HandlerPanic counts by handler kind. The location itself names actors
// and would make the label unbounded.
func (m *gmMetrics) HandlerPanic(where string) {
	m.panicsTotal.WithLabelValues(panicSite(where)).Inc()
}

func (m *gmMetrics) Actors(game, plain, prototypes int) {
	m.actors.WithLabelValues("game").Set(float64(game))
	m.actors.WithLabelValues("plain").Set(float64(plain))
	m.actors.WithLabelValues("prototype").Set(float64(prototypes))
}

func panicSite(where string) string {
	switch {
	case strings.HasPrefix(where, "component "):
		return "component"
	case strings.HasPrefix(where, "entered world "), strings.HasPrefix(where, "removed from world "):
		return "world_hook"
	default:
		return "invokable"
	}
}

var _ gm.Metrics = (*gmMetrics)(nil)
