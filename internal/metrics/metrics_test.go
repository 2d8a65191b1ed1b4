package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/clock"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/gm"
)

// value reads one sample from reg. label is "" for unlabeled metrics.
func value(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && (len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() != label) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}

func TestGMMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGMMetrics(reg)

	m.FrameDone(2*time.Millisecond, 5, 1)
	m.MessageProcessed(msg.TickLocal)
	m.MessageProcessed(msg.TickLocal)
	m.MessageSent(msg.InfoGameEvent)
	m.HandlerPanic("component Journal")
	m.HandlerPanic("entered world 0b0d")
	m.HandlerPanic("0b0d/Fire")
	m.HandlerPanic("0b0d/Fire")
	m.Actors(3, 1, 2)

	assert.Equal(t, 1.0, value(t, reg, "gm_frames_total", ""))
	assert.Equal(t, 1.0, value(t, reg, "gm_frame_duration_seconds", ""))
	assert.Equal(t, 5.0, value(t, reg, "gm_frame_messages_processed", ""))
	assert.Equal(t, 2.0, value(t, reg, "gm_messages_processed_total", "TICK_LOCAL"))
	assert.Equal(t, 1.0, value(t, reg, "gm_messages_sent_total", "INFO_GAME_EVENT"))
	assert.Equal(t, 1.0, value(t, reg, "gm_handler_panics_total", "component"))
	assert.Equal(t, 1.0, value(t, reg, "gm_handler_panics_total", "world_hook"))
	assert.Equal(t, 2.0, value(t, reg, "gm_handler_panics_total", "invokable"))
	assert.Equal(t, 3.0, value(t, reg, "gm_actors", "game"))
	assert.Equal(t, 2.0, value(t, reg, "gm_actors", "prototype"))
}

func TestGMMetricsFromFrames(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := clock.NewAt(0)
	m := gm.New(gm.Options{Library: actor.NewLibrary(), Clock: c, Metrics: NewGMMetrics(reg)}, zap.NewNop())

	m.PreFrame(c.Step(0.1), 0.1)
	m.PreFrame(c.Step(0.1), 0.1)

	assert.Equal(t, 2.0, value(t, reg, "gm_frames_total", ""))
	assert.Equal(t, 2.0, value(t, reg, "gm_messages_processed_total", "TICK_LOCAL"))
	assert.Equal(t, 0.0, value(t, reg, "gm_actors", "game"))
}

func TestServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewGMMetrics(reg).Actors(1, 0, 0)
	s := NewServer("127.0.0.1:0", reg, zap.NewNop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gm_actors{kind="game"} 1`)
}
