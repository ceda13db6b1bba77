package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pez-globo/ventserver/internal/message"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.EventReceived("serial")
	m.EventReceived("serial")
	m.EventReceived("websocket")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.received.WithLabelValues("serial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.received.WithLabelValues("websocket")))

	m.PayloadSent("file")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sent.WithLabelValues("file")))

	m.SendFailed("serial")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures.WithLabelValues("serial")))

	m.DecodeFailed("websocket", message.KindPing)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeFailures.WithLabelValues("websocket", "Ping")))

	m.QueueDropped()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueDrops))

	m.FrontendDelayed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.delayed))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()

	m.SetQueueLength(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueLength))

	m.FrontendConnectionChanged(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	m.FrontendConnectionChanged(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))

	m.LogReplicationChanged(2, 5)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logResets))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.logBacklog))
}

func TestMetrics_StepLatency(t *testing.T) {
	m := New()
	m.ObserveStep(250 * time.Microsecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.stepLatency))
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EventReceived("serial")
		m.PayloadSent("serial")
		m.SendFailed("serial")
		m.QueueDropped()
		m.SetQueueLength(1)
		m.FrontendDelayed()
		m.ObserveStep(time.Second)
		m.DecodeFailed("serial", message.KindUnknown)
		m.FrontendConnectionChanged(true)
		m.LogReplicationChanged(1, 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.EventReceived("serial")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ventserver_events_received_total{transport="serial"} 1`)
}
