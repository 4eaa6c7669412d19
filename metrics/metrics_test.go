package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperML/bms-lock/bluetooth"
)

func TestObserverCountsAttemptsAndFailures(t *testing.T) {
	m := New()
	o := m.Observer()

	s := bluetooth.Status{Transport: bluetooth.TransportSPP, Target: "A4:C1:38:00:11:22"}
	o.Observe(s)

	// attempt 1 fails, countdown ticks down twice
	s.State, s.Attempts = bluetooth.StateConnecting, 1
	o.Observe(s)
	s.State, s.LastError, s.NextAttemptIn = bluetooth.StateDisconnected, "host is down", 10*time.Second
	o.Observe(s)
	s.NextAttemptIn = 9 * time.Second
	o.Observe(s)
	s.NextAttemptIn = 8 * time.Second
	o.Observe(s)

	// attempt 2 connects, then the link drops
	s.State, s.Attempts, s.LastError, s.NextAttemptIn = bluetooth.StateConnecting, 2, "host is down", 0
	o.Observe(s)
	s.State, s.LastError = bluetooth.StateConnected, ""
	o.Observe(s)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionState.WithLabelValues("spp")))

	s.State, s.LastError = bluetooth.StateDisconnected, "connection lost"
	o.Observe(s)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionAttempts.WithLabelValues("spp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionFailures.WithLabelValues("spp")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConnectionState.WithLabelValues("spp")))
}

func TestObserverAddsAttemptDeltas(t *testing.T) {
	m := New()
	o := m.Observer()

	o.Observe(bluetooth.Status{Transport: bluetooth.TransportBLE, Attempts: 5, State: bluetooth.StateConnecting})
	o.Observe(bluetooth.Status{Transport: bluetooth.TransportBLE, Attempts: 5, State: bluetooth.StateConnected})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.ConnectionAttempts.WithLabelValues("ble")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionState.WithLabelValues("ble")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.Heartbeats.Inc()
	m.Observer().Observe(bluetooth.Status{Transport: bluetooth.TransportBLE, Attempts: 1, State: bluetooth.StateConnecting})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "bms_lock_heartbeats_total 1")
	assert.Contains(t, body, `bms_lock_connection_attempts_total{transport="ble"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
