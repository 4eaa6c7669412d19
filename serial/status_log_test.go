package serial

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viperML/bms-lock/bluetooth"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatusLogLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewStatusLog(&buf)

	base := bluetooth.Status{Transport: bluetooth.TransportSPP, Target: "A4:C1:38:0B:2E:9F"}

	initial := base
	log.Observe(initial)

	connecting := base
	connecting.State = bluetooth.StateConnecting
	connecting.Attempts = 1
	log.Observe(connecting)

	failed := connecting
	failed.State = bluetooth.StateDisconnected
	failed.LastError = "host is down"
	failed.NextAttemptIn = 10 * time.Second
	log.Observe(failed)

	countdown := failed
	countdown.NextAttemptIn = 9 * time.Second
	log.Observe(countdown)

	retry := failed
	retry.State = bluetooth.StateConnecting
	retry.Attempts = 2
	retry.LastError = ""
	log.Observe(retry)

	connected := retry
	connected.State = bluetooth.StateConnected
	connected.Name = "JBD-SP04S034"
	log.Observe(connected)

	lost := connected
	lost.State = bluetooth.StateDisconnected
	lost.LastError = "connection lost"
	log.Observe(lost)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	assert.Equal(t, []string{
		"[BT] Monitoring SPP link to A4:C1:38:0B:2E:9F",
		"[BT] Connecting to A4:C1:38:0B:2E:9F (attempt 1)...",
		"[BT] Connection failed: host is down. Retrying in 10s",
		"[BT] Connecting to A4:C1:38:0B:2E:9F (attempt 2)...",
		"[BT] Connected to JBD-SP04S034 (A4:C1:38:0B:2E:9F)",
		"[BT] Connection to JBD-SP04S034 (A4:C1:38:0B:2E:9F) lost. Reconnecting...",
	}, lines)
}

func TestStatusLogShutdown(t *testing.T) {
	var buf bytes.Buffer
	log := NewStatusLog(&buf)

	s := bluetooth.Status{Transport: bluetooth.TransportBLE, Target: "A4:C1:38:0B:2E:9F", State: bluetooth.StateConnected, Attempts: 1}
	log.Observe(s)

	s.State = bluetooth.StateDisconnected
	log.Observe(s)

	assert.Contains(t, buf.String(), "[BT] Disconnected from A4:C1:38:0B:2E:9F\r\n")
}
