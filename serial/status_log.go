package serial

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/viperML/bms-lock/bluetooth"
)

// StatusLog mirrors connection state changes as human-readable lines. Countdown-only
// updates are not logged.
type StatusLog struct {
	out io.Writer

	mu      sync.Mutex
	started bool
	last    bluetooth.Status
}

func NewStatusLog(out io.Writer) *StatusLog {
	return &StatusLog{out: out}
}

// Observe implements bluetooth.Observer.
func (l *StatusLog) Observe(s bluetooth.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lines []string
	if !l.started {
		l.started = true
		lines = append(lines, fmt.Sprintf("[BT] Monitoring %s link to %s", strings.ToUpper(s.Transport), s.Target))
	} else if s.State == l.last.State && s.Attempts == l.last.Attempts && s.LastError == l.last.LastError {
		return
	}
	l.last = s

	if line := statusLine(s); line != "" {
		lines = append(lines, line)
	}

	for _, line := range lines {
		fmt.Fprintf(l.out, "%s\r\n", line)
	}
}

func statusLine(s bluetooth.Status) string {
	peer := s.Target
	if s.Name != "" {
		peer = fmt.Sprintf("%s (%s)", s.Name, s.Target)
	}

	switch s.State {
	case bluetooth.StateConnecting:
		return fmt.Sprintf("[BT] Connecting to %s (attempt %d)...", peer, s.Attempts)
	case bluetooth.StateConnected:
		return fmt.Sprintf("[BT] Connected to %s", peer)
	}

	switch {
	case s.LastError == "connection lost":
		return fmt.Sprintf("[BT] Connection to %s lost. Reconnecting...", peer)
	case s.LastError != "":
		return fmt.Sprintf("[BT] Connection failed: %s. Retrying in %s", s.LastError, s.NextAttemptIn)
	case s.Attempts > 0:
		return fmt.Sprintf("[BT] Disconnected from %s", peer)
	}
	return ""
}
