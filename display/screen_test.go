package display

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperML/bms-lock/bluetooth"
)

const target = "A4:C1:38:00:11:22"

func TestLayout(t *testing.T) {
	since := time.Date(2026, 3, 1, 14, 3, 22, 0, time.UTC)

	tests := []struct {
		name        string
		status      bluetooth.Status
		statusText  string
		color       any
		instruction string
		detail      string
	}{
		{
			name:        "before first attempt",
			status:      bluetooth.Status{Transport: bluetooth.TransportBLE, Target: target},
			statusText:  "WAITING",
			color:       ColorIdle,
			instruction: "Waiting for the first attempt.",
		},
		{
			name:        "connecting",
			status:      bluetooth.Status{Transport: bluetooth.TransportBLE, Target: target, State: bluetooth.StateConnecting, Attempts: 1},
			statusText:  "CONNECTING...",
			color:       ColorConnecting,
			instruction: "Keep the BMS powered and in range.",
		},
		{
			name:        "connected over ble",
			status:      bluetooth.Status{Transport: bluetooth.TransportBLE, Target: target, State: bluetooth.StateConnected, Attempts: 1, ConnectedSince: since},
			statusText:  "CONNECTED",
			color:       ColorConnected,
			instruction: "Link held. Other devices cannot connect.",
			detail:      "Since 14:03:22",
		},
		{
			name:        "connected over spp",
			status:      bluetooth.Status{Transport: bluetooth.TransportSPP, Target: target, State: bluetooth.StateConnected, Attempts: 2},
			statusText:  "CONNECTED",
			color:       ColorConnected,
			instruction: "Serial link established.",
		},
		{
			name:        "failed with countdown",
			status:      bluetooth.Status{Transport: bluetooth.TransportSPP, Target: target, Attempts: 3, LastError: "host is down", NextAttemptIn: 7 * time.Second},
			statusText:  "FAILED",
			color:       ColorFailed,
			instruction: "Retrying in 7s",
			detail:      "host is down",
		},
		{
			name:        "failed with retry due",
			status:      bluetooth.Status{Transport: bluetooth.TransportSPP, Target: target, Attempts: 3, LastError: "host is down"},
			statusText:  "FAILED",
			color:       ColorFailed,
			instruction: "Retrying...",
			detail:      "host is down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Layout(tt.status, "BMS Lock")
			assert.Equal(t, "BMS Lock", f.Title)
			assert.Equal(t, "Target: "+target, f.Target)
			assert.Equal(t, tt.statusText, f.StatusText)
			assert.Equal(t, tt.color, f.Color)
			assert.Equal(t, tt.instruction, f.Instruction)
			assert.Equal(t, tt.detail, f.Detail)
		})
	}
}

func TestLayoutAttemptsAndName(t *testing.T) {
	f := Layout(bluetooth.Status{Target: target, Name: "JBD-SP04S034", Attempts: 12}, "Lock")
	assert.Equal(t, "Attempts: 12", f.Attempts)
	assert.Equal(t, "Target: JBD-SP04S034 ("+target+")", f.Target)
}

func TestLayoutTruncatesLongErrors(t *testing.T) {
	long := "connection refused by remote host after a very long negotiation"
	f := Layout(bluetooth.Status{Target: target, Attempts: 1, LastError: long}, "Lock")
	assert.Len(t, []rune(f.Detail), 36)
	assert.Equal(t, "...", f.Detail[len(f.Detail)-3:])
}

func TestFrameDraw(t *testing.T) {
	buf := image.NewRGBA(image.Rect(0, 0, 320, 240))
	g := NewGraphics(buf)

	f := Layout(bluetooth.Status{Target: target, State: bluetooth.StateConnected, Attempts: 1}, "Lock")
	require.NoError(t, f.Draw(g))

	assert.Equal(t, ColorBackground, buf.RGBAAt(160, 230))
	assert.Equal(t, ColorConnected, buf.RGBAAt(284, 127), "indicator circle uses the status color")
	assert.Equal(t, ColorConnected, buf.RGBAAt(100, 45), "header rule uses the status color")
}
