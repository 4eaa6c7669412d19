package display

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/viperML/bms-lock/bluetooth"
)

var (
	ColorBackground = color.RGBA{18, 18, 18, 255}
	ColorText       = color.RGBA{235, 235, 235, 255}
	ColorMuted      = color.RGBA{150, 150, 150, 255}
	ColorConnected  = color.RGBA{0, 200, 83, 255}
	ColorConnecting = color.RGBA{255, 171, 0, 255}
	ColorFailed     = color.RGBA{229, 57, 53, 255}
	ColorIdle       = color.RGBA{120, 120, 120, 255}
)

// Frame holds every text and color shown on the status screen. Frames are comparable so the
// renderer can skip identical redraws.
type Frame struct {
	Title       string
	Target      string
	Attempts    string
	StatusText  string
	Detail      string
	Instruction string
	Color       color.RGBA
}

// Layout computes the frame for a status snapshot.
func Layout(s bluetooth.Status, title string) Frame {
	f := Frame{
		Title:    title,
		Target:   "Target: " + s.Target,
		Attempts: fmt.Sprintf("Attempts: %d", s.Attempts),
	}
	if s.Name != "" {
		f.Target = fmt.Sprintf("Target: %s (%s)", s.Name, s.Target)
	}

	switch {
	case s.State == bluetooth.StateConnected:
		f.StatusText = "CONNECTED"
		f.Color = ColorConnected
		if !s.ConnectedSince.IsZero() {
			f.Detail = "Since " + s.ConnectedSince.Format(time.TimeOnly)
		}
		if s.Transport == bluetooth.TransportBLE {
			f.Instruction = "Link held. Other devices cannot connect."
		} else {
			f.Instruction = "Serial link established."
		}
	case s.State == bluetooth.StateConnecting:
		f.StatusText = "CONNECTING..."
		f.Color = ColorConnecting
		f.Instruction = "Keep the BMS powered and in range."
	case s.Failed():
		f.StatusText = "FAILED"
		f.Color = ColorFailed
		f.Detail = truncate(s.LastError, 36)
		if s.NextAttemptIn > 0 {
			f.Instruction = fmt.Sprintf("Retrying in %ds", int(s.NextAttemptIn/time.Second))
		} else {
			f.Instruction = "Retrying..."
		}
	case s.Attempts > 0:
		f.StatusText = "DISCONNECTED"
		f.Color = ColorFailed
		f.Instruction = "Retrying automatically."
	default:
		f.StatusText = "WAITING"
		f.Color = ColorIdle
		f.Instruction = "Waiting for the first attempt."
	}
	return f
}

// Draw paints the frame onto g.
func (f Frame) Draw(g *Graphics) error {
	g.Clear(ColorBackground)

	// header bar
	g.DrawRect(0, 0, designW, 44, color.RGBA{32, 32, 32, 255})
	g.DrawRect(0, 44, designW, 2, f.Color)

	texts := []struct {
		text   string
		x, y   int
		c      color.Color
		size   float64
		weight FontWeight
	}{
		{f.Title, 12, 10, ColorText, 20, FontBold},
		{f.Target, 12, 58, ColorMuted, 13, FontRegular},
		{f.Attempts, 12, 80, ColorMuted, 13, FontRegular},
		{f.StatusText, 12, 112, f.Color, 26, FontBold},
		{f.Detail, 12, 150, ColorText, 13, FontRegular},
		{f.Instruction, 12, 200, ColorText, 14, FontRegular},
	}
	for _, t := range texts {
		if t.text == "" {
			continue
		}
		if err := g.DrawText(t.text, t.x, t.y, t.c, t.size, t.weight); err != nil {
			return fmt.Errorf("failed to draw %q: %w", t.text, err)
		}
	}

	g.DrawCircleAA(284, 127, 16, f.Color)
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
