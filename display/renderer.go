package display

import (
	"sync"

	"go.uber.org/zap"

	"github.com/viperML/bms-lock/bluetooth"
)

// Renderer observes the monitor and redraws the display when the visible frame changes.
type Renderer struct {
	display Display
	title   string
	log     *zap.Logger

	mu     sync.Mutex
	g      *Graphics
	last   Frame
	drawn  bool
	frames int
}

func NewRenderer(d Display, title string, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		display: d,
		title:   title,
		log:     log.Named("display"),
		g:       NewGraphics(d.BackBuffer()),
	}
}

func (r *Renderer) Observe(s bluetooth.Status) {
	frame := Layout(s, r.title)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawn && frame == r.last {
		return
	}

	if err := frame.Draw(r.g); err != nil {
		r.log.Warn("Failed to draw status screen", zap.Error(err))
		return
	}
	if err := r.display.Update(); err != nil {
		r.log.Warn("Failed to update display", zap.Error(err))
		return
	}
	r.last = frame
	r.drawn = true
	r.frames++
}

// Frames returns how many frames were flushed.
func (r *Renderer) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
