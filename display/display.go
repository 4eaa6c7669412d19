// Package display mirrors the connection status onto a fixed-layout status screen.
package display

import (
	"fmt"
	"image"
)

// Backend names accepted by New.
const (
	BackendNone        = "none"
	BackendFramebuffer = "fb"
	BackendPNG         = "png"
	BackendTUI         = "tui"
)

// Display is a raster output the status screen is drawn onto.
type Display interface {
	Init() error
	Close() error
	Width() int
	Height() int
	// BackBuffer is drawn into and flushed by Update.
	BackBuffer() *image.RGBA
	Update() error
}

// Options configures a raster backend.
type Options struct {
	Device string // framebuffer device, e.g. /dev/fb0
	Path   string // PNG output path
	Width  int
	Height int
}

// New creates and initialises the raster backend. BackendNone and BackendTUI have no
// raster output and return nil.
func New(backend string, opts Options) (Display, error) {
	var d Display
	switch backend {
	case "", BackendNone, BackendTUI:
		return nil, nil
	case BackendFramebuffer:
		d = newFramebuffer(opts)
	case BackendPNG:
		d = newPNGDisplay(opts)
	default:
		return nil, fmt.Errorf("unknown display backend %q", backend)
	}

	if err := d.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise %s display: %w", backend, err)
	}
	return d, nil
}
