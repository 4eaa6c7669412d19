package display

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

const defaultPNGPath = "status.png"

// pngDisplay writes every frame to a PNG file, replacing the previous one atomically.
type pngDisplay struct {
	path       string
	width      int
	height     int
	backBuffer *image.RGBA
}

func newPNGDisplay(opts Options) *pngDisplay {
	path := opts.Path
	if path == "" {
		path = defaultPNGPath
	}
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = designW, designH
	}
	return &pngDisplay{path: path, width: w, height: h}
}

func (d *pngDisplay) Init() error {
	if dir := filepath.Dir(d.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	d.backBuffer = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	return nil
}

func (d *pngDisplay) Close() error             { return nil }
func (d *pngDisplay) Width() int               { return d.width }
func (d *pngDisplay) Height() int              { return d.height }
func (d *pngDisplay) BackBuffer() *image.RGBA { return d.backBuffer }

func (d *pngDisplay) Update() error {
	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".frame-*.png")
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, d.backBuffer); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}
	return nil
}
