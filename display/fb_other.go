//go:build !linux

package display

import (
	"errors"
	"image"
)

type framebuffer struct{}

func newFramebuffer(Options) Display { return framebuffer{} }

func (framebuffer) Init() error {
	return errors.New("framebuffer display is only available on linux")
}
func (framebuffer) Close() error             { return nil }
func (framebuffer) Width() int               { return 0 }
func (framebuffer) Height() int              { return 0 }
func (framebuffer) BackBuffer() *image.RGBA { return nil }
func (framebuffer) Update() error            { return nil }
