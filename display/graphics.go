package display

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/math/fixed"
)

const (
	// All layout coordinates are in a 320x240 design grid and scaled to the buffer.
	designW = 320
	designH = 240
)

// Graphics draws primitives and text onto an RGBA buffer.
type Graphics struct {
	buffer *image.RGBA
	scaleX float64
	scaleY float64
}

func NewGraphics(buffer *image.RGBA) *Graphics {
	sx := float64(buffer.Bounds().Dx()) / designW
	sy := float64(buffer.Bounds().Dy()) / designH
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	return &Graphics{buffer: buffer, scaleX: sx, scaleY: sy}
}

func (g *Graphics) sx(v int) int { return int(math.Round(float64(v) * g.scaleX)) }
func (g *Graphics) sy(v int) int { return int(math.Round(float64(v) * g.scaleY)) }
func (g *Graphics) sr(v int) int { return int(math.Round(float64(v) * (g.scaleX + g.scaleY) / 2)) }

// Clear fills the whole buffer.
func (g *Graphics) Clear(c color.Color) {
	draw.Draw(g.buffer, g.buffer.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
}

// DrawRect fills a rectangle.
func (g *Graphics) DrawRect(x, y, w, h int, c color.Color) {
	w, h = g.sx(w), g.sy(h)
	if w <= 0 || h <= 0 {
		return
	}
	x, y = g.sx(x), g.sy(y)
	draw.Draw(g.buffer, image.Rect(x, y, x+w, y+h), &image.Uniform{c}, image.Point{}, draw.Src)
}

// DrawCircleAA fills an anti-aliased circle.
func (g *Graphics) DrawCircleAA(cx, cy, r int, c color.Color) {
	cx, cy, r = g.sx(cx), g.sy(cy), g.sr(r)
	if r <= 0 {
		return
	}
	cr, cg, cb, ca := c.RGBA()
	base := color.RGBA{uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8), uint8(ca >> 8)}

	inner := float64(r) - 0.5
	outer := float64(r) + 0.5
	for y := cy - r - 1; y <= cy+r+1; y++ {
		dy := float64(y - cy)
		for x := cx - r - 1; x <= cx+r+1; x++ {
			dx := float64(x - cx)
			d := math.Sqrt(dx*dx + dy*dy)
			switch {
			case d <= inner:
				g.blend(x, y, base)
			case d < outer:
				s := base
				s.A = uint8(float64(base.A) * clamp01(outer-d))
				g.blend(x, y, s)
			}
		}
	}
}

// DrawText draws text with its top-left corner at (x, y).
func (g *Graphics) DrawText(text string, x, y int, c color.Color, size float64, weight FontWeight) error {
	sz := size * g.scaleY
	if sz < 1 {
		sz = 1
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(fontFor(weight))
	ctx.SetFontSize(sz)
	ctx.SetClip(g.buffer.Bounds())
	ctx.SetDst(g.buffer)
	ctx.SetSrc(&image.Uniform{c})

	_, err := ctx.DrawString(text, freetype.Pt(g.sx(x), int(math.Round(float64(g.sy(y))+sz))))
	return err
}

// MeasureText returns the advance width of text in design units.
func (g *Graphics) MeasureText(text string, size float64, weight FontWeight) int {
	face := truetype.NewFace(fontFor(weight), &truetype.Options{Size: size, DPI: 72})
	defer face.Close()

	width := fixed.Int26_6(0)
	for _, ch := range text {
		if advance, ok := face.GlyphAdvance(ch); ok {
			width += advance
		}
	}
	return width.Ceil()
}

func (g *Graphics) blend(x, y int, src color.RGBA) {
	if !(image.Point{x, y}.In(g.buffer.Bounds())) || src.A == 0 {
		return
	}
	i := g.buffer.PixOffset(x, y)
	sa := float64(src.A) / 255
	da := float64(g.buffer.Pix[i+3]) / 255

	outA := sa + da*(1-sa)
	if outA <= 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		v := (float64(s)*sa + float64(d)*da*(1-sa)) / outA
		return uint8(math.Round(clamp01(v/255) * 255))
	}
	g.buffer.Pix[i+0] = mix(src.R, g.buffer.Pix[i+0])
	g.buffer.Pix[i+1] = mix(src.G, g.buffer.Pix[i+1])
	g.buffer.Pix[i+2] = mix(src.B, g.buffer.Pix[i+2])
	g.buffer.Pix[i+3] = uint8(math.Round(clamp01(outA) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
