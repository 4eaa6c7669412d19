//go:build linux

package display

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	fbioGetVScreenInfo = 0x4600
	defaultFBDevice    = "/dev/fb0"
)

// The kernel writes a full struct fb_var_screeninfo; receive it into a raw buffer large enough
// for every layout and pick the fields we need.
type fbVarScreenInfoRaw [160]byte

type framebuffer struct {
	device     string
	file       *os.File
	mem        []byte
	width      int
	height     int
	fbWidth    int
	fbHeight   int
	fbBpp      int
	backBuffer *image.RGBA
}

func newFramebuffer(opts Options) Display {
	device := opts.Device
	if device == "" {
		device = defaultFBDevice
	}
	return &framebuffer{device: device, width: opts.Width, height: opts.Height}
}

func (d *framebuffer) Init() error {
	f, err := os.OpenFile(d.device, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", d.device, err)
	}
	d.file = f

	var info fbVarScreenInfoRaw
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&info[0])))
	if errno != 0 {
		d.Close()
		return fmt.Errorf("failed to query framebuffer info: %w", errno)
	}

	d.fbWidth = int(binary.LittleEndian.Uint32(info[0:4]))
	d.fbHeight = int(binary.LittleEndian.Uint32(info[4:8]))
	d.fbBpp = int(binary.LittleEndian.Uint32(info[24:28]))
	if d.fbBpp != 32 && d.fbBpp != 16 {
		d.Close()
		return fmt.Errorf("unsupported framebuffer depth %d bpp", d.fbBpp)
	}

	if d.width <= 0 || d.height <= 0 {
		d.width, d.height = d.fbWidth, d.fbHeight
	}

	size := d.fbWidth * d.fbHeight * d.fbBpp / 8
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		d.Close()
		return fmt.Errorf("failed to map framebuffer: %w", err)
	}
	d.mem = mem
	d.backBuffer = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	return nil
}

func (d *framebuffer) Close() error {
	if d.mem != nil {
		_ = unix.Munmap(d.mem)
		d.mem = nil
	}
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

func (d *framebuffer) Width() int               { return d.width }
func (d *framebuffer) Height() int              { return d.height }
func (d *framebuffer) BackBuffer() *image.RGBA { return d.backBuffer }

// Update scales the back buffer (nearest neighbour) onto the framebuffer, converting RGBA to
// BGRA for 32 bpp panels and RGB565 for 16 bpp panels.
func (d *framebuffer) Update() error {
	if d.mem == nil || d.backBuffer == nil {
		return fmt.Errorf("framebuffer not initialised")
	}

	bytesPP := d.fbBpp / 8
	src := d.backBuffer
	for dy := 0; dy < d.fbHeight; dy++ {
		sy := dy * d.height / d.fbHeight
		row := dy * d.fbWidth * bytesPP
		for dx := 0; dx < d.fbWidth; dx++ {
			sx := dx * d.width / d.fbWidth
			si := src.PixOffset(sx, sy)
			di := row + dx*bytesPP
			r, g, b := src.Pix[si], src.Pix[si+1], src.Pix[si+2]

			if bytesPP == 4 {
				d.mem[di+0] = b
				d.mem[di+1] = g
				d.mem[di+2] = r
				d.mem[di+3] = 0xff
				continue
			}
			binary.LittleEndian.PutUint16(d.mem[di:], rgb565(r, g, b))
		}
	}
	return nil
}

func rgb565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}
