package display

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperML/bms-lock/bluetooth"
)

type fakeDisplay struct {
	buf     *image.RGBA
	updates int
	err     error
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{buf: image.NewRGBA(image.Rect(0, 0, designW, designH))}
}

func (d *fakeDisplay) Init() error             { return nil }
func (d *fakeDisplay) Close() error            { return nil }
func (d *fakeDisplay) Width() int              { return d.buf.Bounds().Dx() }
func (d *fakeDisplay) Height() int             { return d.buf.Bounds().Dy() }
func (d *fakeDisplay) BackBuffer() *image.RGBA { return d.buf }
func (d *fakeDisplay) Update() error {
	if d.err != nil {
		return d.err
	}
	d.updates++
	return nil
}

func TestRendererRedrawsOnlyOnChange(t *testing.T) {
	d := newFakeDisplay()
	r := NewRenderer(d, "Lock", nil)

	s := bluetooth.Status{Target: target}
	r.Observe(s)
	r.Observe(s)
	assert.Equal(t, 1, d.updates)

	s.State = bluetooth.StateConnecting
	s.Attempts = 1
	r.Observe(s)
	assert.Equal(t, 2, d.updates)

	// LastAttempt is not shown
	s.LastAttempt = time.Now()
	r.Observe(s)
	assert.Equal(t, 2, d.updates)
	assert.Equal(t, 2, r.Frames())
}

func TestRendererRetriesAfterUpdateError(t *testing.T) {
	d := newFakeDisplay()
	d.err = errors.New("device busy")
	r := NewRenderer(d, "Lock", nil)

	s := bluetooth.Status{Target: target}
	r.Observe(s)
	assert.Equal(t, 0, r.Frames())

	d.err = nil
	r.Observe(s)
	assert.Equal(t, 1, r.Frames())
}

func TestPNGDisplayWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "status.png")

	d, err := New(BackendPNG, Options{Path: path})
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, designW, d.Width())
	assert.Equal(t, designH, d.Height())

	r := NewRenderer(d, "Lock", nil)
	r.Observe(bluetooth.Status{Target: target, State: bluetooth.StateConnected, Attempts: 1})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, designW, designH), img.Bounds())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary frame files are cleaned up")
}

func TestNewBackends(t *testing.T) {
	for _, backend := range []string{"", BackendNone, BackendTUI} {
		d, err := New(backend, Options{})
		require.NoError(t, err)
		assert.Nil(t, d)
	}

	_, err := New("hologram", Options{})
	assert.Error(t, err)
}
