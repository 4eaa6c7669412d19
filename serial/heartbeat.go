package serial

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	DefaultHeartbeatInterval = 2 * time.Second
	DefaultStartupDelay      = 1 * time.Second
	DefaultDeviceLabel       = "ESP32"

	bannerRule = "================================"
)

// HeartbeatOptions configures a Heartbeat. Zero values fall back to the defaults.
type HeartbeatOptions struct {
	DeviceLabel  string
	Interval     time.Duration
	StartupDelay time.Duration
	Now          func() time.Time
	// OnBeat is called after every successful beat with the beat count and uptime.
	OnBeat func(count uint64, millis int64)
}

// Heartbeat prints a banner once and then a "Hello World!" line with the uptime in
// milliseconds on every interval.
type Heartbeat struct {
	out          io.Writer
	label        string
	interval     time.Duration
	startupDelay time.Duration
	now          func() time.Time
	onBeat       func(uint64, int64)
	start        time.Time

	mu    sync.Mutex
	beats uint64
}

func NewHeartbeat(out io.Writer, opts HeartbeatOptions) *Heartbeat {
	if opts.DeviceLabel == "" {
		opts.DeviceLabel = DefaultDeviceLabel
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultHeartbeatInterval
	}
	if opts.StartupDelay < 0 {
		opts.StartupDelay = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Heartbeat{
		out:          out,
		label:        opts.DeviceLabel,
		interval:     opts.Interval,
		startupDelay: opts.StartupDelay,
		now:          opts.Now,
		onBeat:       opts.OnBeat,
		start:        opts.Now(),
	}
}

// Banner writes the startup banner.
func (h *Heartbeat) Banner() error {
	lines := []string{
		"\n\n" + bannerRule,
		fmt.Sprintf("Hello World from %s!", h.label),
		bannerRule,
		"System initialized successfully",
	}
	return h.println(lines...)
}

// Beat writes one heartbeat.
func (h *Heartbeat) Beat() error {
	millis := h.now().Sub(h.start).Milliseconds()
	if err := h.println("Hello World!", fmt.Sprintf("Millis: %d", millis)); err != nil {
		return err
	}

	h.mu.Lock()
	h.beats++
	count := h.beats
	h.mu.Unlock()

	if h.onBeat != nil {
		h.onBeat(count, millis)
	}
	return nil
}

// Beats returns how many heartbeats were written.
func (h *Heartbeat) Beats() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.beats
}

// Run waits for the startup delay, prints the banner and beats until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) error {
	if !sleep(ctx, h.startupDelay) {
		return nil
	}
	if err := h.Banner(); err != nil {
		return err
	}

	for {
		if err := h.Beat(); err != nil {
			return err
		}
		if !sleep(ctx, h.interval) {
			return nil
		}
	}
}

func (h *Heartbeat) println(lines ...string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	if _, err := io.WriteString(h.out, b.String()); err != nil {
		return fmt.Errorf("failed to write heartbeat: %w", err)
	}
	return nil
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
