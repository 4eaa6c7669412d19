//go:build linux

package bluetooth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	tinyble "tinygo.org/x/bluetooth"
)

const (
	cancelConnectTimeout = 2 * time.Second
	stopScanRetry        = 50 * time.Millisecond
)

// bleDevice is the part of a tinygo device handle the link uses.
type bleDevice interface {
	Disconnect() error
}

// bleAdapter is the part of the tinygo adapter the link uses.
type bleAdapter interface {
	Enable() error
	Scan(callback func(tinyble.ScanResult)) error
	StopScan() error
	Connect(address tinyble.Address, params tinyble.ConnectionParams) (bleDevice, error)
}

// bleState is the BlueZ side of the link: discovery, connection state and abort.
type bleState interface {
	DeviceKnown(ctx context.Context, mac MAC) (bool, error)
	DeviceConnected(ctx context.Context, mac MAC) (bool, error)
	CancelConnect(ctx context.Context, mac MAC) error
}

type tinyAdapter struct {
	*tinyble.Adapter
}

func (a tinyAdapter) Scan(callback func(tinyble.ScanResult)) error {
	return a.Adapter.Scan(func(_ *tinyble.Adapter, result tinyble.ScanResult) {
		callback(result)
	})
}

func (a tinyAdapter) Connect(address tinyble.Address, params tinyble.ConnectionParams) (bleDevice, error) {
	device, err := a.Adapter.Connect(address, params)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// BLELink holds a Bluetooth Low Energy connection to the peer. While the connection is
// held the peripheral stops advertising, which keeps other centrals out.
type BLELink struct {
	mac     MAC
	adapter bleAdapter
	state   bleState
	log     *zap.Logger

	mu      sync.Mutex
	enabled bool
	device  bleDevice
	// pending is closed once the adapter call of the current attempt has returned.
	pending chan struct{}
}

// NewBLELink creates a BLE link to mac on the named adapter (hci0 when empty).
func NewBLELink(mac MAC, adapter string, bluez *BlueZ, log *zap.Logger) (*BLELink, error) {
	if adapter == "" {
		adapter = DefaultAdapter
	}
	var state bleState
	if bluez != nil {
		state = bluez
	}
	return newBLELink(mac, tinyAdapter{tinyble.NewAdapter(adapter)}, state, log)
}

func newBLELink(mac MAC, adapter bleAdapter, state bleState, log *zap.Logger) (*BLELink, error) {
	if mac.IsZero() {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidMAC)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BLELink{
		mac:     mac,
		adapter: adapter,
		state:   state,
		log:     log.Named("ble"),
	}, nil
}

func (l *BLELink) Transport() string { return TransportBLE }

func (l *BLELink) Target() MAC { return l.mac }

// Enable brings up the BLE stack. Failure is unrecoverable for the lock utility.
func (l *BLELink) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enabled {
		return nil
	}
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	l.enabled = true
	return nil
}

// Connect connects to the peer, scanning for it first when BlueZ does not know it. The
// adapter call does not take a context: on cancellation BlueZ is asked to abort it, a
// late success is torn down, and later attempts wait for it with ErrAttemptInFlight.
func (l *BLELink) Connect(ctx context.Context) error {
	if err := l.Enable(); err != nil {
		return err
	}

	mac, err := tinyble.ParseMAC(l.mac.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMAC, err)
	}
	address := tinyble.Address{MACAddress: tinyble.MACAddress{MAC: mac}}

	pending, connected, err := l.acquire(ctx)
	if err != nil || connected {
		return err
	}

	if err := l.discover(ctx, address); err != nil {
		l.release(pending)
		return err
	}

	params := tinyble.ConnectionParams{}
	if deadline, ok := ctx.Deadline(); ok {
		params.ConnectionTimeout = tinyble.NewDuration(time.Until(deadline))
	}

	type result struct {
		device bleDevice
		err    error
	}
	done := make(chan result, 1)
	go func() {
		device, err := l.adapter.Connect(address, params)
		done <- result{device: device, err: err}
	}()

	select {
	case r := <-done:
		l.mu.Lock()
		if r.err == nil {
			l.device = r.device
		}
		l.mu.Unlock()
		l.release(pending)
		if r.err != nil {
			return fmt.Errorf("ble connect to %s: %w", l.mac, r.err)
		}
		return nil

	case <-ctx.Done():
		go func() {
			if l.state != nil {
				cancelCtx, cancel := context.WithTimeout(context.Background(), cancelConnectTimeout)
				if err := l.state.CancelConnect(cancelCtx, l.mac); err != nil {
					l.log.Debug("Cancel connect failed", zap.Error(err))
				}
				cancel()
			}
			if r := <-done; r.err == nil {
				l.log.Debug("Dropping connection that completed after cancellation")
				_ = r.device.Disconnect()
			}
			l.release(pending)
		}()
		return ctx.Err()
	}
}

// acquire waits for an earlier attempt's adapter call to return and claims the next one.
func (l *BLELink) acquire(ctx context.Context) (chan struct{}, bool, error) {
	for {
		l.mu.Lock()
		if l.device != nil {
			l.mu.Unlock()
			return nil, true, nil
		}
		pending := l.pending
		if pending == nil {
			l.pending = make(chan struct{})
			pending = l.pending
			l.mu.Unlock()
			return pending, false, nil
		}
		l.mu.Unlock()

		select {
		case <-pending:
		case <-ctx.Done():
			return nil, false, fmt.Errorf("%w: earlier connect to %s has not returned", ErrAttemptInFlight, l.mac)
		}
	}
}

func (l *BLELink) release(pending chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == pending {
		l.pending = nil
	}
	close(pending)
}

// discover scans until the peer advertises, unless BlueZ already has it.
func (l *BLELink) discover(ctx context.Context, address tinyble.Address) error {
	if l.state != nil {
		known, err := l.state.DeviceKnown(ctx, l.mac)
		if err != nil {
			l.log.Debug("BlueZ device lookup failed", zap.Error(err))
		}
		if known {
			return nil
		}
	}

	l.log.Info("Scanning for peer", zap.Stringer("mac", l.mac))
	found := make(chan struct{})
	var once sync.Once
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- l.adapter.Scan(func(result tinyble.ScanResult) {
			if result.Address.MAC != address.MAC {
				return
			}
			once.Do(func() {
				close(found)
				_ = l.adapter.StopScan()
			})
		})
	}()

	select {
	case <-found:
		if err := <-scanDone; err != nil {
			l.log.Debug("Scan ended with error", zap.Error(err))
		}
		return nil

	case err := <-scanDone:
		if err != nil {
			return fmt.Errorf("ble scan for %s: %w", l.mac, err)
		}
		return fmt.Errorf("%w: %s", ErrPeerNotFound, l.mac)

	case <-ctx.Done():
		// StopScan fails until the scan has started, so keep trying until Scan returns.
		for {
			if err := l.adapter.StopScan(); err == nil {
				<-scanDone
				return ctx.Err()
			}
			select {
			case <-scanDone:
				return ctx.Err()
			case <-time.After(stopScanRetry):
			}
		}
	}
}

// Connected reads the BlueZ connection state when available.
func (l *BLELink) Connected(ctx context.Context) bool {
	l.mu.Lock()
	held := l.device != nil
	l.mu.Unlock()

	if !held {
		return false
	}
	if l.state == nil {
		return true
	}

	connected, err := l.state.DeviceConnected(ctx, l.mac)
	if err != nil {
		l.log.Debug("BlueZ state unavailable", zap.Error(err))
		return false
	}
	return connected
}

// Disconnect releases the connection.
func (l *BLELink) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.device == nil {
		return ErrNotConnected
	}
	err := l.device.Disconnect()
	l.device = nil
	return err
}
