//go:build linux

package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const rfcommPollSlice = 200 * time.Millisecond

// SPPLink is a Bluetooth Classic Serial Port Profile connection over an RFCOMM socket.
type SPPLink struct {
	mac     MAC
	channel uint8
	bluez   *BlueZ
	log     *zap.Logger

	mu   sync.Mutex
	file *os.File
}

// NewSPPLink creates an SPP link to mac on the given RFCOMM channel. bluez is optional and
// only used to cross-check the ACL link state.
func NewSPPLink(mac MAC, channel uint8, bluez *BlueZ, log *zap.Logger) (*SPPLink, error) {
	if mac.IsZero() {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidMAC)
	}
	if channel == 0 {
		channel = DefaultSPPChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SPPLink{mac: mac, channel: channel, bluez: bluez, log: log.Named("spp")}, nil
}

func (l *SPPLink) Transport() string { return TransportSPP }

func (l *SPPLink) Target() MAC { return l.mac }

// Connect opens the RFCOMM socket. It honours ctx by using a non-blocking connect.
func (l *SPPLink) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return nil
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return fmt.Errorf("failed to create RFCOMM socket: %w", err)
	}

	if err := dialRFCOMM(ctx, fd, &unix.SockaddrRFCOMM{Addr: l.mac.BDAddr(), Channel: l.channel}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("rfcomm connect to %s channel %d: %w", l.mac, l.channel, err)
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to switch RFCOMM socket to blocking mode: %w", err)
	}

	l.file = os.NewFile(uintptr(fd), "rfcomm:"+l.mac.String())
	l.log.Debug("RFCOMM socket open", zap.Uint8("channel", l.channel))
	return nil
}

// Connected reports whether the socket is still up and, when BlueZ is available, whether
// BlueZ still sees the device as connected.
func (l *SPPLink) Connected(ctx context.Context) bool {
	l.mu.Lock()
	file := l.file
	l.mu.Unlock()

	if file == nil {
		return false
	}

	fds := []unix.PollFd{{Fd: int32(file.Fd()), Events: unix.POLLIN}}
	if _, err := unix.Poll(fds, 0); err == nil && fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		return false
	}

	if l.bluez == nil {
		return true
	}
	connected, err := l.bluez.DeviceConnected(ctx, l.mac)
	if err != nil {
		l.log.Debug("BlueZ state unavailable, trusting socket", zap.Error(err))
		return true
	}
	return connected
}

// Disconnect closes the socket.
func (l *SPPLink) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrNotConnected
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func dialRFCOMM(ctx context.Context, fd int, addr *unix.SockaddrRFCOMM) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}

	err := unix.Connect(fd, addr)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EINPROGRESS) && !errors.Is(err, unix.EAGAIN) {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, int(rfcommPollSlice/time.Millisecond))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return err
		}
		if soErr != 0 {
			return unix.Errno(soErr)
		}
		return nil
	}
}
