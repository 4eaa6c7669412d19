//go:build !linux

package bluetooth

import (
	"context"

	"go.uber.org/zap"
)

// SPPLink is only available on Linux.
type SPPLink struct{ mac MAC }

func NewSPPLink(mac MAC, channel uint8, bluez *BlueZ, log *zap.Logger) (*SPPLink, error) {
	return nil, ErrUnsupportedPlatform
}

func (l *SPPLink) Transport() string                  { return TransportSPP }
func (l *SPPLink) Target() MAC                        { return l.mac }
func (l *SPPLink) Connect(ctx context.Context) error  { return ErrUnsupportedPlatform }
func (l *SPPLink) Connected(ctx context.Context) bool { return false }
func (l *SPPLink) Disconnect() error                  { return ErrNotConnected }

// BLELink is only available on Linux.
type BLELink struct{ mac MAC }

func NewBLELink(mac MAC, adapter string, bluez *BlueZ, log *zap.Logger) (*BLELink, error) {
	return nil, ErrUnsupportedPlatform
}

func (l *BLELink) Transport() string                  { return TransportBLE }
func (l *BLELink) Target() MAC                        { return l.mac }
func (l *BLELink) Enable() error                      { return ErrUnsupportedPlatform }
func (l *BLELink) Connect(ctx context.Context) error  { return ErrUnsupportedPlatform }
func (l *BLELink) Connected(ctx context.Context) bool { return false }
func (l *BLELink) Disconnect() error                  { return ErrNotConnected }
