package bluetooth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

var ErrInvalidMAC = errors.New("invalid MAC address")

// MAC is a Bluetooth device address in display order (most significant byte first).
type MAC [6]byte

// ParseMAC parses "AA:BB:CC:DD:EE:FF" or "AA-BB-CC-DD-EE-FF", case-insensitive.
func ParseMAC(s string) (MAC, error) {
	var mac MAC

	s = strings.TrimSpace(s)
	if len(s) != 17 {
		return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}

	sep := s[2]
	if sep != ':' && sep != '-' {
		return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}

	for i := 0; i < 6; i++ {
		if i > 0 && s[i*3-1] != sep {
			return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}
		b, err := hex.DecodeString(s[i*3 : i*3+2])
		if err != nil {
			return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
		}
		mac[i] = b[0]
	}

	return mac, nil
}

// MustParseMAC is ParseMAC for constants and tests.
func MustParseMAC(s string) MAC {
	mac, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether the address is unset.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// BDAddr returns the address in the little-endian order used by Linux bdaddr_t.
func (m MAC) BDAddr() [6]uint8 {
	var b [6]uint8
	for i := 0; i < 6; i++ {
		b[i] = m[5-i]
	}
	return b
}

// DevicePath returns the BlueZ object path of the device under the given adapter.
func (m MAC) DevicePath(adapter string) dbus.ObjectPath {
	if adapter == "" {
		adapter = DefaultAdapter
	}
	return dbus.ObjectPath(fmt.Sprintf("%s/%s/dev_%s", BLUEZ_OBJECT_PATH, adapter, strings.ReplaceAll(m.String(), ":", "_")))
}

func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MAC) UnmarshalText(text []byte) error {
	mac, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = mac
	return nil
}
