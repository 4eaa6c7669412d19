// Package serial writes the human-readable text outputs: the heartbeat program and the
// connection status log. Both go to a serial port at 115200 baud or, without a device, to
// stdout.
package serial

import (
	"fmt"
	"io"
	"os"

	goserial "go.bug.st/serial"
)

const DefaultBaudRate = 115200

// Open opens device at baud, 8N1. An empty device returns stdout.
func Open(device string, baud int) (io.WriteCloser, error) {
	if device == "" {
		return nopCloser{os.Stdout}, nil
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := goserial.Open(device, &goserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s at %d baud: %w", device, baud, err)
	}
	return port, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return goserial.GetPortsList()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
