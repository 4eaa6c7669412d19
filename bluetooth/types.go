package bluetooth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAdapterUnavailable  = errors.New("bluetooth adapter unavailable")
	ErrAttemptInFlight     = errors.New("connection attempt already in flight")
	ErrNotConnected        = errors.New("not connected")
	ErrPeerNotFound        = errors.New("peer not found while scanning")
	ErrUnsupportedPlatform = errors.New("bluetooth transport not supported on this platform")
)

// State is the tri-valued connection state mirrored onto every output.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the monitor. Attempts never decreases.
type Status struct {
	Transport      string        `json:"transport"`
	Target         string        `json:"target"`
	Name           string        `json:"name,omitempty"`
	State          State         `json:"state"`
	Attempts       uint64        `json:"attempts"`
	LastAttempt    time.Time     `json:"last_attempt"`
	ConnectedSince time.Time     `json:"connected_since"`
	LastError      string        `json:"last_error,omitempty"`
	NextAttemptIn  time.Duration `json:"next_attempt_in"`
}

// Failed reports whether the last attempt ended in an error and a retry is pending.
func (s Status) Failed() bool {
	return s.State == StateDisconnected && s.LastError != ""
}

// Link is one connection handle to the peer. It is used synchronously by a single Monitor.
type Link interface {
	Transport() string
	Target() MAC
	Connect(ctx context.Context) error
	Connected(ctx context.Context) bool
	Disconnect() error
}

// Observer receives every status change. Calls happen on the monitor loop, in order.
type Observer interface {
	Observe(Status)
}
