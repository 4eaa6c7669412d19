package utils

import (
	"sync"

	"github.com/viperML/bms-lock/bluetooth"
)

// EventSink is where the broadcaster publishes events; *WebSocketHub implements it.
type EventSink interface {
	Broadcast(event WebSocketEvent)
}

// Broadcaster is a bluetooth.Observer publishing status changes and connect/disconnect
// transitions.
type Broadcaster struct {
	sink EventSink

	mu    sync.Mutex
	last  bluetooth.State
	valid bool
}

func NewBroadcaster(sink EventSink) *Broadcaster {
	return &Broadcaster{sink: sink}
}

func (b *Broadcaster) Observe(s bluetooth.Status) {
	b.mu.Lock()
	prev, seen := b.last, b.valid
	b.last, b.valid = s.State, true
	b.mu.Unlock()

	b.sink.Broadcast(WebSocketEvent{Type: EventStatus, Payload: NewStatusResponse(s)})

	switch {
	case s.State == bluetooth.StateConnected && (!seen || prev != bluetooth.StateConnected):
		b.sink.Broadcast(WebSocketEvent{
			Type: EventConnected,
			Payload: DeviceConnectedPayload{
				Address:   s.Target,
				Name:      s.Name,
				Transport: s.Transport,
				Attempts:  s.Attempts,
			},
		})
	case seen && prev == bluetooth.StateConnected && s.State != bluetooth.StateConnected:
		b.sink.Broadcast(WebSocketEvent{
			Type: EventDisconnected,
			Payload: DeviceDisconnectedPayload{
				Address:   s.Target,
				Transport: s.Transport,
				Reason:    s.LastError,
			},
		})
	}
}

// Heartbeat publishes a serial heartbeat.
func (b *Broadcaster) Heartbeat(count uint64, millis int64) {
	b.sink.Broadcast(WebSocketEvent{Type: EventHeartbeat, Payload: HeartbeatPayload{Count: count, Millis: millis}})
}
