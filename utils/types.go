package utils

import "github.com/viperML/bms-lock/bluetooth"

// WebSocket event types.
const (
	EventStatus       = "bluetooth/status"
	EventConnected    = "bluetooth/connected"
	EventDisconnected = "bluetooth/disconnected"
	EventHeartbeat    = "serial/heartbeat"
)

type WebSocketEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type DeviceConnectedPayload struct {
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	Transport string `json:"transport"`
	Attempts  uint64 `json:"attempts"`
}

type DeviceDisconnectedPayload struct {
	Address   string `json:"address"`
	Transport string `json:"transport"`
	Reason    string `json:"reason,omitempty"`
}

type HeartbeatPayload struct {
	Count  uint64 `json:"count"`
	Millis int64  `json:"millis"`
}

// StatusResponse is returned by GET /api/v1/status and carried by bluetooth/status events.
type StatusResponse struct {
	bluetooth.Status
	Connected bool    `json:"connected"`
	Failed    bool    `json:"failed"`
	RetryIn   float64 `json:"retry_in_seconds"`
}

func NewStatusResponse(s bluetooth.Status) StatusResponse {
	return StatusResponse{
		Status:    s,
		Connected: s.State == bluetooth.StateConnected,
		Failed:    s.Failed(),
		RetryIn:   s.NextAttemptIn.Seconds(),
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Clients int    `json:"clients"`
}
