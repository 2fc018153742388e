// Package hub is a thread-safe websocket broadcast hub using the
// channel-based fan-out pattern. It carries the robot's telemetry stream:
// state snapshots, obstacle maps and emergency events, all JSON.
package hub

import "encoding/json"

// Envelope is the wire format for every broadcast message.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Telemetry message types.
const (
	TypeStatus    = "status"
	TypeObstacles = "obstacles"
	TypeEmergency = "emergency"
	TypeMission   = "mission"
)

func encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Payload: payload})
}
