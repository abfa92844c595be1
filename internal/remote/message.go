// Package remote carries headset and controller input to the drone
// controller over a websocket data channel or an MQTT broker.
package remote

import (
	"encoding/json"
	"strings"
)

// Message types exchanged on the data channel. Matching is case-insensitive.
const (
	TypePing          = "Ping"
	TypePong          = "Pong"
	TypeControlStatus = "ControlStatus"
	TypeLog           = "Log"
	TypeControl       = "Control"
)

// Control message payloads. The drone side also reports Start and Stop when
// control begins or ends.
const (
	ControlStart = "Start"
	ControlStop  = "Stop"
	ControlLand  = "Land"
)

// RootMessage is the envelope of every data-channel frame. Data is a string
// whose meaning depends on Type; for ControlStatus it is itself JSON.
type RootMessage struct {
	Data    string `json:"data"`
	Channel string `json:"channel"`
	Type    string `json:"type"`
	From    string `json:"from"`
}

// Is reports whether the message has the given type.
func (m RootMessage) Is(msgType string) bool {
	return strings.EqualFold(m.Type, msgType)
}

// DecodeMessage parses one frame.
func DecodeMessage(raw []byte) (RootMessage, error) {
	var m RootMessage
	err := json.Unmarshal(raw, &m)
	return m, err
}
