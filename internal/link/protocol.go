package link

import (
	"encoding/binary"
	"fmt"
)

const (
	HeaderSize      = 16
	ProtocolVersion = 1

	// Client to bridge.
	MsgOpen             = 0x0001
	MsgClose            = 0x0002
	MsgRequestTelemetry = 0x0003
	MsgSubscribe        = 0x0004
	MsgStickParam       = 0x0010
	MsgSticks           = 0x0011
	MsgAction           = 0x0020
	MsgQuery            = 0x0021

	// Bridge to client.
	MsgTelemetry = 0x0100
	MsgResult    = 0x0101
	MsgException = 0x0102
)

// Header is the fixed frame prefix. ID correlates a Result with its request.
type Header struct {
	Size    uint32
	Version uint32
	Type    uint32
	ID      uint32
}

// EncodeHeader builds a 16-byte little-endian header. Size covers the header
// and the payload.
func EncodeHeader(msgType, msgID uint32, payloadSize int) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(HeaderSize)+uint32(payloadSize)) //nolint:gosec // payloads are small
	binary.LittleEndian.PutUint32(buf[4:8], ProtocolVersion)
	binary.LittleEndian.PutUint32(buf[8:12], msgType)
	binary.LittleEndian.PutUint32(buf[12:16], msgID)
	return buf
}

// DecodeHeader parses a 16-byte little-endian header.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("header too short: got %d bytes, need %d", len(data), HeaderSize)
	}
	h := Header{
		Size:    binary.LittleEndian.Uint32(data[0:4]),
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Type:    binary.LittleEndian.Uint32(data[8:12]),
		ID:      binary.LittleEndian.Uint32(data[12:16]),
	}
	if h.Size < HeaderSize {
		return Header{}, fmt.Errorf("header size field %d smaller than header", h.Size)
	}
	return h, nil
}

// Action codes carried by MsgAction. Arguments are float64 values.
const (
	ActionEnableVirtualStick    uint32 = 1
	ActionDisableVirtualStick   uint32 = 2
	ActionAdvancedMode          uint32 = 3 // enabled (0/1)
	ActionTakeoff               uint32 = 4
	ActionAutoLanding           uint32 = 5
	ActionSetHomeLocation       uint32 = 6 // latitude, longitude
	ActionRotateGimbal          uint32 = 7 // pitch, roll, duration
	ActionSetHeightLimit        uint32 = 8 // metres
	ActionSetObstacleAvoidance  uint32 = 9 // type
	ActionSetObstacleWarningDst uint32 = 10
)

// Query codes carried by MsgQuery.
const (
	QueryIsFlying uint32 = 1
)

// Result status values.
const (
	StatusOK uint32 = 0
)
