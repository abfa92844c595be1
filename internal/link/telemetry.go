package link

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"

	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// Decoder turns one telemetry payload into the value published for its key.
type Decoder func(data []byte) (any, error)

var decoders = map[telemetry.Key]Decoder{
	telemetry.KeyConnection:                 decodeBool,
	telemetry.KeyFlightControllerConnection: decodeBool,
	telemetry.KeyAircraftAttitude:           decodeAttitude,
	telemetry.KeyAircraftVelocity:           decodeVelocity,
	telemetry.KeyAircraftLocation3D:         decodeLocation,
	telemetry.KeyGimbalAttitude:             decodeAttitude,
	telemetry.KeyUltrasonicHeight:           decodeInt,
	telemetry.KeyIsFlying:                   decodeBool,
	telemetry.KeyBatteryTemperature:         decodeFloat,
	telemetry.KeyWindWarning:                decodeBool,
	telemetry.KeySignalQuality:              decodeInt,
	telemetry.KeyVirtualStickState:          decodeStickState,
}

// ParseTelemetry splits a Telemetry payload (key\0 + value) and decodes the
// value for that key.
func ParseTelemetry(data []byte) (telemetry.Key, any, error) {
	i := indexZero(data)
	if i < 0 {
		return "", nil, errors.Wrap(ErrMalformedTelemetry, "missing key terminator")
	}
	key := telemetry.Key(data[:i])
	dec, ok := decoders[key]
	if !ok {
		return key, nil, errors.Wrapf(ErrUnknownTelemetry, "%q", key)
	}
	v, err := dec(data[i+1:])
	if err != nil {
		return key, nil, errors.Wrapf(err, "decode %s", key)
	}
	return key, v, nil
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

func need(data []byte, n int) error {
	if len(data) < n {
		return errors.Wrapf(ErrMalformedTelemetry, "got %d bytes, need %d", len(data), n)
	}
	return nil
}

func f64(data []byte, i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
}

func decodeBool(data []byte) (any, error) {
	if err := need(data, 4); err != nil {
		return nil, err
	}
	return binary.LittleEndian.Uint32(data) != 0, nil
}

func decodeInt(data []byte) (any, error) {
	if err := need(data, 4); err != nil {
		return nil, err
	}
	return int(int32(binary.LittleEndian.Uint32(data))), nil //nolint:gosec // two's complement on the wire
}

func decodeFloat(data []byte) (any, error) {
	if err := need(data, 8); err != nil {
		return nil, err
	}
	return f64(data, 0), nil
}

func decodeAttitude(data []byte) (any, error) {
	if err := need(data, 24); err != nil {
		return nil, err
	}
	return types.Attitude{Pitch: f64(data, 0), Roll: f64(data, 1), Yaw: f64(data, 2)}, nil
}

func decodeVelocity(data []byte) (any, error) {
	if err := need(data, 24); err != nil {
		return nil, err
	}
	return types.Velocity{North: f64(data, 0), East: f64(data, 1), Down: f64(data, 2)}, nil
}

func decodeStickState(data []byte) (any, error) {
	if err := need(data, 8); err != nil {
		return nil, err
	}
	return types.VirtualStickState{
		Enabled:  binary.LittleEndian.Uint32(data[0:4]) != 0,
		Advanced: binary.LittleEndian.Uint32(data[4:8]) != 0,
	}, nil
}

// decodeLocation parses a GGA sentence. The GGA altitude is taken as height
// above the takeoff point, which is how the bridge reports it.
func decodeLocation(data []byte) (any, error) {
	raw := strings.TrimSpace(cString(data))
	s, err := nmea.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse nmea")
	}
	if s.DataType() != nmea.TypeGGA {
		return nil, errors.Wrapf(ErrMalformedTelemetry, "unexpected sentence %s", s.DataType())
	}
	gga := s.(nmea.GGA)
	return types.Location3D{
		Latitude:  gga.Latitude,
		Longitude: gga.Longitude,
		Altitude:  gga.Altitude,
	}, nil
}

// EncodeTelemetry builds a Telemetry payload. Used by tests and by bridges
// written against this package.
func EncodeTelemetry(key telemetry.Key, value []byte) []byte {
	out := make([]byte, 0, len(key)+1+len(value))
	out = append(out, key...)
	out = append(out, 0)
	return append(out, value...)
}

// FormatGGA renders a fix as a checksummed GGA sentence.
func FormatGGA(loc types.Location3D) string {
	lat, ns := nmeaCoord(loc.Latitude, 2), "N"
	if loc.Latitude < 0 {
		ns = "S"
	}
	lon, ew := nmeaCoord(loc.Longitude, 3), "E"
	if loc.Longitude < 0 {
		ew = "W"
	}
	body := fmt.Sprintf("GPGGA,000000.00,%s,%s,%s,%s,1,08,0.9,%.1f,M,0.0,M,,", lat, ns, lon, ew, loc.Altitude)
	return fmt.Sprintf("$%s*%02X", body, nmeaChecksum(body))
}

func nmeaCoord(deg float64, width int) string {
	deg = math.Abs(deg)
	whole := math.Floor(deg)
	minutes := (deg - whole) * 60
	return fmt.Sprintf("%0*d%07.4f", width, int(whole), minutes)
}

func nmeaChecksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}
