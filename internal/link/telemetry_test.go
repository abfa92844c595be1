package link

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

func f64s(vals ...float64) []byte {
	var buf []byte
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func u32s(vals ...uint32) []byte {
	var buf []byte
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

func TestParseTelemetry(t *testing.T) {
	tests := []struct {
		key  telemetry.Key
		data []byte
		want any
	}{
		{telemetry.KeyConnection, u32s(1), true},
		{telemetry.KeyWindWarning, u32s(0), false},
		{telemetry.KeyAircraftAttitude, f64s(-2.5, 1, 87.5), types.Attitude{Pitch: -2.5, Roll: 1, Yaw: 87.5}},
		{telemetry.KeyGimbalAttitude, f64s(-30, 0, 12), types.Attitude{Pitch: -30, Roll: 0, Yaw: 12}},
		{telemetry.KeyAircraftVelocity, f64s(0.5, -0.25, 0.1), types.Velocity{North: 0.5, East: -0.25, Down: 0.1}},
		{telemetry.KeyUltrasonicHeight, u32s(12), 12},
		{telemetry.KeySignalQuality, u32s(55), 55},
		{telemetry.KeyBatteryTemperature, f64s(31.5), 31.5},
		{telemetry.KeyVirtualStickState, u32s(1, 0), types.VirtualStickState{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			key, v, err := ParseTelemetry(EncodeTelemetry(tt.key, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParseTelemetryNegativeInt(t *testing.T) {
	_, v, err := ParseTelemetry(EncodeTelemetry(telemetry.KeyUltrasonicHeight, u32s(0xFFFFFFFF)))
	require.NoError(t, err)
	assert.Equal(t, -1, v)
}

func TestParseTelemetryErrors(t *testing.T) {
	_, _, err := ParseTelemetry([]byte("AircraftAttitude"))
	assert.ErrorIs(t, err, ErrMalformedTelemetry)

	key, _, err := ParseTelemetry(EncodeTelemetry("Compass", u32s(1)))
	assert.ErrorIs(t, err, ErrUnknownTelemetry)
	assert.Equal(t, telemetry.Key("Compass"), key)

	_, _, err = ParseTelemetry(EncodeTelemetry(telemetry.KeyAircraftAttitude, f64s(1, 2)))
	assert.ErrorIs(t, err, ErrMalformedTelemetry)
}

func TestDecodeLocationGGA(t *testing.T) {
	body := "GPGGA,123519,2220.184,N,11415.930,E,1,08,0.9,1.2,M,0,M,,"
	sentence := fmt.Sprintf("$%s*%02X", body, nmeaChecksum(body))

	_, v, err := ParseTelemetry(EncodeTelemetry(telemetry.KeyAircraftLocation3D, append([]byte(sentence), 0)))
	require.NoError(t, err)
	loc, ok := v.(types.Location3D)
	require.True(t, ok)
	assert.InDelta(t, 22.3364, loc.Latitude, 1e-6)
	assert.InDelta(t, 114.2655, loc.Longitude, 1e-6)
	assert.InDelta(t, 1.2, loc.Altitude, 1e-9)
}

func TestDecodeLocationRejectsOtherSentences(t *testing.T) {
	body := "GPRMC,123519,A,2220.184,N,11415.930,E,0.0,0.0,230394,,,A"
	sentence := fmt.Sprintf("$%s*%02X", body, nmeaChecksum(body))
	_, _, err := ParseTelemetry(EncodeTelemetry(telemetry.KeyAircraftLocation3D, []byte(sentence)))
	assert.Error(t, err)

	_, _, err = ParseTelemetry(EncodeTelemetry(telemetry.KeyAircraftLocation3D, []byte("$GPGGA,garbage*00")))
	assert.Error(t, err)
}

func TestFormatGGARoundTrip(t *testing.T) {
	for _, loc := range []types.Location3D{
		{Latitude: 22.3364, Longitude: 114.2655, Altitude: 3.5},
		{Latitude: -33.8688, Longitude: 151.2093, Altitude: 0.8},
		{Latitude: 51.5007, Longitude: -0.1246, Altitude: 12},
	} {
		s := FormatGGA(loc)
		_, v, err := ParseTelemetry(EncodeTelemetry(telemetry.KeyAircraftLocation3D, []byte(s)))
		require.NoError(t, err, s)
		got := v.(types.Location3D)
		assert.InDelta(t, loc.Latitude, got.Latitude, 1e-5, s)
		assert.InDelta(t, loc.Longitude, got.Longitude, 1e-5, s)
		assert.InDelta(t, loc.Altitude, got.Altitude, 1e-9, s)
	}
}
