package telemetry

// Key names one telemetry stream published by the flight-control layer.
type Key string

const (
	KeyConnection                 Key = "Connection"
	KeyFlightControllerConnection Key = "FlightControllerConnection"
	KeyAircraftAttitude           Key = "AircraftAttitude"
	KeyAircraftVelocity           Key = "AircraftVelocity"
	KeyAircraftLocation3D         Key = "AircraftLocation3D"
	KeyGimbalAttitude             Key = "GimbalAttitude"
	KeyUltrasonicHeight           Key = "UltrasonicHeight"
	KeyIsFlying                   Key = "IsFlying"
	KeyBatteryTemperature         Key = "BatteryTemperature"
	KeyWindWarning                Key = "WindWarning"
	KeySignalQuality              Key = "SignalQuality"
	KeyVirtualStickState          Key = "VirtualStickState"

	// Derived lines published by the position monitor.
	KeyMonitorPosition    Key = "MonitorPosition"
	KeyMonitorOrientation Key = "MonitorOrientation"

	// Round-trip latency of the remote data channel.
	KeyDataLatency Key = "DataLatency"
)

// Keys lists every stream the link subscribes to, in registration order.
var Keys = []Key{
	KeyConnection,
	KeyFlightControllerConnection,
	KeyAircraftAttitude,
	KeyAircraftVelocity,
	KeyAircraftLocation3D,
	KeyGimbalAttitude,
	KeyUltrasonicHeight,
	KeyIsFlying,
	KeyBatteryTemperature,
	KeyWindWarning,
	KeySignalQuality,
	KeyVirtualStickState,
}
