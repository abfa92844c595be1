package types

// Vector2D is a pair of thumbstick axis values.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vector3D is a position, rotation or velocity triple.
type Vector3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ControlStatusData is one pose sample from the remote operator device.
// Positions use the headset world axes: X right, Y up, Z forward.
// Rotations are Euler angles in degrees.
type ControlStatusData struct {
	BenchmarkPosition        Vector3D `json:"benchmarkPosition"`
	BenchmarkRotation        Vector3D `json:"benchmarkRotation"`
	LastPosition             Vector3D `json:"lastPosition"`
	LastRotation             Vector3D `json:"lastRotation"`
	CurrentPosition          Vector3D `json:"currentPosition"`
	CurrentRotation          Vector3D `json:"currentRotation"`
	LeftThumbStickValue      Vector2D `json:"leftThumbStickValue"`
	RightThumbStickValue     Vector2D `json:"rightThumbStickValue"`
	SampleTimestamp          int64    `json:"sampleTimestamp"`
	BenchmarkSampleTimestamp int64    `json:"benchmarkSampleTimestamp"`
}
