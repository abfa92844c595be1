package telemetry

import "errors"

var (
	// ErrNoValue is returned when a key has never been published.
	ErrNoValue = errors.New("telemetry: no value received")
	// ErrStale is returned when the last value is older than the stale threshold.
	ErrStale = errors.New("telemetry: value is stale")
)
