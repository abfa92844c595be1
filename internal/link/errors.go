package link

import "errors"

var (
	ErrNotConnected       = errors.New("link: not connected")
	ErrRequestTimeout     = errors.New("link: request timed out")
	ErrUnknownTelemetry   = errors.New("link: unknown telemetry key")
	ErrConnectionClosed   = errors.New("link: connection closed")
	ErrMalformedTelemetry = errors.New("link: malformed telemetry payload")
)
