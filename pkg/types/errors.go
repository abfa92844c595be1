package types

import "fmt"

// VendorError is a failure result reported by the flight-control layer.
type VendorError struct {
	Op      string
	Code    int
	Message string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor error: %s (%d): %s", e.Op, e.Code, e.Message)
}
