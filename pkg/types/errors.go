package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages.
var (
	// ErrScanInFlight is returned when a full scan is requested while
	// another one is still running.
	ErrScanInFlight = errors.New("scan already in flight")

	// ErrNotFound is returned by store lookups with no matching row.
	ErrNotFound = errors.New("not found")

	// ErrNoCredentials is returned when the venue client is constructed
	// without any usable authentication material.
	ErrNoCredentials = errors.New("no venue credentials configured")
)

// VenueError is an error response from the venue API.
type VenueError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *VenueError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("venue error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("venue error %d: %s", e.StatusCode, e.Message)
}
