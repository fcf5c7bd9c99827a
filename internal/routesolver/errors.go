package routesolver

import "github.com/pkg/errors"

// ErrNoUndrivenSegments is returned when an area has no segment with
// driven=false and undriveable=false: an early-success case, not a
// failure, per spec §4.8.
var ErrNoUndrivenSegments = errors.New("area has no undriven, driveable segments")

// ErrDisconnected is returned when a non-primary connected component
// cannot be bridged to the primary one.
var ErrDisconnected = errors.New("required-edge graph could not be made connected")

// ErrMatchingFailed is returned when odd-node matching over the full
// graph's shortest paths cannot be completed.
var ErrMatchingFailed = errors.New("odd-node matching failed")
