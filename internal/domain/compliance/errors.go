package compliance

import "errors"

// ErrFrameworkNotFound is returned when the requested framework does not exist.
var ErrFrameworkNotFound = errors.New("framework not found")
