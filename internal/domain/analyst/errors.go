package analyst

import "errors"

// ErrNotFound is returned when no stored analysis matches.
var ErrNotFound = errors.New("analysis not found")
