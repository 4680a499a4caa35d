package bench

import "errors"

// ErrInvalidConfig is returned when a workload configuration is unusable.
var ErrInvalidConfig = errors.New("bench: invalid config")
