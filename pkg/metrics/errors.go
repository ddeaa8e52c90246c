package metrics

import "errors"

// ErrNotCollected is returned when the registry cannot be gathered.
var ErrNotCollected = errors.New("metric not collected")
