package detection

import "errors"

// ErrUnknownActor is returned by lookups for ids the registry never saw or
// has already evicted.
var ErrUnknownActor = errors.New("unknown actor")
