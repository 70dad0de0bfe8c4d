package detection

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ActorID derives the deterministic identifier of an actor. The same
// detector seeing the same signature on the same key always lands on the
// same id, so repeated matches merge instead of duplicating.
func ActorID(detector, venue, symbol, signature string) string {
	h := xxhash.New()
	for i, part := range [...]string{detector, venue, symbol, signature} {
		if i > 0 {
			_, _ = h.WriteString("\x00")
		}
		_, _ = h.WriteString(part)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
