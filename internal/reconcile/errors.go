package reconcile

import "errors"

// ErrStaleSnapshot rejects a snapshot whose turn number went backwards
// while the game status is unchanged. This happens when a slow fetch
// resolves after a newer one; the caller drops it and keeps the current
// snapshot.
var ErrStaleSnapshot = errors.New("stale snapshot: turn number went backwards")
