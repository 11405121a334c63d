// Package reconcile drives lifecycle transitions from successive
// authoritative snapshots.
//
// The reconciler owns the current snapshot and the player's lifecycle
// state. Each new snapshot is classified against the previous one
// (game start, elimination, victory, game end, plain turn advance) and
// resolved by first-match priority; the classifications are mutually
// exclusive by construction. Elimination is checked before victory, so
// a snapshot raising both resolves to defeat for the affected player.
//
// A turn advance carries fixed side effects, in order: the stale
// staging record for the previous turn is evicted, the order ledger is
// reset (the server has consumed the staged orders), and only then are
// derived UI bindings recomputed from the new snapshot. A snapshot is
// never partially applied: if eviction fails, the previous snapshot and
// state are retained and the caller retries on the next push signal.
//
// Snapshots whose turn number went backwards while the game status is
// unchanged are rejected with ErrStaleSnapshot, guarding against a
// stale fetch resolving after a newer one.
package reconcile
