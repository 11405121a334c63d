// Package reveal implements the timed playback engine for a resolved
// turn's event log.
//
// Flatten turns one turn's combat logs into a strictly ordered queue of
// reveal items: battles first (fully expanded per round), then a turn
// separator, then income, maintenance, construction, repairs, territory
// changes, and game-status events. Playback dequeues items one at a
// time, rendering each and waiting a kind-dependent delay before the
// next. There is exactly one consumer; items are strictly FIFO.
//
// Skip is the sole cancellation primitive. It is idempotent and total:
// the remaining queue is drained, every remaining item is rendered
// immediately marked as already revealed, and no further delays run.
// Starting a new playback while one is in flight force-skips the prior
// one first, so at most one playback is ever active.
//
// Completion, natural or skipped, fires the completion callback exactly
// once per playback.
package reveal
