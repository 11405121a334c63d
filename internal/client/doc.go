// Package client glues the order ledger, staging store, reconciler, and
// reveal sequencer into a running game client.
//
// The controller is a single-writer loop: all ledger, staging, and
// reconciler mutation happens on the Run goroutine. External callers
// (the push listener, UI affordances) submit commands to the loop and,
// where an answer matters, wait for the reply. This keeps the shared
// state free of locks without giving up synchronous error returns.
//
// Network failures are non-fatal by design. A failed snapshot fetch
// keeps the last good snapshot and lifecycle state and is retried on
// the next push signal; a failed submission leaves the ledger and
// staging record untouched so the player can retry.
package client
