// Package ledger implements the local order-staging ledger.
//
// The ledger is the staging area for a player's not-yet-submitted move
// and build orders, plus the speculative credit balance those orders
// imply. It is pure state: no I/O, no timers, no goroutines. All
// mutation happens on the client's single logical thread of control, so
// the ledger itself carries no locking.
//
// Invariants:
//   - speculative credits == server credits - sum of queued build costs.
//     Build cost is captured at add time and refunded from the stored
//     value, so a later catalog price change cannot desynchronize the
//     refund from the original debit.
//   - At most one move order per mech (last write wins).
//   - At most one queued mech build per planet; at most one queued
//     building per (planet, subtype), and never for a subtype the planet
//     already has.
//
// Validation failures are resolved at this boundary as structured
// *ValidationError values; they never reach the server.
package ledger
