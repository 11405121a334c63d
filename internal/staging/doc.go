// Package staging provides SQLite-backed persistence for the order
// ledger, keyed by (game, turn), so a restart or page reload does not
// lose unsubmitted orders.
//
// The store holds at most one live record per (game, turn). Records for
// turns the player has advanced past are garbage; the reconciler evicts
// them opportunistically on turn advance. There is no background
// compaction.
//
// A separate last-seen-turn marker, keyed by game only, records the
// newest turn the player has watched a summary for. It is never used to
// reconstruct a ledger.
//
// Malformed or unreadable records are treated as absent, never as a
// crash: Load returns ok=false and no error for a row whose payload
// does not parse.
package staging
