// Package harness runs YAML scenario files against the client core.
//
// A scenario is a sequence of snapshot applications interleaved with
// order mutations, each step carrying expectations on the resulting
// transition, ledger, and staging store. The harness wires a real
// staging database (temp file), a real ledger, and a real reconciler;
// only the network is absent, snapshots come from JSON fixtures.
//
// Every turn summary produced during a run is flattened into a reveal
// trace, one "kind|text" line per item, suitable for golden file
// comparison.
package harness
