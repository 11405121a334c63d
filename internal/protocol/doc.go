// Package protocol defines the wire types shared with the turn server.
//
// This package contains type definitions and decoding only. All other
// internal packages import protocol; protocol imports nothing internal.
// This keeps the wire contract the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Snapshots are immutable per fetch: decoded once, replaced wholesale,
//     never patched in place.
//   - Combat log payloads are a tagged union keyed by logType. Payloads are
//     validated against the embedded CUE schema at ingest, never probed
//     field-by-field downstream.
//   - All ordering uses turnNumber (logical time), never wall-clock
//     timestamps. The turn deadline is the single wall-clock value and is
//     display/countdown input only.
package protocol
