package staging

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/protocol"
)

// Record is a staged ledger as persisted for one (game, turn).
type Record struct {
	Moves              []ledger.MoveOrder  `json:"moves"`
	Builds             []ledger.BuildOrder `json:"builds"`
	SpeculativeCredits int                 `json:"speculative_credits"`
}

// Restore rebuilds an in-memory ledger from the record, recomputing the
// speculative balance from the given authoritative credit value.
func (r Record) Restore(serverCredits int) *ledger.Ledger {
	return ledger.Restore(r.Moves, r.Builds, serverCredits)
}

// marshalLedger serializes a ledger to canonical JSON TEXT for storage.
// Canonical serialization keeps staged records byte-stable across runs,
// which golden tests and overwrite-on-write rely on.
func marshalLedger(l *ledger.Ledger) (string, error) {
	moves := l.Moves()
	builds := l.Builds()

	moveList := make([]any, len(moves))
	for i, m := range moves {
		moveList[i] = map[string]any{
			"mechId": m.MechID,
			"fromX":  m.FromX,
			"fromY":  m.FromY,
			"toX":    m.ToX,
			"toY":    m.ToY,
		}
	}

	buildList := make([]any, len(builds))
	for i, b := range builds {
		buildList[i] = map[string]any{
			"planetId": b.PlanetID,
			"kind":     string(b.Kind),
			"subtype":  b.Subtype,
			"cost":     b.Cost,
		}
	}

	data, err := protocol.MarshalCanonical(map[string]any{
		"moves":               moveList,
		"builds":              buildList,
		"speculative_credits": l.SpeculativeCredits(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal ledger: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord parses a stored ledger payload. The bool result is
// false for malformed payloads; per the store contract they are treated
// as absent, not as errors.
func unmarshalRecord(data string) (Record, bool) {
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Record{}, false
	}
	for _, b := range r.Builds {
		if !b.Kind.Valid() || b.Cost < 0 {
			return Record{}, false
		}
	}
	return r, true
}
