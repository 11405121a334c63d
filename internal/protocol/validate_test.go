package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLogEntry_Valid(t *testing.T) {
	entries := []string{
		`{"turnNumber": 1, "logType": "income", "x": 0, "y": 0, "detailedLog": {"amount": 10}}`,
		`{"turnNumber": 1, "logType": "turn_start", "x": 0, "y": 0}`,
		`{"turnNumber": 2, "logType": "battle", "x": 1, "y": 1, "detailedLog": {
			"attackerId": "p1", "defenderId": "p2", "outcome": "attacker_won",
			"rounds": [{"round": 1, "attacks": []}]
		}}`,
		`{"turnNumber": 3, "logType": "maintenance", "x": 0, "y": 0, "detailedLog": {"totalCost": 4, "paid": 4}}`,
	}

	for _, entry := range entries {
		assert.NoError(t, validateLogEntry(json.RawMessage(entry)), entry)
	}
}

func TestValidateLogEntry_BattleRequiresPayload(t *testing.T) {
	entry := json.RawMessage(`{"turnNumber": 2, "logType": "battle", "x": 1, "y": 1}`)
	require.Error(t, validateLogEntry(entry))
}

func TestValidateLogEntry_RejectsWrongPayloadShape(t *testing.T) {
	// A maintenance payload must carry non-negative integers.
	entry := json.RawMessage(`{"turnNumber": 1, "logType": "maintenance", "x": 0, "y": 0, "detailedLog": {"totalCost": -5, "paid": 0}}`)
	require.Error(t, validateLogEntry(entry))
}

func TestValidateLogEntry_RejectsUnknownType(t *testing.T) {
	entry := json.RawMessage(`{"turnNumber": 1, "logType": "meteor_strike", "x": 0, "y": 0}`)
	require.Error(t, validateLogEntry(entry))
}

func TestDecodeSnapshot_ValidatesLogs(t *testing.T) {
	data := []byte(`{
		"gameId": "g-1", "turnNumber": 2, "status": "active",
		"combatLogs": [
			{"turnNumber": 1, "logType": "income", "x": 0, "y": 0, "detailedLog": {"amount": "ten"}}
		]
	}`)

	_, err := DecodeSnapshot(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "combat log 0")
}
