package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with the given args and captures
// combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "orders.db")
}

func TestOrdersList_EmptyTurn(t *testing.T) {
	out, err := executeCommand(t, "--db", tempDB(t), "orders", "list", "--game", "g-1", "--turn", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Game g-1, turn 3")
	assert.Contains(t, out, "No orders staged.")
}

func TestOrdersAddBuild(t *testing.T) {
	db := tempDB(t)

	out, err := executeCommand(t, "--db", db, "orders", "add-build",
		"--game", "g-1", "--turn", "3",
		"--planet", "1", "--kind", "building", "--subtype", "mining", "--cost", "10",
		"--credits", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Speculative credits: 40")
	assert.Contains(t, out, "[0] building mining on planet 1 (10 credits)")

	// The staged record survives the process boundary the list command
	// simulates.
	out, err = executeCommand(t, "--db", db, "orders", "list", "--game", "g-1", "--turn", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "[0] building mining on planet 1 (10 credits)")
	assert.Contains(t, out, "Speculative credits: 40")
}

func TestOrdersAddBuild_InsufficientCredits(t *testing.T) {
	out, err := executeCommand(t, "--db", tempDB(t), "orders", "add-build",
		"--game", "g-1", "--turn", "3",
		"--planet", "1", "--kind", "building", "--subtype", "mining", "--cost", "10",
		"--credits", "5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_VALIDATION]")
}

func TestOrdersAddMove(t *testing.T) {
	db := tempDB(t)

	out, err := executeCommand(t, "--db", db, "orders", "add-move",
		"--game", "g-1", "--turn", "3",
		"--mech", "7", "--from", "5,5", "--to", "6,6")
	require.NoError(t, err)
	assert.Contains(t, out, "[0] mech 7: (5,5) -> (6,6)")
}

func TestOrdersAddMove_NotAdjacent(t *testing.T) {
	out, err := executeCommand(t, "--db", tempDB(t), "orders", "add-move",
		"--game", "g-1", "--turn", "3",
		"--mech", "7", "--from", "5,5", "--to", "8,8")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_VALIDATION]")
}

func TestOrdersAddMove_BadCoordinate(t *testing.T) {
	_, err := executeCommand(t, "--db", tempDB(t), "orders", "add-move",
		"--game", "g-1", "--turn", "3",
		"--mech", "7", "--from", "five,5", "--to", "6,6")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOrdersRemove_RefundsBuild(t *testing.T) {
	db := tempDB(t)

	_, err := executeCommand(t, "--db", db, "orders", "add-build",
		"--game", "g-1", "--turn", "3",
		"--planet", "1", "--kind", "building", "--subtype", "mining", "--cost", "10",
		"--credits", "50")
	require.NoError(t, err)

	out, err := executeCommand(t, "--db", db, "orders", "remove",
		"--game", "g-1", "--turn", "3", "--list", "builds", "--index", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Speculative credits: 50")
	assert.Contains(t, out, "No orders staged.")
}

func TestOrdersRemove_UnknownIndex(t *testing.T) {
	out, err := executeCommand(t, "--db", tempDB(t), "orders", "remove",
		"--game", "g-1", "--turn", "3", "--list", "moves", "--index", "4")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_VALIDATION]")
}

func TestOrdersClear(t *testing.T) {
	db := tempDB(t)

	_, err := executeCommand(t, "--db", db, "orders", "add-move",
		"--game", "g-1", "--turn", "3",
		"--mech", "7", "--from", "5,5", "--to", "6,6")
	require.NoError(t, err)

	out, err := executeCommand(t, "--db", db, "orders", "clear", "--game", "g-1", "--turn", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared staged orders for game g-1 turn 3")

	out, err = executeCommand(t, "--db", db, "orders", "list", "--game", "g-1", "--turn", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "No orders staged.")
}

func TestOrdersList_JSON(t *testing.T) {
	db := tempDB(t)

	_, err := executeCommand(t, "--db", db, "orders", "add-build",
		"--game", "g-1", "--turn", "3",
		"--planet", "1", "--kind", "building", "--subtype", "mining", "--cost", "10",
		"--credits", "50")
	require.NoError(t, err)

	out, err := executeCommand(t, "--db", db, "--format", "json", "orders", "list", "--game", "g-1", "--turn", "3")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ordersView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "g-1", resp.Data.GameID)
	assert.Equal(t, 3, resp.Data.Turn)
	assert.Equal(t, 40, resp.Data.SpeculativeCredits)
	require.Len(t, resp.Data.Builds, 1)
	assert.Equal(t, "mining", resp.Data.Builds[0].Subtype)
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		input   string
		x, y    int
		wantErr bool
	}{
		{input: "5,5", x: 5, y: 5},
		{input: " 3 , 7 ", x: 3, y: 7},
		{input: "0,0", x: 0, y: 0},
		{input: "5", wantErr: true},
		{input: "5,5,5", wantErr: true},
		{input: "a,5", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			x, y, err := parseCoord(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}
