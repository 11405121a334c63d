package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewExitError(ExitFailure, "orders rejected")
		assert.Equal(t, "orders rejected", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with underlying error", func(t *testing.T) {
		inner := errors.New("no such file")
		err := WrapExitError(ExitCommandError, "failed to read snapshot file", inner)
		assert.Equal(t, "failed to read snapshot file: no such file", err.Error())
		assert.Equal(t, inner, err.Unwrap())
	})
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "x")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"turn": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_SuccessText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Success("done"))
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatter_ErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error("E_VALIDATION", "not enough credits", "INSUFFICIENT_CREDITS"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_VALIDATION", resp.Error.Code)
	assert.Equal(t, "not enough credits", resp.Error.Message)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error("E_VALIDATION", "not enough credits", nil))
	assert.Contains(t, buf.String(), "Error [E_VALIDATION]: not enough credits")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	t.Run("suppressed when not verbose", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "text", Writer: &buf}
		f.VerboseLog("loading %s", "snap.json")
		assert.Empty(t, buf.String())
	})

	t.Run("goes to ErrWriter when set", func(t *testing.T) {
		var out, errOut bytes.Buffer
		f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}
		f.VerboseLog("loading %s", "snap.json")
		assert.Empty(t, out.String())
		assert.Equal(t, "loading snap.json\n", errOut.String())
	})

	t.Run("falls back to Writer", func(t *testing.T) {
		var buf bytes.Buffer
		f := &OutputFormatter{Format: "text", Writer: &buf, Verbose: true}
		f.VerboseLog("retrying")
		assert.Equal(t, "retrying\n", buf.String())
	})
}
