package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaCtx  *cue.Context
	schemaErr  error
)

// logSchema compiles the embedded schema once and returns the #CombatLog
// definition. Compilation failure is a programming error in the embedded
// schema, reported on every call rather than panicking.
func logSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		root := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := root.Err(); err != nil {
			schemaErr = fmt.Errorf("compile schema.cue: %w", err)
			return
		}
		schemaVal = root.LookupPath(cue.ParsePath("#CombatLog"))
		if err := schemaVal.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #CombatLog: %w", err)
		}
	})
	return schemaCtx, schemaVal, schemaErr
}

// validateLogEntry checks one raw combat log entry against the embedded
// CUE schema. The entry must satisfy the detailedLog shape pinned to its
// logType.
func validateLogEntry(raw json.RawMessage) error {
	ctx, schema, err := logSchema()
	if err != nil {
		return err
	}

	entry := ctx.CompileBytes(raw, cue.Filename("combatLog.json"))
	if err := entry.Err(); err != nil {
		return fmt.Errorf("parse entry: %w", err)
	}

	unified := schema.Unify(entry)
	if err := unified.Err(); err != nil {
		return fmt.Errorf("schema mismatch: %w", err)
	}
	if err := unified.Validate(cue.Final()); err != nil {
		return fmt.Errorf("schema mismatch: %w", err)
	}
	return nil
}
