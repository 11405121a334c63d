package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/protocol"
	"github.com/roach88/skirmish/internal/reconcile"
	"github.com/roach88/skirmish/internal/reveal"
	"github.com/roach88/skirmish/internal/staging"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Failures lists every expectation that did not hold, one line per
	// failure, in step order.
	Failures []string

	// Trace is the reveal trace of every turn summary produced during
	// the run, one "kind|text" line per item.
	Trace []byte
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// runner carries the wired client core through a scenario.
type runner struct {
	scenario *Scenario
	ctx      context.Context
	led      *ledger.Ledger
	store    *staging.Store
	rec      *reconcile.Reconciler
	trace    bytes.Buffer
	failures []string
}

// Run executes a scenario against a fresh staging database and returns
// the collected failures and reveal trace. The error return covers
// harness problems (unreadable fixtures, database failures); scenario
// expectation mismatches land in Result.Failures.
func Run(s *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "skirmish-harness-*")
	if err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}
	defer os.RemoveAll(dir)

	store, err := staging.Open(filepath.Join(dir, "staging.db"))
	if err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}
	defer store.Close()

	r := &runner{
		scenario: s,
		ctx:      context.Background(),
		led:      ledger.New(0),
		store:    store,
	}
	r.rec = reconcile.New(reconcile.Config{
		EvictStaged: store.Evict,
		ResetOrders: r.led.Reset,
	})

	for i, step := range s.Steps {
		if step.Snapshot != "" {
			if err := r.applySnapshot(i, step); err != nil {
				return nil, err
			}
			continue
		}
		for j, o := range step.Orders {
			r.applyOrder(i, j, o)
		}
	}

	return &Result{Failures: r.failures, Trace: r.trace.Bytes()}, nil
}

func (r *runner) failf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func (r *runner) applySnapshot(step int, s Step) error {
	data, err := os.ReadFile(s.Snapshot)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", step, err)
	}
	snap, err := protocol.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", step, err)
	}

	tr, applyErr := r.rec.Apply(r.ctx, snap)

	expect := s.Expect
	if expect != nil && expect.Error != "" {
		if applyErr == nil {
			r.failf("steps[%d]: expected error containing %q, application succeeded", step, expect.Error)
		} else if !strings.Contains(applyErr.Error(), expect.Error) {
			r.failf("steps[%d]: expected error containing %q, got %q", step, expect.Error, applyErr)
		}
		return nil
	}
	if applyErr != nil {
		r.failf("steps[%d]: apply snapshot: %v", step, applyErr)
		return nil
	}

	// The first snapshot seeds the ledger the way the client does on
	// game load.
	if tr.Kind == reconcile.KindInitial {
		r.led.Reset(snap.Credits)
	}

	if tr.Summary != nil {
		r.appendSummary(snap, *tr.Summary)
	}
	if expect != nil {
		r.checkExpect(step, expect, tr)
	}
	return nil
}

func (r *runner) appendSummary(snap *protocol.Snapshot, s reconcile.Summary) {
	if s.GameOver {
		fmt.Fprintf(&r.trace, "== turn %d (game over) ==\n", s.Turn)
	} else {
		fmt.Fprintf(&r.trace, "== turn %d ==\n", s.Turn)
	}
	for _, item := range reveal.Flatten(s.Turn, snap.LogsForTurn(s.Turn), s.GameOver) {
		fmt.Fprintf(&r.trace, "%s|%s\n", item.Kind, item.Text)
	}
}

func (r *runner) checkExpect(step int, e *Expect, tr reconcile.Transition) {
	if e.Kind != "" && string(tr.Kind) != e.Kind {
		r.failf("steps[%d]: kind = %s, want %s", step, tr.Kind, e.Kind)
	}
	if e.Phase != "" && string(tr.To.Phase) != e.Phase {
		r.failf("steps[%d]: phase = %s, want %s", step, tr.To.Phase, e.Phase)
	}
	if e.Reason != "" && string(tr.To.Reason) != e.Reason {
		r.failf("steps[%d]: reason = %s, want %s", step, tr.To.Reason, e.Reason)
	}
	if e.NoSummary && tr.Summary != nil {
		r.failf("steps[%d]: unexpected summary for turn %d", step, tr.Summary.Turn)
	}
	if e.SummaryTurn != nil {
		if tr.Summary == nil {
			r.failf("steps[%d]: expected summary for turn %d, got none", step, *e.SummaryTurn)
		} else if tr.Summary.Turn != *e.SummaryTurn {
			r.failf("steps[%d]: summary turn = %d, want %d", step, tr.Summary.Turn, *e.SummaryTurn)
		}
	}
	if e.GameOver != nil {
		if tr.Summary == nil {
			r.failf("steps[%d]: expected summary with game_over=%v, got none", step, *e.GameOver)
		} else if tr.Summary.GameOver != *e.GameOver {
			r.failf("steps[%d]: game over = %v, want %v", step, tr.Summary.GameOver, *e.GameOver)
		}
	}
	if e.SpeculativeCredits != nil && r.led.SpeculativeCredits() != *e.SpeculativeCredits {
		r.failf("steps[%d]: speculative credits = %d, want %d",
			step, r.led.SpeculativeCredits(), *e.SpeculativeCredits)
	}
	if e.LedgerEmpty != nil && r.led.Empty() != *e.LedgerEmpty {
		r.failf("steps[%d]: ledger empty = %v, want %v", step, r.led.Empty(), *e.LedgerEmpty)
	}
	for _, turn := range e.StagedAbsent {
		if r.stagedExists(step, turn) {
			r.failf("steps[%d]: staging record for turn %d should be absent", step, turn)
		}
	}
	for _, turn := range e.StagedPresent {
		if !r.stagedExists(step, turn) {
			r.failf("steps[%d]: staging record for turn %d should be present", step, turn)
		}
	}
}

func (r *runner) stagedExists(step, turn int) bool {
	_, ok, err := r.store.Load(r.ctx, r.scenario.GameID, turn)
	if err != nil {
		r.failf("steps[%d]: load staging record for turn %d: %v", step, turn, err)
		return false
	}
	return ok
}

func (r *runner) applyOrder(step, idx int, o OrderStep) {
	snap := r.rec.Snapshot()
	if snap == nil {
		r.failf("steps[%d].orders[%d]: no snapshot applied yet", step, idx)
		return
	}

	var err error
	persist := true
	switch {
	case o.Build != nil:
		var built []string
		if p, ok := snap.PlanetByID(o.Build.Planet); ok {
			built = p.Buildings
		}
		err = r.led.AddBuild(o.Build.Planet, ledger.BuildKind(o.Build.Kind), o.Build.Subtype, o.Build.Cost, built)
	case o.Move != nil:
		mech, ok := snap.MechByID(o.Move.Mech)
		if !ok {
			r.failf("steps[%d].orders[%d]: unknown mech %d in fixture", step, idx, o.Move.Mech)
			return
		}
		err = r.led.AddMove(o.Move.Mech, mech.X, mech.Y, o.Move.ToX, o.Move.ToY)
	case o.Remove != nil:
		list := ledger.ListMoves
		if o.Remove.List == "builds" {
			list = ledger.ListBuilds
		}
		err = r.led.RemoveOrder(list, o.Remove.Index)
	case o.Clear:
		r.led.ClearAll()
		if evictErr := r.store.Evict(r.ctx, r.scenario.GameID, snap.TurnNumber); evictErr != nil {
			r.failf("steps[%d].orders[%d]: evict: %v", step, idx, evictErr)
		}
		persist = false
	}

	if o.ExpectError != "" {
		var ve *ledger.ValidationError
		switch {
		case err == nil:
			r.failf("steps[%d].orders[%d]: expected %s rejection, mutation succeeded", step, idx, o.ExpectError)
		case !errors.As(err, &ve) || string(ve.Code) != o.ExpectError:
			r.failf("steps[%d].orders[%d]: expected %s rejection, got %v", step, idx, o.ExpectError, err)
		}
		return
	}
	if err != nil {
		r.failf("steps[%d].orders[%d]: %v", step, idx, err)
		return
	}

	if persist {
		if saveErr := r.store.Save(r.ctx, r.scenario.GameID, snap.TurnNumber, r.led); saveErr != nil {
			r.failf("steps[%d].orders[%d]: save: %v", step, idx, saveErr)
		}
	}
}
