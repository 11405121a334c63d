package reconcile

import (
	"context"
	"fmt"

	"github.com/roach88/skirmish/internal/protocol"
)

// TransitionKind classifies what one snapshot application meant.
// Classifications are resolved by first match, so each application
// yields exactly one kind.
type TransitionKind string

const (
	// KindInitial is the first snapshot applied for a game.
	KindInitial TransitionKind = "initial"
	// KindGameStarted means the game left the lobby.
	KindGameStarted TransitionKind = "game_started"
	// KindEliminated means this player was eliminated on this snapshot.
	KindEliminated TransitionKind = "eliminated"
	// KindVictory means this player won on this snapshot.
	KindVictory TransitionKind = "victory"
	// KindGameEnded means the game finished without this player winning
	// or being newly eliminated (another player's victory, observed).
	KindGameEnded TransitionKind = "game_ended"
	// KindTurnAdvanced is a plain turn boundary.
	KindTurnAdvanced TransitionKind = "turn_advanced"
	// KindRefresh means nothing lifecycle-relevant changed; the snapshot
	// still replaces the previous one (mid-turn state refresh).
	KindRefresh TransitionKind = "refresh"
)

// Summary describes the turn summary the caller should narrate after a
// transition. Nil on transitions with nothing to narrate.
type Summary struct {
	// Turn is the turn number whose combat logs make up the summary.
	Turn int

	// GameOver selects the terminal separator instead of the
	// start-of-next-turn one.
	GameOver bool
}

// Transition is the result of applying one snapshot.
type Transition struct {
	Kind TransitionKind
	From State
	To   State

	// TurnAdvanced reports that the turn number changed and the
	// turn-boundary side effects ran.
	TurnAdvanced bool

	// PrevTurn is the turn number of the replaced snapshot. Zero on the
	// initial application.
	PrevTurn int

	Summary *Summary
}

// Config wires the reconciler's side effects. All fields are optional;
// a nil callback is skipped.
type Config struct {
	// EvictStaged removes the staged order record for a consumed turn.
	// Called before any in-memory mutation; an error aborts the whole
	// application.
	EvictStaged func(ctx context.Context, gameID string, turn int) error

	// ResetOrders empties the order ledger and reseeds its balance from
	// the new authoritative credit value.
	ResetOrders func(serverCredits int)

	// Rebind recomputes derived bindings after a snapshot is accepted.
	// Called on every successful application, including refreshes.
	Rebind func(snap *protocol.Snapshot, st State)
}

// Reconciler applies authoritative snapshots and owns the player's
// lifecycle state. Not safe for concurrent use; the client's run loop
// is the only caller.
type Reconciler struct {
	cfg   Config
	prev  *protocol.Snapshot
	state State
}

// New creates a reconciler with no snapshot applied yet.
func New(cfg Config) *Reconciler {
	return &Reconciler{cfg: cfg}
}

// State returns the current lifecycle state.
func (r *Reconciler) State() State {
	return r.state
}

// Snapshot returns the last accepted snapshot, or nil before the first
// application.
func (r *Reconciler) Snapshot() *protocol.Snapshot {
	return r.prev
}

// Apply classifies snap against the previous snapshot, runs the
// turn-boundary side effects, and installs snap as current. On error
// nothing is changed: the previous snapshot, state, ledger, and staging
// record all survive, and the caller retries on the next push signal.
func (r *Reconciler) Apply(ctx context.Context, snap *protocol.Snapshot) (Transition, error) {
	if snap == nil {
		return Transition{}, fmt.Errorf("apply snapshot: nil snapshot")
	}

	if r.prev == nil {
		st := stateForSnapshot(snap)
		tr := Transition{Kind: KindInitial, From: r.state, To: st}
		r.prev = snap
		r.state = st
		r.rebind(snap, st)
		return tr, nil
	}

	prev := r.prev
	if snap.TurnNumber < prev.TurnNumber && snap.Status == prev.Status {
		return Transition{}, fmt.Errorf("apply snapshot: turn %d after %d: %w",
			snap.TurnNumber, prev.TurnNumber, ErrStaleSnapshot)
	}

	turnAdvanced := snap.TurnNumber != prev.TurnNumber
	gameFinished := snap.Status == protocol.StatusFinished

	// A plain advance narrates the turn that just resolved; elimination
	// and victory narrate the current turn.
	resolvedTurn := snap.TurnNumber
	if turnAdvanced {
		resolvedTurn = snap.TurnNumber - 1
	}

	// An established observer's later turns are narrated lightly: the
	// transition still runs its side effects, but no summary is forced
	// open.
	alreadyObserver := r.state.Phase == PhaseObserver

	kind := KindRefresh
	to := r.state
	var summary *Summary

	// First match wins. Elimination outranks victory: a snapshot raising
	// both resolves to defeat for this player.
	switch {
	case prev.Status == protocol.StatusWaiting && snap.Status != protocol.StatusWaiting:
		kind = KindGameStarted
		to = stateForSnapshot(snap)

	case !prev.IsEliminated && snap.IsEliminated:
		kind = KindEliminated
		to = State{Phase: PhaseObserver, Reason: ReasonDefeated}
		summary = &Summary{Turn: snap.TurnNumber, GameOver: true}

	case snap.IsVictor && !prev.IsVictor:
		kind = KindVictory
		to = State{Phase: PhaseObserver, Reason: ReasonVictor}
		if gameFinished {
			to = State{Phase: PhaseFinished}
		}
		summary = &Summary{Turn: snap.TurnNumber, GameOver: true}

	case gameFinished && prev.Status != protocol.StatusFinished:
		kind = KindGameEnded
		to = State{Phase: PhaseFinished}
		if !alreadyObserver {
			summary = &Summary{Turn: resolvedTurn, GameOver: true}
		}

	case turnAdvanced:
		kind = KindTurnAdvanced
		if !alreadyObserver {
			summary = &Summary{Turn: resolvedTurn, GameOver: gameFinished}
		}
	}

	// Side effects before any in-memory mutation. An eviction failure
	// leaves the reconciler exactly as it was.
	if turnAdvanced {
		if err := r.evictStaged(ctx, snap.GameID, prev.TurnNumber); err != nil {
			return Transition{}, fmt.Errorf("apply snapshot: %w", err)
		}
		r.resetOrders(snap.Credits)
	} else if r.state.CanSubmit() && !to.CanSubmit() {
		// Leaving the active phase without a turn boundary: staged
		// orders are moot, the record for this turn is kept for
		// post-mortem inspection.
		r.resetOrders(snap.Credits)
	}

	from := r.state
	r.prev = snap
	r.state = to
	r.rebind(snap, to)

	return Transition{
		Kind:         kind,
		From:         from,
		To:           to,
		TurnAdvanced: turnAdvanced,
		PrevTurn:     prev.TurnNumber,
		Summary:      summary,
	}, nil
}

func (r *Reconciler) evictStaged(ctx context.Context, gameID string, turn int) error {
	if r.cfg.EvictStaged == nil {
		return nil
	}
	return r.cfg.EvictStaged(ctx, gameID, turn)
}

func (r *Reconciler) resetOrders(serverCredits int) {
	if r.cfg.ResetOrders != nil {
		r.cfg.ResetOrders(serverCredits)
	}
}

func (r *Reconciler) rebind(snap *protocol.Snapshot, st State) {
	if r.cfg.Rebind != nil {
		r.cfg.Rebind(snap, st)
	}
}
