package reconcile

import "github.com/roach88/skirmish/internal/protocol"

// Phase is the player's lifecycle phase.
type Phase string

const (
	// PhaseLobby means the game has not started.
	PhaseLobby Phase = "lobby"
	// PhaseActive means the player is playing turns.
	PhaseActive Phase = "active"
	// PhaseObserver means the player watches but no longer submits
	// orders. Terminal for input, not for transitions: further turns are
	// still narrated.
	PhaseObserver Phase = "observer"
	// PhaseFinished means the game has concluded.
	PhaseFinished Phase = "finished"
)

// ObserverReason records why a player became an observer.
type ObserverReason string

const (
	// ReasonNone applies outside PhaseObserver.
	ReasonNone ObserverReason = ""
	// ReasonDefeated marks an eliminated player.
	ReasonDefeated ObserverReason = "defeated"
	// ReasonVictor marks the winner watching the game wind down.
	ReasonVictor ObserverReason = "victor"
)

// State is the lifecycle state owned by the reconciler.
type State struct {
	Phase  Phase
	Reason ObserverReason
}

// CanSubmit reports whether order-submission affordances are enabled.
func (s State) CanSubmit() bool {
	return s.Phase == PhaseActive
}

// stateForSnapshot derives the lifecycle state for a first snapshot,
// where there is no previous one to diff against.
func stateForSnapshot(snap *protocol.Snapshot) State {
	switch {
	case snap.Status == protocol.StatusWaiting:
		return State{Phase: PhaseLobby}
	case snap.IsEliminated:
		return State{Phase: PhaseObserver, Reason: ReasonDefeated}
	case snap.IsVictor:
		return State{Phase: PhaseObserver, Reason: ReasonVictor}
	case snap.Status == protocol.StatusFinished:
		return State{Phase: PhaseFinished}
	default:
		return State{Phase: PhaseActive}
	}
}
