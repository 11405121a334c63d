package ledger

// Ledger is the staging area for one player's unsubmitted orders.
// Not safe for concurrent use; all mutation happens on the client's
// run loop between suspension points.
type Ledger struct {
	moves       []MoveOrder
	builds      []BuildOrder
	speculative int
}

// New creates an empty ledger seeded with the authoritative credit
// balance.
func New(serverCredits int) *Ledger {
	return &Ledger{speculative: serverCredits}
}

// Restore rebuilds a ledger from previously staged orders. The
// speculative balance is recomputed from serverCredits so a restored
// ledger is consistent even if the server-reported balance changed
// since the orders were staged.
func Restore(moves []MoveOrder, builds []BuildOrder, serverCredits int) *Ledger {
	l := &Ledger{
		moves:  append([]MoveOrder(nil), moves...),
		builds: append([]BuildOrder(nil), builds...),
	}
	l.RecomputeFromBuilds(serverCredits)
	return l
}

// AddBuild stages a construction order and debits its cost from the
// speculative balance. The built list is the planet's current building
// subtypes, used for the already-built check.
func (l *Ledger) AddBuild(planetID int, kind BuildKind, subtype string, cost int, built []string) error {
	if l.speculative < cost {
		return newValidationError(CodeInsufficientCredits,
			"build %s costs %d, %d available", subtype, cost, l.speculative)
	}

	switch kind {
	case KindMech:
		// Factories build one unit per turn.
		for _, b := range l.builds {
			if b.PlanetID == planetID && b.Kind == KindMech {
				return newValidationError(CodeAlreadyQueued,
					"planet %d already has a mech queued", planetID)
			}
		}
	case KindBuilding:
		for _, have := range built {
			if have == subtype {
				return newValidationError(CodeAlreadyBuilt,
					"planet %d already has a %s", planetID, subtype)
			}
		}
		for _, b := range l.builds {
			if b.PlanetID == planetID && b.Kind == KindBuilding && b.Subtype == subtype {
				return newValidationError(CodeAlreadyQueued,
					"planet %d already has a %s queued", planetID, subtype)
			}
		}
	default:
		return newValidationError(CodeAlreadyQueued, "unknown build kind %q", kind)
	}

	l.builds = append(l.builds, BuildOrder{
		PlanetID: planetID,
		Kind:     kind,
		Subtype:  subtype,
		Cost:     cost,
	})
	l.speculative -= cost
	return nil
}

// AddMove stages a move order for a mech, replacing any prior move for
// the same mech (last write wins). Moves have no credit effect.
func (l *Ledger) AddMove(mechID, fromX, fromY, toX, toY int) error {
	if !adjacent(fromX, fromY, toX, toY) {
		return newValidationError(CodeNotAdjacent,
			"mech %d cannot move from (%d,%d) to (%d,%d)", mechID, fromX, fromY, toX, toY)
	}

	order := MoveOrder{MechID: mechID, FromX: fromX, FromY: fromY, ToX: toX, ToY: toY}
	for i, m := range l.moves {
		if m.MechID == mechID {
			l.moves[i] = order
			return nil
		}
	}
	l.moves = append(l.moves, order)
	return nil
}

// adjacent reports whether the destination is one tile away in any of
// the eight directions.
func adjacent(fromX, fromY, toX, toY int) bool {
	dx := toX - fromX
	dy := toY - fromY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx == 0 && dy == 0 {
		return false
	}
	return dx <= 1 && dy <= 1
}

// RemoveOrder removes the order at index from the named list. Removing
// a build refunds its stored cost; the refund is never blocked, even
// when the balance is already negative.
func (l *Ledger) RemoveOrder(list List, index int) error {
	switch list {
	case ListMoves:
		if index < 0 || index >= len(l.moves) {
			return newValidationError(CodeUnknownOrder, "no move order at index %d", index)
		}
		l.moves = append(l.moves[:index], l.moves[index+1:]...)
		return nil
	case ListBuilds:
		if index < 0 || index >= len(l.builds) {
			return newValidationError(CodeUnknownOrder, "no build order at index %d", index)
		}
		l.speculative += l.builds[index].Cost
		l.builds = append(l.builds[:index], l.builds[index+1:]...)
		return nil
	default:
		return newValidationError(CodeUnknownOrder, "unknown order list %q", list)
	}
}

// ClearAll refunds every queued build and empties both lists.
// Idempotent: a second call finds nothing to refund.
func (l *Ledger) ClearAll() {
	for _, b := range l.builds {
		l.speculative += b.Cost
	}
	l.moves = nil
	l.builds = nil
}

// Reset empties the ledger and seeds the balance from a fresh
// authoritative value. Used when the turn advances and the staged
// orders have been consumed by the server.
func (l *Ledger) Reset(serverCredits int) {
	l.moves = nil
	l.builds = nil
	l.speculative = serverCredits
}

// RecomputeFromBuilds sets the speculative balance from an
// authoritative credit value and the currently staged builds. The
// result may be negative; a negative balance is display-only and never
// blocks removal or refund.
func (l *Ledger) RecomputeFromBuilds(serverCredits int) {
	total := 0
	for _, b := range l.builds {
		total += b.Cost
	}
	l.speculative = serverCredits - total
}

// SpeculativeCredits returns the current speculative balance.
func (l *Ledger) SpeculativeCredits() int {
	return l.speculative
}

// Moves returns a copy of the staged move orders.
func (l *Ledger) Moves() []MoveOrder {
	return append([]MoveOrder(nil), l.moves...)
}

// Builds returns a copy of the staged build orders.
func (l *Ledger) Builds() []BuildOrder {
	return append([]BuildOrder(nil), l.builds...)
}

// Empty reports whether no orders are staged.
func (l *Ledger) Empty() bool {
	return len(l.moves) == 0 && len(l.builds) == 0
}
