package ledger

// BuildKind distinguishes the two build order targets.
type BuildKind string

const (
	// KindBuilding queues a planetary structure.
	KindBuilding BuildKind = "building"
	// KindMech queues a unit from the planet's factory.
	KindMech BuildKind = "mech"
)

// Valid reports whether k is a known build kind.
func (k BuildKind) Valid() bool {
	return k == KindBuilding || k == KindMech
}

// List names one of the two staged order lists.
type List string

const (
	// ListMoves addresses the staged move orders.
	ListMoves List = "moves"
	// ListBuilds addresses the staged build orders.
	ListBuilds List = "builds"
)

// MoveOrder stages one mech move for the current turn.
type MoveOrder struct {
	MechID int `json:"mechId"`
	FromX  int `json:"fromX"`
	FromY  int `json:"fromY"`
	ToX    int `json:"toX"`
	ToY    int `json:"toY"`
}

// BuildOrder stages one construction for the current turn. Cost is the
// price at add time; refunds always use this stored value.
type BuildOrder struct {
	PlanetID int       `json:"planetId"`
	Kind     BuildKind `json:"kind"`
	Subtype  string    `json:"subtype"`
	Cost     int       `json:"cost"`
}
