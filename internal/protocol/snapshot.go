package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// GameStatus is the server-reported lifecycle of the whole game.
type GameStatus string

const (
	// StatusWaiting means the game has not started (lobby).
	StatusWaiting GameStatus = "waiting"
	// StatusActive means turns are being played.
	StatusActive GameStatus = "active"
	// StatusFinished means the game has concluded.
	StatusFinished GameStatus = "finished"
)

// Valid reports whether s is one of the known statuses.
func (s GameStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusFinished:
		return true
	}
	return false
}

// Snapshot is one authoritative, point-in-time view of server game state
// for a single player. A Snapshot is produced by DecodeSnapshot and is
// never mutated afterwards; each fetch replaces the previous Snapshot
// wholesale.
type Snapshot struct {
	GameID       string          `json:"gameId"`
	TurnNumber   int             `json:"turnNumber"`
	Status       GameStatus      `json:"status"`
	Credits      int             `json:"credits"`
	Income       IncomeBreakdown `json:"incomeBreakdown"`
	Planets      []Planet        `json:"planets"`
	Mechs        []Mech          `json:"mechs"`
	Players      []Player        `json:"players"`
	VisibleTiles []Tile          `json:"visibleTiles"`
	CombatLogs   []CombatLog     `json:"combatLogs"`
	IsObserver   bool            `json:"isObserver"`
	IsEliminated bool            `json:"isEliminated"`
	IsVictor     bool            `json:"isVictor"`
	WinnerID     string          `json:"winnerId,omitempty"`

	// TurnDeadline is the auto-submit deadline in Unix milliseconds.
	// Zero means no deadline is active.
	TurnDeadline int64 `json:"turnDeadline,omitempty"`
}

// IncomeBreakdown itemizes the credits earned at the last turn boundary.
type IncomeBreakdown struct {
	Base   int `json:"base"`
	Mining int `json:"mining"`
	Total  int `json:"total"`
}

// Planet is one map location that can be owned, built on, and fought over.
type Planet struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	OwnerID   string   `json:"ownerId,omitempty"`
	Buildings []string `json:"buildings,omitempty"`
}

// HasBuilding reports whether the planet already carries a building of
// the given subtype.
func (p Planet) HasBuilding(subtype string) bool {
	for _, b := range p.Buildings {
		if b == subtype {
			return true
		}
	}
	return false
}

// Mech is one mobile unit.
type Mech struct {
	ID      int    `json:"id"`
	OwnerID string `json:"ownerId"`
	Kind    string `json:"kind"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	HP      int    `json:"hp"`
	MaxHP   int    `json:"maxHp"`
}

// Player is one participant as visible to the requesting player.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Eliminated bool   `json:"eliminated"`
}

// Tile is one visible map coordinate.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Deadline returns the turn deadline as wall-clock time.
// The second return is false when no deadline is active.
func (s *Snapshot) Deadline() (time.Time, bool) {
	if s.TurnDeadline == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(s.TurnDeadline), true
}

// PlanetByID returns the planet with the given id.
func (s *Snapshot) PlanetByID(id int) (Planet, bool) {
	for _, p := range s.Planets {
		if p.ID == id {
			return p, true
		}
	}
	return Planet{}, false
}

// MechByID returns the mech with the given id.
func (s *Snapshot) MechByID(id int) (Mech, bool) {
	for _, m := range s.Mechs {
		if m.ID == id {
			return m, true
		}
	}
	return Mech{}, false
}

// LogsForTurn returns the combat log entries recorded for one turn, in
// server emission order.
func (s *Snapshot) LogsForTurn(turn int) []CombatLog {
	var out []CombatLog
	for _, l := range s.CombatLogs {
		if l.TurnNumber == turn {
			out = append(out, l)
		}
	}
	return out
}

// DecodeSnapshot parses and validates a server snapshot payload.
//
// Validation happens at ingest: every combat log entry is checked against
// the embedded CUE schema and its detailedLog payload is decoded into its
// typed variant. A payload that does not match its logType is a decode
// error here, never a nil-field surprise downstream.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	// Capture raw log entries first so schema validation sees the exact
	// bytes the server sent, not a re-marshaled struct.
	var probe struct {
		CombatLogs []json.RawMessage `json:"combatLogs"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, raw := range probe.CombatLogs {
		if err := validateLogEntry(raw); err != nil {
			return nil, fmt.Errorf("decode snapshot: combat log %d: %w", i, err)
		}
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if !s.Status.Valid() {
		return nil, fmt.Errorf("decode snapshot: unknown status %q", s.Status)
	}
	if s.TurnNumber < 0 {
		return nil, fmt.Errorf("decode snapshot: negative turn number %d", s.TurnNumber)
	}
	return &s, nil
}
