package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LogType identifies the kind of a combat log entry. The set is the
// stable contract with the turn-resolution engine.
type LogType string

const (
	LogIncome             LogType = "income"
	LogBuildMech          LogType = "build_mech"
	LogBuildBuilding      LogType = "build_building"
	LogCapture            LogType = "capture"
	LogPlanetLost         LogType = "planet_lost"
	LogBattle             LogType = "battle"
	LogRepair             LogType = "repair"
	LogMaintenance        LogType = "maintenance"
	LogMaintenanceFailure LogType = "maintenance_failure"
	LogDefeat             LogType = "defeat"
	LogVictory            LogType = "victory"
	LogPlayerDefeated     LogType = "player_defeated"
	LogGameWon            LogType = "game_won"
	LogTurnStart          LogType = "turn_start"
)

// Valid reports whether t is one of the known log types.
func (t LogType) Valid() bool {
	switch t {
	case LogIncome, LogBuildMech, LogBuildBuilding, LogCapture, LogPlanetLost,
		LogBattle, LogRepair, LogMaintenance, LogMaintenanceFailure,
		LogDefeat, LogVictory, LogPlayerDefeated, LogGameWon, LogTurnStart:
		return true
	}
	return false
}

// CombatLog is one resolved-turn event. The Detail payload is a tagged
// union keyed by Type; it is decoded into its typed variant when the
// entry is unmarshaled.
type CombatLog struct {
	TurnNumber int     `json:"turnNumber"`
	Type       LogType `json:"logType"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Message    string  `json:"message"`
	Detail     Detail  `json:"detailedLog,omitempty"`
}

// Detail is the sealed interface over per-logType payload variants.
// Only types in this package implement Detail.
type Detail interface {
	isDetail()
}

// IncomeDetail itemizes one player's income event.
type IncomeDetail struct {
	PlanetID int    `json:"planetId,omitempty"`
	Source   string `json:"source,omitempty"`
	Amount   int    `json:"amount"`
}

// BuildDetail describes a completed mech or building construction.
type BuildDetail struct {
	PlanetID   int    `json:"planetId"`
	PlanetName string `json:"planetName,omitempty"`
	Subtype    string `json:"subtype"`
	Cost       int    `json:"cost"`
}

// TerritoryDetail describes a planet changing hands outside a battle.
type TerritoryDetail struct {
	PlanetID   int    `json:"planetId"`
	PlanetName string `json:"planetName,omitempty"`
	OwnerID    string `json:"ownerId,omitempty"`
}

// BattleDetail is the fully expanded record of one battle: per-round
// attack rolls plus the aggregate outcome and optional capture and
// final-status reports.
type BattleDetail struct {
	PlanetID                 int                  `json:"planetId,omitempty"`
	AttackerID               string               `json:"attackerId"`
	DefenderID               string               `json:"defenderId"`
	Rounds                   []BattleRound        `json:"rounds"`
	Outcome                  string               `json:"outcome"`
	CaptureInfo              *CaptureInfo         `json:"captureInfo,omitempty"`
	FinalMechStatus          []FactionMechStatus  `json:"finalMechStatus,omitempty"`
	FinalFortificationStatus *FortificationStatus `json:"finalFortificationStatus,omitempty"`
}

// BattleRound is one exchange of attacks within a battle.
type BattleRound struct {
	Round   int          `json:"round"`
	Attacks []AttackRoll `json:"attacks"`
}

// AttackRoll is one attack within a round.
type AttackRoll struct {
	AttackerMechID int  `json:"attackerMechId"`
	TargetMechID   int  `json:"targetMechId"`
	Roll           int  `json:"roll"`
	Damage         int  `json:"damage"`
	RemainingHP    int  `json:"remainingHp"`
	Destroyed      bool `json:"destroyed"`
}

// CaptureInfo records a battle that changed planet ownership.
type CaptureInfo struct {
	PlanetName string `json:"planetName"`
	OldOwnerID string `json:"oldOwnerId,omitempty"`
	NewOwnerID string `json:"newOwnerId"`
}

// FactionMechStatus is one faction's casualty report after a battle.
type FactionMechStatus struct {
	OwnerID   string `json:"ownerId"`
	Surviving int    `json:"surviving"`
	Lost      int    `json:"lost"`
}

// FortificationStatus is the defending fortification's state after a battle.
type FortificationStatus struct {
	HP        int  `json:"hp"`
	Destroyed bool `json:"destroyed"`
}

// RepairDetail lists the mechs repaired at a planet.
type RepairDetail struct {
	Repairs []MechRepair `json:"repairs"`
}

// MechRepair is one mech's repair.
type MechRepair struct {
	MechID int `json:"mechId"`
	Amount int `json:"amount"`
	NewHP  int `json:"newHp"`
}

// MaintenanceDetail records the upkeep charged at a turn boundary.
type MaintenanceDetail struct {
	TotalCost int `json:"totalCost"`
	Paid      int `json:"paid"`
}

// MaintenanceFailureDetail records mechs damaged by unpaid upkeep.
type MaintenanceFailureDetail struct {
	Damaged []MechDamage `json:"damaged"`
}

// MechDamage is one mech's damage from a maintenance failure.
type MechDamage struct {
	MechID      int `json:"mechId"`
	Damage      int `json:"damage"`
	RemainingHP int `json:"remainingHp"`
}

// StatusDetail carries the player a game-status event refers to.
// Used by player_defeated, defeat, game_won, and victory entries.
type StatusDetail struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
}

func (*IncomeDetail) isDetail()             {}
func (*BuildDetail) isDetail()              {}
func (*TerritoryDetail) isDetail()          {}
func (*BattleDetail) isDetail()             {}
func (*RepairDetail) isDetail()             {}
func (*MaintenanceDetail) isDetail()        {}
func (*MaintenanceFailureDetail) isDetail() {}
func (*StatusDetail) isDetail()             {}

// UnmarshalJSON decodes the entry and its detailedLog payload into the
// typed variant for the entry's logType.
func (l *CombatLog) UnmarshalJSON(data []byte) error {
	var aux struct {
		TurnNumber int             `json:"turnNumber"`
		Type       LogType         `json:"logType"`
		X          int             `json:"x"`
		Y          int             `json:"y"`
		Message    string          `json:"message"`
		Detail     json.RawMessage `json:"detailedLog"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if !aux.Type.Valid() {
		return fmt.Errorf("unknown log type %q", aux.Type)
	}

	detail, err := decodeDetail(aux.Type, aux.Detail)
	if err != nil {
		return fmt.Errorf("log type %s: %w", aux.Type, err)
	}

	l.TurnNumber = aux.TurnNumber
	l.Type = aux.Type
	l.X = aux.X
	l.Y = aux.Y
	l.Message = aux.Message
	l.Detail = detail
	return nil
}

// decodeDetail parses the raw payload into the variant for t.
// A missing payload is allowed for every type except battle; a battle
// without rounds cannot be replayed.
func decodeDetail(t LogType, raw json.RawMessage) (Detail, error) {
	if len(raw) == 0 || string(raw) == "null" {
		if t == LogBattle {
			return nil, fmt.Errorf("missing detailedLog")
		}
		return nil, nil
	}

	var (
		d   Detail
		err error
	)
	switch t {
	case LogIncome:
		d, err = decodeInto(raw, &IncomeDetail{})
	case LogBuildMech, LogBuildBuilding:
		d, err = decodeInto(raw, &BuildDetail{})
	case LogCapture, LogPlanetLost:
		d, err = decodeInto(raw, &TerritoryDetail{})
	case LogBattle:
		d, err = decodeInto(raw, &BattleDetail{})
	case LogRepair:
		d, err = decodeInto(raw, &RepairDetail{})
	case LogMaintenance:
		d, err = decodeInto(raw, &MaintenanceDetail{})
	case LogMaintenanceFailure:
		d, err = decodeInto(raw, &MaintenanceFailureDetail{})
	case LogDefeat, LogVictory, LogPlayerDefeated, LogGameWon:
		d, err = decodeInto(raw, &StatusDetail{})
	case LogTurnStart:
		// Turn markers carry no payload worth keeping.
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown log type %q", t)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func decodeInto[T Detail](raw json.RawMessage, v T) (Detail, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}
