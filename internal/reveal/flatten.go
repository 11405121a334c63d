package reveal

import (
	"fmt"

	"github.com/roach88/skirmish/internal/protocol"
)

// Flatten builds the reveal queue for one resolved turn. Only entries
// whose turn number equals turn are considered; turn_start markers are
// excluded. gameOver selects the "Game Over" separator instead of the
// next-turn one.
//
// If the turn produced no events, a single placeholder item is emitted
// so the playback is never empty.
func Flatten(turn int, logs []protocol.CombatLog, gameOver bool) []Item {
	var (
		battles      []protocol.CombatLog
		incomes      []protocol.CombatLog
		maintenance  []protocol.CombatLog
		maintFailure []protocol.CombatLog
		construction []protocol.CombatLog
		repairs      []protocol.CombatLog
		captures     []protocol.CombatLog
		losses       []protocol.CombatLog
		statuses     []protocol.CombatLog
	)

	for _, l := range logs {
		if l.TurnNumber != turn || l.Type == protocol.LogTurnStart {
			continue
		}
		switch l.Type {
		case protocol.LogBattle:
			battles = append(battles, l)
		case protocol.LogIncome:
			incomes = append(incomes, l)
		case protocol.LogMaintenance:
			maintenance = append(maintenance, l)
		case protocol.LogMaintenanceFailure:
			maintFailure = append(maintFailure, l)
		case protocol.LogBuildMech, protocol.LogBuildBuilding:
			construction = append(construction, l)
		case protocol.LogRepair:
			repairs = append(repairs, l)
		case protocol.LogCapture:
			captures = append(captures, l)
		case protocol.LogPlanetLost:
			losses = append(losses, l)
		case protocol.LogPlayerDefeated, protocol.LogDefeat, protocol.LogGameWon, protocol.LogVictory:
			statuses = append(statuses, l)
		}
	}

	empty := len(battles)+len(incomes)+len(maintenance)+len(maintFailure)+
		len(construction)+len(repairs)+len(captures)+len(losses)+len(statuses) == 0
	if empty {
		return []Item{event(fmt.Sprintf("Nothing to report for turn %d.", turn))}
	}

	var items []Item

	if len(battles) > 0 {
		items = append(items, header("Battles"))
		for _, l := range battles {
			items = appendBattle(items, l)
		}
	}

	if gameOver {
		items = append(items, separator("Game Over"))
	} else {
		items = append(items, separator(fmt.Sprintf("Start of Turn %d", turn+1)))
	}

	if len(incomes) > 0 {
		items = append(items, header("Income"))
		for _, l := range incomes {
			items = append(items, event(incomeText(l)))
		}
	}

	if len(maintenance) > 0 || len(maintFailure) > 0 {
		items = append(items, header("Maintenance"))
		for _, l := range maintenance {
			items = append(items, event(maintenanceText(l)))
		}
		if len(maintFailure) > 0 {
			items = append(items, header("Critical maintenance failure"))
			for _, l := range maintFailure {
				items = appendMaintenanceFailure(items, l)
			}
		}
	}

	if len(construction) > 0 {
		items = append(items, header("Construction"))
		for _, l := range construction {
			items = append(items, event(constructionText(l)))
		}
	}

	if len(repairs) > 0 {
		items = append(items, header("Repairs"))
		for _, l := range repairs {
			items = appendRepairs(items, l)
		}
	}

	if len(captures) > 0 || len(losses) > 0 {
		items = append(items, header("Territory"))
		for _, l := range captures {
			items = append(items, event(territoryText(l, "captured")))
		}
		for _, l := range losses {
			items = append(items, event(territoryText(l, "lost")))
		}
	}

	if len(statuses) > 0 {
		items = append(items, header("Game status"))
		for _, t := range []protocol.LogType{
			protocol.LogPlayerDefeated,
			protocol.LogDefeat,
			protocol.LogGameWon,
			protocol.LogVictory,
		} {
			for _, l := range statuses {
				if l.Type == t {
					items = append(items, event(statusText(l)))
				}
			}
		}
	}

	return items
}

// appendBattle expands one battle into round markers, attack rolls,
// destruction lines, the aggregate outcome, casualty reports, and the
// capture line when the battle changed ownership.
func appendBattle(items []Item, l protocol.CombatLog) []Item {
	b, ok := l.Detail.(*protocol.BattleDetail)
	if !ok {
		return append(items, event(textOr(l.Message, "Battle resolved")))
	}

	for _, round := range b.Rounds {
		items = append(items, detail(fmt.Sprintf("Round %d", round.Round)))
		for _, a := range round.Attacks {
			items = append(items, detail(fmt.Sprintf(
				"Mech %d hits mech %d for %d (rolled %d), %d HP left",
				a.AttackerMechID, a.TargetMechID, a.Damage, a.Roll, a.RemainingHP)))
			if a.Destroyed {
				items = append(items, detail(fmt.Sprintf("Mech %d destroyed", a.TargetMechID)))
			}
		}
	}

	items = append(items, event(textOr(l.Message, fmt.Sprintf("Battle at (%d,%d): %s", l.X, l.Y, b.Outcome))))

	for _, st := range b.FinalMechStatus {
		items = append(items, detail(fmt.Sprintf(
			"%s: %d surviving, %d lost", st.OwnerID, st.Surviving, st.Lost)))
	}
	if f := b.FinalFortificationStatus; f != nil {
		if f.Destroyed {
			items = append(items, detail("Fortification destroyed"))
		} else {
			items = append(items, detail(fmt.Sprintf("Fortification holding at %d HP", f.HP)))
		}
	}

	if c := b.CaptureInfo; c != nil {
		items = append(items, event(fmt.Sprintf("%s captured by %s", c.PlanetName, c.NewOwnerID)))
	}

	return items
}

func appendMaintenanceFailure(items []Item, l protocol.CombatLog) []Item {
	f, ok := l.Detail.(*protocol.MaintenanceFailureDetail)
	if !ok {
		return append(items, detail(textOr(l.Message, "Maintenance failure")))
	}
	for _, d := range f.Damaged {
		items = append(items, detail(fmt.Sprintf(
			"Mech %d takes %d damage from neglect, %d HP left", d.MechID, d.Damage, d.RemainingHP)))
	}
	return items
}

func appendRepairs(items []Item, l protocol.CombatLog) []Item {
	r, ok := l.Detail.(*protocol.RepairDetail)
	if !ok {
		return append(items, event(textOr(l.Message, "Repairs completed")))
	}
	for _, rep := range r.Repairs {
		items = append(items, event(fmt.Sprintf(
			"Mech %d repaired %d, now %d HP", rep.MechID, rep.Amount, rep.NewHP)))
	}
	return items
}

func incomeText(l protocol.CombatLog) string {
	if d, ok := l.Detail.(*protocol.IncomeDetail); ok {
		if d.Source != "" {
			return fmt.Sprintf("Income: %d credits from %s", d.Amount, d.Source)
		}
		return fmt.Sprintf("Income: %d credits", d.Amount)
	}
	return textOr(l.Message, "Income received")
}

func maintenanceText(l protocol.CombatLog) string {
	if d, ok := l.Detail.(*protocol.MaintenanceDetail); ok {
		return fmt.Sprintf("Maintenance: paid %d of %d", d.Paid, d.TotalCost)
	}
	return textOr(l.Message, "Maintenance charged")
}

func constructionText(l protocol.CombatLog) string {
	if d, ok := l.Detail.(*protocol.BuildDetail); ok {
		place := d.PlanetName
		if place == "" {
			place = fmt.Sprintf("planet %d", d.PlanetID)
		}
		if l.Type == protocol.LogBuildMech {
			return fmt.Sprintf("%s built at %s", d.Subtype, place)
		}
		return fmt.Sprintf("%s constructed on %s", d.Subtype, place)
	}
	return textOr(l.Message, "Construction completed")
}

func territoryText(l protocol.CombatLog, verb string) string {
	if d, ok := l.Detail.(*protocol.TerritoryDetail); ok {
		place := d.PlanetName
		if place == "" {
			place = fmt.Sprintf("Planet %d", d.PlanetID)
		}
		return fmt.Sprintf("%s %s", place, verb)
	}
	return textOr(l.Message, fmt.Sprintf("Planet %s", verb))
}

func statusText(l protocol.CombatLog) string {
	d, _ := l.Detail.(*protocol.StatusDetail)
	name := ""
	if d != nil {
		name = d.PlayerName
		if name == "" {
			name = d.PlayerID
		}
	}
	switch l.Type {
	case protocol.LogPlayerDefeated:
		return textOr(l.Message, fmt.Sprintf("%s has been eliminated", name))
	case protocol.LogDefeat:
		return textOr(l.Message, "You have been defeated")
	case protocol.LogGameWon:
		return textOr(l.Message, fmt.Sprintf("%s has won the game", name))
	case protocol.LogVictory:
		return textOr(l.Message, "Victory is yours")
	}
	return l.Message
}

func textOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
