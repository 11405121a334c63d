package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance scenario: a named sequence of snapshot
// applications and order mutations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// GameID is the game the staging records are keyed under.
	// Defaults to "scenario" when empty.
	GameID string `yaml:"game_id,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario step: either a snapshot application (with an
// optional expectation on the transition) or a batch of order
// mutations. Exactly one of Snapshot and Orders must be set.
type Step struct {
	// Snapshot is the path of a snapshot JSON fixture, relative to the
	// scenario file.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Expect validates the transition and resulting state after the
	// snapshot is applied.
	Expect *Expect `yaml:"expect,omitempty"`

	// Orders are mutations applied between snapshots.
	Orders []OrderStep `yaml:"orders,omitempty"`
}

// OrderStep is one ledger mutation. Exactly one action field is set.
type OrderStep struct {
	Build  *BuildStep  `yaml:"build,omitempty"`
	Move   *MoveStep   `yaml:"move,omitempty"`
	Remove *RemoveStep `yaml:"remove,omitempty"`
	Clear  bool        `yaml:"clear,omitempty"`

	// ExpectError names the validation code the mutation must be
	// rejected with. Empty means the mutation must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// BuildStep stages a construction order.
type BuildStep struct {
	Planet  int    `yaml:"planet"`
	Kind    string `yaml:"kind"`
	Subtype string `yaml:"subtype"`
	Cost    int    `yaml:"cost"`
}

// MoveStep stages a move order.
type MoveStep struct {
	Mech int `yaml:"mech"`
	ToX  int `yaml:"to_x"`
	ToY  int `yaml:"to_y"`
}

// RemoveStep removes one staged order.
type RemoveStep struct {
	List  string `yaml:"list"`
	Index int    `yaml:"index"`
}

// Expect validates state after a snapshot application. Nil pointer
// fields are not checked.
type Expect struct {
	// Kind is the expected transition kind.
	Kind string `yaml:"kind,omitempty"`

	// Phase and Reason are the expected lifecycle state.
	Phase  string `yaml:"phase,omitempty"`
	Reason string `yaml:"reason,omitempty"`

	// Error expects the application to fail; the value is matched as a
	// substring of the error text.
	Error string `yaml:"error,omitempty"`

	// SummaryTurn is the turn the transition's summary must narrate.
	SummaryTurn *int `yaml:"summary_turn,omitempty"`

	// GameOver is the expected terminal flag on the summary.
	GameOver *bool `yaml:"game_over,omitempty"`

	// NoSummary asserts the transition produced nothing to narrate.
	NoSummary bool `yaml:"no_summary,omitempty"`

	// SpeculativeCredits is the expected ledger balance.
	SpeculativeCredits *int `yaml:"speculative_credits,omitempty"`

	// LedgerEmpty asserts whether any orders are staged.
	LedgerEmpty *bool `yaml:"ledger_empty,omitempty"`

	// StagedAbsent and StagedPresent assert on staging records by turn.
	StagedAbsent  []int `yaml:"staged_absent,omitempty"`
	StagedPresent []int `yaml:"staged_present,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Snapshot fixture
// paths are resolved relative to the scenario file's directory.
// Unknown fields are rejected, catching typos like "step:" for
// "steps:".
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range s.Steps {
		if s.Steps[i].Snapshot != "" && !filepath.IsAbs(s.Steps[i].Snapshot) {
			s.Steps[i].Snapshot = filepath.Join(base, s.Steps[i].Snapshot)
		}
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.GameID == "" {
		s.GameID = "scenario"
	}

	for i, step := range s.Steps {
		hasSnapshot := step.Snapshot != ""
		hasOrders := len(step.Orders) > 0
		if hasSnapshot == hasOrders {
			return fmt.Errorf("steps[%d]: exactly one of snapshot and orders is required", i)
		}
		if hasSnapshot {
			if _, err := os.Stat(step.Snapshot); os.IsNotExist(err) {
				return fmt.Errorf("steps[%d]: snapshot fixture not found: %s", i, step.Snapshot)
			}
		}
		if hasOrders && step.Expect != nil {
			return fmt.Errorf("steps[%d]: expect belongs on snapshot steps", i)
		}
		for j, o := range step.Orders {
			if err := validateOrderStep(&o); err != nil {
				return fmt.Errorf("steps[%d].orders[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func validateOrderStep(o *OrderStep) error {
	n := 0
	if o.Build != nil {
		n++
	}
	if o.Move != nil {
		n++
	}
	if o.Remove != nil {
		n++
	}
	if o.Clear {
		n++
	}
	if n != 1 {
		return fmt.Errorf("exactly one of build, move, remove, clear is required")
	}
	if o.Remove != nil && o.Remove.List != "moves" && o.Remove.List != "builds" {
		return fmt.Errorf("remove.list must be moves or builds, got %q", o.Remove.List)
	}
	return nil
}
