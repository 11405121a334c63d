package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/skirmish/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	ShowTrace bool
}

// scenarioResult is the per-file result in JSON output.
type scenarioResult struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
	Trace    string   `json:"trace,omitempty"`
}

// scenarioSummary is the overall result in JSON output.
type scenarioSummary struct {
	Scenarios []scenarioResult `json:"scenarios"`
	Total     int              `json:"total"`
	Failed    int              `json:"failed"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Run YAML scenario files against the client core",
		Long: `Run conformance scenarios: sequences of snapshot applications and
order mutations with expectations on the resulting transitions, ledger,
and staging store.

Exit codes:
  0 - All scenarios passed
  1 - One or more expectations failed
  2 - Command error (unreadable scenario or fixture)

Examples:
  skirmish scenario testdata/scenarios/turn-advance.yaml
  skirmish scenario --trace testdata/scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.ShowTrace, "trace", false, "print each scenario's reveal trace")

	return cmd
}

func runScenarios(opts *ScenarioOptions, cmd *cobra.Command, paths []string) error {
	summary := scenarioSummary{Total: len(paths)}

	for _, path := range paths {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		result, err := harness.Run(scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run scenario %s", scenario.Name), err)
		}

		sr := scenarioResult{
			Name:     scenario.Name,
			Path:     path,
			Passed:   result.Passed(),
			Failures: result.Failures,
		}
		if opts.ShowTrace {
			sr.Trace = string(result.Trace)
		}
		summary.Scenarios = append(summary.Scenarios, sr)
		if !sr.Passed {
			summary.Failed++
		}
	}

	if opts.Format == "json" {
		return outputScenarioJSON(cmd, summary)
	}
	return outputScenarioText(cmd, opts, summary)
}

func outputScenarioJSON(cmd *cobra.Command, summary scenarioSummary) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if summary.Failed > 0 {
		if err := formatter.Success(summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
	}
	return formatter.Success(summary)
}

func outputScenarioText(cmd *cobra.Command, opts *ScenarioOptions, summary scenarioSummary) error {
	w := cmd.OutOrStdout()

	for _, sr := range summary.Scenarios {
		status := "PASS"
		if !sr.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", status, sr.Name, sr.Path)
		for _, failure := range sr.Failures {
			fmt.Fprintf(w, "  %s\n", failure)
		}
		if opts.ShowTrace && sr.Trace != "" {
			fmt.Fprintln(w, sr.Trace)
		}
	}

	fmt.Fprintf(w, "\n%d scenario(s), %d failed\n", summary.Total, summary.Failed)
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
	}
	return nil
}
