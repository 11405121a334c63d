package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/skirmish/internal/protocol"
	"github.com/roach88/skirmish/internal/reveal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Snapshot string
	Turn     int
	GameOver bool
}

// replayItem is the JSON shape of one reveal item.
type replayItem struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// replayResult is the JSON payload for the replay command.
type replayResult struct {
	Turn     int          `json:"turn"`
	GameOver bool         `json:"game_over"`
	Items    []replayItem `json:"items"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print a turn's reveal sequence from a snapshot file",
		Long: `Flatten one resolved turn's combat log into its reveal sequence and
print it, without timing or a server connection.

The snapshot file is validated the same way a live fetch is: a payload
that violates the combat log contract is rejected.

Examples:
  skirmish replay --snapshot snap.json
  skirmish replay --snapshot snap.json --turn 3
  skirmish replay --snapshot snap.json --turn 5 --game-over --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "path to snapshot JSON file (required)")
	_ = cmd.MarkFlagRequired("snapshot")
	cmd.Flags().IntVar(&opts.Turn, "turn", -1, "turn to replay (default: the last resolved turn)")
	cmd.Flags().BoolVar(&opts.GameOver, "game-over", false, "use the terminal separator")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	data, err := os.ReadFile(opts.Snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot file", err)
	}
	snap, err := protocol.DecodeSnapshot(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid snapshot", err)
	}

	turn := opts.Turn
	if turn < 0 {
		// The logs in a snapshot for turn N narrate turn N-1.
		turn = snap.TurnNumber - 1
	}

	items := reveal.Flatten(turn, snap.LogsForTurn(turn), opts.GameOver)

	if opts.Format == "json" {
		result := replayResult{Turn: turn, GameOver: opts.GameOver, Items: make([]replayItem, len(items))}
		for i, item := range items {
			result.Items[i] = replayItem{Kind: string(item.Kind), Text: item.Text}
		}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Turn %d reveal:\n", turn)
	for _, item := range items {
		switch item.Kind {
		case reveal.KindHeader:
			fmt.Fprintf(w, "\n%s\n", item.Text)
		case reveal.KindSeparator:
			fmt.Fprintf(w, "\n-- %s --\n", item.Text)
		case reveal.KindDetail:
			fmt.Fprintf(w, "    %s\n", item.Text)
		default:
			fmt.Fprintf(w, "  %s\n", item.Text)
		}
	}
	return nil
}
