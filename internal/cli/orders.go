package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/staging"
)

// OrdersOptions holds flags shared by the orders subcommands.
type OrdersOptions struct {
	*RootOptions
	GameID string
	Turn   int
}

// ordersView is the JSON payload for the orders list output.
type ordersView struct {
	GameID             string              `json:"game_id"`
	Turn               int                 `json:"turn"`
	Moves              []ledger.MoveOrder  `json:"moves"`
	Builds             []ledger.BuildOrder `json:"builds"`
	SpeculativeCredits int                 `json:"speculative_credits"`
}

// NewOrdersCommand creates the orders command group for inspecting and
// editing staged orders directly in the staging database.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and edit staged orders",
		Long: `Inspect and edit the staged order ledger for one game turn.

These commands work directly against the staging database, without a
server connection. Orders staged here are picked up the next time the
watch loop loads the game.

Examples:
  skirmish orders list --game g-1 --turn 3
  skirmish orders add-build --game g-1 --turn 3 --planet 1 --kind building --subtype mining --cost 10
  skirmish orders add-move --game g-1 --turn 3 --mech 7 --from 5,5 --to 6,6
  skirmish orders remove --game g-1 --turn 3 --list builds --index 0
  skirmish orders clear --game g-1 --turn 3`,
	}

	cmd.PersistentFlags().StringVar(&opts.GameID, "game", "", "game id (required)")
	_ = cmd.MarkPersistentFlagRequired("game")
	cmd.PersistentFlags().IntVar(&opts.Turn, "turn", 0, "turn number (required)")
	_ = cmd.MarkPersistentFlagRequired("turn")

	cmd.AddCommand(newOrdersListCommand(opts))
	cmd.AddCommand(newOrdersAddBuildCommand(opts))
	cmd.AddCommand(newOrdersAddMoveCommand(opts))
	cmd.AddCommand(newOrdersRemoveCommand(opts))
	cmd.AddCommand(newOrdersClearCommand(opts))

	return cmd
}

func newOrdersListCommand(opts *OrdersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List staged orders for a turn",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, store *staging.Store) error {
				rec, ok, err := store.Load(ctx, opts.GameID, opts.Turn)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load staged orders", err)
				}
				if !ok {
					rec = staging.Record{}
				}
				return outputOrders(cmd, opts, rec)
			})
		},
	}
}

func newOrdersAddBuildCommand(opts *OrdersOptions) *cobra.Command {
	var (
		planet  int
		kind    string
		subtype string
		cost    int
		credits int
	)

	cmd := &cobra.Command{
		Use:           "add-build",
		Short:         "Stage a construction order",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateLedger(opts, credits, cmd, func(l *ledger.Ledger) error {
				return l.AddBuild(planet, ledger.BuildKind(kind), subtype, cost, nil)
			})
		},
	}

	cmd.Flags().IntVar(&planet, "planet", 0, "planet id (required)")
	_ = cmd.MarkFlagRequired("planet")
	cmd.Flags().StringVar(&kind, "kind", "", "build kind: building|mech (required)")
	_ = cmd.MarkFlagRequired("kind")
	cmd.Flags().StringVar(&subtype, "subtype", "", "building or mech subtype (required)")
	_ = cmd.MarkFlagRequired("subtype")
	cmd.Flags().IntVar(&cost, "cost", 0, "credit cost (required)")
	_ = cmd.MarkFlagRequired("cost")
	cmd.Flags().IntVar(&credits, "credits", 0, "authoritative credit balance, used when no record is staged yet")

	return cmd
}

func newOrdersAddMoveCommand(opts *OrdersOptions) *cobra.Command {
	var (
		mech     int
		from, to string
	)

	cmd := &cobra.Command{
		Use:           "add-move",
		Short:         "Stage a move order",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromX, fromY, err := parseCoord(from)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --from", err)
			}
			toX, toY, err := parseCoord(to)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --to", err)
			}
			return mutateLedger(opts, 0, cmd, func(l *ledger.Ledger) error {
				return l.AddMove(mech, fromX, fromY, toX, toY)
			})
		},
	}

	cmd.Flags().IntVar(&mech, "mech", 0, "mech id (required)")
	_ = cmd.MarkFlagRequired("mech")
	cmd.Flags().StringVar(&from, "from", "", "origin tile as x,y (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&to, "to", "", "destination tile as x,y (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newOrdersRemoveCommand(opts *OrdersOptions) *cobra.Command {
	var (
		list  string
		index int
	)

	cmd := &cobra.Command{
		Use:           "remove",
		Short:         "Remove one staged order",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateLedger(opts, 0, cmd, func(l *ledger.Ledger) error {
				return l.RemoveOrder(ledger.List(list), index)
			})
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "order list: moves|builds (required)")
	_ = cmd.MarkFlagRequired("list")
	cmd.Flags().IntVar(&index, "index", 0, "order index (required)")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func newOrdersClearCommand(opts *OrdersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Clear all staged orders for a turn",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, store *staging.Store) error {
				if err := store.Evict(ctx, opts.GameID, opts.Turn); err != nil {
					return WrapExitError(ExitCommandError, "failed to clear staged orders", err)
				}
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
				return formatter.Success(fmt.Sprintf("Cleared staged orders for game %s turn %d", opts.GameID, opts.Turn))
			})
		},
	}
}

// withStore opens the staging database for one command invocation.
func withStore(opts *OrdersOptions, fn func(ctx context.Context, store *staging.Store) error) error {
	store, err := staging.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open staging database", err)
	}
	defer store.Close()
	return fn(context.Background(), store)
}

// mutateLedger loads the staged record, applies one mutation, and saves
// the result. The authoritative balance is recovered from the stored
// speculative value; fallbackCredits seeds a fresh record.
func mutateLedger(opts *OrdersOptions, fallbackCredits int, cmd *cobra.Command, fn func(*ledger.Ledger) error) error {
	return withStore(opts, func(ctx context.Context, store *staging.Store) error {
		rec, ok, err := store.Load(ctx, opts.GameID, opts.Turn)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load staged orders", err)
		}

		credits := fallbackCredits
		if ok {
			credits = rec.SpeculativeCredits
			for _, b := range rec.Builds {
				credits += b.Cost
			}
		}
		l := rec.Restore(credits)

		if err := fn(l); err != nil {
			var ve *ledger.ValidationError
			if errors.As(err, &ve) {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
				_ = formatter.Error("E_VALIDATION", ve.Message, string(ve.Code))
				return NewExitError(ExitFailure, ve.Error())
			}
			return WrapExitError(ExitCommandError, "order rejected", err)
		}

		if err := store.Save(ctx, opts.GameID, opts.Turn, l); err != nil {
			return WrapExitError(ExitCommandError, "failed to save staged orders", err)
		}
		return outputOrders(cmd, opts, staging.Record{
			Moves:              l.Moves(),
			Builds:             l.Builds(),
			SpeculativeCredits: l.SpeculativeCredits(),
		})
	})
}

func outputOrders(cmd *cobra.Command, opts *OrdersOptions, rec staging.Record) error {
	view := ordersView{
		GameID:             opts.GameID,
		Turn:               opts.Turn,
		Moves:              rec.Moves,
		Builds:             rec.Builds,
		SpeculativeCredits: rec.SpeculativeCredits,
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.Success(view)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Game %s, turn %d\n", view.GameID, view.Turn)
	fmt.Fprintf(w, "Speculative credits: %d\n", view.SpeculativeCredits)

	if len(view.Moves) == 0 && len(view.Builds) == 0 {
		fmt.Fprintln(w, "No orders staged.")
		return nil
	}
	if len(view.Moves) > 0 {
		fmt.Fprintln(w, "Moves:")
		for i, m := range view.Moves {
			fmt.Fprintf(w, "  [%d] mech %d: (%d,%d) -> (%d,%d)\n", i, m.MechID, m.FromX, m.FromY, m.ToX, m.ToY)
		}
	}
	if len(view.Builds) > 0 {
		fmt.Fprintln(w, "Builds:")
		for i, b := range view.Builds {
			fmt.Fprintf(w, "  [%d] %s %s on planet %d (%d credits)\n", i, b.Kind, b.Subtype, b.PlanetID, b.Cost)
		}
	}
	return nil
}

// parseCoord parses "x,y" into a pair of ints.
func parseCoord(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want x,y, got %q", s)
	}
	var x, y int
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &x); err != nil {
		return 0, 0, fmt.Errorf("bad x in %q", s)
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &y); err != nil {
		return 0, 0, fmt.Errorf("bad y in %q", s)
	}
	return x, y, nil
}
