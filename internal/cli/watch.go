package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/skirmish/internal/client"
	"github.com/roach88/skirmish/internal/reveal"
	"github.com/roach88/skirmish/internal/staging"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Server     string
	GameID     string
	PushURL    string
	AutoSubmit bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to a game and narrate turns as they resolve",
		Long: `Run the client loop against a live server: listen for push signals,
reconcile snapshots, and print each turn's reveal sequence as it plays.

Staged orders are persisted in the staging database and survive
restarts. Stop with Ctrl-C.

Examples:
  skirmish watch --server http://localhost:8080 --game g-1
  skirmish watch --server http://localhost:8080 --game g-1 --auto-submit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "", "base URL of the game server (required)")
	_ = cmd.MarkFlagRequired("server")
	cmd.Flags().StringVar(&opts.GameID, "game", "", "game id (required)")
	_ = cmd.MarkFlagRequired("game")
	cmd.Flags().StringVar(&opts.PushURL, "push-url", "", "websocket push URL (default: derived from --server)")
	cmd.Flags().BoolVar(&opts.AutoSubmit, "auto-submit", false, "submit staged orders when the turn deadline elapses")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	store, err := staging.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open staging database", err)
	}
	defer store.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctrl, err := client.NewController(client.Config{
		GameID: opts.GameID,
		API:    client.NewAPI(opts.Server, nil),
		Store:  store,
		Render: func(item reveal.Item, revealed bool) {
			printItem(formatter, item)
		},
		Report: func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		},
		AutoSubmit: opts.AutoSubmit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build client", err)
	}

	pushURL := opts.PushURL
	if pushURL == "" {
		pushURL = derivePushURL(opts.Server, opts.GameID)
	}
	listener := client.NewPushListener(pushURL, ctrl.NotifyChanged)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	formatter.VerboseLog("watching game %s on %s", opts.GameID, opts.Server)

	// Prime the first snapshot; afterwards the push channel drives.
	ctrl.NotifyChanged()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })
	g.Go(func() error { return listener.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "watch loop failed", err)
	}
	return nil
}

func printItem(f *OutputFormatter, item reveal.Item) {
	switch item.Kind {
	case reveal.KindHeader:
		fmt.Fprintf(f.Writer, "\n%s\n", item.Text)
	case reveal.KindSeparator:
		fmt.Fprintf(f.Writer, "\n-- %s --\n", item.Text)
	case reveal.KindDetail:
		fmt.Fprintf(f.Writer, "    %s\n", item.Text)
	default:
		fmt.Fprintf(f.Writer, "  %s\n", item.Text)
	}
}

// derivePushURL maps the HTTP base URL to the conventional websocket
// push endpoint.
func derivePushURL(server, gameID string) string {
	ws := server
	switch {
	case strings.HasPrefix(server, "https://"):
		ws = "wss://" + strings.TrimPrefix(server, "https://")
	case strings.HasPrefix(server, "http://"):
		ws = "ws://" + strings.TrimPrefix(server, "http://")
	}
	return fmt.Sprintf("%s/api/games/%s/push", ws, gameID)
}
