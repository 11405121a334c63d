package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/protocol"
	"github.com/roach88/skirmish/internal/reconcile"
	"github.com/roach88/skirmish/internal/reveal"
	"github.com/roach88/skirmish/internal/staging"
)

// ErrStopped rejects calls after the run loop has exited.
var ErrStopped = errors.New("client stopped")

// Reporter receives non-fatal conditions (fetch failures, stale
// snapshots, persistence hiccups). The loop keeps running; the reporter
// decides how loudly to surface them.
type Reporter func(err error)

// Config wires a Controller.
type Config struct {
	// GameID is the game this controller plays.
	GameID string

	// API is the HTTP surface of the game server. Required.
	API *API

	// Store is the staging database. Required.
	Store *staging.Store

	// Tokens generates submission tokens. Defaults to UUIDv7.
	Tokens reconcile.TokenGenerator

	// Render receives reveal items during turn summary playback.
	Render reveal.RenderFunc

	// Rebind is invoked after every accepted snapshot with the new
	// snapshot and lifecycle state, for the UI layer to recompute its
	// derived bindings.
	Rebind func(snap *protocol.Snapshot, st reconcile.State)

	// Report receives non-fatal errors. Nil discards them.
	Report Reporter

	// Delays overrides the reveal pacing. Zero fields take defaults.
	Delays reveal.Delays

	// After overrides the reveal timer source, for tests.
	After func(d time.Duration) <-chan time.Time

	// AutoSubmit submits the staged orders when the turn deadline
	// elapses instead of letting the server resolve without them.
	AutoSubmit bool
}

// LedgerView is a read-only copy of the order ledger plus the lifecycle
// context the UI gates affordances on.
type LedgerView struct {
	Turn               int
	State              reconcile.State
	Moves              []ledger.MoveOrder
	Builds             []ledger.BuildOrder
	SpeculativeCredits int
}

// Controller owns the client-side game state and runs the single-writer
// loop. All mutation of the ledger, staging store, and reconciler
// happens on the Run goroutine; exported methods enqueue commands and
// wait for the reply.
type Controller struct {
	cfg    Config
	queue  *commandQueue
	tokens reconcile.TokenGenerator

	// Loop-owned state. Touched only from Run.
	runCtx      context.Context
	led         *ledger.Ledger
	rec         *reconcile.Reconciler
	seq         *reveal.Sequencer
	countdown   *reconcile.Countdown
	pendingSeen int
	markedSeen  int
}

// NewController creates a controller. Run must be called before the
// controller does anything.
func NewController(cfg Config) (*Controller, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("new controller: API is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("new controller: Store is required")
	}
	if cfg.GameID == "" {
		return nil, fmt.Errorf("new controller: GameID is required")
	}

	c := &Controller{
		cfg:    cfg,
		queue:  newCommandQueue(),
		tokens: cfg.Tokens,
		led:    ledger.New(0),
	}
	if c.tokens == nil {
		c.tokens = reconcile.UUIDv7Generator{}
	}

	render := cfg.Render
	if render == nil {
		render = func(reveal.Item, bool) {}
	}
	c.seq = reveal.NewSequencer(reveal.Config{
		Render:     render,
		OnComplete: c.summaryDone,
		Delays:     cfg.Delays,
		After:      cfg.After,
	})
	c.rec = reconcile.New(reconcile.Config{
		EvictStaged: cfg.Store.Evict,
		ResetOrders: func(serverCredits int) { c.led.Reset(serverCredits) },
		Rebind:      cfg.Rebind,
	})
	c.countdown = reconcile.NewCountdown(c.deadlineElapsed)
	return c, nil
}

// Run executes the command loop until ctx is canceled. Blocks; callers
// run it on a dedicated goroutine.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer c.countdown.Stop()

	for {
		for {
			cmd, ok := c.queue.tryDequeue()
			if !ok {
				break
			}
			err := cmd.run()
			if cmd.reply != nil {
				cmd.reply <- err
			} else if err != nil {
				c.report(err)
			}
		}

		select {
		case <-ctx.Done():
			// Closing first makes the drain complete: any enqueue that
			// won the race is already in the queue.
			c.queue.close()
			for {
				cmd, ok := c.queue.tryDequeue()
				if !ok {
					break
				}
				if cmd.reply != nil {
					cmd.reply <- ErrStopped
				}
			}
			return ctx.Err()
		case <-c.queue.wait():
		}
	}
}

// NotifyChanged signals that server state may have changed; the loop
// fetches and reconciles a fresh snapshot. Safe from any goroutine and
// cheap enough for the push listener's notify callback.
func (c *Controller) NotifyChanged() {
	c.queue.enqueue(command{run: c.refresh})
}

// Skip fast-forwards the current turn summary. Safe from any goroutine;
// a no-op when no summary is playing.
func (c *Controller) Skip() {
	c.seq.Skip()
}

// View returns a copy of the current orders and lifecycle state.
func (c *Controller) View() (LedgerView, error) {
	var v LedgerView
	err := c.do(func() error {
		if snap := c.rec.Snapshot(); snap != nil {
			v.Turn = snap.TurnNumber
		}
		v.State = c.rec.State()
		v.Moves = c.led.Moves()
		v.Builds = c.led.Builds()
		v.SpeculativeCredits = c.led.SpeculativeCredits()
		return nil
	})
	return v, err
}

// AddBuild stages a construction order and persists the ledger.
func (c *Controller) AddBuild(planetID int, kind ledger.BuildKind, subtype string, cost int) error {
	return c.do(func() error {
		snap, err := c.requireActive()
		if err != nil {
			return err
		}
		var built []string
		if p, ok := snap.PlanetByID(planetID); ok {
			built = p.Buildings
		}
		if err := c.led.AddBuild(planetID, kind, subtype, cost, built); err != nil {
			return err
		}
		return c.cfg.Store.Save(c.runCtx, c.cfg.GameID, snap.TurnNumber, c.led)
	})
}

// AddMove stages a move order for a mech and persists the ledger. The
// origin comes from the mech's authoritative position.
func (c *Controller) AddMove(mechID, toX, toY int) error {
	return c.do(func() error {
		snap, err := c.requireActive()
		if err != nil {
			return err
		}
		mech, ok := snap.MechByID(mechID)
		if !ok {
			return fmt.Errorf("add move: unknown mech %d", mechID)
		}
		if err := c.led.AddMove(mechID, mech.X, mech.Y, toX, toY); err != nil {
			return err
		}
		return c.cfg.Store.Save(c.runCtx, c.cfg.GameID, snap.TurnNumber, c.led)
	})
}

// RemoveOrder removes one staged order and persists the ledger.
func (c *Controller) RemoveOrder(list ledger.List, index int) error {
	return c.do(func() error {
		snap, err := c.requireActive()
		if err != nil {
			return err
		}
		if err := c.led.RemoveOrder(list, index); err != nil {
			return err
		}
		return c.cfg.Store.Save(c.runCtx, c.cfg.GameID, snap.TurnNumber, c.led)
	})
}

// ClearOrders empties the ledger and evicts the staging record.
func (c *Controller) ClearOrders() error {
	return c.do(func() error {
		snap, err := c.requireActive()
		if err != nil {
			return err
		}
		c.led.ClearAll()
		return c.cfg.Store.Evict(c.runCtx, c.cfg.GameID, snap.TurnNumber)
	})
}

// Submit posts the staged orders for the current turn. Success clears
// neither the ledger nor the staging record: orders stay visible as
// submitted until the next confirmed turn advance. Failure leaves
// everything in its pre-submission state.
func (c *Controller) Submit(ctx context.Context) error {
	return c.do(func() error {
		snap, err := c.requireActive()
		if err != nil {
			return err
		}
		token := c.tokens.Generate()
		return c.cfg.API.SubmitTurn(ctx, c.cfg.GameID, snap.TurnNumber, token, c.led.Moves(), c.led.Builds())
	})
}

// do runs fn on the loop and returns its error. Must not be called from
// the loop itself.
func (c *Controller) do(fn func() error) error {
	reply := make(chan error, 1)
	if !c.queue.enqueue(command{run: fn, reply: reply}) {
		return ErrStopped
	}
	return <-reply
}

func (c *Controller) requireActive() (*protocol.Snapshot, error) {
	snap := c.rec.Snapshot()
	if snap == nil || !c.rec.State().CanSubmit() {
		return nil, ErrNotAcceptingOrders
	}
	return snap, nil
}

// refresh fetches and applies a snapshot. Every error here is non-fatal
// by contract: the previous snapshot and state are retained and the
// next push signal retries.
func (c *Controller) refresh() error {
	snap, err := c.cfg.API.FetchSnapshot(c.runCtx, c.cfg.GameID)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	first := c.rec.Snapshot() == nil
	tr, err := c.rec.Apply(c.runCtx, snap)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	if first {
		c.restoreStagedOrders(snap)
		c.maybeReplayMissedSummary(snap)
	} else if tr.Summary != nil {
		c.playSummary(snap, *tr.Summary)
	}

	c.armDeadline(snap)
	return nil
}

// restoreStagedOrders repopulates the ledger from the staging record
// for the current turn, if one survives. Malformed records read as
// absent; a read failure is reported and play continues with an empty
// ledger.
func (c *Controller) restoreStagedOrders(snap *protocol.Snapshot) {
	rec, ok, err := c.cfg.Store.Load(c.runCtx, c.cfg.GameID, snap.TurnNumber)
	if err != nil {
		c.report(fmt.Errorf("restore staged orders: %w", err))
		c.led.Reset(snap.Credits)
		return
	}
	if ok {
		c.led = rec.Restore(snap.Credits)
	} else {
		c.led.Reset(snap.Credits)
	}
}

// maybeReplayMissedSummary shows the previous turn's summary on load if
// the player has not watched it yet (reload mid-reveal, or away when
// the turn resolved).
func (c *Controller) maybeReplayMissedSummary(snap *protocol.Snapshot) {
	prevTurn := snap.TurnNumber - 1
	if prevTurn < 1 || snap.Status == protocol.StatusWaiting {
		return
	}

	seen, ok, err := c.cfg.Store.LastSeenTurn(c.runCtx, c.cfg.GameID)
	if err != nil {
		c.report(fmt.Errorf("load last seen turn: %w", err))
		return
	}
	if ok && seen >= prevTurn {
		return
	}

	gameOver := snap.Status == protocol.StatusFinished || snap.IsEliminated || snap.IsVictor
	c.playSummary(snap, reconcile.Summary{Turn: prevTurn, GameOver: gameOver})
}

func (c *Controller) playSummary(snap *protocol.Snapshot, s reconcile.Summary) {
	items := reveal.Flatten(s.Turn, snap.LogsForTurn(s.Turn), s.GameOver)
	c.pendingSeen = s.Turn
	c.seq.Play(items)
}

// summaryDone runs on the sequencer's goroutine when playback finishes;
// the actual marking happens on the loop.
func (c *Controller) summaryDone() {
	c.queue.enqueue(command{run: c.markSeen})
}

// markSeen advances the last-seen-turn marker. Monotonic: a completion
// for a superseded playback never moves the marker backwards.
func (c *Controller) markSeen() error {
	if c.pendingSeen <= c.markedSeen {
		return nil
	}
	if err := c.cfg.Store.SetLastSeenTurn(c.runCtx, c.cfg.GameID, c.pendingSeen); err != nil {
		return fmt.Errorf("mark turn seen: %w", err)
	}
	c.markedSeen = c.pendingSeen
	return nil
}

// armDeadline keeps the auto-submit countdown in step with the current
// snapshot. Any state that cannot submit stops the countdown, so a
// stale deadline can never fire after elimination or game end.
func (c *Controller) armDeadline(snap *protocol.Snapshot) {
	if !c.rec.State().CanSubmit() {
		c.countdown.Stop()
		return
	}
	deadline, ok := snap.Deadline()
	if !ok {
		c.countdown.Stop()
		return
	}
	c.countdown.ArmUntil(deadline)
}

// deadlineElapsed runs on the countdown's timer goroutine.
func (c *Controller) deadlineElapsed() {
	if !c.cfg.AutoSubmit {
		return
	}
	c.queue.enqueue(command{run: c.autoSubmit})
}

func (c *Controller) autoSubmit() error {
	snap := c.rec.Snapshot()
	if snap == nil || !c.rec.State().CanSubmit() {
		return nil
	}
	token := c.tokens.Generate()
	if err := c.cfg.API.SubmitTurn(c.runCtx, c.cfg.GameID, snap.TurnNumber, token, c.led.Moves(), c.led.Builds()); err != nil {
		return fmt.Errorf("auto submit: %w", err)
	}
	return nil
}

func (c *Controller) report(err error) {
	if c.cfg.Report != nil {
		c.cfg.Report(err)
	}
}
