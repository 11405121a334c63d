package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/protocol"
	"github.com/roach88/skirmish/internal/reconcile"
	"github.com/roach88/skirmish/internal/reveal"
	"github.com/roach88/skirmish/internal/staging"
	"github.com/roach88/skirmish/internal/testutil"
)

// fakeServer is a minimal game server: one mutable snapshot plus a
// recorder for submissions.
type fakeServer struct {
	mu           sync.Mutex
	snap         *protocol.Snapshot
	failFetch    bool
	rejectStatus int
	submissions  []string
	srv          *httptest.Server
}

func newFakeServer(t *testing.T, snap *protocol.Snapshot) *fakeServer {
	t.Helper()
	fs := &fakeServer{snap: snap}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/snapshot"):
		if fs.failFetch {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(fs.snap)
	case strings.HasSuffix(r.URL.Path, "/submit"):
		body, _ := io.ReadAll(r.Body)
		fs.submissions = append(fs.submissions, string(body))
		if fs.rejectStatus != 0 {
			w.WriteHeader(fs.rejectStatus)
			io.WriteString(w, "rejected")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fs *fakeServer) setSnapshot(snap *protocol.Snapshot) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.snap = snap
}

func (fs *fakeServer) setFailFetch(fail bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failFetch = fail
}

func (fs *fakeServer) setRejectStatus(status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.rejectStatus = status
}

func (fs *fakeServer) submitted() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.submissions...)
}

// itemRecorder collects rendered reveal items across goroutines.
type itemRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *itemRecorder) render(item reveal.Item, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, item.Text)
}

func (r *itemRecorder) rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type testRig struct {
	ctrl   *Controller
	store  *staging.Store
	render *itemRecorder

	mu      sync.Mutex
	reports []error
}

func (tr *testRig) report(err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.reports = append(tr.reports, err)
}

func (tr *testRig) reported() []error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]error(nil), tr.reports...)
}

func startController(t *testing.T, fs *fakeServer, dbPath string, tokens reconcile.TokenGenerator) *testRig {
	t.Helper()

	store, err := staging.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rig := &testRig{store: store, render: &itemRecorder{}}
	ctrl, err := NewController(Config{
		GameID: "g-1",
		API:    NewAPI(fs.srv.URL, fs.srv.Client()),
		Store:  store,
		Tokens: tokens,
		Render: rig.render.render,
		Report: rig.report,
		After:  testutil.ImmediateAfter,
	})
	require.NoError(t, err)
	rig.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return rig
}

func activeSnapshot(turn, credits int) *protocol.Snapshot {
	return &protocol.Snapshot{
		GameID:     "g-1",
		TurnNumber: turn,
		Status:     protocol.StatusActive,
		Credits:    credits,
		Planets: []protocol.Planet{
			{ID: 1, Name: "Vesta", X: 2, Y: 2, OwnerID: "p1"},
		},
		Mechs: []protocol.Mech{
			{ID: 7, OwnerID: "p1", Kind: "scout", X: 5, Y: 5, HP: 10, MaxHP: 10},
		},
		Players: []protocol.Player{{ID: "p1", Name: "Ada"}},
	}
}

func waitForTurn(t *testing.T, rig *testRig, turn int) LedgerView {
	t.Helper()
	var v LedgerView
	require.Eventually(t, func() bool {
		var err error
		v, err = rig.ctrl.View()
		return err == nil && v.Turn == turn
	}, 2*time.Second, time.Millisecond)
	return v
}

func TestController_InitialSnapshotActivates(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	v := waitForTurn(t, rig, 3)

	assert.Equal(t, reconcile.PhaseActive, v.State.Phase)
	assert.True(t, v.State.CanSubmit())
	assert.Equal(t, 50, v.SpeculativeCredits)
	assert.Empty(t, v.Moves)
	assert.Empty(t, v.Builds)
}

func TestController_OrdersPersistAndRestoreAcrossRestart(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	dbPath := filepath.Join(t.TempDir(), "staging.db")

	rig := startController(t, fs, dbPath, nil)
	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)

	require.NoError(t, rig.ctrl.AddBuild(1, ledger.KindBuilding, "mining", 10))
	require.NoError(t, rig.ctrl.AddMove(7, 6, 6))

	// A second controller on the same database simulates a reload.
	rig2 := startController(t, fs, dbPath, nil)
	rig2.ctrl.NotifyChanged()
	v := waitForTurn(t, rig2, 3)

	require.Len(t, v.Builds, 1)
	assert.Equal(t, "mining", v.Builds[0].Subtype)
	require.Len(t, v.Moves, 1)
	assert.Equal(t, 7, v.Moves[0].MechID)
	assert.Equal(t, 40, v.SpeculativeCredits)
}

func TestController_TurnAdvanceClearsOrdersAndEvicts(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)
	require.NoError(t, rig.ctrl.AddBuild(1, ledger.KindBuilding, "mining", 10))

	fs.setSnapshot(activeSnapshot(4, 62))
	rig.ctrl.NotifyChanged()
	v := waitForTurn(t, rig, 4)

	assert.Empty(t, v.Builds)
	assert.Empty(t, v.Moves)
	assert.Equal(t, 62, v.SpeculativeCredits)

	_, ok, err := rig.store.Load(context.Background(), "g-1", 3)
	require.NoError(t, err)
	assert.False(t, ok, "consumed turn's staging record is evicted")
}

func TestController_SubmitKeepsOrdersAndRecord(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"),
		reconcile.NewFixedGenerator("tok-1"))

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)
	require.NoError(t, rig.ctrl.AddBuild(1, ledger.KindBuilding, "mining", 10))
	require.NoError(t, rig.ctrl.AddMove(7, 6, 6))

	require.NoError(t, rig.ctrl.Submit(context.Background()))

	subs := fs.submitted()
	require.Len(t, subs, 1)
	assert.Equal(t,
		`{"builds":[{"cost":10,"kind":"building","planetId":1,"subtype":"mining"}],`+
			`"moves":[{"fromX":5,"fromY":5,"mechId":7,"toX":6,"toY":6}],`+
			`"submissionToken":"tok-1","turnNumber":3}`,
		subs[0])

	// Orders stay visible as submitted until the next turn advance.
	v, err := rig.ctrl.View()
	require.NoError(t, err)
	assert.Len(t, v.Builds, 1)
	assert.Len(t, v.Moves, 1)

	_, ok, err := rig.store.Load(context.Background(), "g-1", 3)
	require.NoError(t, err)
	assert.True(t, ok, "staging record survives submission")
}

func TestController_SubmitRejectionLeavesStateUntouched(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	fs.setRejectStatus(http.StatusUnprocessableEntity)
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)
	require.NoError(t, rig.ctrl.AddBuild(1, ledger.KindBuilding, "mining", 10))

	err := rig.ctrl.Submit(context.Background())
	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)

	v, viewErr := rig.ctrl.View()
	require.NoError(t, viewErr)
	assert.Len(t, v.Builds, 1, "failed submission leaves the ledger intact for retry")
	assert.Equal(t, 40, v.SpeculativeCredits)
}

func TestController_OrdersRejectedOutsideActivePhase(t *testing.T) {
	fs := newFakeServer(t, &protocol.Snapshot{GameID: "g-1", Status: protocol.StatusWaiting})
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	require.Eventually(t, func() bool {
		v, err := rig.ctrl.View()
		return err == nil && v.State.Phase == reconcile.PhaseLobby
	}, 2*time.Second, time.Millisecond)

	assert.ErrorIs(t, rig.ctrl.AddBuild(1, ledger.KindBuilding, "mining", 10), ErrNotAcceptingOrders)
	assert.ErrorIs(t, rig.ctrl.Submit(context.Background()), ErrNotAcceptingOrders)
}

func TestController_MoveValidationUsesAuthoritativePosition(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)

	err := rig.ctrl.AddMove(7, 9, 9)
	assert.True(t, ledger.IsValidation(err, ledger.CodeNotAdjacent))

	assert.Error(t, rig.ctrl.AddMove(99, 6, 6), "unknown mech is rejected")
}

func TestController_TurnSummaryPlaysAndMarksSeen(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)

	next := activeSnapshot(4, 62)
	next.CombatLogs = []protocol.CombatLog{
		{TurnNumber: 3, Type: protocol.LogIncome, Message: "Income: 12 credits",
			Detail: &protocol.IncomeDetail{Amount: 12, Source: "mining"}},
	}
	fs.setSnapshot(next)
	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 4)

	require.Eventually(t, func() bool {
		for _, text := range rig.render.rendered() {
			if text == "Income: 12 credits" {
				return true
			}
		}
		return false
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		turn, ok, err := rig.store.LastSeenTurn(context.Background(), "g-1")
		return err == nil && ok && turn == 3
	}, 2*time.Second, time.Millisecond)
}

func TestController_MissedSummaryReplaysOnLoad(t *testing.T) {
	snap := activeSnapshot(4, 62)
	snap.CombatLogs = []protocol.CombatLog{
		{TurnNumber: 3, Type: protocol.LogIncome, Message: "Income: 12 credits",
			Detail: &protocol.IncomeDetail{Amount: 12, Source: "mining"}},
	}
	fs := newFakeServer(t, snap)
	dbPath := filepath.Join(t.TempDir(), "staging.db")

	rig := startController(t, fs, dbPath, nil)
	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 4)

	require.Eventually(t, func() bool {
		return len(rig.render.rendered()) > 0
	}, 2*time.Second, time.Millisecond, "unseen previous turn is narrated on load")

	require.Eventually(t, func() bool {
		turn, ok, err := rig.store.LastSeenTurn(context.Background(), "g-1")
		return err == nil && ok && turn == 3
	}, 2*time.Second, time.Millisecond)

	// A reload after watching the summary stays quiet.
	rig2 := startController(t, fs, dbPath, nil)
	rig2.ctrl.NotifyChanged()
	waitForTurn(t, rig2, 4)

	v, err := rig2.ctrl.View()
	require.NoError(t, err)
	assert.Equal(t, reconcile.PhaseActive, v.State.Phase)
	assert.Empty(t, rig2.render.rendered())
}

func TestController_FetchFailureKeepsLastGoodState(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)

	fs.setFailFetch(true)
	rig.ctrl.NotifyChanged()

	require.Eventually(t, func() bool {
		return len(rig.reported()) > 0
	}, 2*time.Second, time.Millisecond, "fetch failure is reported, not fatal")

	v, err := rig.ctrl.View()
	require.NoError(t, err)
	assert.Equal(t, 3, v.Turn, "previous snapshot is retained")
	assert.Equal(t, reconcile.PhaseActive, v.State.Phase)

	// Recovery on the next push signal.
	fs.setFailFetch(false)
	fs.setSnapshot(activeSnapshot(4, 62))
	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 4)
}

func TestController_EliminationDisablesSubmission(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)

	next := activeSnapshot(4, 0)
	next.IsEliminated = true
	fs.setSnapshot(next)
	rig.ctrl.NotifyChanged()

	require.Eventually(t, func() bool {
		v, err := rig.ctrl.View()
		return err == nil && v.State.Phase == reconcile.PhaseObserver
	}, 2*time.Second, time.Millisecond)

	v, err := rig.ctrl.View()
	require.NoError(t, err)
	assert.Equal(t, reconcile.ReasonDefeated, v.State.Reason)
	assert.ErrorIs(t, rig.ctrl.Submit(context.Background()), ErrNotAcceptingOrders)
}

func TestController_ObserverTurnAdvanceStaysQuiet(t *testing.T) {
	fs := newFakeServer(t, activeSnapshot(3, 50))
	rig := startController(t, fs, filepath.Join(t.TempDir(), "staging.db"), nil)

	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 3)

	// Elimination narrates the current turn's defeat.
	next := activeSnapshot(4, 0)
	next.IsEliminated = true
	next.CombatLogs = []protocol.CombatLog{
		{TurnNumber: 4, Type: protocol.LogDefeat,
			Detail: &protocol.StatusDetail{PlayerID: "p1"}},
	}
	fs.setSnapshot(next)
	rig.ctrl.NotifyChanged()

	require.Eventually(t, func() bool {
		for _, text := range rig.render.rendered() {
			if text == "You have been defeated" {
				return true
			}
		}
		return false
	}, 2*time.Second, time.Millisecond)

	// Later turns keep arriving, but an observer's summary view never
	// reopens: nothing new is rendered.
	seen := len(rig.render.rendered())
	later := activeSnapshot(5, 0)
	later.IsEliminated = true
	later.CombatLogs = []protocol.CombatLog{
		{TurnNumber: 4, Type: protocol.LogIncome, Message: "Income: 9 credits",
			Detail: &protocol.IncomeDetail{Amount: 9}},
	}
	fs.setSnapshot(later)
	rig.ctrl.NotifyChanged()
	waitForTurn(t, rig, 5)

	assert.Equal(t, seen, len(rig.render.rendered()))
}

func TestController_AutoSubmitOnDeadline(t *testing.T) {
	snap := activeSnapshot(3, 50)
	snap.TurnDeadline = time.Now().Add(20 * time.Millisecond).UnixMilli()
	fs := newFakeServer(t, snap)

	store, err := staging.Open(filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl, err := NewController(Config{
		GameID:     "g-1",
		API:        NewAPI(fs.srv.URL, fs.srv.Client()),
		Store:      store,
		Tokens:     reconcile.NewFixedGenerator("tok-1"),
		After:      testutil.ImmediateAfter,
		AutoSubmit: true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ctrl.NotifyChanged()
	require.Eventually(t, func() bool {
		return len(fs.submitted()) == 1
	}, 2*time.Second, time.Millisecond, "deadline fires exactly one auto submission")
}
