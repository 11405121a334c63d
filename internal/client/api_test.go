package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/protocol"
)

func TestFetchSnapshot_DecodesAndValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/games/g-1/snapshot", r.URL.Path)
		io.WriteString(w, `{
			"gameId": "g-1", "turnNumber": 3, "status": "active", "credits": 50,
			"combatLogs": [
				{"turnNumber": 2, "logType": "income", "x": 0, "y": 0,
				 "message": "Income: 12 credits", "detailedLog": {"amount": 12, "source": "mining"}}
			]
		}`)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, srv.Client())
	snap, err := api.FetchSnapshot(context.Background(), "g-1")
	require.NoError(t, err)

	assert.Equal(t, 3, snap.TurnNumber)
	assert.Equal(t, protocol.StatusActive, snap.Status)
	require.Len(t, snap.CombatLogs, 1)
	assert.IsType(t, &protocol.IncomeDetail{}, snap.CombatLogs[0].Detail)
}

func TestFetchSnapshot_RejectsInvalidLogPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A battle without its detailedLog violates the wire contract.
		io.WriteString(w, `{
			"gameId": "g-1", "turnNumber": 3, "status": "active",
			"combatLogs": [{"turnNumber": 2, "logType": "battle", "x": 1, "y": 1}]
		}`)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, srv.Client())
	_, err := api.FetchSnapshot(context.Background(), "g-1")
	assert.Error(t, err)
}

func TestFetchSnapshot_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, srv.Client())
	_, err := api.FetchSnapshot(context.Background(), "g-1")
	assert.ErrorContains(t, err, "503")
}

func TestSubmitTurn_PostsCanonicalBody(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/games/g-1/submit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, srv.Client())
	err := api.SubmitTurn(context.Background(), "g-1", 3, "tok-1",
		[]ledger.MoveOrder{{MechID: 7, FromX: 5, FromY: 5, ToX: 6, ToY: 6}},
		[]ledger.BuildOrder{{PlanetID: 1, Kind: ledger.KindBuilding, Subtype: "mining", Cost: 10}},
	)
	require.NoError(t, err)

	assert.Equal(t,
		`{"builds":[{"cost":10,"kind":"building","planetId":1,"subtype":"mining"}],`+
			`"moves":[{"fromX":5,"fromY":5,"mechId":7,"toX":6,"toY":6}],`+
			`"submissionToken":"tok-1","turnNumber":3}`,
		string(body), "retried submissions must be byte-identical")
}

func TestSubmitTurn_RejectionBecomesSubmissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, "turn already resolved\n")
	}))
	defer srv.Close()

	api := NewAPI(srv.URL, srv.Client())
	err := api.SubmitTurn(context.Background(), "g-1", 3, "tok-1", nil, nil)

	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "turn already resolved", se.Body)
	assert.True(t, IsSubmission(err))
}
