package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roach88/skirmish/internal/ledger"
	"github.com/roach88/skirmish/internal/protocol"
)

// maxErrorBody caps how much of a rejection body is kept for display.
const maxErrorBody = 1 << 10

// API talks to the game server over HTTP. It is the only component that
// issues requests; everything above it sees decoded snapshots and typed
// errors.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI creates an API client for the given base URL.
// A nil httpClient uses a default with a 10 second timeout.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{baseURL: baseURL, http: httpClient}
}

// FetchSnapshot retrieves and decodes the authoritative snapshot for a
// game. Decoding validates every combat log payload; a snapshot that
// fails validation is an error here, and the caller keeps its previous
// snapshot.
func (a *API) FetchSnapshot(ctx context.Context, gameID string) (*protocol.Snapshot, error) {
	url := fmt.Sprintf("%s/api/games/%s/snapshot", a.baseURL, gameID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return protocol.DecodeSnapshot(body)
}

// SubmitTurn posts the staged orders for a turn. The submission token
// lets the server dedupe retries of the same submission.
//
// Success clears nothing: the ledger and staging record survive until
// the next confirmed turn advance. A server rejection is returned as a
// *SubmissionError and also leaves everything untouched.
func (a *API) SubmitTurn(ctx context.Context, gameID string, turn int, token string, moves []ledger.MoveOrder, builds []ledger.BuildOrder) error {
	payload, err := marshalSubmission(turn, token, moves, builds)
	if err != nil {
		return fmt.Errorf("submit turn: %w", err)
	}

	url := fmt.Sprintf("%s/api/games/%s/submit", a.baseURL, gameID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("submit turn: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &SubmissionError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return nil
}

// marshalSubmission builds the canonical submission body. Canonical
// serialization keeps the wire bytes stable for a given ledger, so a
// retried submission is byte-identical and the token dedupe holds.
func marshalSubmission(turn int, token string, moves []ledger.MoveOrder, builds []ledger.BuildOrder) ([]byte, error) {
	moveList := make([]any, len(moves))
	for i, m := range moves {
		moveList[i] = map[string]any{
			"mechId": m.MechID,
			"fromX":  m.FromX,
			"fromY":  m.FromY,
			"toX":    m.ToX,
			"toY":    m.ToY,
		}
	}

	buildList := make([]any, len(builds))
	for i, b := range builds {
		buildList[i] = map[string]any{
			"planetId": b.PlanetID,
			"kind":     string(b.Kind),
			"subtype":  b.Subtype,
			"cost":     b.Cost,
		}
	}

	return protocol.MarshalCanonical(map[string]any{
		"turnNumber":      turn,
		"submissionToken": token,
		"moves":           moveList,
		"builds":          buildList,
	})
}
