package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/skirmish/internal/ledger"
)

// Save writes the ledger for (gameID, turn), overwriting any prior
// record. Called after every mutating ledger operation.
func (s *Store) Save(ctx context.Context, gameID string, turn int, l *ledger.Ledger) error {
	payload, err := marshalLedger(l)
	if err != nil {
		return fmt.Errorf("save staged orders: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO staged_orders (game_id, turn, ledger, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id, turn) DO UPDATE SET
			ledger = excluded.ledger,
			updated_at = excluded.updated_at
	`, gameID, turn, payload, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save staged orders: %w", err)
	}
	return nil
}

// Load reads the staged record for (gameID, turn). Returns ok=false if
// the record is absent or malformed; malformed payloads never surface
// as errors.
func (s *Store) Load(ctx context.Context, gameID string, turn int) (Record, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT ledger FROM staged_orders
		WHERE game_id = ? AND turn = ?
	`, gameID, turn).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load staged orders: %w", err)
	}

	r, ok := unmarshalRecord(payload)
	return r, ok, nil
}

// Evict deletes the record for (gameID, turn). Deleting an absent
// record is a no-op.
func (s *Store) Evict(ctx context.Context, gameID string, turn int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM staged_orders WHERE game_id = ? AND turn = ?
	`, gameID, turn)
	if err != nil {
		return fmt.Errorf("evict staged orders: %w", err)
	}
	return nil
}

// LastSeenTurn returns the newest turn the player has watched a summary
// for in the given game.
func (s *Store) LastSeenTurn(ctx context.Context, gameID string) (int, bool, error) {
	var turn int
	err := s.db.QueryRowContext(ctx, `
		SELECT turn FROM seen_turns WHERE game_id = ?
	`, gameID).Scan(&turn)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load last seen turn: %w", err)
	}
	return turn, true, nil
}

// SetLastSeenTurn records the newest turn the player has watched a
// summary for.
func (s *Store) SetLastSeenTurn(ctx context.Context, gameID string, turn int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_turns (game_id, turn)
		VALUES (?, ?)
		ON CONFLICT(game_id) DO UPDATE SET turn = excluded.turn
	`, gameID, turn)
	if err != nil {
		return fmt.Errorf("set last seen turn: %w", err)
	}
	return nil
}
