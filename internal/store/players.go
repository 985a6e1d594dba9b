package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/derekprior/legacies/internal/draft"
)

var ErrPlayerNotFound = errors.New("player not registered")

// PlayerRepository is the registry of known players and their saved
// preferences.
type PlayerRepository struct {
	q             querier
	defaultRating int
}

// Register adds a player or renames an existing one.
func (r *PlayerRepository) Register(ctx context.Context, id uint64, name string) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO players (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		int64(id), name)
	if err != nil {
		return fmt.Errorf("failed to register player: %w", err)
	}
	return nil
}

const playerColumns = `
	SELECT p.id, p.name, p.preferences, COALESCE(s.rating, ?)
	FROM players p LEFT JOIN player_stats s ON s.player_id = p.id`

// Get returns a registered player with saved preferences and current rating.
func (r *PlayerRepository) Get(ctx context.Context, id uint64) (*draft.Player, error) {
	row := r.q.QueryRowContext(ctx, playerColumns+` WHERE p.id = ?`, r.defaultRating, int64(id))
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every registered player ordered by id.
func (r *PlayerRepository) List(ctx context.Context) ([]*draft.Player, error) {
	rows, err := r.q.QueryContext(ctx, playerColumns+` ORDER BY p.id`, r.defaultRating)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var out []*draft.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPreferences replaces a registered player's saved preferences.
func (r *PlayerRepository) SetPreferences(ctx context.Context, id uint64, prefs []string) error {
	if prefs == nil {
		prefs = []string{}
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `UPDATE players SET preferences = ? WHERE id = ?`, string(data), int64(id))
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(s scanner) (*draft.Player, error) {
	var (
		id    int64
		prefs string
		p     draft.Player
	)
	if err := s.Scan(&id, &p.Name, &prefs, &p.Rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	p.ID = uint64(id)
	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences for %d: %w", p.ID, err)
	}
	return &p, nil
}
