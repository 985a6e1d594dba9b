package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/derekprior/legacies/internal/history"
)

// HistoryRepository persists match records in matches and match_players.
type HistoryRepository struct {
	q querier
}

func (r *HistoryRepository) Record(ctx context.Context, rec history.MatchRecord) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO matches (game_id, played_at, score_a, score_b) VALUES (?, ?, ?, ?)`,
		rec.GameID, rec.Timestamp.UTC().Format(timeLayout), rec.ScoreA, rec.ScoreB)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	for _, side := range []struct {
		label   string
		players []history.PlayerRecord
	}{{"A", rec.TeamA}, {"B", rec.TeamB}} {
		for seat, p := range side.players {
			var faction sql.NullString
			if p.FactionName != nil {
				faction = sql.NullString{String: *p.FactionName, Valid: true}
			}
			_, err := r.q.ExecContext(ctx, `
				INSERT INTO match_players (game_id, team, seat, player_id, name, rating_delta, faction)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.GameID, side.label, seat, int64(p.ID), p.Name, p.RatingDelta, faction)
			if err != nil {
				return fmt.Errorf("failed to insert match player: %w", err)
			}
		}
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]history.MatchRecord, error) {
	query := `SELECT game_id, played_at, score_a, score_b FROM matches ORDER BY played_at DESC, game_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	var out []history.MatchRecord
	for rows.Next() {
		var rec history.MatchRecord
		var playedAt string
		if err := rows.Scan(&rec.GameID, &playedAt, &rec.ScoreA, &rec.ScoreB); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		rec.Timestamp, err = time.Parse(timeLayout, playedAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse match time: %w", err)
		}
		out = append(out, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadPlayers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *HistoryRepository) loadPlayers(ctx context.Context, rec *history.MatchRecord) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT team, player_id, name, rating_delta, faction
		FROM match_players WHERE game_id = ? ORDER BY team, seat`, rec.GameID)
	if err != nil {
		return fmt.Errorf("failed to load match players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label   string
			pid     int64
			p       history.PlayerRecord
			faction sql.NullString
		)
		if err := rows.Scan(&label, &pid, &p.Name, &p.RatingDelta, &faction); err != nil {
			return fmt.Errorf("failed to scan match player: %w", err)
		}
		p.ID = uint64(pid)
		if faction.Valid {
			name := faction.String
			p.FactionName = &name
		}
		if label == "A" {
			rec.TeamA = append(rec.TeamA, p)
		} else {
			rec.TeamB = append(rec.TeamB, p)
		}
	}
	return rows.Err()
}
