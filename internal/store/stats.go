package store

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/rating"
)

// StatsRepository persists rating.Stats in player_stats and faction_stats.
type StatsRepository struct {
	q             querier
	defaultRating int
}

func (r *StatsRepository) GetOrCreate(ctx context.Context, id uint64) (*rating.Stats, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO player_stats (player_id, rating) VALUES (?, ?) ON CONFLICT(player_id) DO NOTHING`,
		int64(id), r.defaultRating)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats: %w", err)
	}

	s := rating.NewStats(id, 0)
	err = r.q.QueryRowContext(ctx,
		`SELECT rating, games_played, wins, losses FROM player_stats WHERE player_id = ?`,
		int64(id)).Scan(&s.Rating, &s.GamesPlayed, &s.Wins, &s.Losses)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	if err := r.loadFactions(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *StatsRepository) loadFactions(ctx context.Context, s *rating.Stats) error {
	rows, err := r.q.QueryContext(ctx,
		`SELECT faction, wins, losses FROM faction_stats WHERE player_id = ?`, int64(s.PlayerID))
	if err != nil {
		return fmt.Errorf("failed to load faction stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		rec := &rating.FactionRecord{}
		if err := rows.Scan(&name, &rec.Wins, &rec.Losses); err != nil {
			return fmt.Errorf("failed to scan faction stats: %w", err)
		}
		s.FactionHistory[name] = rec
	}
	return rows.Err()
}

func (r *StatsRepository) Update(ctx context.Context, s *rating.Stats) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO player_stats (player_id, rating, games_played, wins, losses)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			rating = excluded.rating,
			games_played = excluded.games_played,
			wins = excluded.wins,
			losses = excluded.losses`,
		int64(s.PlayerID), s.Rating, s.GamesPlayed, s.Wins, s.Losses)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}

	for name, rec := range s.FactionHistory {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO faction_stats (player_id, faction, wins, losses)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(player_id, faction) DO UPDATE SET
				wins = excluded.wins,
				losses = excluded.losses`,
			int64(s.PlayerID), name, rec.Wins, rec.Losses)
		if err != nil {
			return fmt.Errorf("failed to save faction stats: %w", err)
		}
	}
	return nil
}

// All returns every player's stats, highest rating first.
func (r *StatsRepository) All(ctx context.Context) ([]*rating.Stats, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT player_id, rating, games_played, wins, losses FROM player_stats`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}

	var out []*rating.Stats
	for rows.Next() {
		var id int64
		s := rating.NewStats(0, 0)
		if err := rows.Scan(&id, &s.Rating, &s.GamesPlayed, &s.Wins, &s.Losses); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.PlayerID = uint64(id)
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, s := range out {
		if err := r.loadFactions(ctx, s); err != nil {
			return nil, err
		}
	}
	rating.SortByRating(out)
	return out, nil
}

// Standing is one leaderboard row.
type Standing struct {
	Name string
	*rating.Stats
}

// Leaderboard returns players ordered by rating with their registered
// names. limit <= 0 returns everyone.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	stats, err := (&StatsRepository{q: s.db, defaultRating: s.defaultRating}).All(ctx)
	if err != nil {
		return nil, err
	}
	players, err := s.Players().List(ctx)
	if err != nil {
		return nil, err
	}
	names := lo.Associate(players, func(p *draft.Player) (uint64, string) { return p.ID, p.Name })

	if limit > 0 && limit < len(stats) {
		stats = stats[:limit]
	}
	return lo.Map(stats, func(st *rating.Stats, _ int) Standing {
		name, ok := names[st.PlayerID]
		if !ok {
			name = fmt.Sprintf("#%d", st.PlayerID)
		}
		return Standing{Name: name, Stats: st}
	}), nil
}
