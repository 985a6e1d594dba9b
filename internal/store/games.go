package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/game"
)

// GameRepository persists games. Each Get builds a fresh *game.Game, so the
// state column is the source of truth for transitions.
type GameRepository struct {
	q querier
}

func (r *GameRepository) Create(ctx context.Context, g *game.Game) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO games (lobby_id, state, created_at) VALUES (?, ?, ?)`,
		g.LobbyID, g.State().String(), g.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read game id: %w", err)
	}

	for _, side := range []struct {
		label string
		team  *draft.Team
	}{{"A", g.TeamA}, {"B", g.TeamB}} {
		if side.team == nil {
			continue
		}
		for seat, p := range side.team.Players {
			f, _ := side.team.FactionFor(p.ID)
			_, err := r.q.ExecContext(ctx, `
				INSERT INTO game_players
					(game_id, team, seat, player_id, name, rating, faction, faction_group, faction_slot)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, side.label, seat, int64(p.ID), p.Name, p.Rating, f.Name, string(f.Group), f.Slot)
			if err != nil {
				return fmt.Errorf("failed to insert game player: %w", err)
			}
		}
	}

	g.ID = int(id)
	return nil
}

func (r *GameRepository) Get(ctx context.Context, id int) (*game.Game, error) {
	var (
		lobbyID, state, createdAt string
		score                     game.Score
		killed                    bool
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT lobby_id, state, score_a, score_b, killed, created_at FROM games WHERE id = ?`, id).
		Scan(&lobbyID, &state, &score.A, &score.B, &killed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", game.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	st, err := game.ParseState(state)
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse game time: %w", err)
	}

	teamA, teamB, err := r.loadTeams(ctx, id)
	if err != nil {
		return nil, err
	}
	return game.Restore(id, lobbyID, st, score, killed, created, teamA, teamB), nil
}

func (r *GameRepository) loadTeams(ctx context.Context, id int) (*draft.Team, *draft.Team, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT team, player_id, name, rating, faction, faction_group, faction_slot
		FROM game_players WHERE game_id = ? ORDER BY team, seat`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load game players: %w", err)
	}
	defer rows.Close()

	teams := map[string]*draft.Team{"A": draft.NewTeam("Team A"), "B": draft.NewTeam("Team B")}
	for rows.Next() {
		var (
			label, group string
			pid          int64
			p            draft.Player
			f            catalogue.Faction
		)
		if err := rows.Scan(&label, &pid, &p.Name, &p.Rating, &f.Name, &group, &f.Slot); err != nil {
			return nil, nil, fmt.Errorf("failed to scan game player: %w", err)
		}
		t, ok := teams[label]
		if !ok {
			return nil, nil, fmt.Errorf("game %d has unknown team %q", id, label)
		}
		p.ID = uint64(pid)
		p.AssignedFaction = f.Name
		f.Group = catalogue.Group(group)
		t.Add(&p)
		t.Factions = append(t.Factions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return teams["A"], teams["B"], nil
}

func (r *GameRepository) Ongoing(ctx context.Context) ([]*game.Game, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id FROM games WHERE state != ? ORDER BY id`, game.Finished.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*game.Game, 0, len(ids))
	for _, id := range ids {
		g, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *GameRepository) Vote(ctx context.Context, id int, playerID uint64, s game.Score) (int, error) {
	g, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := g.CanVote(playerID, s); err != nil {
		return 0, err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO game_votes (game_id, player_id, score_a, score_b) VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id, player_id) DO UPDATE SET
			score_a = excluded.score_a,
			score_b = excluded.score_b`,
		id, int64(playerID), s.A, s.B)
	if err != nil {
		return 0, fmt.Errorf("failed to record vote: %w", err)
	}

	var n int
	err = r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_votes WHERE game_id = ? AND score_a = ? AND score_b = ?`,
		id, s.A, s.B).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

func (r *GameRepository) Finish(ctx context.Context, id int, s game.Score) error {
	return r.finish(ctx, id, s, false)
}

func (r *GameRepository) Kill(ctx context.Context, id int) error {
	return r.finish(ctx, id, game.Score{}, true)
}

// finish is a compare-and-set on the state column.
func (r *GameRepository) finish(ctx context.Context, id int, s game.Score, killed bool) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE games SET state = ?, score_a = ?, score_b = ?, killed = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ? AND state = ?`,
		game.Finished.String(), s.A, s.B, killed, id, game.InProgress.String())
	if err != nil {
		return fmt.Errorf("failed to finish game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish game: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", game.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load game: %w", err)
	}
	return fmt.Errorf("%w: %d", game.ErrAlreadyFinished, id)
}
