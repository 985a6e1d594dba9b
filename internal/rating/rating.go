package rating

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/derekprior/legacies/internal/draft"
)

// DefaultK is the standard Elo K-factor.
const DefaultK = 32

// Engine applies team-level Elo updates.
type Engine struct {
	K float64
}

func NewEngine(k float64) *Engine {
	if k <= 0 {
		k = DefaultK
	}
	return &Engine{K: k}
}

// Expected returns the probability that a side rated avgA beats a side
// rated avgB.
func Expected(avgA, avgB float64) float64 {
	return 1 / (1 + math.Pow(10, (avgB-avgA)/400))
}

// Deltas returns the rating change for each side. Every player on a side
// moves by the same amount.
func (e *Engine) Deltas(avgA, avgB float64, teamAWon bool) (deltaA, deltaB int) {
	expectedA := Expected(avgA, avgB)
	expectedB := 1 - expectedA

	scoreA := 0.0
	if teamAWon {
		scoreA = 1
	}
	scoreB := 1 - scoreA

	deltaA = int(math.Round(e.K * (scoreA - expectedA)))
	deltaB = int(math.Round(e.K * (scoreB - expectedB)))
	return deltaA, deltaB
}

// ApplyResult updates and persists every player's stats for one match and
// returns the applied delta per player id. Averages come from stored
// ratings, not the in-memory Player.Rating, which a draft may have
// jittered. Faction history is keyed by Player.AssignedFaction.
func (e *Engine) ApplyResult(ctx context.Context, teamA, teamB []*draft.Player, teamAWon bool, stats StatsStore) (map[uint64]int, error) {
	if len(teamA) == 0 || len(teamB) == 0 {
		return nil, fmt.Errorf("%w: both teams need players", draft.ErrInvalidArgument)
	}

	avgA, err := averageRating(ctx, teamA, stats)
	if err != nil {
		return nil, err
	}
	avgB, err := averageRating(ctx, teamB, stats)
	if err != nil {
		return nil, err
	}

	deltaA, deltaB := e.Deltas(avgA, avgB, teamAWon)

	changes := make(map[uint64]int, len(teamA)+len(teamB))
	sides := []struct {
		players []*draft.Player
		won     bool
		delta   int
	}{
		{teamA, teamAWon, deltaA},
		{teamB, !teamAWon, deltaB},
	}
	for _, side := range sides {
		for _, p := range side.players {
			s, err := stats.GetOrCreate(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("loading stats for %d: %w", p.ID, err)
			}
			before := s.Rating

			s.GamesPlayed++
			if side.won {
				s.Wins++
			} else {
				s.Losses++
			}
			s.Rating += side.delta
			s.RecordFaction(p.AssignedFaction, side.won)

			if err := stats.Update(ctx, s); err != nil {
				return nil, fmt.Errorf("saving stats for %d: %w", p.ID, err)
			}
			changes[p.ID] = s.Rating - before
		}
	}

	return changes, nil
}

func averageRating(ctx context.Context, players []*draft.Player, stats StatsStore) (float64, error) {
	ratings := make([]int, len(players))
	for i, p := range players {
		s, err := stats.GetOrCreate(ctx, p.ID)
		if err != nil {
			return 0, fmt.Errorf("loading stats for %d: %w", p.ID, err)
		}
		ratings[i] = s.Rating
	}
	return float64(lo.Sum(ratings)) / float64(len(ratings)), nil
}
