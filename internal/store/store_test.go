package store

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/game"
	"github.com/derekprior/legacies/internal/history"
	"github.com/derekprior/legacies/internal/rules"
)

func openTest(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacies.db")
	s, err := Open(path, draft.DefaultRating, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func newService(t *testing.T, s *Store, clk clock.Clock) *game.Service {
	t.Helper()
	eng, err := draft.NewEngine(catalogue.Reference(), rules.Reference(), rand.New(rand.NewSource(3)), draft.Options{}, zerolog.Nop())
	require.NoError(t, err)
	return game.NewService(game.Config{Store: s, Engine: eng, Clock: clk, Logger: zerolog.Nop()})
}

func sixteen() []*draft.Player {
	out := make([]*draft.Player, draft.PlayerCount)
	for i := range out {
		out[i] = draft.NewPlayer(uint64(1000+i), fmt.Sprintf("player%d", i))
	}
	return out
}

func TestOpenIsIdempotent(t *testing.T) {
	s, path := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Players().Register(ctx, 1, "Arthas"))
	require.NoError(t, s.Close())

	again, err := Open(path, draft.DefaultRating, zerolog.Nop())
	require.NoError(t, err)
	defer again.Close()

	p, err := again.Players().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Arthas", p.Name)
}

func TestStatsRepository(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()
	stats := s.Stats()

	fresh, err := stats.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, draft.DefaultRating, fresh.Rating)
	assert.Empty(t, fresh.FactionHistory)

	fresh.Rating = 1234
	fresh.GamesPlayed, fresh.Wins = 1, 1
	fresh.RecordFaction("Druids", true)
	require.NoError(t, stats.Update(ctx, fresh))

	fresh.RecordFaction("Druids", false)
	fresh.RecordFaction("Skywall", false)
	require.NoError(t, stats.Update(ctx, fresh))

	got, err := stats.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	if diff := cmp.Diff(fresh, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayerRepository(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()
	players := s.Players()

	require.NoError(t, players.Register(ctx, 2, "Thrall"))
	require.NoError(t, players.Register(ctx, 1, "Jaina"))
	require.NoError(t, players.Register(ctx, 1, "Jaina Proudmoore"))

	require.NoError(t, players.SetPreferences(ctx, 1, []string{"Kul'tiras", "Stormwind"}))
	assert.ErrorIs(t, players.SetPreferences(ctx, 9, []string{"Druids"}), ErrPlayerNotFound)

	p, err := players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Jaina Proudmoore", p.Name)
	assert.Equal(t, []string{"Kul'tiras", "Stormwind"}, p.Preferences)
	assert.Equal(t, draft.DefaultRating, p.Rating)

	_, err = players.Get(ctx, 9)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	st, _ := s.Stats().GetOrCreate(ctx, 2)
	st.Rating = 950
	require.NoError(t, s.Stats().Update(ctx, st))

	all, err := players.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].ID)
	assert.Empty(t, all[1].Preferences)
	assert.Equal(t, 950, all[1].Rating)

	require.NoError(t, players.SetPreferences(ctx, 1, nil))
	p, _ = players.Get(ctx, 1)
	assert.Empty(t, p.Preferences)
}

func TestHistoryRepositoryRoundTrip(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()

	faction := "Scourge"
	base := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	for id := 1; id <= 3; id++ {
		rec := history.MatchRecord{
			GameID:    id,
			Timestamp: base.Add(time.Duration(id) * time.Hour),
			ScoreA:    1,
			TeamA:     []history.PlayerRecord{{ID: 1, Name: "Arthas", RatingDelta: 16, FactionName: &faction}},
			TeamB:     []history.PlayerRecord{{ID: 2, Name: "Thrall", RatingDelta: -16}},
		}
		require.NoError(t, s.History().Record(ctx, rec))
	}

	got, err := s.History().List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].GameID)
	assert.Equal(t, 2, got[1].GameID)

	want := history.MatchRecord{
		GameID:    3,
		Timestamp: base.Add(3 * time.Hour),
		ScoreA:    1,
		TeamA:     []history.PlayerRecord{{ID: 1, Name: "Arthas", RatingDelta: 16, FactionName: &faction}},
		TeamB:     []history.PlayerRecord{{ID: 2, Name: "Thrall", RatingDelta: -16}},
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	all, err := s.History().List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGameLifecycle(t *testing.T) {
	s, path := openTest(t)
	ctx := context.Background()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC))
	svc := newService(t, s, clk)

	g, err := svc.StartDraft(ctx, sixteen(), "lobby-x")
	require.NoError(t, err)
	assert.Equal(t, 1, g.ID)

	t.Run("game survives reload", func(t *testing.T) {
		loaded, err := s.Games().Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, game.InProgress, loaded.State())
		assert.Equal(t, "lobby-x", loaded.LobbyID)
		assert.Equal(t, g.CreatedAt, loaded.CreatedAt)
		require.Len(t, loaded.TeamA.Players, draft.TeamSize)
		for i, p := range g.TeamA.Players {
			assert.Equal(t, p.ID, loaded.TeamA.Players[i].ID)
			assert.Equal(t, p.AssignedFaction, loaded.TeamA.Players[i].AssignedFaction)
			assert.Equal(t, g.TeamA.Factions[i], loaded.TeamA.Factions[i])
		}
	})

	t.Run("votes persist across calls", func(t *testing.T) {
		for i, p := range g.TeamB.Players {
			res, err := svc.Vote(ctx, g.ID, p.ID, game.Score{A: 0, B: 1})
			require.NoError(t, err)
			assert.Equal(t, i+1, res.Votes)
			assert.False(t, res.Finished)
		}
		_, err := svc.Vote(ctx, g.ID, 1, game.Score{A: 0, B: 1})
		assert.ErrorIs(t, err, game.ErrNotParticipant)

		res, err := svc.Vote(ctx, g.ID, g.TeamA.Players[0].ID, game.Score{A: 0, B: 1})
		require.NoError(t, err)
		assert.True(t, res.Finished)
		assert.Len(t, res.Changes, draft.PlayerCount)
	})

	t.Run("result is persisted", func(t *testing.T) {
		loaded, err := s.Games().Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, game.Finished, loaded.State())
		assert.Equal(t, game.Score{A: 0, B: 1}, loaded.Score())
		assert.False(t, loaded.Killed())

		ongoing, err := svc.Ongoing(ctx)
		require.NoError(t, err)
		assert.Empty(t, ongoing)

		winner := g.TeamB.Players[0]
		st, err := s.Stats().GetOrCreate(ctx, winner.ID)
		require.NoError(t, err)
		assert.Equal(t, draft.DefaultRating+16, st.Rating)
		assert.Equal(t, 1, st.FactionHistory[winner.AssignedFaction].Wins)

		records, err := s.History().List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, clk.Now(), records[0].Timestamp)
		assert.Equal(t, -16, records[0].TeamA[0].RatingDelta)
	})

	t.Run("second score is rejected", func(t *testing.T) {
		_, err := svc.SubmitScore(ctx, g.ID, game.Score{A: 1, B: 0})
		assert.ErrorIs(t, err, game.ErrAlreadyFinished)
		assert.ErrorIs(t, svc.Kill(ctx, g.ID), game.ErrAlreadyFinished)
		_, err = svc.SubmitScore(ctx, 99, game.Score{A: 1, B: 0})
		assert.ErrorIs(t, err, game.ErrNotFound)
	})

	t.Run("state survives reopen", func(t *testing.T) {
		reopened, err := Open(path, draft.DefaultRating, zerolog.Nop())
		require.NoError(t, err)
		defer reopened.Close()
		loaded, err := reopened.Games().Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, game.Finished, loaded.State())
	})
}

func TestSubmitScoreExactlyOnce(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()
	svc := newService(t, s, clock.New())

	g, err := svc.StartDraft(ctx, sixteen(), "")
	require.NoError(t, err)

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitScore(ctx, g.ID, game.Score{A: 1, B: 0})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, game.ErrAlreadyFinished)
		}
	}
	assert.Equal(t, 1, succeeded)

	records, err := s.History().List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	st, err := s.Stats().GetOrCreate(ctx, g.TeamA.Players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.GamesPlayed)
}

func TestInTxRollsBack(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()

	boom := fmt.Errorf("boom")
	err := s.InTx(ctx, func(tx game.Tx) error {
		st, err := tx.Stats().GetOrCreate(ctx, 7)
		require.NoError(t, err)
		st.Rating = 2000
		require.NoError(t, tx.Stats().Update(ctx, st))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	st, err := s.Stats().GetOrCreate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, draft.DefaultRating, st.Rating)
}

func TestKillAndLeaderboard(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()
	svc := newService(t, s, clock.New())

	g, err := svc.StartDraft(ctx, sixteen(), "")
	require.NoError(t, err)
	require.NoError(t, svc.Kill(ctx, g.ID))

	loaded, err := s.Games().Get(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Killed())

	records, _ := s.History().List(ctx, 0)
	assert.Empty(t, records)

	require.NoError(t, s.Players().Register(ctx, 1000, "Arthas"))
	st, _ := s.Stats().GetOrCreate(ctx, 1001)
	st.Rating = 900
	require.NoError(t, s.Stats().Update(ctx, st))

	board, err := s.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, uint64(1001), board[0].PlayerID)
	assert.Equal(t, "#1001", board[0].Name)
	assert.Equal(t, uint64(1000), board[1].PlayerID)
	assert.Equal(t, "Arthas", board[1].Name)
}
