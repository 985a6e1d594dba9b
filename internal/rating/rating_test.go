package rating

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/legacies/internal/draft"
)

func seeded(t *testing.T, ratings map[uint64]int) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(draft.DefaultRating)
	for id, r := range ratings {
		s := NewStats(id, r)
		require.NoError(t, store.Update(context.Background(), s))
	}
	return store
}

func players(ids ...uint64) []*draft.Player {
	out := make([]*draft.Player, len(ids))
	for i, id := range ids {
		out[i] = draft.NewPlayer(id, "P")
	}
	return out
}

func TestExpected(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1000, 1000), 1e-9)
	assert.InDelta(t, 0.909, Expected(1200, 800), 0.001)
	assert.InDelta(t, 1.0, Expected(1200, 800)+Expected(800, 1200), 1e-9)
}

func TestApplyResultWinnersGainLosersLose(t *testing.T) {
	store := seeded(t, map[uint64]int{1: 1000, 2: 1000, 3: 1000, 4: 1000})

	changes, err := NewEngine(32).ApplyResult(context.Background(), players(1, 2), players(3, 4), true, store)
	require.NoError(t, err)

	require.Len(t, changes, 4)
	assert.Equal(t, 16, changes[1])
	assert.Equal(t, 16, changes[2])
	assert.Equal(t, -16, changes[3])
	assert.Equal(t, -16, changes[4])
}

func TestApplyResultFavouriteVersusUpset(t *testing.T) {
	ctx := context.Background()

	favourite := seeded(t, map[uint64]int{1: 1200, 2: 1200, 3: 800, 4: 800})
	favChanges, err := NewEngine(32).ApplyResult(ctx, players(1, 2), players(3, 4), true, favourite)
	require.NoError(t, err)

	upset := seeded(t, map[uint64]int{1: 800, 2: 800, 3: 1200, 4: 1200})
	upsetChanges, err := NewEngine(32).ApplyResult(ctx, players(1, 2), players(3, 4), true, upset)
	require.NoError(t, err)

	assert.Less(t, favChanges[1], 10)
	assert.Greater(t, upsetChanges[1], 20)
	assert.Less(t, favChanges[1], upsetChanges[1])
}

func TestApplyResultSameDeltaWithinTeam(t *testing.T) {
	store := seeded(t, map[uint64]int{1: 900, 2: 1100, 3: 1000, 4: 1300, 5: 700, 6: 1000})

	changes, err := NewEngine(32).ApplyResult(context.Background(), players(1, 2, 3), players(4, 5, 6), false, store)
	require.NoError(t, err)

	assert.Equal(t, changes[1], changes[2])
	assert.Equal(t, changes[2], changes[3])
	assert.Equal(t, changes[4], changes[5])
	assert.Equal(t, changes[5], changes[6])
	assert.Negative(t, changes[1])
	assert.Positive(t, changes[4])
}

func TestApplyResultMatchesStoredChange(t *testing.T) {
	ctx := context.Background()
	store := seeded(t, map[uint64]int{1: 1013, 2: 987, 3: 1201, 4: 799})

	before := map[uint64]int{}
	for id := uint64(1); id <= 4; id++ {
		s, _ := store.GetOrCreate(ctx, id)
		before[id] = s.Rating
	}

	teamA, teamB := players(1, 2), players(3, 4)
	teamA[0].AssignedFaction = "Scourge"
	teamA[1].AssignedFaction = "Legion"
	teamB[0].AssignedFaction = "Lordaeron"

	changes, err := NewEngine(32).ApplyResult(ctx, teamA, teamB, false, store)
	require.NoError(t, err)

	for id := uint64(1); id <= 4; id++ {
		s, err := store.GetOrCreate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before[id]+changes[id], s.Rating, "player %d", id)
		assert.Equal(t, 1, s.GamesPlayed)
	}

	p1, _ := store.GetOrCreate(ctx, 1)
	assert.Equal(t, 0, p1.Wins)
	assert.Equal(t, 1, p1.Losses)
	assert.Equal(t, FactionRecord{Wins: 0, Losses: 1}, *p1.FactionHistory["Scourge"])

	p3, _ := store.GetOrCreate(ctx, 3)
	assert.Equal(t, 1, p3.Wins)
	assert.Equal(t, FactionRecord{Wins: 1}, *p3.FactionHistory["Lordaeron"])

	p4, _ := store.GetOrCreate(ctx, 4)
	assert.Empty(t, p4.FactionHistory, "no assigned faction means no faction history")
}

func TestApplyResultUsesStoredRatingNotInMemory(t *testing.T) {
	store := seeded(t, map[uint64]int{1: 1000, 2: 1000})
	teamA, teamB := players(1), players(2)
	teamA[0].Rating = 3000 // jittered or stale in-memory value

	changes, err := NewEngine(32).ApplyResult(context.Background(), teamA, teamB, true, store)
	require.NoError(t, err)
	assert.Equal(t, 16, changes[1])
}

func TestApplyResultNewPlayersStartAtDefault(t *testing.T) {
	store := NewMemoryStore(800)
	_, err := NewEngine(32).ApplyResult(context.Background(), players(10), players(11), true, store)
	require.NoError(t, err)

	s, _ := store.GetOrCreate(context.Background(), 10)
	assert.Equal(t, 816, s.Rating)
}

func TestApplyResultRejectsEmptyTeams(t *testing.T) {
	_, err := NewEngine(32).ApplyResult(context.Background(), nil, players(1), true, NewMemoryStore(800))
	assert.ErrorIs(t, err, draft.ErrInvalidArgument)
}

func TestStatsJSONRoundTrip(t *testing.T) {
	s := NewStats(42, 1234)
	s.GamesPlayed, s.Wins, s.Losses = 3, 2, 1
	s.RecordFaction("Skywall", true)
	s.RecordFaction("Skywall", false)
	s.RecordFaction("Druids", true)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"factionHistory"`)
	assert.Contains(t, string(data), `"gamesPlayed":3`)

	var got Stats
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s, &got)
}

func TestMemoryStoreAllSortedAndIsolated(t *testing.T) {
	store := seeded(t, map[uint64]int{1: 900, 2: 1100, 3: 1000})

	all := store.All()
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{2, 3, 1}, []uint64{all[0].PlayerID, all[1].PlayerID, all[2].PlayerID})

	all[0].Rating = 0
	s, _ := store.GetOrCreate(context.Background(), 2)
	assert.Equal(t, 1100, s.Rating, "All must return copies")
}

func TestWinRate(t *testing.T) {
	s := NewStats(1, 800)
	assert.Zero(t, s.WinRate())
	s.GamesPlayed, s.Wins = 4, 3
	assert.InDelta(t, 75.0, s.WinRate(), 1e-9)
	assert.InDelta(t, 50.0, FactionRecord{Wins: 1, Losses: 1}.WinRate(), 1e-9)
}
