package game

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/derekprior/legacies/internal/history"
	"github.com/derekprior/legacies/internal/rating"
)

// Repository stores games. Finish and Kill are the only ways a game leaves
// InProgress and both fail with ErrAlreadyFinished when it already has.
type Repository interface {
	// Create assigns the game its ID and stores it.
	Create(ctx context.Context, g *Game) error
	Get(ctx context.Context, id int) (*Game, error)
	// Ongoing returns unfinished games ordered by ID.
	Ongoing(ctx context.Context) ([]*Game, error)
	// Vote stores a participant's reported score and returns the number of
	// votes matching it.
	Vote(ctx context.Context, id int, playerID uint64, s Score) (int, error)
	Finish(ctx context.Context, id int, s Score) error
	Kill(ctx context.Context, id int) error
}

// Tx is the set of stores a finished match is written to.
type Tx interface {
	Games() Repository
	Stats() rating.StatsStore
	History() history.Store
}

// Store exposes the stores for reads and runs fn so that its writes are
// persisted as one unit.
type Store interface {
	Tx
	InTx(ctx context.Context, fn func(Tx) error) error
}

// MemoryRepository keeps games in process. Get returns the stored pointer,
// so state transitions are visible to every holder.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int
	games  map[int]*Game
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, games: make(map[int]*Game)}
}

func (r *MemoryRepository) Create(_ context.Context, g *Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.ID = r.nextID
	r.nextID++
	r.games[g.ID] = g
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id int) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return g, nil
}

func (r *MemoryRepository) Ongoing(_ context.Context) ([]*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Game
	for _, g := range r.games {
		if g.State() != Finished {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) Vote(ctx context.Context, id int, playerID uint64, s Score) (int, error) {
	g, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return g.Vote(playerID, s)
}

func (r *MemoryRepository) Finish(ctx context.Context, id int, s Score) error {
	return r.finish(ctx, id, s, false)
}

func (r *MemoryRepository) Kill(ctx context.Context, id int) error {
	return r.finish(ctx, id, Score{}, true)
}

func (r *MemoryRepository) finish(ctx context.Context, id int, s Score, killed bool) error {
	g, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !g.CompareAndTransition(InProgress, Finished) {
		return fmt.Errorf("%w: %d", ErrAlreadyFinished, id)
	}
	g.setResult(s, killed)
	return nil
}

// MemoryStore is a Store over in-process stores. InTx serializes callers but
// does not roll back a failed fn.
type MemoryStore struct {
	mu      sync.Mutex
	games   *MemoryRepository
	stats   *rating.MemoryStore
	history *history.MemoryLog
}

func NewMemoryStore(games *MemoryRepository, stats *rating.MemoryStore, hist *history.MemoryLog) *MemoryStore {
	return &MemoryStore{games: games, stats: stats, history: hist}
}

func (m *MemoryStore) Games() Repository        { return m.games }
func (m *MemoryStore) Stats() rating.StatsStore { return m.stats }
func (m *MemoryStore) History() history.Store   { return m.history }

func (m *MemoryStore) InTx(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}
