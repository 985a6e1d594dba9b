package rating

import (
	"context"
	"sort"
	"sync"
)

// FactionRecord is a player's win/loss record with one faction.
type FactionRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

func (r FactionRecord) Games() int { return r.Wins + r.Losses }

// WinRate is a percentage in [0, 100].
func (r FactionRecord) WinRate() float64 {
	if r.Games() == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Games()) * 100
}

// Stats is the persisted rating and record of one player.
type Stats struct {
	PlayerID       uint64                    `json:"id"`
	Rating         int                       `json:"rating"`
	GamesPlayed    int                       `json:"gamesPlayed"`
	Wins           int                       `json:"wins"`
	Losses         int                       `json:"losses"`
	FactionHistory map[string]*FactionRecord `json:"factionHistory"`
}

// NewStats returns an empty record at rating.
func NewStats(id uint64, rating int) *Stats {
	return &Stats{PlayerID: id, Rating: rating, FactionHistory: make(map[string]*FactionRecord)}
}

// WinRate is a percentage in [0, 100].
func (s *Stats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// RecordFaction adds one result to the faction history.
func (s *Stats) RecordFaction(faction string, won bool) {
	if faction == "" {
		return
	}
	if s.FactionHistory == nil {
		s.FactionHistory = make(map[string]*FactionRecord)
	}
	rec, ok := s.FactionHistory[faction]
	if !ok {
		rec = &FactionRecord{}
		s.FactionHistory[faction] = rec
	}
	if won {
		rec.Wins++
	} else {
		rec.Losses++
	}
}

// Clone returns a deep copy.
func (s *Stats) Clone() *Stats {
	out := *s
	out.FactionHistory = make(map[string]*FactionRecord, len(s.FactionHistory))
	for k, v := range s.FactionHistory {
		rec := *v
		out.FactionHistory[k] = &rec
	}
	return &out
}

// StatsStore persists Stats. Implementations are read-modify-write without
// optimistic concurrency: concurrent updates to one player can lose writes.
type StatsStore interface {
	// GetOrCreate returns the stored record, creating it at the default
	// rating when the player has none.
	GetOrCreate(ctx context.Context, id uint64) (*Stats, error)
	Update(ctx context.Context, s *Stats) error
}

// MemoryStore is an in-process StatsStore.
type MemoryStore struct {
	mu            sync.Mutex
	defaultRating int
	stats         map[uint64]*Stats
}

func NewMemoryStore(defaultRating int) *MemoryStore {
	return &MemoryStore{defaultRating: defaultRating, stats: make(map[uint64]*Stats)}
}

func (m *MemoryStore) GetOrCreate(_ context.Context, id uint64) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[id]
	if !ok {
		s = NewStats(id, m.defaultRating)
		m.stats[id] = s
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, s *Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[s.PlayerID] = s.Clone()
	return nil
}

// All returns every record ordered by rating, highest first.
func (m *MemoryStore) All() []*Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Stats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, s.Clone())
	}
	SortByRating(out)
	return out
}

// SortByRating orders stats by rating descending, then by id.
func SortByRating(stats []*Stats) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Rating != stats[j].Rating {
			return stats[i].Rating > stats[j].Rating
		}
		return stats[i].PlayerID < stats[j].PlayerID
	})
}
