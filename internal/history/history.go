package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/derekprior/legacies/internal/draft"
)

// PlayerRecord is one player's line in a match record. FactionName is nil
// for records written before factions were tracked.
type PlayerRecord struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	RatingDelta int     `json:"ratingDelta"`
	FactionName *string `json:"factionName,omitempty"`
}

// Faction returns the faction name or "" when it was not recorded.
func (p PlayerRecord) Faction() string {
	if p.FactionName == nil {
		return ""
	}
	return *p.FactionName
}

// MatchRecord is the history entry written when a game is scored.
type MatchRecord struct {
	GameID    int            `json:"gameId"`
	Timestamp time.Time      `json:"timestamp"`
	ScoreA    int            `json:"scoreA"`
	ScoreB    int            `json:"scoreB"`
	TeamA     []PlayerRecord `json:"teamA"`
	TeamB     []PlayerRecord `json:"teamB"`
}

// NewRecord builds a record from the finished teams. Players missing from
// deltas get a zero delta.
func NewRecord(gameID int, at time.Time, scoreA, scoreB int, teamA, teamB *draft.Team, deltas map[uint64]int) MatchRecord {
	return MatchRecord{
		GameID:    gameID,
		Timestamp: at.UTC(),
		ScoreA:    scoreA,
		ScoreB:    scoreB,
		TeamA:     playerRecords(teamA, deltas),
		TeamB:     playerRecords(teamB, deltas),
	}
}

func playerRecords(team *draft.Team, deltas map[uint64]int) []PlayerRecord {
	out := make([]PlayerRecord, len(team.Players))
	for i, p := range team.Players {
		out[i] = PlayerRecord{ID: p.ID, Name: p.Name, RatingDelta: deltas[p.ID]}
		faction := p.AssignedFaction
		if faction == "" && i < len(team.Factions) {
			faction = team.Factions[i].Name
		}
		if faction != "" {
			out[i].FactionName = &faction
		}
	}
	return out
}

// Store persists match records.
type Store interface {
	Record(ctx context.Context, rec MatchRecord) error
	// List returns up to limit records, most recent first. limit <= 0
	// returns everything.
	List(ctx context.Context, limit int) ([]MatchRecord, error)
}

// MemoryLog keeps records in memory.
type MemoryLog struct {
	mu      sync.Mutex
	records []MatchRecord
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Record(_ context.Context, rec MatchRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *MemoryLog) List(_ context.Context, limit int) ([]MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return newestFirst(l.records, limit), nil
}

// FileLog stores the history as a JSON array in a single file, rewriting
// the whole file on every record.
type FileLog struct {
	mu   sync.Mutex
	path string
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (l *FileLog) Record(_ context.Context, rec MatchRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replacing history: %w", err)
	}
	return nil
}

func (l *FileLog) List(_ context.Context, limit int) ([]MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return nil, err
	}
	return newestFirst(records, limit), nil
}

func (l *FileLog) load() ([]MatchRecord, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []MatchRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", l.path, err)
	}
	return records, nil
}

func newestFirst(records []MatchRecord, limit int) []MatchRecord {
	n := len(records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]MatchRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out
}
