package lobby

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/derekprior/legacies/internal/draft"
)

const (
	DefaultReminderDelay = 30 * time.Minute
	DefaultKickDelay     = 10 * time.Minute
)

var (
	ErrNotFound     = errors.New("lobby not found")
	ErrFull         = errors.New("lobby is full")
	ErrNotInLobby   = errors.New("player is not in the lobby")
	ErrDraftStarted = errors.New("draft already started")
	ErrNotFull      = errors.New("lobby is not full")
)

// Member is a player waiting in a lobby.
type Member struct {
	Player   *draft.Player
	JoinedAt time.Time
	Active   bool
	// Deadline is when the player is pinged as AFK. They are evicted once
	// the kick delay after it has passed.
	Deadline time.Time
}

// Lobby collects players until a draft starts.
type Lobby struct {
	ID           string
	CreatedAt    time.Time
	DraftStarted bool
	Members      []*Member
}

func (l *Lobby) Full() bool { return len(l.Members) >= draft.PlayerCount }

// Players returns the members' players in join order.
func (l *Lobby) Players() []*draft.Player {
	return lo.Map(l.Members, func(m *Member, _ int) *draft.Player { return m.Player })
}

func (l *Lobby) member(id uint64) (*Member, int) {
	for i, m := range l.Members {
		if m.Player.ID == id {
			return m, i
		}
	}
	return nil, -1
}

// Repository holds every open lobby. The current lobby is the oldest one
// whose draft has not started.
type Repository struct {
	mu       sync.Mutex
	lobbies  []*Lobby
	clock    clock.Clock
	reminder time.Duration
	kick     time.Duration
	logger   zerolog.Logger
}

func NewRepository(clk clock.Clock, reminder, kick time.Duration, logger zerolog.Logger) *Repository {
	if clk == nil {
		clk = clock.New()
	}
	if reminder <= 0 {
		reminder = DefaultReminderDelay
	}
	if kick <= 0 {
		kick = DefaultKickDelay
	}
	return &Repository{clock: clk, reminder: reminder, kick: kick, logger: logger}
}

// Create opens a new empty lobby.
func (r *Repository) Create() (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create()
}

func (r *Repository) create() (*Lobby, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}
	l := &Lobby{ID: id, CreatedAt: r.clock.Now()}
	r.lobbies = append(r.lobbies, l)
	r.logger.Debug().Str("lobby", id).Msg("lobby created")
	return l, nil
}

func (r *Repository) Get(id string) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *Repository) get(id string) (*Lobby, error) {
	l, ok := lo.Find(r.lobbies, func(l *Lobby) bool { return l.ID == id })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l, nil
}

// Current returns the open lobby, creating one when every lobby is drafting.
func (r *Repository) Current() (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current()
}

func (r *Repository) current() (*Lobby, error) {
	if l, ok := lo.Find(r.lobbies, func(l *Lobby) bool { return !l.DraftStarted }); ok {
		return l, nil
	}
	return r.create()
}

// Join adds a player to the current lobby. Rejoining marks the player active
// again. Either way the AFK deadline restarts.
func (r *Repository) Join(id uint64, name string) (*Lobby, *Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.current()
	if err != nil {
		return nil, nil, err
	}

	now := r.clock.Now()
	m, _ := l.member(id)
	if m == nil {
		if l.Full() {
			return nil, nil, ErrFull
		}
		m = &Member{Player: draft.NewPlayer(id, name), JoinedAt: now}
		l.Members = append(l.Members, m)
	}
	m.Active = true
	m.Deadline = now.Add(r.reminder)
	return l, m, nil
}

// Leave removes a player from their lobby. Players in a lobby that is
// drafting cannot leave.
func (r *Repository) Leave(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.lobbies {
		_, i := l.member(id)
		if i < 0 {
			continue
		}
		if l.DraftStarted {
			return ErrDraftStarted
		}
		l.Members = append(l.Members[:i], l.Members[i+1:]...)
		return nil
	}
	return ErrNotInLobby
}

// MarkActive answers an AFK ping and restarts the player's deadline.
func (r *Repository) MarkActive(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.current()
	if err != nil {
		return err
	}
	m, _ := l.member(id)
	if m == nil {
		return ErrNotInLobby
	}
	now := r.clock.Now()
	m.Active = true
	m.JoinedAt = now
	m.Deadline = now.Add(r.reminder)
	return nil
}

// Members returns the players in the current lobby.
func (r *Repository) Members() ([]*draft.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.current()
	if err != nil {
		return nil, err
	}
	return l.Players(), nil
}

// UpdatePreferences sets a waiting player's preferences. It reports whether
// the player was found in a lobby that has not started drafting.
func (r *Repository) UpdatePreferences(id uint64, prefs []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.lobbies {
		if l.DraftStarted {
			continue
		}
		if m, _ := l.member(id); m != nil {
			m.Player.Preferences = append([]string(nil), prefs...)
			return true
		}
	}
	return false
}

// MarkDraftStarted closes a full lobby to changes.
func (r *Repository) MarkDraftStarted(lobbyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.get(lobbyID)
	if err != nil {
		return err
	}
	if l.DraftStarted {
		return ErrDraftStarted
	}
	if !l.Full() {
		return fmt.Errorf("%w: %d/%d players", ErrNotFull, len(l.Members), draft.PlayerCount)
	}
	l.DraftStarted = true
	return nil
}

// Reset empties a lobby and reopens it.
func (r *Repository) Reset(lobbyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.get(lobbyID)
	if err != nil {
		return err
	}
	l.Members = nil
	l.DraftStarted = false
	return nil
}

// CheckAFK evicts players from open lobbies whose deadline plus the kick
// delay has passed and returns their ids.
func (r *Repository) CheckAFK() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var evicted []uint64
	for _, l := range r.lobbies {
		if l.DraftStarted {
			continue
		}
		kept := l.Members[:0]
		for _, m := range l.Members {
			if now.After(m.Deadline.Add(r.kick)) {
				evicted = append(evicted, m.Player.ID)
				r.logger.Info().Uint64("player", m.Player.ID).Str("lobby", l.ID).Msg("evicted afk player")
				continue
			}
			kept = append(kept, m)
		}
		l.Members = kept
	}
	return evicted
}

// Pending returns players in open lobbies whose deadline has passed but who
// have not been evicted yet, and marks them inactive.
func (r *Repository) Pending() []*draft.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var out []*draft.Player
	for _, l := range r.lobbies {
		if l.DraftStarted {
			continue
		}
		for _, m := range l.Members {
			if now.After(m.Deadline) {
				m.Active = false
				out = append(out, m.Player)
			}
		}
	}
	return out
}
