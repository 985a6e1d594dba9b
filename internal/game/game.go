package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/atomic"

	"github.com/derekprior/legacies/internal/draft"
)

var (
	ErrNotFound        = errors.New("game not found")
	ErrAlreadyFinished = errors.New("game already finished")
	ErrNotParticipant  = errors.New("player is not in this game")
	ErrInvalidScore    = errors.New("invalid score")
)

// State is the lifecycle position of a game. Transitions only move forward.
type State int32

const (
	Drafting State = iota
	InProgress
	Finished
)

func (s State) String() string {
	switch s {
	case Drafting:
		return "drafting"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	switch s {
	case "drafting":
		return Drafting, nil
	case "in_progress":
		return InProgress, nil
	case "finished":
		return Finished, nil
	}
	return 0, fmt.Errorf("unknown game state %q", s)
}

// Score is a reported result. A side scores 1 for a win.
type Score struct {
	A int `json:"a"`
	B int `json:"b"`
}

// ValidScore accepts a team A win, a team B win or a draw.
func ValidScore(s Score) bool {
	switch s {
	case Score{1, 0}, Score{0, 1}, Score{0, 0}:
		return true
	}
	return false
}

func (s Score) Draw() bool     { return s.A == s.B }
func (s Score) TeamAWon() bool { return s.A > s.B }
func (s Score) String() string { return fmt.Sprintf("%d-%d", s.A, s.B) }

// Game is one drafted match.
type Game struct {
	ID        int
	LobbyID   string
	TeamA     *draft.Team
	TeamB     *draft.Team
	CreatedAt time.Time

	state *atomic.Int32

	mu     sync.Mutex
	score  Score
	killed bool
	votes  map[uint64]Score
}

// New returns a game in the Drafting state.
func New(lobbyID string, createdAt time.Time) *Game {
	return &Game{
		LobbyID:   lobbyID,
		CreatedAt: createdAt,
		state:     atomic.NewInt32(int32(Drafting)),
		votes:     make(map[uint64]Score),
	}
}

// Restore rebuilds a persisted game.
func Restore(id int, lobbyID string, state State, score Score, killed bool, createdAt time.Time, teamA, teamB *draft.Team) *Game {
	g := New(lobbyID, createdAt)
	g.ID = id
	g.TeamA, g.TeamB = teamA, teamB
	g.state.Store(int32(state))
	g.score = score
	g.killed = killed
	return g
}

func (g *Game) State() State { return State(g.state.Load()) }

// CompareAndTransition moves the game from one state to another and
// reports whether it did. Exactly one caller wins a race on the same from.
func (g *Game) CompareAndTransition(from, to State) bool {
	if to <= from {
		return false
	}
	return g.state.CompareAndSwap(int32(from), int32(to))
}

// Score is the final result. It is meaningful only once Finished.
func (g *Game) Score() Score {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score
}

// Killed reports whether the game was ended without a result.
func (g *Game) Killed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.killed
}

func (g *Game) setResult(s Score, killed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.score = s
	g.killed = killed
}

// IsParticipant reports whether the player is on either team.
func (g *Game) IsParticipant(playerID uint64) bool {
	return (g.TeamA != nil && g.TeamA.Has(playerID)) || (g.TeamB != nil && g.TeamB.Has(playerID))
}

// Players returns both rosters, team A first.
func (g *Game) Players() []*draft.Player {
	var out []*draft.Player
	if g.TeamA != nil {
		out = append(out, g.TeamA.Players...)
	}
	if g.TeamB != nil {
		out = append(out, g.TeamB.Players...)
	}
	return out
}

// Quorum is the number of matching votes that settles a score.
func (g *Game) Quorum() int {
	return len(g.Players())/2 + 1
}

// CanVote reports why a player may not vote s on this game, or nil.
func (g *Game) CanVote(playerID uint64, s Score) error {
	if !ValidScore(s) {
		return fmt.Errorf("%w: %s", ErrInvalidScore, s)
	}
	if g.State() == Finished {
		return fmt.Errorf("%w: %d", ErrAlreadyFinished, g.ID)
	}
	if !g.IsParticipant(playerID) {
		return ErrNotParticipant
	}
	return nil
}

// Vote records a participant's reported score, replacing any earlier vote
// by the same player, and returns how many votes now match it.
func (g *Game) Vote(playerID uint64, s Score) (int, error) {
	if err := g.CanVote(playerID, s); err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.votes[playerID] = s
	return lo.CountBy(lo.Values(g.votes), func(v Score) bool { return v == s }), nil
}
