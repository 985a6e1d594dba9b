package draft

import (
	"errors"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/samber/lo"
)

const (
	// TeamSize is the number of players on each side.
	TeamSize = 8
	// PlayerCount is the number of players a draft requires.
	PlayerCount = 2 * TeamSize
	// DefaultRating is the rating given to newly registered players.
	DefaultRating = 800
)

var (
	// ErrInvalidArgument is returned for malformed draft input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvariant means the split and assignment logic disagree. It signals
	// a defect, not bad input.
	ErrInvariant = errors.New("internal invariant violated")
)

// Player is a registered participant.
type Player struct {
	ID          uint64
	Name        string
	Rating      int
	Preferences []string
	// AssignedFaction is empty until a draft assigns one.
	AssignedFaction string
}

// NewPlayer creates a player with the default rating.
func NewPlayer(id uint64, name string) *Player {
	return &Player{ID: id, Name: name, Rating: DefaultRating}
}

// Team holds players and, once assigned, the faction for each player.
// Factions[i] belongs to Players[i].
type Team struct {
	Name     string
	Players  []*Player
	Factions []catalogue.Faction
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) Add(p *Player) {
	t.Players = append(t.Players, p)
}

// TotalRating sums the in-memory ratings of the team.
func (t *Team) TotalRating() int {
	return lo.SumBy(t.Players, func(p *Player) int { return p.Rating })
}

// Has reports whether the player with id is on the team.
func (t *Team) Has(id uint64) bool {
	return lo.ContainsBy(t.Players, func(p *Player) bool { return p.ID == id })
}

// FactionFor returns the faction assigned to the player with id.
func (t *Team) FactionFor(id uint64) (catalogue.Faction, bool) {
	for i, p := range t.Players {
		if p.ID == id && i < len(t.Factions) {
			return t.Factions[i], true
		}
	}
	return catalogue.Faction{}, false
}
