package draft

import (
	"fmt"
	"math/rand"
	"sort"
)

// Balancer splits a lobby into two teams with a snake draft over
// jittered ratings.
type Balancer struct {
	// Jitter is the maximum absolute random adjustment applied to each
	// rating before sorting.
	Jitter int
	// MutateRating writes the jittered value back into Player.Rating.
	// When false only a transient sort key is jittered.
	MutateRating bool

	rng *rand.Rand
}

func NewBalancer(rng *rand.Rand, jitter int, mutateRating bool) *Balancer {
	return &Balancer{Jitter: jitter, MutateRating: mutateRating, rng: rng}
}

type ranked struct {
	player *Player
	key    int
}

// Balance returns two teams of TeamSize. Players are ranked by jittered
// rating, then dealt in pairs whose order flips each step:
// A,B, B,A, A,B, ...
func (b *Balancer) Balance(players []*Player) (*Team, *Team, error) {
	if len(players) != PlayerCount {
		return nil, nil, fmt.Errorf("%w: draft requires exactly %d players, got %d",
			ErrInvalidArgument, PlayerCount, len(players))
	}
	seen := make(map[uint64]bool, len(players))
	for _, p := range players {
		if p == nil {
			return nil, nil, fmt.Errorf("%w: nil player", ErrInvalidArgument)
		}
		if seen[p.ID] {
			return nil, nil, fmt.Errorf("%w: player %d listed twice", ErrInvalidArgument, p.ID)
		}
		seen[p.ID] = true
	}

	order := make([]ranked, len(players))
	for i, p := range players {
		key := p.Rating + b.jitter()
		if b.MutateRating {
			p.Rating = key
		}
		order[i] = ranked{player: p, key: key}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].key > order[j].key
	})

	teamA := NewTeam("Team A")
	teamB := NewTeam("Team B")

	forward := true
	for i := 0; i < len(order); i += 2 {
		first, second := teamA, teamB
		if !forward {
			first, second = teamB, teamA
		}
		first.Add(order[i].player)
		if i+1 < len(order) {
			second.Add(order[i+1].player)
		}
		forward = !forward
	}

	return teamA, teamB, nil
}

func (b *Balancer) jitter() int {
	if b.Jitter <= 0 {
		return 0
	}
	return b.rng.Intn(2*b.Jitter+1) - b.Jitter
}
