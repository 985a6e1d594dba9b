package draft

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/rules"
	"github.com/derekprior/legacies/internal/split"
)

// Engine runs a full 8v8 draft: balance teams, split groups, assign
// factions.
type Engine struct {
	balancer *Balancer
	splitter split.Generator
	assigner *Assigner
	logger   zerolog.Logger
}

// Options configures NewEngine.
type Options struct {
	Jitter        int
	MutateRating  bool
	SplitStrategy string
}

// NewEngine wires the draft components around a single random source.
func NewEngine(cat *catalogue.Catalogue, r *rules.Rules, rng *rand.Rand, opts Options, logger zerolog.Logger) (*Engine, error) {
	splitter, err := split.Get(opts.SplitStrategy, cat, r, rng)
	if err != nil {
		return nil, fmt.Errorf("building group splitter: %w", err)
	}
	return &Engine{
		balancer: NewBalancer(rng, opts.Jitter, opts.MutateRating),
		splitter: splitter,
		assigner: NewAssigner(cat, r, rng),
		logger:   logger,
	}, nil
}

// Run drafts exactly PlayerCount players into two teams with factions
// assigned. On success each player's AssignedFaction is set.
func (e *Engine) Run(players []*Player) (*Team, *Team, error) {
	teamA, teamB, err := e.balancer.Balance(players)
	if err != nil {
		return nil, nil, err
	}

	s, err := e.splitter.Generate()
	if err != nil {
		return nil, nil, fmt.Errorf("generating group split: %w", err)
	}

	if err := e.assigner.Assign(teamA, teamB, s.A, s.B); err != nil {
		return nil, nil, fmt.Errorf("assigning factions: %w", err)
	}

	for _, t := range []*Team{teamA, teamB} {
		for i, p := range t.Players {
			p.AssignedFaction = t.Factions[i].Name
		}
	}

	e.logger.Debug().
		Str("split", s.String()).
		Int("rating_a", teamA.TotalRating()).
		Int("rating_b", teamB.TotalRating()).
		Msg("draft complete")

	return teamA, teamB, nil
}
