package split

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/rules"
)

// MinSlots is the number of distinct faction slots each half must supply:
// one per player on an 8-player team.
const MinSlots = 8

// maxShuffleAttempts bounds the shuffle strategy before it gives up.
const maxShuffleAttempts = 50

// ErrNoValidSplit means the catalogue and compatibility table admit no
// valid partition. It is a configuration error, not a user error.
var ErrNoValidSplit = errors.New("no valid group split")

// Split assigns every group to exactly one of two teams.
type Split struct {
	A catalogue.GroupSet
	B catalogue.GroupSet
}

func (s Split) String() string {
	return fmt.Sprintf("%s | %s", s.A, s.B)
}

// Generator produces valid splits.
type Generator interface {
	Generate() (Split, error)
}

// Get returns a Generator by strategy name.
func Get(name string, cat *catalogue.Catalogue, r *rules.Rules, rng *rand.Rand) (Generator, error) {
	switch name {
	case "", "precomputed":
		return NewPrecomputed(cat, r, rng)
	case "shuffle":
		return NewShuffle(cat, r, rng), nil
	default:
		return nil, fmt.Errorf("unknown split strategy: %q", name)
	}
}

// Check verifies that s covers every catalogue group exactly once and that
// each half is internally compatible with enough slots.
func Check(cat *catalogue.Catalogue, r *rules.Rules, s Split) error {
	for g := range s.A {
		if s.B.Has(g) {
			return fmt.Errorf("group %s is on both sides", g)
		}
	}
	groups := cat.Groups()
	if len(s.A)+len(s.B) != len(groups) {
		return fmt.Errorf("split covers %d groups, catalogue has %d", len(s.A)+len(s.B), len(groups))
	}
	for _, g := range groups {
		if !s.A.Has(g) && !s.B.Has(g) {
			return fmt.Errorf("group %s is missing from split", g)
		}
	}

	halves := []struct {
		name   string
		groups catalogue.GroupSet
	}{{"A", s.A}, {"B", s.B}}
	for _, h := range halves {
		if !r.InternallyCompatible(h.groups) {
			return fmt.Errorf("half %s %s is not internally compatible", h.name, h.groups)
		}
		if n := cat.DistinctSlots(h.groups); n < MinSlots {
			return fmt.Errorf("half %s %s has %d slots, need %d", h.name, h.groups, n, MinSlots)
		}
	}
	return nil
}

// Precomputed enumerates every valid split once and picks among them
// uniformly.
type Precomputed struct {
	splits []Split
	rng    *rand.Rand
}

// NewPrecomputed enumerates all ordered bipartitions of the catalogue's
// groups and keeps the valid ones.
func NewPrecomputed(cat *catalogue.Catalogue, r *rules.Rules, rng *rand.Rand) (*Precomputed, error) {
	groups := cat.Groups()
	if len(groups) > 30 {
		return nil, fmt.Errorf("%w: %d groups is too many to enumerate", ErrNoValidSplit, len(groups))
	}

	var splits []Split
	for mask := 1; mask < (1<<len(groups))-1; mask++ {
		s := Split{A: catalogue.NewGroupSet(), B: catalogue.NewGroupSet()}
		for i, g := range groups {
			if mask&(1<<i) != 0 {
				s.A.Add(g)
			} else {
				s.B.Add(g)
			}
		}
		if Check(cat, r, s) == nil {
			splits = append(splits, s)
		}
	}

	if len(splits) == 0 {
		return nil, fmt.Errorf("%w: none of the %d partitions of %d groups is compatible with %d slots per side",
			ErrNoValidSplit, (1<<len(groups))-2, len(groups), MinSlots)
	}
	return &Precomputed{splits: splits, rng: rng}, nil
}

// Generate returns a random precomputed split. Callers get their own copy.
func (p *Precomputed) Generate() (Split, error) {
	s := p.splits[p.rng.Intn(len(p.splits))]
	return Split{A: s.A.Clone(), B: s.B.Clone()}, nil
}

// All returns every valid split.
func (p *Precomputed) All() []Split {
	out := make([]Split, len(p.splits))
	copy(out, p.splits)
	return out
}

// Shuffle searches for a split by shuffling the groups and bucketing them
// greedily into A while compatible, the rest into B, retrying until a valid
// split appears. Unlike plain greedy bucketing, A stops taking groups once
// its groups cover MinSlots distinct slots, leaving the rest for B.
type Shuffle struct {
	cat   *catalogue.Catalogue
	rules *rules.Rules
	rng   *rand.Rand
}

func NewShuffle(cat *catalogue.Catalogue, r *rules.Rules, rng *rand.Rand) *Shuffle {
	return &Shuffle{cat: cat, rules: r, rng: rng}
}

func (s *Shuffle) Generate() (Split, error) {
	groups := s.cat.Groups()

	for range maxShuffleAttempts {
		s.rng.Shuffle(len(groups), func(i, j int) {
			groups[i], groups[j] = groups[j], groups[i]
		})

		candidate := Split{A: catalogue.NewGroupSet(), B: catalogue.NewGroupSet()}
		for _, g := range groups {
			// A stops taking groups once it can seat a full team.
			full := s.cat.DistinctSlots(candidate.A) >= MinSlots
			if !full && s.rules.IsCompatible(candidate.A, g) {
				candidate.A.Add(g)
			} else {
				candidate.B.Add(g)
			}
		}

		if Check(s.cat, s.rules, candidate) == nil {
			return candidate, nil
		}
	}

	return Split{}, fmt.Errorf("%w after %d attempts", ErrNoValidSplit, maxShuffleAttempts)
}
