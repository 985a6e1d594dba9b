package draft

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/rules"
)

// Assigner gives every drafted player one faction.
type Assigner struct {
	cat   *catalogue.Catalogue
	rules *rules.Rules
	rng   *rand.Rand
}

func NewAssigner(cat *catalogue.Catalogue, r *rules.Rules, rng *rand.Rand) *Assigner {
	return &Assigner{cat: cat, rules: r, rng: rng}
}

type seat struct {
	team  *teamState
	index int
}

// teamState tracks what a team has used so far.
type teamState struct {
	team    *Team
	allowed catalogue.GroupSet
	slots   map[string]bool
	groups  catalogue.GroupSet
}

// Assign fills teamA.Factions and teamB.Factions, replacing any previous
// assignment. Players from both teams are visited in one random order so
// neither team gets first pick of contested factions.
//
// Names are unique across both teams; slots are unique within a team; each
// team's groups stay compatible. If a player cannot be seated the split
// guarantee was broken and ErrInvariant is returned.
func (a *Assigner) Assign(teamA, teamB *Team, allowedA, allowedB catalogue.GroupSet) error {
	states := []*teamState{
		{team: teamA, allowed: allowedA, slots: make(map[string]bool), groups: catalogue.NewGroupSet()},
		{team: teamB, allowed: allowedB, slots: make(map[string]bool), groups: catalogue.NewGroupSet()},
	}

	var seats []seat
	for _, st := range states {
		st.team.Factions = make([]catalogue.Faction, len(st.team.Players))
		for i := range st.team.Players {
			seats = append(seats, seat{team: st, index: i})
		}
	}

	a.rng.Shuffle(len(seats), func(i, j int) {
		seats[i], seats[j] = seats[j], seats[i]
	})

	usedNames := make(map[string]bool)

	for _, s := range seats {
		st := s.team
		player := st.team.Players[s.index]

		available := a.available(st, usedNames)
		if len(available) == 0 {
			return fmt.Errorf("%w: no factions left for %s before assigning %s",
				ErrInvariant, st.team.Name, player.Name)
		}

		chosen, ok := a.choose(st, player, available)
		if !ok {
			return fmt.Errorf("%w: no compatible faction for %s on %s (used groups %s)",
				ErrInvariant, player.Name, st.team.Name, st.groups)
		}

		st.team.Factions[s.index] = chosen
		usedNames[key(chosen.Name)] = true
		st.slots[key(chosen.Slot)] = true
		st.groups.Add(chosen.Group)
	}

	return nil
}

// available lists factions in the team's groups whose name is unused by
// either team and whose slot is unused by this team, in catalogue order.
func (a *Assigner) available(st *teamState, usedNames map[string]bool) []catalogue.Faction {
	var out []catalogue.Faction
	for _, f := range a.cat.InGroups(st.allowed) {
		if usedNames[key(f.Name)] || st.slots[key(f.Slot)] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// choose takes the player's first preference that keeps the team's groups
// compatible, falling back to the first compatible faction.
func (a *Assigner) choose(st *teamState, player *Player, available []catalogue.Faction) (catalogue.Faction, bool) {
	tried := make(map[string]bool, len(player.Preferences))
	for _, pref := range player.Preferences {
		k := key(pref)
		if tried[k] {
			continue
		}
		tried[k] = true

		for _, f := range available {
			if key(f.Name) == k && a.rules.IsCompatible(st.groups, f.Group) {
				return f, true
			}
		}
	}

	for _, f := range available {
		if a.rules.IsCompatible(st.groups, f.Group) {
			return f, true
		}
	}
	return catalogue.Faction{}, false
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
