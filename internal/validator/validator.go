package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/rules"
)

// RatingGapWarning is the team rating difference above which a draft is
// flagged as unbalanced.
const RatingGapWarning = 100

// Violation represents a constraint violation found in a drafted match.
type Violation struct {
	Team    string // team name, empty when the violation spans both teams
	Type    string // "error" or "warning"
	Message string
}

// ValidateDraft checks two drafted teams against the catalogue and the
// compatibility rules. An empty result means the draft is valid.
func ValidateDraft(cat *catalogue.Catalogue, r *rules.Rules, teamA, teamB *draft.Team) []Violation {
	var violations []Violation

	teams := []*draft.Team{teamA, teamB}

	// Check hard constraints
	for _, t := range teams {
		violations = append(violations, checkTeamSize(t)...)
		violations = append(violations, checkAssignments(cat, t)...)
		violations = append(violations, checkSlots(cat, t)...)
		violations = append(violations, checkGroups(cat, r, t)...)
	}
	violations = append(violations, checkDuplicateFactions(teams)...)
	violations = append(violations, checkSharedGroups(cat, teamA, teamB)...)

	// Check soft constraints
	violations = append(violations, checkRatingGap(teamA, teamB)...)

	return violations
}

// Errors returns only the hard violations.
func Errors(violations []Violation) []Violation {
	return lo.Filter(violations, func(v Violation, _ int) bool { return v.Type == "error" })
}

func checkTeamSize(t *draft.Team) []Violation {
	if len(t.Players) == draft.TeamSize {
		return nil
	}
	return []Violation{{
		Team:    t.Name,
		Type:    "error",
		Message: fmt.Sprintf("has %d players, want %d", len(t.Players), draft.TeamSize),
	}}
}

func checkAssignments(cat *catalogue.Catalogue, t *draft.Team) []Violation {
	var violations []Violation
	for _, p := range t.Players {
		if p.AssignedFaction == "" {
			violations = append(violations, Violation{
				Team:    t.Name,
				Type:    "error",
				Message: fmt.Sprintf("%s has no faction", p.Name),
			})
			continue
		}
		if _, ok := cat.Lookup(p.AssignedFaction); !ok {
			violations = append(violations, Violation{
				Team:    t.Name,
				Type:    "error",
				Message: fmt.Sprintf("%s has unknown faction %q", p.Name, p.AssignedFaction),
			})
		}
	}
	return violations
}

// factionsOf resolves the assigned factions of a team, skipping unknown ones.
func factionsOf(cat *catalogue.Catalogue, t *draft.Team) []catalogue.Faction {
	var out []catalogue.Faction
	for _, p := range t.Players {
		if f, ok := cat.Lookup(p.AssignedFaction); ok {
			out = append(out, f)
		}
	}
	return out
}

func checkSlots(cat *catalogue.Catalogue, t *draft.Team) []Violation {
	bySlot := lo.GroupBy(factionsOf(cat, t), func(f catalogue.Faction) string { return f.Slot })

	slots := lo.Keys(bySlot)
	sort.Strings(slots)

	var violations []Violation
	for _, slot := range slots {
		fs := bySlot[slot]
		if len(fs) < 2 {
			continue
		}
		names := lo.Map(fs, func(f catalogue.Faction, _ int) string { return f.Name })
		violations = append(violations, Violation{
			Team:    t.Name,
			Type:    "error",
			Message: fmt.Sprintf("slot %s is used by %d factions: %v", slot, len(fs), names),
		})
	}
	return violations
}

func usedGroups(cat *catalogue.Catalogue, t *draft.Team) catalogue.GroupSet {
	set := catalogue.NewGroupSet()
	for _, f := range factionsOf(cat, t) {
		set.Add(f.Group)
	}
	return set
}

func checkGroups(cat *catalogue.Catalogue, r *rules.Rules, t *draft.Team) []Violation {
	groups := usedGroups(cat, t)
	if r.InternallyCompatible(groups) {
		return nil
	}
	return []Violation{{
		Team:    t.Name,
		Type:    "error",
		Message: fmt.Sprintf("fields incompatible groups %s", groups),
	}}
}

func checkDuplicateFactions(teams []*draft.Team) []Violation {
	count := make(map[string]int)
	display := make(map[string]string)
	for _, t := range teams {
		for _, p := range t.Players {
			if p.AssignedFaction == "" {
				continue
			}
			k := normalizeName(p.AssignedFaction)
			count[k]++
			if _, ok := display[k]; !ok {
				display[k] = p.AssignedFaction
			}
		}
	}

	keys := lo.Keys(count)
	sort.Strings(keys)

	var violations []Violation
	for _, k := range keys {
		if count[k] > 1 {
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("faction %s assigned %d times", display[k], count[k]),
			})
		}
	}
	return violations
}

func checkSharedGroups(cat *catalogue.Catalogue, teamA, teamB *draft.Team) []Violation {
	a, b := usedGroups(cat, teamA), usedGroups(cat, teamB)
	var violations []Violation
	for _, g := range a.Sorted() {
		if b.Has(g) {
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("group %s is fielded by both teams", g),
			})
		}
	}
	return violations
}

func checkRatingGap(teamA, teamB *draft.Team) []Violation {
	gap := teamA.TotalRating() - teamB.TotalRating()
	if gap < 0 {
		gap = -gap
	}
	if gap <= RatingGapWarning {
		return nil
	}
	return []Violation{{
		Type:    "warning",
		Message: fmt.Sprintf("team ratings differ by %d (%d vs %d)", gap, teamA.TotalRating(), teamB.TotalRating()),
	}}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
