package validator

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/rules"
)

func draftedTeams(t *testing.T, seed int64) (*draft.Team, *draft.Team) {
	t.Helper()
	e, err := draft.NewEngine(catalogue.Reference(), rules.Reference(), rand.New(rand.NewSource(seed)),
		draft.Options{Jitter: 10}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	players := make([]*draft.Player, draft.PlayerCount)
	for i := range players {
		players[i] = draft.NewPlayer(uint64(i+1), fmt.Sprintf("p%d", i+1))
	}
	teamA, teamB, err := e.Run(players)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return teamA, teamB
}

// team builds a team whose i-th player is assigned factions[i].
func team(name string, rating int, factions ...string) *draft.Team {
	t := draft.NewTeam(name)
	for i, f := range factions {
		p := draft.NewPlayer(uint64(len(name)*100+i), fmt.Sprintf("%s%d", name, i))
		p.Rating = rating
		p.AssignedFaction = f
		t.Add(p)
	}
	return t
}

func hasMessage(vs []Violation, typ, substr string) bool {
	for _, v := range vs {
		if v.Type == typ && strings.Contains(v.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateGeneratedDraft(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()

	for seed := range int64(50) {
		teamA, teamB := draftedTeams(t, seed)
		if errs := Errors(ValidateDraft(cat, r, teamA, teamB)); len(errs) > 0 {
			t.Fatalf("seed %d: unexpected errors: %v", seed, errs)
		}
	}
}

func TestCheckDuplicateFactions(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()
	teamA, teamB := draftedTeams(t, 7)

	teamB.Players[0].AssignedFaction = strings.ToUpper(teamA.Players[0].AssignedFaction)

	v := ValidateDraft(cat, r, teamA, teamB)
	if !hasMessage(v, "error", "assigned 2 times") {
		t.Errorf("expected duplicate faction error, got %v", v)
	}
	if !hasMessage(v, "error", "fielded by both teams") {
		t.Errorf("expected shared group error, got %v", v)
	}
}

func TestCheckSlots(t *testing.T) {
	t.Run("no violation for distinct slots", func(t *testing.T) {
		v := checkSlots(catalogue.Reference(), team("A", 800, "Dalaran", "Lordaeron"))
		if len(v) != 0 {
			t.Errorf("expected 0 violations, got %d: %v", len(v), v)
		}
	})

	t.Run("violation for shared slot", func(t *testing.T) {
		v := checkSlots(catalogue.Reference(), team("A", 800, "Dalaran", "Gilneas"))
		if len(v) != 1 {
			t.Fatalf("expected 1 violation, got %d: %v", len(v), v)
		}
		if v[0].Team != "A" || !strings.Contains(v[0].Message, "DalaranSlot") {
			t.Errorf("unexpected violation %+v", v[0])
		}
	})
}

func TestCheckGroups(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()

	t.Run("compatible groups", func(t *testing.T) {
		if v := checkGroups(cat, r, team("A", 800, "Lordaeron", "Fel Horde", "Druids")); len(v) != 0 {
			t.Errorf("expected 0 violations, got %v", v)
		}
	})

	t.Run("incompatible groups", func(t *testing.T) {
		v := checkGroups(cat, r, team("A", 800, "Lordaeron", "Scourge"))
		if len(v) != 1 || v[0].Type != "error" {
			t.Fatalf("expected 1 error, got %v", v)
		}
	})
}

func TestCheckAssignments(t *testing.T) {
	v := checkAssignments(catalogue.Reference(), team("A", 800, "", "Murlocs", "Druids"))
	if len(v) != 2 {
		t.Fatalf("expected 2 violations, got %d: %v", len(v), v)
	}
	if !hasMessage(v, "error", "has no faction") {
		t.Errorf("expected unassigned error, got %v", v)
	}
	if !hasMessage(v, "error", `"Murlocs"`) {
		t.Errorf("expected unknown faction error, got %v", v)
	}
}

func TestCheckTeamSize(t *testing.T) {
	if v := checkTeamSize(team("A", 800, "Druids")); len(v) != 1 {
		t.Errorf("expected size violation, got %v", v)
	}
}

func TestCheckRatingGap(t *testing.T) {
	t.Run("within threshold", func(t *testing.T) {
		v := checkRatingGap(team("A", 850, "Druids"), team("B", 800, "Legion"))
		if len(v) != 0 {
			t.Errorf("expected no warning, got %v", v)
		}
	})

	t.Run("over threshold", func(t *testing.T) {
		v := ValidateDraft(catalogue.Reference(), rules.Reference(),
			team("A", 1000, "Druids"), team("B", 800, "Legion"))
		if !hasMessage(v, "warning", "differ by 200") {
			t.Errorf("expected rating gap warning, got %v", v)
		}
		for _, e := range Errors(v) {
			if e.Type != "error" {
				t.Errorf("Errors() returned %s", e.Type)
			}
		}
	})
}
