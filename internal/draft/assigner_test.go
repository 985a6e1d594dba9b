package draft

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/rules"
)

var (
	splitA = catalogue.NewGroupSet(catalogue.BurningLegion, catalogue.SouthAlliance, catalogue.Kalimdor)
	splitB = catalogue.NewGroupSet(catalogue.NorthAlliance, catalogue.FelHorde, catalogue.OldGods)
)

func twoTeams(prefs func(i int) []string) (*Team, *Team) {
	teamA, teamB := NewTeam("Team A"), NewTeam("Team B")
	for i := range PlayerCount {
		p := &Player{ID: uint64(i + 1), Name: "P", Rating: 800, Preferences: prefs(i)}
		if i < TeamSize {
			teamA.Add(p)
		} else {
			teamB.Add(p)
		}
	}
	return teamA, teamB
}

// checkAssignment verifies the post-conditions of Assign.
func checkAssignment(t *testing.T, cat *catalogue.Catalogue, r *rules.Rules, teams ...*Team) {
	t.Helper()
	names := make(map[string]bool)
	for _, team := range teams {
		if len(team.Factions) != len(team.Players) {
			t.Fatalf("%s: %d factions for %d players", team.Name, len(team.Factions), len(team.Players))
		}
		slots := make(map[string]bool)
		groups := catalogue.NewGroupSet()
		for i, f := range team.Factions {
			if f.Name == "" {
				t.Fatalf("%s: player %d has no faction", team.Name, i)
			}
			if _, ok := cat.Lookup(f.Name); !ok {
				t.Errorf("%s: %q is not in the catalogue", team.Name, f.Name)
			}
			n := strings.ToLower(f.Name)
			if names[n] {
				t.Errorf("faction %s assigned twice", f.Name)
			}
			names[n] = true
			if slots[f.Slot] {
				t.Errorf("%s: slot %s used twice", team.Name, f.Slot)
			}
			slots[f.Slot] = true
			groups.Add(f.Group)
		}
		if !r.InternallyCompatible(groups) {
			t.Errorf("%s: used groups %s are incompatible", team.Name, groups)
		}
	}
}

func TestAssignWithoutPreferences(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()
	teamA, teamB := twoTeams(func(int) []string { return nil })

	a := NewAssigner(cat, r, rand.New(rand.NewSource(1)))
	if err := a.Assign(teamA, teamB, splitA, splitB); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}

	checkAssignment(t, cat, r, teamA, teamB)

	for _, f := range teamA.Factions {
		if !splitA.Has(f.Group) {
			t.Errorf("team A got %s from %s, outside its half", f.Name, f.Group)
		}
	}
	for _, f := range teamB.Factions {
		if !splitB.Has(f.Group) {
			t.Errorf("team B got %s from %s, outside its half", f.Name, f.Group)
		}
	}
}

func TestAssignHonorsPreferences(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()

	t.Run("first available preference wins", func(t *testing.T) {
		teamA, teamB := twoTeams(func(i int) []string {
			if i == 0 {
				// Lordaeron is not in team A's half; Druids is.
				return []string{"Lordaeron", "druids", "Legion"}
			}
			return nil
		})
		if err := NewAssigner(cat, r, rand.New(rand.NewSource(2))).Assign(teamA, teamB, splitA, splitB); err != nil {
			t.Fatal(err)
		}
		// The other seven fall back in catalogue order and fill the seven
		// slots ahead of Druids, so Druids is always still open for P1.
		if got := teamA.Factions[0].Name; got != "Druids" {
			t.Errorf("P1 got %s, want Druids", got)
		}
	})

	t.Run("slot siblings cannot share a team", func(t *testing.T) {
		teamA, teamB := twoTeams(func(i int) []string {
			if i < TeamSize {
				return []string{"Warsong", "Frostwolf"}
			}
			return []string{"Illidari", "Sunfury"}
		})
		if err := NewAssigner(cat, r, rand.New(rand.NewSource(3))).Assign(teamA, teamB, splitA, splitB); err != nil {
			t.Fatal(err)
		}
		checkAssignment(t, cat, r, teamA, teamB)

		count := func(team *Team, names ...string) int {
			n := 0
			for _, f := range team.Factions {
				for _, name := range names {
					if f.Name == name {
						n++
					}
				}
			}
			return n
		}
		if got := count(teamA, "Warsong", "Frostwolf"); got != 1 {
			t.Errorf("team A has %d of Warsong/Frostwolf, want 1", got)
		}
		if got := count(teamB, "Illidari", "Sunfury"); got != 1 {
			t.Errorf("team B has %d of Illidari/Sunfury, want 1", got)
		}
	})

	t.Run("duplicate preferences are ignored", func(t *testing.T) {
		teamA, teamB := twoTeams(func(int) []string { return []string{"Scourge", "SCOURGE", "scourge"} })
		if err := NewAssigner(cat, r, rand.New(rand.NewSource(4))).Assign(teamA, teamB, splitA, splitB); err != nil {
			t.Fatal(err)
		}
		checkAssignment(t, cat, r, teamA, teamB)
	})
}

func TestAssignClearsPreviousAssignment(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()
	teamA, teamB := twoTeams(func(int) []string { return nil })
	a := NewAssigner(cat, r, rand.New(rand.NewSource(5)))

	if err := a.Assign(teamA, teamB, splitA, splitB); err != nil {
		t.Fatal(err)
	}
	// Swap halves; a stale assignment would leave team A with A-half factions.
	if err := a.Assign(teamA, teamB, splitB, splitA); err != nil {
		t.Fatal(err)
	}
	checkAssignment(t, cat, r, teamA, teamB)
	for _, f := range teamA.Factions {
		if !splitB.Has(f.Group) {
			t.Errorf("team A kept %s from a previous assignment", f.Name)
		}
	}
}

func TestAssignFailsLoudlyWithoutCapacity(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()
	teamA, teamB := twoTeams(func(int) []string { return nil })

	// Burning Legion alone has two slots for eight players.
	small := catalogue.NewGroupSet(catalogue.BurningLegion)
	err := NewAssigner(cat, r, rand.New(rand.NewSource(6))).Assign(teamA, teamB, small, splitB)
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("err = %v, want ErrInvariant", err)
	}
}

func TestAssignFailsLoudlyOnIncompatibleHalf(t *testing.T) {
	cat, r := catalogue.Reference(), rules.Reference()

	// Everyone on team A can only take Old Gods or Kalimdor factions, and
	// those groups conflict, so the team runs dry once one group is used.
	teamA, teamB := twoTeams(func(int) []string { return nil })
	bad := catalogue.NewGroupSet(catalogue.OldGods, catalogue.Kalimdor)
	err := NewAssigner(cat, r, rand.New(rand.NewSource(7))).Assign(teamA, teamB, bad, splitB)
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("err = %v, want ErrInvariant", err)
	}
}
