package catalogue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Group is a coarse category of factions. Compatibility between groups is
// what decides which factions can be fielded together on one team.
type Group string

const (
	NorthAlliance Group = "North Alliance"
	BurningLegion Group = "Burning Legion"
	SouthAlliance Group = "South Alliance"
	FelHorde      Group = "Fel Horde"
	Kalimdor      Group = "Kalimdor"
	OldGods       Group = "Old Gods"
)

// Faction is a selectable option assigned to exactly one player per match.
// Factions sharing a Slot are mutually exclusive within a team.
type Faction struct {
	Name  string
	Group Group
	Slot  string
}

// NewFaction builds a faction whose slot defaults to its own name.
func NewFaction(name string, group Group, slot string) Faction {
	if slot == "" {
		slot = name
	}
	return Faction{Name: name, Group: group, Slot: slot}
}

// Catalogue is the immutable, load-time list of factions.
type Catalogue struct {
	factions []Faction
	byName   map[string]int
	groups   []Group
}

// New validates factions and builds a catalogue. Names must be unique
// ignoring case and every faction needs a group.
func New(factions []Faction) (*Catalogue, error) {
	if len(factions) == 0 {
		return nil, fmt.Errorf("catalogue has no factions")
	}

	c := &Catalogue{
		factions: make([]Faction, 0, len(factions)),
		byName:   make(map[string]int, len(factions)),
	}
	seenGroups := make(map[Group]bool)

	for _, f := range factions {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("faction with empty name")
		}
		if f.Group == "" {
			return nil, fmt.Errorf("faction %q has no group", name)
		}
		key := normalize(name)
		if _, ok := c.byName[key]; ok {
			return nil, fmt.Errorf("duplicate faction %q", name)
		}
		c.byName[key] = len(c.factions)
		c.factions = append(c.factions, NewFaction(name, f.Group, f.Slot))
		if !seenGroups[f.Group] {
			seenGroups[f.Group] = true
			c.groups = append(c.groups, f.Group)
		}
	}
	return c, nil
}

// MustNew is New for static tables; it panics on a malformed table.
func MustNew(factions []Faction) *Catalogue {
	c, err := New(factions)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every faction in catalogue order.
func (c *Catalogue) All() []Faction {
	out := make([]Faction, len(c.factions))
	copy(out, c.factions)
	return out
}

// Names returns all faction names in catalogue order.
func (c *Catalogue) Names() []string {
	return lo.Map(c.factions, func(f Faction, _ int) string { return f.Name })
}

// Groups returns every group in order of first appearance.
func (c *Catalogue) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Lookup finds a faction by name, ignoring case.
func (c *Catalogue) Lookup(name string) (Faction, bool) {
	i, ok := c.byName[normalize(name)]
	if !ok {
		return Faction{}, false
	}
	return c.factions[i], true
}

// InGroups returns the factions belonging to any of groups, in catalogue order.
func (c *Catalogue) InGroups(groups GroupSet) []Faction {
	return lo.Filter(c.factions, func(f Faction, _ int) bool { return groups.Has(f.Group) })
}

// DistinctSlots counts the slots available to a team restricted to groups.
// Factions sharing a slot count once.
func (c *Catalogue) DistinctSlots(groups GroupSet) int {
	slots := lo.Map(c.InGroups(groups), func(f Faction, _ int) string { return normalize(f.Slot) })
	return len(lo.Uniq(slots))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SameName reports whether two faction names refer to the same faction.
func SameName(a, b string) bool {
	return normalize(a) == normalize(b)
}

// GroupSet is an unordered set of groups.
type GroupSet map[Group]bool

// NewGroupSet builds a set from groups.
func NewGroupSet(groups ...Group) GroupSet {
	s := make(GroupSet, len(groups))
	for _, g := range groups {
		s[g] = true
	}
	return s
}

func (s GroupSet) Has(g Group) bool { return s[g] }

func (s GroupSet) Add(g Group) { s[g] = true }

func (s GroupSet) Clone() GroupSet {
	out := make(GroupSet, len(s))
	for g := range s {
		out[g] = true
	}
	return out
}

// Sorted returns the members in lexical order.
func (s GroupSet) Sorted() []Group {
	out := lo.Keys(s)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s GroupSet) Equal(other GroupSet) bool {
	if len(s) != len(other) {
		return false
	}
	for g := range s {
		if !other[g] {
			return false
		}
	}
	return true
}

func (s GroupSet) String() string {
	names := lo.Map(s.Sorted(), func(g Group, _ int) string { return string(g) })
	return "{" + strings.Join(names, ", ") + "}"
}
