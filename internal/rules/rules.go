package rules

import (
	"github.com/derekprior/legacies/internal/catalogue"
)

// Rules is a symmetric incompatibility relation over groups. Two groups that
// are incompatible may never be fielded by the same team.
type Rules struct {
	blocked map[catalogue.Group]map[catalogue.Group]bool
}

// New builds Rules from a table that may declare each pair in only one
// direction; lookups always check both.
func New(table map[catalogue.Group][]catalogue.Group) *Rules {
	r := &Rules{blocked: make(map[catalogue.Group]map[catalogue.Group]bool)}
	for g, others := range table {
		for _, o := range others {
			r.block(g, o)
		}
	}
	return r
}

func (r *Rules) block(a, b catalogue.Group) {
	if r.blocked[a] == nil {
		r.blocked[a] = make(map[catalogue.Group]bool)
	}
	r.blocked[a][b] = true
}

// Incompatible reports whether a and b conflict in either direction.
func (r *Rules) Incompatible(a, b catalogue.Group) bool {
	return r.blocked[a][b] || r.blocked[b][a]
}

// IsCompatible reports whether candidate can join existing. An empty set is
// compatible with anything.
func (r *Rules) IsCompatible(existing catalogue.GroupSet, candidate catalogue.Group) bool {
	for g := range existing {
		if r.Incompatible(g, candidate) {
			return false
		}
	}
	return true
}

// InternallyCompatible reports whether every pair in groups is compatible.
func (r *Rules) InternallyCompatible(groups catalogue.GroupSet) bool {
	seen := make(catalogue.GroupSet, len(groups))
	for g := range groups {
		if !r.IsCompatible(seen, g) {
			return false
		}
		seen.Add(g)
	}
	return true
}

// Reference returns the standard compatibility table.
func Reference() *Rules {
	return New(map[catalogue.Group][]catalogue.Group{
		catalogue.BurningLegion: {catalogue.NorthAlliance, catalogue.FelHorde},
		catalogue.NorthAlliance: {catalogue.BurningLegion, catalogue.SouthAlliance},
		catalogue.FelHorde:      {catalogue.BurningLegion, catalogue.SouthAlliance},
		catalogue.SouthAlliance: {catalogue.FelHorde, catalogue.NorthAlliance},
		catalogue.OldGods:       {catalogue.Kalimdor},
		catalogue.Kalimdor:      {catalogue.OldGods},
	})
}
