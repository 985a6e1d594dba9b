package prefs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/derekprior/legacies/internal/catalogue"
)

var (
	ErrUnknownFaction = errors.New("unknown faction")
	ErrNotInList      = errors.New("faction is not in the preference list")
	ErrEmpty          = errors.New("no factions given")
)

// Parse turns user input into a preference list of canonical faction names.
// Arguments are joined and split on commas; within a piece, the longest run
// of words naming a faction wins, so "The Exodar" needs no quoting.
// Duplicates are dropped keeping the first occurrence.
func Parse(cat *catalogue.Catalogue, args []string) ([]string, error) {
	var out []string
	for _, piece := range strings.Split(strings.Join(args, " "), ",") {
		words := strings.Fields(piece)
		for len(words) > 0 {
			n, f, ok := longestMatch(cat, words)
			if !ok {
				return nil, unknown(cat, words[0])
			}
			out = append(out, f.Name)
			words = words[n:]
		}
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return lo.Uniq(out), nil
}

func longestMatch(cat *catalogue.Catalogue, words []string) (int, catalogue.Faction, bool) {
	for n := len(words); n > 0; n-- {
		if f, ok := cat.Lookup(strings.Join(words[:n], " ")); ok {
			return n, f, true
		}
	}
	return 0, catalogue.Faction{}, false
}

// Add moves name to the 1-based position in list, appending when position
// is out of range or not positive. The input slice is not modified.
func Add(cat *catalogue.Catalogue, list []string, name string, position int) ([]string, error) {
	f, ok := cat.Lookup(name)
	if !ok {
		return nil, unknown(cat, name)
	}

	out := lo.Reject(list, func(p string, _ int) bool { return catalogue.SameName(p, f.Name) })
	idx := position - 1
	if position <= 0 || idx >= len(out) {
		return append(out, f.Name), nil
	}
	out = append(out, "")
	copy(out[idx+1:], out[idx:])
	out[idx] = f.Name
	return out, nil
}

// Remove drops name from list.
func Remove(list []string, name string) ([]string, error) {
	out := lo.Reject(list, func(p string, _ int) bool { return catalogue.SameName(p, name) })
	if len(out) == len(list) {
		return nil, fmt.Errorf("%w: %s", ErrNotInList, name)
	}
	return out, nil
}

// Validate reports the first entry in list that is not a catalogue faction.
func Validate(cat *catalogue.Catalogue, list []string) error {
	for _, name := range list {
		if _, ok := cat.Lookup(name); !ok {
			return unknown(cat, name)
		}
	}
	return nil
}

func unknown(cat *catalogue.Catalogue, name string) error {
	return fmt.Errorf("%w: %q (valid factions: %s)", ErrUnknownFaction, name, strings.Join(cat.Names(), ", "))
}
