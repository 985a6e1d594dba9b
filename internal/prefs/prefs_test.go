package prefs

import (
	"errors"
	"reflect"
	"testing"

	"github.com/derekprior/legacies/internal/catalogue"
)

func TestParse(t *testing.T) {
	cat := catalogue.Reference()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"comma separated", []string{"scourge,legion, druids"}, []string{"Scourge", "Legion", "Druids"}},
		{"one per argument", []string{"Scourge", "Legion"}, []string{"Scourge", "Legion"}},
		{"multi-word names", []string{"The", "Exodar", "Fel", "Horde", "Skywall"}, []string{"The Exodar", "Fel Horde", "Skywall"}},
		{"multi-word with commas", []string{"black empire,", "the exodar"}, []string{"Black Empire", "The Exodar"}},
		{"duplicates dropped", []string{"Druids, druids, Skywall, DRUIDS"}, []string{"Druids", "Skywall"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(cat, tt.args)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("unknown faction", func(t *testing.T) {
		_, err := Parse(cat, []string{"Scourge, Murlocs"})
		if !errors.Is(err, ErrUnknownFaction) {
			t.Fatalf("expected ErrUnknownFaction, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Parse(cat, []string{" , "})
		if !errors.Is(err, ErrEmpty) {
			t.Fatalf("expected ErrEmpty, got %v", err)
		}
	})
}

func TestAdd(t *testing.T) {
	cat := catalogue.Reference()
	base := []string{"Scourge", "Legion", "Druids"}

	tests := []struct {
		name     string
		faction  string
		position int
		want     []string
	}{
		{"append without position", "Skywall", 0, []string{"Scourge", "Legion", "Druids", "Skywall"}},
		{"insert at front", "skywall", 1, []string{"Skywall", "Scourge", "Legion", "Druids"}},
		{"insert in middle", "Skywall", 2, []string{"Scourge", "Skywall", "Legion", "Druids"}},
		{"out of range appends", "Skywall", 10, []string{"Scourge", "Legion", "Druids", "Skywall"}},
		{"existing entry moves", "druids", 1, []string{"Druids", "Scourge", "Legion"}},
		{"existing entry to end", "Scourge", 0, []string{"Legion", "Druids", "Scourge"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(cat, base, tt.faction, tt.position)
			if err != nil {
				t.Fatalf("Add() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Add() = %v, want %v", got, tt.want)
			}
		})
	}

	if !reflect.DeepEqual(base, []string{"Scourge", "Legion", "Druids"}) {
		t.Errorf("Add modified its input: %v", base)
	}

	if _, err := Add(cat, base, "Murlocs", 1); !errors.Is(err, ErrUnknownFaction) {
		t.Errorf("expected ErrUnknownFaction, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	got, err := Remove([]string{"Scourge", "Legion"}, "scourge")
	if err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Legion"}) {
		t.Errorf("Remove() = %v", got)
	}

	if _, err := Remove([]string{"Legion"}, "Scourge"); !errors.Is(err, ErrNotInList) {
		t.Errorf("expected ErrNotInList, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cat := catalogue.Reference()
	if err := Validate(cat, catalogue.DefaultPreferences()); err != nil {
		t.Errorf("default preferences should be valid: %v", err)
	}
	if err := Validate(cat, []string{"Druids", "Illidan"}); !errors.Is(err, ErrUnknownFaction) {
		t.Errorf("expected ErrUnknownFaction, got %v", err)
	}
}
