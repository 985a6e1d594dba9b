package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/logger"
	"github.com/derekprior/legacies/internal/rules"
)

// Environment variables that override file settings.
const (
	EnvDBPath   = "LEGACIES_DB_PATH"
	EnvLogLevel = "LEGACIES_LOG_LEVEL"
)

// Duration is a wrapper around time.Duration for YAML duration parsing.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type Database struct {
	Path string `yaml:"path"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Draft struct {
	// Seed fixes the random source. Zero seeds from the clock.
	Seed          int64  `yaml:"seed"`
	Jitter        int    `yaml:"jitter"`
	MutateRating  bool   `yaml:"mutate_rating"`
	SplitStrategy string `yaml:"split_strategy"`
}

type Rating struct {
	KFactor       float64 `yaml:"k_factor"`
	DefaultRating int     `yaml:"default_rating"`
}

type Lobby struct {
	AFKReminder Duration `yaml:"afk_reminder"`
	AFKKick     Duration `yaml:"afk_kick"`
}

type Faction struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	Slot  string `yaml:"slot"`
}

// Catalogue optionally replaces the built-in faction table and
// compatibility rules. Empty sections fall back to the built-in ones.
type Catalogue struct {
	Factions     []Faction           `yaml:"factions"`
	Incompatible map[string][]string `yaml:"incompatible"`
}

type Config struct {
	Database           Database  `yaml:"database"`
	Log                Log       `yaml:"log"`
	Draft              Draft     `yaml:"draft"`
	Rating             Rating    `yaml:"rating"`
	Lobby              Lobby     `yaml:"lobby"`
	Catalogue          Catalogue `yaml:"catalogue"`
	DefaultPreferences []string  `yaml:"default_preferences"`
}

// Default returns the settings used for anything a config file omits.
func Default() *Config {
	return &Config{
		Database: Database{Path: "legacies.db"},
		Log:      Log{Level: "info"},
		Draft:    Draft{Jitter: 10, SplitStrategy: "precomputed"},
		Rating:   Rating{KFactor: 32, DefaultRating: 800},
		Lobby: Lobby{
			AFKReminder: Duration{30 * time.Minute},
			AFKKick:     Duration{10 * time.Minute},
		},
	}
}

// LoadFromBytes parses YAML bytes over the defaults and validates the result.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// Load reads path, or uses defaults when path is empty, then applies .env
// and environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// BuildCatalogue returns the configured catalogue or the built-in one.
func (c *Config) BuildCatalogue() (*catalogue.Catalogue, error) {
	if len(c.Catalogue.Factions) == 0 {
		return catalogue.Reference(), nil
	}
	factions := make([]catalogue.Faction, len(c.Catalogue.Factions))
	for i, f := range c.Catalogue.Factions {
		factions[i] = catalogue.Faction{Name: f.Name, Group: catalogue.Group(f.Group), Slot: f.Slot}
	}
	return catalogue.New(factions)
}

// BuildRules returns the configured compatibility rules or the built-in ones.
func (c *Config) BuildRules() *rules.Rules {
	if len(c.Catalogue.Incompatible) == 0 {
		return rules.Reference()
	}
	table := make(map[catalogue.Group][]catalogue.Group, len(c.Catalogue.Incompatible))
	for g, others := range c.Catalogue.Incompatible {
		for _, o := range others {
			table[catalogue.Group(g)] = append(table[catalogue.Group(g)], catalogue.Group(o))
		}
	}
	return rules.New(table)
}

// Preferences returns the configured default preference list or the
// built-in one.
func (c *Config) Preferences() []string {
	if len(c.DefaultPreferences) == 0 {
		return catalogue.DefaultPreferences()
	}
	return append([]string(nil), c.DefaultPreferences...)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Draft.SplitStrategy {
	case "", "precomputed", "shuffle":
	default:
		return fmt.Errorf("unknown split_strategy %q (valid: precomputed, shuffle)", c.Draft.SplitStrategy)
	}
	if c.Draft.Jitter < 0 {
		return fmt.Errorf("draft.jitter must not be negative, got %d", c.Draft.Jitter)
	}

	if c.Rating.KFactor <= 0 {
		return fmt.Errorf("rating.k_factor must be positive, got %v", c.Rating.KFactor)
	}
	if c.Rating.DefaultRating <= 0 {
		return fmt.Errorf("rating.default_rating must be positive, got %d", c.Rating.DefaultRating)
	}

	if c.Lobby.AFKReminder.Duration <= 0 || c.Lobby.AFKKick.Duration <= 0 {
		return fmt.Errorf("lobby afk_reminder and afk_kick must be positive")
	}

	cat, err := c.BuildCatalogue()
	if err != nil {
		return fmt.Errorf("catalogue: %w", err)
	}

	// Every group named in a rule must exist in the catalogue
	known := make(map[catalogue.Group]bool)
	for _, g := range cat.Groups() {
		known[g] = true
	}
	for g, others := range c.Catalogue.Incompatible {
		for _, name := range append([]string{g}, others...) {
			if !known[catalogue.Group(name)] {
				return fmt.Errorf("incompatible: unknown group %q", name)
			}
		}
	}

	for _, name := range c.DefaultPreferences {
		if _, ok := cat.Lookup(name); !ok {
			return fmt.Errorf("default_preferences: unknown faction %q", name)
		}
	}

	return nil
}
