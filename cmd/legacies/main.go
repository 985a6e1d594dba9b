package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/config"
	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/game"
	"github.com/derekprior/legacies/internal/logger"
	"github.com/derekprior/legacies/internal/rating"
	"github.com/derekprior/legacies/internal/rules"
	"github.com/derekprior/legacies/internal/store"
)

const defaultConfigFile = "config.yaml"

// resolveConfigPath returns the --config value, config.yaml when present, or
// "" to run on defaults.
func resolveConfigPath(configFlag string) string {
	if configFlag != "" {
		return configFlag
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// app holds everything a command needs once the config is loaded.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	cat    *catalogue.Catalogue
	rules  *rules.Rules
	store  *store.Store
}

func openApp(configFlag string) (*app, error) {
	cfg, err := config.Load(resolveConfigPath(configFlag))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	cat, err := cfg.BuildCatalogue()
	if err != nil {
		return nil, fmt.Errorf("building catalogue: %w", err)
	}

	st, err := store.Open(cfg.Database.Path, cfg.Rating.DefaultRating, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &app{cfg: cfg, logger: log, cat: cat, rules: cfg.BuildRules(), store: st}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) seed() int64 {
	if a.cfg.Draft.Seed != 0 {
		return a.cfg.Draft.Seed
	}
	return time.Now().UnixNano()
}

func (a *app) newEngine(rng *rand.Rand) (*draft.Engine, error) {
	return draft.NewEngine(a.cat, a.rules, rng, draft.Options{
		Jitter:        a.cfg.Draft.Jitter,
		MutateRating:  a.cfg.Draft.MutateRating,
		SplitStrategy: a.cfg.Draft.SplitStrategy,
	}, a.logger)
}

func (a *app) newService(lobbies game.LobbyResetter) (*game.Service, error) {
	engine, err := a.newEngine(rand.New(rand.NewSource(a.seed())))
	if err != nil {
		return nil, err
	}
	return game.NewService(game.Config{
		Store:              a.store,
		Engine:             engine,
		Rating:             rating.NewEngine(a.cfg.Rating.KFactor),
		Lobbies:            lobbies,
		DefaultPreferences: a.cfg.Preferences(),
		Logger:             a.logger,
	}), nil
}

// withApp wraps a command body with config loading and database cleanup.
func withApp(configFile *string, fn func(a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(*configFile)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(a, args)
	}
}

func parsePlayerID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid player id %q", s)
	}
	return id, nil
}

func parseGameID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid game id %q", s)
	}
	return id, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "legacies",
		Short: "8v8 team draft, faction assignment and rating tracker",
	}

	var configFile string
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: config.yaml in current directory)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	rootCmd.AddCommand(
		initCmd,
		playerCommand(&configFile),
		prefsCommand(&configFile),
		draftCommand(&configFile),
		gameCommand(&configFile),
		statsCommand(&configFile),
		compareCommand(&configFile),
		leaderboardCommand(&configFile),
		historyCommand(&configFile),
		exportCommand(&configFile),
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# Legacies Configuration
# ======================
# Every setting is optional. Omitted settings use the defaults shown here.
# LEGACIES_DB_PATH and LEGACIES_LOG_LEVEL (or a .env file) override the
# database path and log level.

database:
  path: legacies.db

log:
  # trace, debug, info, warn, error
  level: info

draft:
  # Fixed random seed for reproducible drafts. 0 seeds from the clock.
  seed: 0

  # Random rating noise (+/-) added while balancing so equal lobbies do not
  # always produce the same teams. 0 turns it off.
  jitter: 10

  # When true the jitter is written back into each player's in-memory rating.
  mutate_rating: false

  # How groups are divided between the two teams.
  # "precomputed" picks from every valid split; "shuffle" retries random ones.
  split_strategy: precomputed

rating:
  k_factor: 32
  default_rating: 800

lobby:
  # Players are pinged after afk_reminder and removed afk_kick later.
  afk_reminder: 30m
  afk_kick: 10m

# Used for players who have not set any preferences.
default_preferences:
  - Quel'thalas
  - Ironforge
  - Kul'tiras
  - Lordaeron
  - Skywall
  - Druids
  - Gilneas
  - Illidari

# The built-in faction catalogue and compatibility table are used unless
# these are set. Factions that share a slot cannot be on the same team.
#
# catalogue:
#   factions:
#     - {name: Dalaran, group: North Alliance, slot: DalaranSlot}
#     - {name: Gilneas, group: North Alliance, slot: DalaranSlot}
#   incompatible:
#     Old Gods: [Kalimdor]
`
