package main

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/game"
	"github.com/derekprior/legacies/internal/lobby"
	"github.com/derekprior/legacies/internal/validator"
)

func draftCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft teams and assign factions",
	}

	runCmd := &cobra.Command{
		Use:          "run <16 player ids>",
		Short:        "Draft registered players into a new game",
		Args:         cobra.ExactArgs(draft.PlayerCount),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			return runDraft(context.Background(), a, args)
		}),
	}

	var runs, workers int
	var seed int64
	simulateCmd := &cobra.Command{
		Use:          "simulate",
		Short:        "Run many random drafts and check every result",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			if !cmd.Flags().Changed("seed") {
				seed = a.seed()
			}
			return runSimulate(context.Background(), a, runs, workers, seed)
		},
	}
	simulateCmd.Flags().IntVar(&runs, "runs", 1000, "Number of drafts to run")
	simulateCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of drafts to run in parallel")
	simulateCmd.Flags().Int64Var(&seed, "seed", 0, "Base random seed (default: config seed or the clock)")

	cmd.AddCommand(runCmd, simulateCmd)
	return cmd
}

// runDraft seats the players in a lobby, starts the draft and prints the
// teams.
func runDraft(ctx context.Context, a *app, args []string) error {
	ids := make([]uint64, len(args))
	for i, arg := range args {
		id, err := parsePlayerID(arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	if len(lo.Uniq(ids)) != len(ids) {
		return fmt.Errorf("player ids must be distinct")
	}

	lobbies := lobby.NewRepository(clock.New(), a.cfg.Lobby.AFKReminder.Duration, a.cfg.Lobby.AFKKick.Duration, a.logger)
	var l *lobby.Lobby
	for _, id := range ids {
		p, err := a.store.Players().Get(ctx, id)
		if err != nil {
			return err
		}
		if l, _, err = lobbies.Join(p.ID, p.Name); err != nil {
			return fmt.Errorf("seating %s: %w", p.Name, err)
		}
		lobbies.UpdatePreferences(p.ID, p.Preferences)
	}
	if err := lobbies.MarkDraftStarted(l.ID); err != nil {
		return err
	}

	svc, err := a.newService(lobbies)
	if err != nil {
		return err
	}
	g, err := svc.StartDraft(ctx, l.Players(), l.ID)
	if err != nil {
		return err
	}

	violations := validator.ValidateDraft(a.cat, a.rules, g.TeamA, g.TeamB)
	for _, v := range violations {
		switch v.Type {
		case "error":
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		case "warning":
			fmt.Printf("⚠ %s\n", v.Message)
		}
	}
	if errs := validator.Errors(violations); len(errs) > 0 {
		return fmt.Errorf("draft produced %d invalid assignments", len(errs))
	}

	fmt.Printf("✓ Game %d started\n", g.ID)
	printGame(g)
	return nil
}

func printTeam(label string, t *draft.Team) {
	fmt.Printf("\n%s (total rating %d):\n", label, t.TotalRating())
	fmt.Printf("  %-24s %6s  %s\n", "Player", "Rating", "Faction")
	for _, p := range t.Players {
		faction := p.AssignedFaction
		if f, ok := t.FactionFor(p.ID); ok {
			faction = f.Name
		}
		fmt.Printf("  %-24s %6d  %s\n", p.Name, p.Rating, faction)
	}
}

func printGame(g *game.Game) {
	printTeam("Team A", g.TeamA)
	printTeam("Team B", g.TeamB)
}

// simulationTotals is updated by concurrent simulation workers.
type simulationTotals struct {
	failed    atomic.Int64
	errors    atomic.Int64
	warnings  atomic.Int64
	ratingGap atomic.Int64
}

// runSimulate drafts random lobbies in parallel and audits every result.
// Run i uses seed+i so any failure can be reproduced on its own.
func runSimulate(ctx context.Context, a *app, runs, workers int, seed int64) error {
	if runs <= 0 || workers <= 0 {
		return fmt.Errorf("--runs and --workers must be positive")
	}

	fmt.Printf("Simulating %d drafts on %d workers (seed %d)...\n", runs, workers, seed)

	var totals simulationTotals
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return simulateOne(a, seed+int64(i), &totals)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("\n  %-22s %d\n", "Drafts", runs)
	fmt.Printf("  %-22s %d\n", "Failed drafts", totals.failed.Load())
	fmt.Printf("  %-22s %d\n", "Rule violations", totals.errors.Load())
	fmt.Printf("  %-22s %d\n", "Rating gap warnings", totals.warnings.Load())
	if ok := int64(runs) - totals.failed.Load(); ok > 0 {
		fmt.Printf("  %-22s %.1f\n", "Average rating gap", float64(totals.ratingGap.Load())/float64(ok))
	}

	if n := totals.failed.Load() + totals.errors.Load(); n > 0 {
		return fmt.Errorf("%d drafts failed or broke a rule", n)
	}
	fmt.Println("\n✓ Every draft was valid")
	return nil
}

func simulateOne(a *app, seed int64, totals *simulationTotals) error {
	rng := rand.New(rand.NewSource(seed))
	engine, err := a.newEngine(rng)
	if err != nil {
		return err
	}

	names := a.cat.Names()
	players := make([]*draft.Player, draft.PlayerCount)
	for i := range players {
		p := draft.NewPlayer(uint64(i+1), fmt.Sprintf("player%d", i+1))
		p.Rating = a.cfg.Rating.DefaultRating - 200 + rng.Intn(401)
		for range rng.Intn(len(names)) {
			p.Preferences = append(p.Preferences, names[rng.Intn(len(names))])
		}
		players[i] = p
	}

	teamA, teamB, err := engine.Run(players)
	if err != nil {
		totals.failed.Inc()
		a.logger.Warn().Err(err).Int64("seed", seed).Msg("draft failed")
		return nil
	}

	gap := teamA.TotalRating() - teamB.TotalRating()
	if gap < 0 {
		gap = -gap
	}
	totals.ratingGap.Add(int64(gap))

	for _, v := range validator.ValidateDraft(a.cat, a.rules, teamA, teamB) {
		switch v.Type {
		case "error":
			totals.errors.Inc()
			a.logger.Error().Int64("seed", seed).Str("team", v.Team).Msg(v.Message)
		case "warning":
			totals.warnings.Inc()
		}
	}
	return nil
}
