package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/excel"
	"github.com/derekprior/legacies/internal/game"
	"github.com/derekprior/legacies/internal/history"
	"github.com/derekprior/legacies/internal/rating"
)

func parseScore(a, b string) (game.Score, error) {
	sa, errA := strconv.Atoi(a)
	sb, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return game.Score{}, fmt.Errorf("invalid score %s %s", a, b)
	}
	s := game.Score{A: sa, B: sb}
	if !game.ValidScore(s) {
		return game.Score{}, fmt.Errorf("%w: %s (use 1 0, 0 1 or 0 0 for a draw)", game.ErrInvalidScore, s)
	}
	return s, nil
}

func printChanges(g *game.Game, changes map[uint64]int) {
	for _, p := range g.Players() {
		fmt.Printf("  %-24s %+d\n", p.Name, changes[p.ID])
	}
}

func gameCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Manage ongoing games",
	}

	listCmd := &cobra.Command{
		Use:          "list",
		Short:        "List ongoing games",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			games, err := a.store.Games().Ongoing(context.Background())
			if err != nil {
				return err
			}
			if len(games) == 0 {
				fmt.Println("No ongoing games")
				return nil
			}
			fmt.Printf("  %-6s %-12s %-18s %s\n", "Game", "State", "Started", "Ratings")
			for _, g := range games {
				fmt.Printf("  %-6d %-12s %-18s %d vs %d\n", g.ID, g.State(),
					g.CreatedAt.Local().Format("01/02/2006 15:04"), g.TeamA.TotalRating(), g.TeamB.TotalRating())
			}
			return nil
		}),
	}

	showCmd := &cobra.Command{
		Use:          "show [gameID]",
		Short:        "Show a game's teams (default: the only ongoing game)",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			id := 0
			if len(args) == 1 {
				var err error
				if id, err = parseGameID(args[0]); err != nil {
					return err
				}
			}
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			g, err := svc.Resolve(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Game %d: %s", g.ID, g.State())
			if g.State() == game.Finished {
				if g.Killed() {
					fmt.Print(" (killed)")
				} else {
					fmt.Printf(" %s", g.Score())
				}
			}
			fmt.Println()
			printGame(g)
			return nil
		}),
	}

	scoreCmd := &cobra.Command{
		Use:          "score <gameID> <teamA> <teamB>",
		Short:        "Record a game's result as host",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			ctx := context.Background()
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			score, err := parseScore(args[1], args[2])
			if err != nil {
				return err
			}
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			changes, err := svc.SubmitScore(ctx, id, score)
			if err != nil {
				return err
			}
			g, err := svc.Resolve(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Game %d finished %s\n", id, score)
			printChanges(g, changes)
			return nil
		}),
	}

	voteCmd := &cobra.Command{
		Use:          "vote <gameID> <playerID> <teamA> <teamB>",
		Short:        "Record a participant's score report",
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			ctx := context.Background()
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			playerID, err := parsePlayerID(args[1])
			if err != nil {
				return err
			}
			score, err := parseScore(args[2], args[3])
			if err != nil {
				return err
			}
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			res, err := svc.Vote(ctx, id, playerID, score)
			if err != nil {
				return err
			}
			if !res.Finished {
				fmt.Printf("✓ Vote recorded for %s (%d/%d)\n", score, res.Votes, res.Required)
				return nil
			}
			g, err := svc.Resolve(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Game %d finished %s\n", id, score)
			printChanges(g, res.Changes)
			return nil
		}),
	}

	killCmd := &cobra.Command{
		Use:          "kill <gameID>",
		Short:        "End a game without a result",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			if err := svc.Kill(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Game %d killed\n", id)
			return nil
		}),
	}

	cmd.AddCommand(listCmd, showCmd, scoreCmd, voteCmd, killCmd)
	return cmd
}

func statsCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:          "stats <id>",
		Short:        "Show a player's rating and faction record",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			ctx := context.Background()
			id, err := parsePlayerID(args[0])
			if err != nil {
				return err
			}
			p, err := a.store.Players().Get(ctx, id)
			if err != nil {
				return err
			}
			st, err := a.store.Stats().GetOrCreate(ctx, id)
			if err != nil {
				return err
			}
			printStats(p, st)
			return nil
		}),
	}
}

func printStats(p *draft.Player, st *rating.Stats) {
	fmt.Printf("%s\n", p.Name)
	fmt.Printf("  %-14s %d\n", "Rating", st.Rating)
	fmt.Printf("  %-14s %d (%d-%d, %.1f%%)\n", "Games", st.GamesPlayed, st.Wins, st.Losses, st.WinRate())

	if len(st.FactionHistory) == 0 {
		return
	}
	names := lo.Keys(st.FactionHistory)
	sort.Slice(names, func(i, j int) bool {
		gi, gj := st.FactionHistory[names[i]].Games(), st.FactionHistory[names[j]].Games()
		if gi != gj {
			return gi > gj
		}
		return names[i] < names[j]
	})
	fmt.Println("\n  Factions:")
	for _, name := range names {
		rec := st.FactionHistory[name]
		fmt.Printf("  %-18s %3d-%-3d %5.1f%%\n", name, rec.Wins, rec.Losses, rec.WinRate())
	}
}

func compareCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:          "compare <id1> <id2>",
		Short:        "Compare two players side by side",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			ctx := context.Background()
			players := make([]*draft.Player, 2)
			stats := make([]*rating.Stats, 2)
			for i, arg := range args {
				id, err := parsePlayerID(arg)
				if err != nil {
					return err
				}
				if players[i], err = a.store.Players().Get(ctx, id); err != nil {
					return err
				}
				if stats[i], err = a.store.Stats().GetOrCreate(ctx, id); err != nil {
					return err
				}
			}
			printComparison(os.Stdout, players[0], players[1], stats[0], stats[1])
			return nil
		}),
	}
}

// sharedFactions returns the factions both players have a record with,
// sorted by name.
func sharedFactions(a, b *rating.Stats) []string {
	shared := lo.Intersect(lo.Keys(a.FactionHistory), lo.Keys(b.FactionHistory))
	sort.Strings(shared)
	return shared
}

func printComparison(w io.Writer, pa, pb *draft.Player, sa, sb *rating.Stats) {
	fmt.Fprintf(w, "%s vs %s\n", pa.Name, pb.Name)
	fmt.Fprintf(w, "  %-18s %7d vs %d\n", "Rating", sa.Rating, sb.Rating)
	fmt.Fprintf(w, "  %-18s %6.1f%% vs %.1f%%\n", "Win rate", sa.WinRate(), sb.WinRate())
	fmt.Fprintf(w, "  %-18s %7d vs %d\n", "Games", sa.GamesPlayed, sb.GamesPlayed)

	shared := sharedFactions(sa, sb)
	if len(shared) == 0 {
		fmt.Fprintln(w, "\nNo shared faction data.")
		return
	}
	fmt.Fprintln(w, "\n  Shared factions:")
	for _, name := range shared {
		fmt.Fprintf(w, "  %-18s %6.1f%% vs %.1f%%\n", name,
			sa.FactionHistory[name].WinRate(), sb.FactionHistory[name].WinRate())
	}
}

func leaderboardCommand(configFile *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:          "leaderboard",
		Short:        "Show the top rated players",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			standings, err := a.store.Leaderboard(context.Background(), count)
			if err != nil {
				return err
			}
			if len(standings) == 0 {
				fmt.Println("No rated players yet")
				return nil
			}
			fmt.Printf("  %4s  %-24s %6s %6s %7s\n", "Rank", "Player", "Rating", "Games", "Win %")
			for i, s := range standings {
				fmt.Printf("  %4d  %-24s %6d %6d %6.1f%%\n", i+1, s.Name, s.Rating, s.GamesPlayed, s.WinRate())
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of players to show (0 for all)")
	return cmd
}

func historyCommand(configFile *string) *cobra.Command {
	var count int
	var jsonFile string
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Show recent match results",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			ctx := context.Background()
			records, err := a.store.History().List(ctx, count)
			if err != nil {
				return err
			}
			if jsonFile != "" {
				if err := writeHistoryJSON(ctx, jsonFile, records); err != nil {
					return err
				}
				fmt.Printf("✓ Wrote %d matches to %s\n", len(records), jsonFile)
				return nil
			}
			if len(records) == 0 {
				fmt.Println("No matches recorded")
				return nil
			}
			for _, r := range records {
				fmt.Printf("Game %d  %s  %d-%d\n", r.GameID, r.Timestamp.Local().Format("01/02/2006 15:04"), r.ScoreA, r.ScoreB)
				for _, team := range [][]history.PlayerRecord{r.TeamA, r.TeamB} {
					for _, p := range team {
						fmt.Printf("  %-24s %-16s %+d\n", p.Name, p.Faction(), p.RatingDelta)
					}
				}
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of matches to show (0 for all)")
	cmd.Flags().StringVar(&jsonFile, "json", "", "Write the matches to a JSON history file instead of printing them")
	return cmd
}

// writeHistoryJSON writes newest-first records to a new JSON history file in
// the order they were played.
func writeHistoryJSON(ctx context.Context, path string, records []history.MatchRecord) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; remove it first", path)
	}
	log := history.NewFileLog(path)
	for i := len(records) - 1; i >= 0; i-- {
		if err := log.Record(ctx, records[i]); err != nil {
			return err
		}
	}
	return nil
}

func exportCommand(configFile *string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Export the leaderboard and match history to Excel",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			ctx := context.Background()
			standings, err := a.store.Leaderboard(ctx, 0)
			if err != nil {
				return err
			}
			records, err := a.store.History().List(ctx, 0)
			if err != nil {
				return err
			}

			f, err := excel.Generate(standings, records)
			if err != nil {
				return fmt.Errorf("generating Excel: %w", err)
			}
			if err := f.SaveAs(outputFile); err != nil {
				return fmt.Errorf("saving file: %w", err)
			}

			fmt.Printf("✓ Exported %d players and %d matches to %s\n", len(standings), len(records), outputFile)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "legacies.xlsx", "Output Excel file path")
	return cmd
}
