package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derekprior/legacies/internal/prefs"
)

func playerCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Register and list players",
	}

	registerCmd := &cobra.Command{
		Use:          "register <id> <name>",
		Short:        "Register a player or rename an existing one",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			id, err := parsePlayerID(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			if err := a.store.Players().Register(context.Background(), id, name); err != nil {
				return err
			}
			fmt.Printf("✓ Registered %s (%d)\n", name, id)
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:          "list",
		Short:        "List registered players",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			players, err := a.store.Players().List(context.Background())
			if err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Println("No players registered")
				return nil
			}
			fmt.Printf("  %-20s %-24s %6s\n", "ID", "Name", "Rating")
			for _, p := range players {
				fmt.Printf("  %-20d %-24s %6d\n", p.ID, p.Name, p.Rating)
			}
			return nil
		}),
	}

	cmd.AddCommand(registerCmd, listCmd)
	return cmd
}

func prefsCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and edit a player's faction preferences",
	}

	// editPrefs loads a player's list, applies edit and saves the result.
	editPrefs := func(a *app, idArg string, edit func([]string) ([]string, error)) error {
		ctx := context.Background()
		id, err := parsePlayerID(idArg)
		if err != nil {
			return err
		}
		p, err := a.store.Players().Get(ctx, id)
		if err != nil {
			return err
		}
		list, err := edit(p.Preferences)
		if err != nil {
			return err
		}
		if err := a.store.Players().SetPreferences(ctx, id, list); err != nil {
			return err
		}
		printPreferences(p.Name, list, a.cfg.Preferences())
		return nil
	}

	showCmd := &cobra.Command{
		Use:          "show <id>",
		Short:        "Show a player's preferences",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			id, err := parsePlayerID(args[0])
			if err != nil {
				return err
			}
			p, err := a.store.Players().Get(context.Background(), id)
			if err != nil {
				return err
			}
			printPreferences(p.Name, p.Preferences, a.cfg.Preferences())
			return nil
		}),
	}

	setCmd := &cobra.Command{
		Use:          "set <id> <factions...>",
		Short:        "Replace a player's preferences",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			return editPrefs(a, args[0], func([]string) ([]string, error) {
				return prefs.Parse(a.cat, args[1:])
			})
		}),
	}

	addCmd := &cobra.Command{
		Use:          "add <id> <faction> [position]",
		Short:        "Add or move a faction in a player's preferences",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			words, position := args[1:], 0
			if len(words) > 1 {
				if n, err := strconv.Atoi(words[len(words)-1]); err == nil {
					words, position = words[:len(words)-1], n
				}
			}
			return editPrefs(a, args[0], func(list []string) ([]string, error) {
				return prefs.Add(a.cat, list, strings.Join(words, " "), position)
			})
		}),
	}

	removeCmd := &cobra.Command{
		Use:          "remove <id> <faction>",
		Short:        "Remove a faction from a player's preferences",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			return editPrefs(a, args[0], func(list []string) ([]string, error) {
				return prefs.Remove(list, strings.Join(args[1:], " "))
			})
		}),
	}

	clearCmd := &cobra.Command{
		Use:          "clear <id>",
		Short:        "Clear a player's preferences",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: withApp(configFile, func(a *app, args []string) error {
			return editPrefs(a, args[0], func([]string) ([]string, error) {
				return nil, nil
			})
		}),
	}

	cmd.AddCommand(showCmd, setCmd, addCmd, removeCmd, clearCmd)
	return cmd
}

func printPreferences(name string, list, defaults []string) {
	if len(list) == 0 {
		fmt.Printf("%s has no preferences; the defaults will be used:\n", name)
		list = defaults
	} else {
		fmt.Printf("Preferences for %s:\n", name)
	}
	for i, f := range list {
		fmt.Printf("  %d. %s\n", i+1, f)
	}
}
