package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netguy47/Scenario-Atlas/internal/memory"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

var (
	savedWatchlist string

	promoteWatchlist string

	newWatchlist string
	newTitle     string
	newText      string
	newCategory  string
	newDomain    string
	newHorizons  []string
	newNotes     string

	reviseChanges []string
	reviseNotes   string
)

func init() {
	rootCmd.AddCommand(watchlistsCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(reviseCmd)
	rootCmd.AddCommand(mutateCmd)
	rootCmd.AddCommand(historyCmd)

	savedCmd.Flags().StringVarP(&savedWatchlist, "watchlist", "w", "", "Only show one watchlist")

	promoteCmd.Flags().StringVarP(&promoteWatchlist, "watchlist", "w", "", "Target watchlist (default: first watchlist)")

	newCmd.Flags().StringVarP(&newWatchlist, "watchlist", "w", "", "Target watchlist (default: first personal watchlist)")
	newCmd.Flags().StringVar(&newTitle, "title", "", "Title")
	newCmd.Flags().StringVar(&newText, "text", "", "Prompt text")
	newCmd.Flags().StringVar(&newCategory, "category", "", "Category")
	newCmd.Flags().StringVar(&newDomain, "domain", "mixed", "Domain: "+scenario.DomainChoices())
	newCmd.Flags().StringSliceVar(&newHorizons, "horizon", []string{"1-year"}, "Time horizons (1-year, 3-year, 5-year or Time-irrelevant)")
	newCmd.Flags().StringVar(&newNotes, "notes", "", "Notes")
	_ = newCmd.MarkFlagRequired("title")
	_ = newCmd.MarkFlagRequired("text")

	reviseCmd.Flags().StringArrayVar(&reviseChanges, "change", nil, "Describe a change (repeatable)")
	reviseCmd.Flags().StringVar(&reviseNotes, "notes", "", "Notes")
}

var watchlistsCmd = &cobra.Command{
	Use:   "watchlists",
	Short: "List watchlists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.mem.Watchlists(ctx)
		if err != nil {
			return err
		}
		counts, err := a.db.CountSavedScenarios(ctx)
		if err != nil {
			return fmt.Errorf("counting saved scenarios: %w", err)
		}
		for _, w := range ws {
			kind := string(w.Type)
			if w.Subtype != "" {
				kind += "/" + string(w.Subtype)
			}
			fmt.Printf("  [%s] %s (%s): %d saved\n", w.ID, w.Name, kind, counts[w.ID])
		}
		return nil
	},
}

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		saved, err := a.mem.List(ctx, savedWatchlist)
		if err != nil {
			return err
		}
		if len(saved) == 0 {
			fmt.Println("No saved scenarios. Use 'atlas promote' or 'atlas new'.")
			return nil
		}
		for _, s := range saved {
			printSavedLine(s)
		}
		return nil
	},
}

func printSavedLine(s scenario.SavedScenario) {
	fmt.Printf("  [%s] %s\n", s.ID, s.Title)
	fmt.Printf("    watchlist %s | v%d | %s | runs %d\n", s.WatchlistID, s.Latest().VersionNumber, s.DriftStatus, s.RunCount)
}

var promoteCmd = &cobra.Command{
	Use:   "promote <scenarioId>",
	Short: "Save a library scenario to a watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.store.Lookup(args[0])
		if err != nil {
			return err
		}

		s, err := a.mem.Promote(ctx, entry, memory.PromoteOptions{WatchlistID: promoteWatchlist})
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s as %s in watchlist %s\n", args[0], s.ID, s.WatchlistID)
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Save a hand-written prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		th, err := scenario.ParseTimeHorizon(newHorizons)
		if err != nil {
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.mem.CreateManual(ctx, memory.ManualInput{
			WatchlistID: newWatchlist,
			Title:       newTitle,
			Text:        newText,
			Category:    newCategory,
			Domain:      newDomain,
			TimeHorizon: th,
			Notes:       newNotes,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s in watchlist %s\n", s.ID, s.WatchlistID)
		return nil
	},
}

var reviseCmd = &cobra.Command{
	Use:   "revise <savedId> <text>",
	Short: "Add a hand-written revision to a saved scenario",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.mem.AddVersion(ctx, args[0], memory.VersionInput{
			Text:    args[1],
			Type:    scenario.VersionManual,
			Changes: reviseChanges,
			Notes:   reviseNotes,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added version %d to %s (drift: %s)\n", s.Latest().VersionNumber, s.ID, s.DriftStatus)
		return nil
	},
}

var mutateCmd = &cobra.Command{
	Use:   "mutate <savedId> <driftVector>",
	Short: "Rewrite a saved prompt along a drift vector",
	Long: `Rewrite the latest version of a saved prompt along a drift vector such as
"longer time horizon" or "add black swan events", and save it as a new version.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.mutator(ctx).Mutate(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		v := s.Latest()
		fmt.Printf("Added version %d to %s (drift: %s)\n", v.VersionNumber, s.ID, s.DriftStatus)
		fmt.Printf("  %s\n", v.Text)
		if v.Notes != "" {
			fmt.Printf("  Changes: %s\n", v.Notes)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <savedId>",
	Short: "Show the version history of a saved scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.mem.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printSavedLine(*s)
		for _, v := range s.Versions {
			fmt.Printf("\n  v%d %s  %s\n", v.VersionNumber, v.Type, v.Created.Local().Format("2006-01-02 15:04"))
			fmt.Printf("    %s\n", v.Text)
			if len(v.Changes) > 0 {
				fmt.Printf("    Changes: %s\n", strings.Join(v.Changes, "; "))
			}
			if v.Notes != "" {
				fmt.Printf("    Notes: %s\n", v.Notes)
			}
		}
		return nil
	},
}
