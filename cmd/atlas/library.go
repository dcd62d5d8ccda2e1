package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/netguy47/Scenario-Atlas/internal/export"
	"github.com/netguy47/Scenario-Atlas/internal/pipeline"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
	"github.com/netguy47/Scenario-Atlas/internal/server"
	"github.com/netguy47/Scenario-Atlas/internal/session"
	"github.com/netguy47/Scenario-Atlas/internal/subjects"
)

var (
	genSubjects  []string
	genFromFeeds bool
	genSearch    string
	genRotation  int
	genCurate    bool

	libraryCategory string

	exportFormat string
	exportOut    string

	servePort int
)

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(curateCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(exportCmd)

	generateCmd.Flags().StringArrayVarP(&genSubjects, "subject", "s", nil, "Generate scenarios about a subject (repeatable)")
	generateCmd.Flags().BoolVar(&genFromFeeds, "from-feeds", false, "Use headlines from the configured feeds as subjects")
	generateCmd.Flags().StringVar(&genSearch, "search", "", "Use NewsAPI headlines matching a query as subjects")
	generateCmd.Flags().IntVar(&genRotation, "rotation", -1, "Category rotation offset (default: advances each run)")
	generateCmd.Flags().BoolVar(&genCurate, "curate", false, "Curate the working set after generating")

	libraryCmd.Flags().StringVar(&libraryCategory, "category", "", "Only show one category")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: json, markdown or html")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (\"-\" for stdout; default: export directory)")

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate scenario batches into the working set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		subs := genSubjects
		if genFromFeeds {
			feeds := make([]subjects.Feed, len(cfg.Feeds.Sources))
			for i, f := range cfg.Feeds.Sources {
				feeds[i] = subjects.Feed{URL: f.URL, Name: f.Name}
			}
			collected := subjects.NewCollector(feeds, cfg.Feeds.ItemsPerFeed, logger).Collect(ctx)
			fmt.Printf("Collected %d subjects from %d feeds\n", len(collected), len(feeds))
			for _, s := range collected {
				subs = append(subs, s.Title)
			}
		}
		if genSearch != "" {
			news := subjects.NewNewsAPI(cfg.Feeds.NewsAPIKeyEnv, cfg.Feeds.NewsAPIDaysBack, logger)
			found, err := news.Search(ctx, genSearch, cfg.Feeds.ItemsPerFeed)
			if err != nil {
				return err
			}
			fmt.Printf("Found %d subjects for %q\n", len(found), genSearch)
			for _, s := range found {
				subs = append(subs, s.Title)
			}
		}
		if (genFromFeeds || genSearch != "") && len(subs) == 0 {
			return fmt.Errorf("no subjects found")
		}

		rotation := genRotation
		if rotation < 0 {
			rotation, err = nextRotation(ctx, a)
			if err != nil {
				return err
			}
		}

		var viewLibrary atomic.Bool
		a.store.OnSignal(func(sig session.Signal) {
			if sig == session.SignalViewLibrary {
				viewLibrary.Store(true)
			}
		})

		result := a.pipeline(ctx, true).Run(ctx, pipeline.Options{
			Subjects: subs,
			Rotation: rotation,
			Generate: true,
			Curate:   genCurate,
		})
		printSteps(result)
		if viewLibrary.Load() {
			fmt.Println("\nRun 'atlas library' to view the new scenarios.")
		}
		return result.Err()
	},
}

// nextRotation advances the category rotation by one for every recorded run.
func nextRotation(ctx context.Context, a *app) (int, error) {
	runs, err := a.db.RecentGenerationRuns(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("reading generation runs: %w", err)
	}
	if len(runs) == 0 {
		return 0, nil
	}
	return int(runs[0].ID), nil
}

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Deduplicate and enrich the working set into the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.store.Len() == 0 {
			fmt.Println("Working set is empty. Run 'atlas generate' first.")
			return nil
		}

		result := a.pipeline(ctx, false).Run(ctx, pipeline.Options{Curate: true})
		printSteps(result)
		return result.Err()
	},
}

func printSteps(r *pipeline.Result) {
	for i, step := range r.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(r.Steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List scenarios in the working set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var want scenario.Category
		if libraryCategory != "" {
			c, ok := scenario.ParseCategory(libraryCategory)
			if !ok {
				return fmt.Errorf("unknown category %q", libraryCategory)
			}
			want = c
		}

		entries := a.store.Current()
		if len(entries) == 0 {
			fmt.Println("No scenarios yet. Run 'atlas generate' to create some.")
			return nil
		}

		shown := 0
		for _, e := range entries {
			f := e.PromotionFields()
			if want != "" && f.Category != want {
				continue
			}
			marker := " "
			if e.IsCurated() {
				marker = "*"
			}
			fmt.Printf("%s [%s] %s\n", marker, f.ScenarioID, f.Title)
			fmt.Printf("    %s | %s | %s\n", f.Category, f.Domain, f.TimeHorizon)
			fmt.Printf("    %s\n", f.CanonicalQuestion)
			shown++
		}
		fmt.Printf("\n%d scenarios (* = curated)\n", shown)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library and watchlist memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.mem.Watchlists(ctx)
		if err != nil {
			return err
		}
		saved, err := a.mem.List(ctx, "")
		if err != nil {
			return err
		}
		now := time.Now()
		doc := export.Document{
			Title:      "Scenario Atlas",
			Generated:  now,
			Entries:    a.store.Current(),
			Watchlists: ws,
			Saved:      saved,
		}

		if exportOut == "-" {
			return export.Write(os.Stdout, format, doc)
		}

		path := exportOut
		if path == "" {
			path = filepath.Join(cfg.GetExportDir(), "atlas-"+now.Format("2006-01-02-150405")+format.Ext())
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		if err := export.Write(f, format, doc); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing export file: %w", err)
		}
		fmt.Printf("Exported %d scenarios and %d saved prompts to %s\n", len(doc.Entries), len(saved), path)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, server.Deps{
			Store:    a.store,
			Pipeline: a.pipeline(ctx, true),
			Memory:   a.mem,
			Mutator:  a.mutator(ctx),
			Logger:   logger,
		}, port)
	},
}
