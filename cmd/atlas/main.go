package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/config"
	"github.com/netguy47/Scenario-Atlas/internal/curation"
	"github.com/netguy47/Scenario-Atlas/internal/database"
	"github.com/netguy47/Scenario-Atlas/internal/generate"
	"github.com/netguy47/Scenario-Atlas/internal/llm"
	"github.com/netguy47/Scenario-Atlas/internal/logging"
	"github.com/netguy47/Scenario-Atlas/internal/memory"
	"github.com/netguy47/Scenario-Atlas/internal/mutate"
	"github.com/netguy47/Scenario-Atlas/internal/pipeline"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
	"github.com/netguy47/Scenario-Atlas/internal/session"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "atlas",
	Short:   "Scenario library and watchlist memory",
	Long:    "Atlas generates, curates and tracks \"How might...\" scenario questions about uncertain futures.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
		case configPath == "":
			// No config anywhere: run on built-in defaults.
			path = "(defaults)"
			cfg, err = config.Default()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "DEBUG"
		}
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		logger.Debug("loaded config", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("atlas", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/atlas/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the LLM provider, watchlists and subject feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library and watchlist status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stats := a.store.Stats()
		fmt.Printf("Database: %s\n\n", a.db.Path())
		fmt.Println("Library:")
		fmt.Printf("  Scenarios: %d\n", stats.Total)
		fmt.Printf("  Curated: %d\n", stats.Curated)
		if len(stats.ByCategory) > 0 {
			fmt.Println("\nBy category:")
			for _, c := range sortedCategories(stats.ByCategory) {
				fmt.Printf("  %s: %d\n", c, stats.ByCategory[c])
			}
		}

		ws, err := a.mem.Watchlists(ctx)
		if err != nil {
			return err
		}
		counts, err := a.db.CountSavedScenarios(ctx)
		if err != nil {
			return fmt.Errorf("counting saved scenarios: %w", err)
		}
		fmt.Println("\nWatchlists:")
		for _, w := range ws {
			fmt.Printf("  [%s] %s: %d saved\n", w.ID, w.Name, counts[w.ID])
		}

		runs, err := a.db.RecentGenerationRuns(ctx, 5)
		if err != nil {
			return fmt.Errorf("reading generation runs: %w", err)
		}
		if len(runs) > 0 {
			fmt.Println("\nRecent generation runs:")
			for _, r := range runs {
				label := r.Subject
				if label == "" {
					label = "(category rotation)"
				}
				outcome := fmt.Sprintf("%d entries", r.EntryCount)
				if r.Error != "" {
					outcome = "failed: " + r.Error
				}
				fmt.Printf("  %s  %s: %s\n", r.StartedAt.Local().Format("2006-01-02 15:04"), label, outcome)
			}
		}
		return nil
	},
}

func sortedCategories(m map[scenario.Category]int) []scenario.Category {
	out := make([]scenario.Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// app holds the stores and collaborators for one command invocation.
type app struct {
	db    *database.DB
	store *session.Store
	mem   *memory.Memory

	provider    llm.Provider
	providerSet bool
}

// openApp opens the database, seeds watchlists and restores the session.
func openApp(ctx context.Context) (*app, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := database.Open(cfg.DBPath(), logger)
	if err != nil {
		return nil, err
	}

	mem := memory.New(db, driftPolicy(), logger)
	if err := mem.SeedWatchlists(ctx, cfg.Watchlists); err != nil {
		db.Close()
		return nil, err
	}

	store := session.New(logger)
	if err := store.Load(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &app{db: db, store: store, mem: mem}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func driftPolicy() memory.DriftPolicy {
	p := memory.DefaultDriftPolicy()
	p.StableThreshold = cfg.Drift.StableThreshold
	p.AccelerationMargin = cfg.Drift.AccelerationMargin
	if len(cfg.Drift.WideningMarkers) > 0 {
		p.WideningMarkers = cfg.Drift.WideningMarkers
	}
	return p
}

// llmProvider creates the provider on first use; it may reach the network.
func (a *app) llmProvider(ctx context.Context) llm.Provider {
	if !a.providerSet {
		l := cfg.LLM
		a.provider = llm.CreateProvider(ctx, llm.Options{
			Provider:     l.Provider,
			Model:        l.Model,
			OllamaURL:    l.OllamaURL,
			OpenAIModel:  l.OpenAIModel,
			GeminiModel:  l.GeminiModel,
			APIKeyEnv:    l.APIKeyEnv,
			GeminiKeyEnv: l.GeminiKeyEnv,
			Temperature:  l.Temperature,
		}, logger)
		a.providerSet = true
	}
	return a.provider
}

func (a *app) curationEngine(ctx context.Context) *curation.Engine {
	opts := curation.Options{
		SimilarityThreshold: cfg.Curation.SimilarityThreshold,
		UseLLM:              cfg.Curation.UseLLM,
		MaxTokens:           cfg.LLM.MaxTokens,
		Embedder: llm.CreateEmbedder(ctx, llm.EmbedderOptions{
			Backend:      cfg.Curation.Embedder,
			Model:        cfg.Curation.EmbeddingModel,
			OllamaURL:    cfg.LLM.OllamaURL,
			GeminiKeyEnv: cfg.LLM.GeminiKeyEnv,
		}, logger),
	}
	if cfg.Curation.UseLLM {
		opts.Provider = a.llmProvider(ctx)
	}
	return curation.New(opts, logger)
}

func (a *app) generator(ctx context.Context) *generate.Generator {
	g := cfg.Generation
	return generate.New(a.llmProvider(ctx), a.db, generate.Options{
		BatchMin:        g.BatchMin,
		BatchMax:        g.BatchMax,
		SubjectBatchMin: g.SubjectBatchMin,
		SubjectBatchMax: g.SubjectBatchMax,
		MaxTokens:       cfg.LLM.MaxTokens,
	}, logger)
}

// pipeline wires generation and curation. The generator is only built when
// needed so curation-only runs never contact the LLM provider.
func (a *app) pipeline(ctx context.Context, withGenerator bool) *pipeline.Pipeline {
	var gen pipeline.Generator
	if withGenerator {
		gen = a.generator(ctx)
	}
	return pipeline.New(a.store, gen, a.curationEngine(ctx), a.db, cfg.Generation.Concurrency, logger)
}

func (a *app) mutator(ctx context.Context) *mutate.Mutator {
	return mutate.New(a.llmProvider(ctx), a.mem, logger)
}
