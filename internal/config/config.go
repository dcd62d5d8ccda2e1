// Package config loads the atlas YAML configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	LLM        LLM                  `yaml:"llm"`
	Curation   Curation             `yaml:"curation"`
	Drift      Drift                `yaml:"drift"`
	Generation Generation           `yaml:"generation"`
	Feeds      Feeds                `yaml:"feeds"`
	Watchlists []scenario.Watchlist `yaml:"watchlists"`
	Output     Output               `yaml:"output"`
	Server     Server               `yaml:"server"`
	Logging    Logging              `yaml:"logging"`
}

type LLM struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	OllamaURL    string  `yaml:"ollama_url"`
	OpenAIModel  string  `yaml:"openai_model"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	GeminiModel  string  `yaml:"gemini_model"`
	GeminiKeyEnv string  `yaml:"gemini_key_env"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

type Curation struct {
	UseLLM              bool    `yaml:"use_llm"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Embedder            string  `yaml:"embedder"`
	EmbeddingModel      string  `yaml:"embedding_model"`
}

type Drift struct {
	StableThreshold    float64  `yaml:"stable_threshold"`
	AccelerationMargin float64  `yaml:"acceleration_margin"`
	WideningMarkers    []string `yaml:"widening_markers"`
}

type Generation struct {
	BatchMin        int `yaml:"batch_min"`
	BatchMax        int `yaml:"batch_max"`
	SubjectBatchMin int `yaml:"subject_batch_min"`
	SubjectBatchMax int `yaml:"subject_batch_max"`
	Concurrency     int `yaml:"concurrency"`
}

type Feeds struct {
	ItemsPerFeed    int    `yaml:"items_per_feed"`
	Sources         []Feed `yaml:"sources"`
	NewsAPIKeyEnv   string `yaml:"newsapi_key_env"`
	NewsAPIDaysBack int    `yaml:"newsapi_days_back"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	ExportDir string `yaml:"export_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// envOverrides are applied after the file is parsed.
type envOverrides struct {
	DataDir  string `env:"ATLAS_DATA_DIR"`
	Provider string `env:"ATLAS_LLM_PROVIDER"`
	LogLevel string `env:"ATLAS_LOG_LEVEL"`
	Port     int    `env:"ATLAS_PORT"`
}

// ConfigDir returns the XDG config directory for atlas.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "atlas")
}

// DataDir returns the XDG data directory for atlas.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "atlas")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/atlas/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'atlas init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides,
// for commands that run without a config file.
func Default() (*Config, error) {
	cfg, err := parse(nil)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		LLM: LLM{
			Provider:     "ollama",
			Model:        "qwen2.5:7b",
			OllamaURL:    "http://localhost:11434",
			OpenAIModel:  "gpt-4o-mini",
			APIKeyEnv:    "OPENAI_API_KEY",
			GeminiModel:  "gemini-2.5-flash",
			GeminiKeyEnv: "GEMINI_API_KEY",
			Temperature:  0.7,
			MaxTokens:    8192,
		},
		Curation: Curation{
			SimilarityThreshold: 0.6,
			Embedder:            "none",
		},
		Drift: Drift{
			StableThreshold:    0.15,
			AccelerationMargin: 0.05,
			WideningMarkers: []string{
				"broaden", "widen", "expand", "longer", "lengthen", "extend", "black swan",
			},
		},
		Generation: Generation{
			BatchMin:        10,
			BatchMax:        12,
			SubjectBatchMin: 8,
			SubjectBatchMax: 10,
			Concurrency:     3,
		},
		Feeds:      Feeds{ItemsPerFeed: 5, NewsAPIKeyEnv: "NEWSAPI_KEY", NewsAPIDaysBack: 7},
		Watchlists: DefaultWatchlists(),
		Server:     Server{Port: 8000},
		Logging:    Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultWatchlists are the seed watchlists used when the config names none.
func DefaultWatchlists() []scenario.Watchlist {
	return []scenario.Watchlist{
		{ID: "w1", Name: "Geopolitical Risks", Type: scenario.WatchlistActive},
		{ID: "w2", Name: "Sports Teams (2026)", Type: scenario.WatchlistActive},
		{ID: "w3", Name: "Startup Ideas", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeDraft},
		{ID: "w4", Name: "Drafts", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeDraft},
		{ID: "w5", Name: "Core Strategy (Refined)", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeRefined},
		{ID: "w6", Name: "2024 Archive", Type: scenario.WatchlistPersonal, Subtype: scenario.SubtypeArchived},
	}
}

func (c *Config) validate() error {
	if c.Curation.SimilarityThreshold <= 0 {
		return fmt.Errorf("curation.similarity_threshold must be positive, got %v", c.Curation.SimilarityThreshold)
	}
	if c.Drift.StableThreshold < 0 || c.Drift.StableThreshold > 1 {
		return fmt.Errorf("drift.stable_threshold must be within [0, 1], got %v", c.Drift.StableThreshold)
	}
	if c.Generation.BatchMin > c.Generation.BatchMax {
		return fmt.Errorf("generation.batch_min %d exceeds batch_max %d", c.Generation.BatchMin, c.Generation.BatchMax)
	}
	if c.Generation.SubjectBatchMin > c.Generation.SubjectBatchMax {
		return fmt.Errorf("generation.subject_batch_min %d exceeds subject_batch_max %d",
			c.Generation.SubjectBatchMin, c.Generation.SubjectBatchMax)
	}
	for _, w := range c.Watchlists {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("watchlists: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.DataDir != "" {
		c.Output.DataDir = o.DataDir
	}
	if o.Provider != "" {
		c.LLM.Provider = o.Provider
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetExportDir returns the directory library exports are written to.
func (c *Config) GetExportDir() string {
	if c.Output.ExportDir != "" {
		return c.Output.ExportDir
	}
	return filepath.Join(c.GetDataDir(), "exports")
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "atlas.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
