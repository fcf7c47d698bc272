package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/freight-doc-review/internal/analysis"
	"github.com/jonathan/freight-doc-review/internal/config"
	"github.com/jonathan/freight-doc-review/internal/credentials"
	"github.com/jonathan/freight-doc-review/internal/db"
	"github.com/jonathan/freight-doc-review/internal/llm"
	"github.com/jonathan/freight-doc-review/internal/observability"
	"github.com/jonathan/freight-doc-review/internal/resilience"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Cross-check the documents listed in a manifest",
	Long: `Runs the full review for a JSON manifest of documents: download -> extraction -> comparison -> per-document feedback.

No database is needed. When a database URL is configured the user's stored Gemini key is preferred.
Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runAnalyzeCmd,
}

var (
	analyzeConfigPath      string
	analyzeManifest        string
	analyzeOutput          string
	analyzeUserID          string
	analyzeAPIKey          string
	analyzeExtractionModel string
	analyzeComparisonModel string
	analyzeMaxConcurrency  int
	analyzeVerbose         bool
	analyzeDatabaseURL     string
)

// defaultCLIUser identifies offline runs that do not name a user.
const defaultCLIUser = "cli"

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	analyzeCmd.Flags().StringVarP(&analyzeManifest, "manifest", "m", "", "Path to the analysis manifest JSON")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the result JSON to this file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeUserID, "user-id", "", "User whose stored API key should be used")
	analyzeCmd.Flags().StringVar(&analyzeExtractionModel, "extraction-model", "", "Override the model used for field extraction")
	analyzeCmd.Flags().StringVar(&analyzeComparisonModel, "comparison-model", "", "Override the model used for the comparison")
	analyzeCmd.Flags().IntVar(&analyzeMaxConcurrency, "max-concurrency", 0, "Parallel downloads and extractions")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print a summary of the analysis to stderr")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	analyzeCmd.Flags().StringVar(&analyzeDatabaseURL, "db-url", "", "PostgreSQL connection URL for stored API keys (optional)")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	// Step 1: Load config file if provided
	var cfg config.Config
	if analyzeConfigPath != "" {
		loaded, err := config.LoadConfig(analyzeConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides for flags that were explicitly set
	if cmd.Flags().Changed("manifest") {
		cfg.Manifest = analyzeManifest
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = analyzeOutput
	}
	if cmd.Flags().Changed("user-id") {
		cfg.UserID = analyzeUserID
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = analyzeAPIKey
	}
	if cmd.Flags().Changed("extraction-model") {
		cfg.ExtractionModel = analyzeExtractionModel
	}
	if cmd.Flags().Changed("comparison-model") {
		cfg.ComparisonModel = analyzeComparisonModel
	}
	if cmd.Flags().Changed("max-concurrency") {
		cfg.MaxConcurrency = analyzeMaxConcurrency
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = analyzeVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = analyzeDatabaseURL
	}

	// Step 3: Fill the rest from the environment and defaults
	cfg = cfg.MergeWithDefaults(config.Config{
		UserID:      defaultCLIUser,
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Manifest == "" {
		return fmt.Errorf("--manifest is required")
	}

	ctx := context.Background()

	var settings credentials.SettingsStore
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		settings = database
	}

	llmConfig := llm.DefaultConfig().
		WithModel(llm.TierStandard, cfg.ExtractionModel).
		WithModel(llm.TierAdvanced, cfg.ComparisonModel)
	clients := llm.NewCachingFactory(llmConfig, resilience.NewExecutor(resilience.DefaultConfig()))
	defer func() { _ = clients.Close() }()

	out := io.Writer(os.Stdout)
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return runAnalysis(ctx, cfg, analysisDeps{
		settings: settings,
		clients:  clients,
	}, out, os.Stderr)
}

// analysisDeps are the swappable collaborators of runAnalysis.
type analysisDeps struct {
	settings credentials.SettingsStore
	clients  llm.ClientFactory
	download analysis.DownloadFunc
}

// runAnalysis reviews the manifest named by cfg and writes the result JSON to out.
// Verbose summaries go to diag.
func runAnalysis(ctx context.Context, cfg config.Config, deps analysisDeps, out, diag io.Writer) error {
	m, err := loadManifest(cfg.Manifest)
	if err != nil {
		return err
	}
	store := newManifestStore(m)

	printer := observability.NewPrinter(diag)
	if cfg.Verbose {
		printer.PrintDocuments(m.Documents)
	}

	service := analysis.NewService(analysis.Dependencies{
		Documents:   store,
		Rules:       store,
		Credentials: credentials.NewResolver(deps.settings, cfg.APIKey),
		Clients:     deps.clients,
		Download:    deps.download,
	}, analysis.Options{MaxConcurrency: cfg.MaxConcurrency})

	resp, err := service.Analyze(ctx, store.request(cfg.UserID))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Verbose {
		printer.PrintAnalysis(resp)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
