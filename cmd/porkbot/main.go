package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/porkreport/porkbot/internal/config"
	"github.com/porkreport/porkbot/internal/cooldown"
	"github.com/porkreport/porkbot/internal/cycle"
	"github.com/porkreport/porkbot/internal/database"
	"github.com/porkreport/porkbot/internal/generate"
	"github.com/porkreport/porkbot/internal/publish"
	"github.com/porkreport/porkbot/internal/queue"
	"github.com/porkreport/porkbot/internal/ratelimit"
	"github.com/porkreport/porkbot/internal/research"
	"github.com/porkreport/porkbot/internal/safety"
	"github.com/porkreport/porkbot/internal/scoring"
	"github.com/porkreport/porkbot/internal/server"
	"github.com/porkreport/porkbot/internal/trends"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "porkbot",
	Short:   "Congressional spending satire, on a schedule",
	Long:    "PorkBot tracks legislative spending trends, scores them, and publishes satirical posts that clear a layered safety review.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("porkbot", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/porkbot/",
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
		fmt.Println("Edit it to configure feeds, API keys, and schedules.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Trends:")
		fmt.Printf("  Tracked: %d\n", stats.TrendsTracked)
		fmt.Printf("  Unused: %d\n", stats.UnusedTrends)
		fmt.Println("\nPosts:")
		fmt.Printf("  Draft: %d\n", stats.DraftPosts)
		fmt.Printf("  Queued: %d\n", stats.QueuedPosts)
		fmt.Printf("  Posted: %d\n", stats.PostedPosts)
		fmt.Printf("  Rejected: %d\n", stats.RejectedPosts)
		fmt.Println("\nCycles:")
		fmt.Printf("  Run: %d\n", stats.CyclesRun)
		fmt.Printf("  Failed: %d\n", stats.FailedCycles)
		cutoff := database.FormatTime(time.Now().UTC().Add(-7 * 24 * time.Hour))
		rate, err := db.RejectionRate(cutoff)
		if err != nil {
			return fmt.Errorf("computing rejection rate: %w", err)
		}

		fmt.Println("\nSafety:")
		fmt.Printf("  Evaluations: %d\n", stats.SafetyChecks)
		fmt.Printf("  Rejection rate (7d): %.0f%%\n", rate*100)
		fmt.Printf("  Pending batches: %d\n", stats.PendingBatches)
		return nil
	},
}

// --- scan command ---

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle: ingest signals and refresh tracked trends",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, err := buildOrchestrator(db)
		if err != nil {
			return err
		}
		if err := orch.RunScanCycle(cmd.Context()); err != nil {
			return err
		}

		unused, err := db.GetRecentTrends(10)
		if err != nil {
			return err
		}
		fmt.Println("Top tracked trends:")
		for _, t := range unused {
			used := " "
			if t.Used {
				used = "x"
			}
			fmt.Printf("  [%s] %-30s volume %d, %d source(s)\n", used, t.Topic, t.Volume, len(t.Sources))
		}
		return nil
	},
}

// --- cycle command ---

var dryRun bool

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one post cycle: score, generate, gate, and dispatch",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, err := buildOrchestrator(db)
		if err != nil {
			return err
		}

		if dryRun {
			if err := orch.DryRun(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Dry run: nothing was generated or published.")
			return nil
		}

		if err := orch.RunPostCycle(cmd.Context()); err != nil {
			return err
		}

		cycles, err := db.GetRecentCycles(1)
		if err != nil {
			return err
		}
		if len(cycles) == 1 {
			c := cycles[0]
			fmt.Printf("Cycle complete: %d scanned, %d engaged, %d posted\n", c.Scanned, c.Engaged, c.Posted)
			if c.Topic != nil {
				fmt.Printf("Topic: %s\n", *c.Topic)
			}
		}
		return nil
	},
}

func init() {
	cycleCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log instead of publishing")
}

// --- daemon command ---

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scan and post cycles on their configured schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, err := buildOrchestrator(db)
		if err != nil {
			return err
		}
		daemon, err := cycle.NewDaemon(orch, cfg.Schedules.Scan, cfg.Schedules.Post)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Daemon running (scan %q, post %q). Press Ctrl+C to stop.\n",
			cfg.Schedules.Scan, cfg.Schedules.Post)
		if err := daemon.Run(ctx); err != context.Canceled {
			return err
		}
		return nil
	},
}

// --- queue command ---

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the review backlog",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued posts in dispatch order",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		posts, err := queue.New(db).Peek(50)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			fmt.Println("The queue is empty.")
			return nil
		}

		for _, p := range posts {
			topic := ""
			if p.TrendTopic != nil {
				topic = *p.TrendTopic
			}
			fmt.Printf("[%d] engagement %d  %s\n", p.ID, p.EngagementScore, topic)
			fmt.Printf("    %s\n", p.Content)
		}
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Revert all queued posts to draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := queue.New(db).Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Reverted %d post(s) to draft.\n", n)
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueClearCmd)
}

// --- batches commands ---

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Manage asynchronous generator batches",
}

var batchesSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit unused trends as a generator batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		bg, err := batchGenerator()
		if err != nil {
			return err
		}

		recent, err := db.GetRecentTrends(25)
		if err != nil {
			return err
		}
		var requests []generate.PromptContext
		for _, t := range recent {
			if t.Used {
				continue
			}
			requests = append(requests, generate.PromptContext{
				Topic:       t.Topic,
				SourceLinks: t.Sources,
			})
		}
		if len(requests) == 0 {
			fmt.Println("No unused trends to submit.")
			return nil
		}

		batchID, err := generate.NewBatches(db).Submit(cmd.Context(), bg, requests)
		if err != nil {
			return err
		}
		fmt.Printf("Submitted batch %s with %d request(s).\n", batchID, len(requests))
		return nil
	},
}

var batchesPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll submitted batches and resolve the finished ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		bg, err := batchGenerator()
		if err != nil {
			return err
		}

		resolved, err := generate.NewBatches(db).PollPending(cmd.Context(), bg)
		if err != nil {
			return err
		}
		fmt.Printf("Resolved %d batch(es).\n", resolved)
		return nil
	},
}

var batchesShowCmd = &cobra.Command{
	Use:   "show <batch-id>",
	Short: "Print the recorded requests of a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		requests, err := generate.NewBatches(db).Requests(args[0])
		if err != nil {
			return err
		}
		for i, pc := range requests {
			fmt.Printf("[%d] %s\n", i, pc.Topic)
			for _, link := range pc.SourceLinks {
				fmt.Printf("    %s\n", link)
			}
		}
		return nil
	},
}

// batchGenerator builds the configured generator, requiring batch support
// and a configured API key.
func batchGenerator() (generate.BatchGenerator, error) {
	generator := generate.NewOpenAIGenerator(cfg.Generator.Model, cfg.Generator.BaseURL, cfg.Generator.APIKeyEnv)
	if !generator.IsConfigured() {
		return nil, fmt.Errorf("%s not set", cfg.Generator.APIKeyEnv)
	}
	return generator, nil
}

func init() {
	batchesCmd.AddCommand(batchesSubmitCmd)
	batchesCmd.AddCommand(batchesPollCmd)
	batchesCmd.AddCommand(batchesShowCmd)
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local review console",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		postLimiter, err := ratelimit.New("post", cfg.Limits.Post.Capacity, cfg.Limits.Post.RefillPerHour/3600)
		if err != nil {
			return err
		}
		topicWindow := time.Duration(cfg.Cooldowns.TopicHours) * time.Hour
		fmt.Printf("Starting review console at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, publish.LogPublisher{}, postLimiter, topicWindow, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// buildOrchestrator wires the configured adapters, scoring, safety pipeline,
// and limiters into a cycle orchestrator.
func buildOrchestrator(db *database.DB) (*cycle.Orchestrator, error) {
	feeds := make([]trends.FeedConfig, 0, len(cfg.Sources.Feeds))
	for _, f := range cfg.Sources.Feeds {
		feeds = append(feeds, trends.FeedConfig{URL: f.URL, Name: f.Name})
	}
	adapters := []trends.Adapter{
		trends.NewFeedAdapter(feeds, cfg.Trends.Watch, cfg.Trends.DaysBack),
	}
	if cfg.Sources.Congress.Enabled {
		adapters = append(adapters, trends.NewCongressAdapter(cfg.Sources.Congress.BaseURL, cfg.Sources.Congress.APIKeyEnv))
	}

	boostMode, err := trends.ParseBoostMode(cfg.Trends.BoostMode)
	if err != nil {
		return nil, err
	}

	denylist, err := safety.NewDenylist(cfg.Safety.DenylistKeywords, cfg.Safety.DenylistPatterns)
	if err != nil {
		return nil, err
	}

	postLimiter, err := ratelimit.New("post", cfg.Limits.Post.Capacity, cfg.Limits.Post.RefillPerHour/3600)
	if err != nil {
		return nil, err
	}
	readLimiter, err := ratelimit.New("read", cfg.Limits.Read.Capacity, cfg.Limits.Read.RefillPerHour/3600)
	if err != nil {
		return nil, err
	}

	generator := generate.NewOpenAIGenerator(cfg.Generator.Model, cfg.Generator.BaseURL, cfg.Generator.APIKeyEnv)
	if !generator.IsConfigured() {
		log.Printf("Warning: %s not set; generation will fail", cfg.Generator.APIKeyEnv)
	}

	return cycle.New(cycle.Deps{
		DB:        db,
		Adapters:  adapters,
		BoostMode: boostMode,
		Keywords: scoring.Keywords{
			High:   cfg.Scoring.HighKeywords,
			Medium: cfg.Scoring.MediumKeywords,
		},
		Peak: scoring.PeakWindow{
			StartHour: cfg.Scoring.PeakStartHour,
			EndHour:   cfg.Scoring.PeakEndHour,
		},
		SessionFeed:    scoring.NewSessionFeed(cfg.Sources.SessionFeedURL),
		Safety:         safety.NewPipeline(db, denylist, generator, cfg.SafetyThresholds()),
		TopicCooldown:  cooldown.NewTopicTracker(db),
		TopicWindow:    time.Duration(cfg.Cooldowns.TopicHours) * time.Hour,
		AuthorCooldown: cooldown.NewAuthorTracker(db),
		AuthorWindow:   time.Duration(cfg.Cooldowns.AuthorHours) * time.Hour,
		PostLimiter:    postLimiter,
		Fetcher:        research.NewFetcher(30*time.Second, readLimiter),
		Generator:      generator,
		Publisher:      publish.LogPublisher{},
		Queue:          queue.New(db),
		TrendExpiry:    time.Duration(cfg.Trends.ExpireHours) * time.Hour,
	}), nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "porkbot.db")
	return database.Open(dbPath)
}
