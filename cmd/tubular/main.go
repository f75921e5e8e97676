// ABOUTME: CLI entrypoint for the tubular chatbot with ingest, chat, TUI, server, and storage modes.
// ABOUTME: Wires together the transcript pipeline, vector index, retention cleaner, and signal handling.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tubular-ai/tubular/chatbot"
	"github.com/tubular-ai/tubular/chunk"
	"github.com/tubular-ai/tubular/config"
	"github.com/tubular-ai/tubular/index"
	"github.com/tubular-ai/tubular/internal/logger"
	"github.com/tubular-ai/tubular/llm"
	"github.com/tubular-ai/tubular/rag"
	"github.com/tubular-ai/tubular/storage"
	"github.com/tubular-ai/tubular/tui"
	"github.com/tubular-ai/tubular/web"
	"github.com/tubular-ai/tubular/youtube"
)

var version = "dev"

// cliConfig holds all CLI configuration parsed from flags and positional arguments.
type cliConfig struct {
	addMode     bool
	chatMode    bool
	tuiMode     bool
	statsMode   bool
	storageMode bool
	cleanupMode bool
	dryRun      bool
	yes         bool
	deleteID    string
	resetMode   bool
	serverMode  bool
	port        int
	dataDir     string
	verbose     bool
	showVersion bool
	urls        []string
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("tubular %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated cliConfig.
func parseFlags() cliConfig {
	var cfg cliConfig

	fs := flag.NewFlagSet("tubular", flag.ContinueOnError)
	fs.BoolVar(&cfg.addMode, "add", false, "Ingest the given video URLs")
	fs.BoolVar(&cfg.chatMode, "chat", false, "Interactive terminal chat")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Interactive full-screen chat")
	fs.BoolVar(&cfg.statsMode, "stats", false, "Show knowledge base statistics")
	fs.BoolVar(&cfg.storageMode, "storage", false, "Show run directories and disk usage")
	fs.BoolVar(&cfg.cleanupMode, "cleanup", false, "Delete old run directories per retention policy")
	fs.BoolVar(&cfg.dryRun, "dry-run", false, "Preview cleanup without deleting")
	fs.BoolVar(&cfg.yes, "yes", false, "Skip confirmation prompts")
	fs.StringVar(&cfg.deleteID, "delete", "", "Remove one video from the index")
	fs.BoolVar(&cfg.resetMode, "reset", false, "Clear the index")
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.IntVar(&cfg.port, "port", 8087, "Server port (default: 8087)")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for persistent state (default: $XDG_DATA_HOME/tubular)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg.urls = fs.Args()

	return cfg
}

// run dispatches to the appropriate mode based on the parsed flags.
// Returns an exit code: 0 for success, 1 for failure.
func run(cli cliConfig) int {
	dataDir, err := resolveDataDir(cli.dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	level := slog.LevelInfo
	if cli.verbose {
		level = slog.LevelDebug
	}
	log, closeLog := logger.Setup(logger.Config{Level: level, File: cfg.LogFile})
	defer closeLog()

	// Storage modes need no API key and no run directory of their own.
	if cli.storageMode {
		return showStorage(cfg)
	}
	if cli.cleanupMode {
		return runCleanup(cfg, cli.dryRun, cli.yes, log)
	}

	hasWork := cli.addMode || cli.chatMode || cli.tuiMode || cli.statsMode ||
		cli.serverMode || cli.resetMode || cli.deleteID != ""
	if !hasWork {
		printHelp(os.Stderr, version)
		return 0
	}

	if cli.statsMode && !cli.addMode && !cli.chatMode && !cli.tuiMode && !cli.serverMode {
		return showStats(cfg)
	}

	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "error: no LLM API key found")
		fmt.Fprintln(os.Stderr, "Set GROQ_API_KEY or OPENAI_API_KEY")
		return 1
	}

	bot, coll, err := buildBot(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer coll.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if cli.addMode {
		if code := runAdd(ctx, bot, cli.urls); code != 0 {
			return code
		}
	}
	if cli.deleteID != "" {
		if code := runDelete(ctx, bot, cli.deleteID); code != 0 {
			return code
		}
	}
	if cli.resetMode {
		if code := runReset(ctx, bot, cli.yes); code != 0 {
			return code
		}
	}
	if cli.statsMode {
		printStats(ctx, bot)
	}

	switch {
	case cli.serverMode:
		return runServer(ctx, cfg, bot, cli.port, log)
	case cli.tuiMode:
		if err := tui.Run(ctx, bot); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	case cli.chatMode:
		return runChat(ctx, bot)
	}

	return 0
}

// buildBot wires the full ingest and answering pipeline for the current run.
func buildBot(cfg *config.Config, log *slog.Logger) (*chatbot.Chatbot, *index.Collection, error) {
	if _, err := storage.NewRunDir(cfg.RunsRoot(), cfg.RunID); err != nil {
		return nil, nil, fmt.Errorf("create run directory: %w", err)
	}

	coll, err := index.Open(cfg.IndexPath())
	if err != nil {
		return nil, nil, err
	}

	client, err := llm.New(llm.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		Model:            cfg.LLMModel,
		EmbeddingModel:   cfg.EmbeddingModel,
		EmbeddingBaseURL: cfg.EmbeddingBaseURL,
		EmbeddingAPIKey:  cfg.EmbeddingAPIKey,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
	})
	if err != nil {
		coll.Close()
		return nil, nil, err
	}

	engine, err := rag.New(client, client, coll, cfg.TopK)
	if err != nil {
		coll.Close()
		return nil, nil, err
	}

	splitter, err := chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		coll.Close()
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.TranscriptsDir, 0o755); err != nil {
		log.Warn("could not create transcripts dir", "path", cfg.TranscriptsDir, "error", err)
		cfg.TranscriptsDir = ""
	}

	bot, err := chatbot.New(chatbot.Options{
		Source:        youtube.NewClient(),
		Splitter:      splitter,
		Embedder:      client,
		Collection:    coll,
		Engine:        engine,
		TranscriptDir: cfg.TranscriptsDir,
		Logger:        log,
	})
	if err != nil {
		coll.Close()
		return nil, nil, err
	}
	return bot, coll, nil
}

// newCleaner builds the retention cleaner for the configured runs root.
func newCleaner(cfg *config.Config) *storage.Cleaner {
	reg := storage.NewRegistry(cfg.RunsRoot(), cfg.RunID)
	return storage.NewCleaner(reg, storage.Policy{
		Enabled: cfg.Cleanup.Enabled,
		Days:    cfg.Cleanup.RetentionDays,
		Count:   cfg.Cleanup.RetentionCount,
		Mode:    storage.ParseMode(cfg.Cleanup.RetentionMode),
	})
}

// runAdd ingests the given URLs and prints a per-video summary.
func runAdd(ctx context.Context, bot *chatbot.Chatbot, urls []string) int {
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "error: -add requires at least one video URL")
		return 1
	}

	batch := bot.AddVideos(ctx, urls)
	for _, res := range batch.Results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", res.URL, res.Err)
			continue
		}
		fmt.Printf("added %s (%d chunks, avg %.0f chars)\n",
			res.VideoID, res.ChunksAdded, res.Stats.AvgChunkSize)
	}
	fmt.Printf("%d/%d videos ingested\n", batch.Successful, batch.Total)

	if batch.Successful == 0 {
		return 1
	}
	return 0
}

func runDelete(ctx context.Context, bot *chatbot.Chatbot, videoID string) int {
	n, err := bot.DeleteVideo(ctx, videoID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("deleted %d chunks for video %s\n", n, videoID)
	return 0
}

func runReset(ctx context.Context, bot *chatbot.Chatbot, yes bool) int {
	if !yes && !confirm("Clear the entire knowledge base?") {
		fmt.Println("aborted")
		return 0
	}
	if err := bot.Reset(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("knowledge base cleared")
	return 0
}

// showStats prints knowledge base statistics without requiring an API key.
func showStats(cfg *config.Config) int {
	if _, err := storage.NewRunDir(cfg.RunsRoot(), cfg.RunID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	coll, err := index.Open(cfg.IndexPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer coll.Close()

	stats, err := coll.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	printIndexStats(stats)
	return 0
}

func printStats(ctx context.Context, bot *chatbot.Chatbot) {
	stats, err := bot.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	printIndexStats(stats)
}

func printIndexStats(stats index.Stats) {
	fmt.Println("Knowledge Base Statistics:")
	fmt.Printf("  Total documents: %d\n", stats.TotalDocuments)
	fmt.Printf("  Unique videos: %d\n", stats.UniqueVideos)
	if len(stats.VideoIDs) > 0 {
		fmt.Printf("  Video IDs: %s\n", strings.Join(stats.VideoIDs, ", "))
	}
}

// showStorage prints every run directory with its size and age.
func showStorage(cfg *config.Config) int {
	stats := newCleaner(cfg).StorageStats()

	fmt.Printf("Storage under %s:\n", cfg.RunsRoot())
	fmt.Printf("  Runs: %d\n", stats.TotalRuns)
	fmt.Printf("  Total size: %s\n", stats.TotalSizeHuman)
	for _, rs := range stats.Runs {
		marker := " "
		if rs.Run.IsCurrent {
			marker = "*"
		}
		fmt.Printf("  %s run_%s  %8s  %.1f days old\n", marker, rs.Run.ID, rs.SizeHuman, rs.Run.AgeDays)
	}
	return 0
}

// runCleanup previews, confirms, and executes a retention cleanup pass.
func runCleanup(cfg *config.Config, dryRun, yes bool, log *slog.Logger) int {
	cleaner := newCleaner(cfg)

	preview := cleaner.Cleanup(true)
	if preview.DeletedCount == 0 {
		fmt.Println("nothing to clean up")
		return 0
	}

	fmt.Printf("%d run(s) eligible for deletion (%s):\n", preview.DeletedCount, preview.SpaceFreedHuman)
	for _, id := range preview.DeletedRuns {
		fmt.Printf("  run_%s\n", id)
	}

	if dryRun {
		fmt.Println("dry run, nothing deleted")
		return 0
	}
	if !yes && !confirm(fmt.Sprintf("Delete %d run(s)?", preview.DeletedCount)) {
		fmt.Println("aborted")
		return 0
	}

	result := cleaner.Cleanup(false)
	for _, re := range result.Errors {
		log.Warn("cleanup error", "run_id", re.RunID, "error", re.Message)
	}
	fmt.Printf("deleted %d run(s), freed %s\n", result.DeletedCount, result.SpaceFreedHuman)
	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "%d run(s) could not be deleted\n", len(result.Errors))
		return 1
	}
	return 0
}

// runChat runs the plain terminal REPL.
func runChat(ctx context.Context, bot *chatbot.Chatbot) int {
	fmt.Println("tubular interactive chat")
	fmt.Println("Type a question, 'stats' for knowledge base info, 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println()
			return 0
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit", "bye":
			fmt.Println("Goodbye!")
			return 0
		case "stats":
			printStats(ctx, bot)
			continue
		}

		answer, err := bot.Ask(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\nAssistant: %s\n", answer.Text)
		if footer := rag.FormatSources(answer.Sources); footer != "" {
			fmt.Println()
			fmt.Println(footer)
		}
		fmt.Println()
	}
}

// runServer starts the HTTP server with graceful shutdown on SIGINT/SIGTERM.
func runServer(ctx context.Context, cfg *config.Config, bot *chatbot.Chatbot, port int, log *slog.Logger) int {
	schedule := ""
	if cfg.Cleanup.Enabled {
		schedule = cfg.Cleanup.Schedule
	}

	server, err := web.NewServer(bot, newCleaner(cfg), web.Config{
		Addr:            fmt.Sprintf("127.0.0.1:%d", port),
		CleanupSchedule: schedule,
		Logger:          log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	server.StartScheduler()
	defer server.StopScheduler()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	log.Info("server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// confirm prompts on stdout and reads a y/N answer from stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
