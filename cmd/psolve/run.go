package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/Konard/problem-solving/internal/config"
	"github.com/Konard/problem-solving/internal/generate"
	"github.com/Konard/problem-solving/internal/resilient"
	"github.com/Konard/problem-solving/internal/search"
	psignal "github.com/Konard/problem-solving/internal/signal"
	"github.com/Konard/problem-solving/internal/state"
	"github.com/Konard/problem-solving/internal/track"
	"github.com/Konard/problem-solving/internal/workflow"
)

var (
	runDryRun      bool
	runHeadless    bool
	runTrackerMode string
	runConcurrency int
	runMaxAttempts int
	runFreeform    bool
)

var runCmd = &cobra.Command{
	Use:   "run [task description]",
	Short: "Decompose a task and search for solutions",
	Long: `Run the full pipeline on a task: decompose it into subtasks,
search for test and solution artifacts for each one, and compose
the usable solutions into a single deliverable.

The task description is free text; quote it or let the shell pass
it as multiple arguments.

Examples:
  psolve run "Build a rate limiter for the ingest API"
  psolve run --dry-run "Try the pipeline without an API key"
  psolve run --tracker github --headless "Ship the importer"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "use a canned generator and in-memory tracker (no API calls)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "plain text output instead of the interactive TUI")
	runCmd.Flags().StringVar(&runTrackerMode, "tracker", "", "tracker backend: dryrun, local, or github (default: from config)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "parallel artifact searches (default: from config)")
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "generator attempts per artifact search (default: from config)")
	runCmd.Flags().BoolVar(&runFreeform, "freeform-merge", false, "ask the generator to merge artifacts instead of concatenating")
}

func runTask(cmd *cobra.Command, args []string) error {
	taskText := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	if cfg.Timeouts.Run > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, cfg.Timeouts.Run)
		defer tcancel()
	}

	gen, err := buildGenerator(cfg, runDryRun)
	if err != nil {
		return err
	}

	mode, err := resolveTrackerMode(runDryRun, runTrackerMode, cfg.Defaults.Tracker)
	if err != nil {
		return err
	}

	tracker, closeTracker, err := buildTracker(cfg, mode, cwd)
	if err != nil {
		return err
	}
	if closeTracker != nil {
		defer closeTracker()
	}

	store, err := state.OpenProject(cwd)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate state store: %w", err)
	}

	logger := workflow.NewDebugLoggerForWorkspace(cwd)
	defer logger.Close()

	ruleCfg := search.DefaultRuleConfig()
	if cfg.Search.RulesPath != "" {
		ruleCfg, err = search.LoadRuleConfig(cfg.Search.RulesPath)
		if err != nil {
			return fmt.Errorf("load validation rules: %w", err)
		}
	}

	maxAttempts := cfg.Defaults.MaxAttempts
	if runMaxAttempts > 0 {
		maxAttempts = runMaxAttempts
	}
	concurrency := cfg.Defaults.Concurrency
	if runConcurrency > 0 {
		concurrency = runConcurrency
	}
	freeform := cfg.Defaults.FreeformMerge
	if cmd.Flags().Changed("freeform-merge") {
		freeform = runFreeform
	}

	coord, err := workflow.New(workflow.Config{
		Generator:     gen,
		Tracker:       tracker,
		Logger:        logger,
		Store:         store,
		MaxAttempts:   maxAttempts,
		Concurrency:   concurrency,
		RuleConfig:    ruleCfg,
		FreeformMerge: freeform,
	})
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}

	watcher, err := psignal.Watch(cwd, coord)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: signal watcher unavailable: %v\n", err)
	} else {
		defer watcher.Close()
	}

	if runHeadless {
		return runHeadlessMode(ctx, coord, taskText, mode, maxAttempts, concurrency, cwd)
	}
	return runWithTUI(ctx, coord, taskText, cwd)
}

func runHeadlessMode(ctx context.Context, coord *workflow.Coordinator, taskText, mode string, maxAttempts, concurrency int, workspace string) error {
	go narrateEvents(coord.Events())

	fmt.Printf("Starting task: %s\n", taskText)
	fmt.Printf("  Tracker: %s\n", mode)
	fmt.Printf("  Max attempts: %d\n", maxAttempts)
	fmt.Printf("  Concurrency: %d\n", concurrency)
	fmt.Println()

	summary, err := coord.Run(ctx, taskText)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Run complete: %d/%d solved, %d skipped, %d unresolved (%s)\n",
		summary.Solved, summary.TotalSubtasks, summary.Skipped, summary.Unresolved,
		formatDuration(summary.Elapsed))

	if path, werr := writeComposition(workspace, coord); werr != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not write composed solution: %v\n", werr)
	} else if path != "" {
		fmt.Printf("Composed solution written to %s\n", path)
	}
	return nil
}

// narrateEvents prints workflow events as plain text lines for headless runs.
func narrateEvents(events <-chan workflow.Event) {
	for ev := range events {
		if line := narrateEvent(ev); line != "" {
			fmt.Println(line)
		}
	}
}

// narrateEvent formats a single event, or returns "" for events that
// carry nothing worth printing in headless mode.
func narrateEvent(ev workflow.Event) string {
	switch ev.Type {
	case workflow.EventPhaseStarted:
		return fmt.Sprintf("[PHASE] %s", ev.Phase)
	case workflow.EventSubtaskQueued:
		return fmt.Sprintf("[QUEUED] %s: %s", ev.SubtaskID, ev.Title)
	case workflow.EventSubtaskFinished:
		tag := strings.ToUpper(string(ev.Status))
		if ev.Message != "" {
			return fmt.Sprintf("[%s] %s: %s", tag, ev.SubtaskID, ev.Message)
		}
		return fmt.Sprintf("[%s] %s", tag, ev.SubtaskID)
	case workflow.EventRunCompleted:
		return fmt.Sprintf("[DONE] %s", ev.Message)
	case workflow.EventRunFailed:
		return fmt.Sprintf("[FAILED] %s", ev.Message)
	default:
		return ""
	}
}

// buildGenerator selects the generator backend: a canned static generator
// for dry runs, the Anthropic-backed client otherwise.
func buildGenerator(cfg *config.Config, dryRun bool) (generate.Generator, error) {
	if dryRun {
		return &generate.Static{}, nil
	}

	apiKey, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.Anthropic.UseBedrock {
		return nil, fmt.Errorf("%w\n\nSet it with:\n  export ANTHROPIC_API_KEY=your-key-here\nor:\n  psolve config anthropic.api_key <key>", err)
	}

	return generate.NewClient(generate.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
}

// resolveTrackerMode picks the tracker backend from the dry-run flag, the
// --tracker flag, and the configured default, in that order.
func resolveTrackerMode(dryRun bool, flagMode, cfgMode string) (string, error) {
	mode := cfgMode
	if flagMode != "" {
		mode = flagMode
	}
	if dryRun {
		mode = config.TrackerDryRun
	}
	if mode == "" {
		mode = config.TrackerDryRun
	}
	if !config.ValidTracker(mode) {
		return "", fmt.Errorf("invalid tracker %q: must be dryrun, local, or github", mode)
	}
	return mode, nil
}

// buildTracker constructs the tracker backend for mode. The returned closer
// is nil when the tracker holds no resources.
func buildTracker(cfg *config.Config, tmode, workspace string) (track.Tracker, func() error, error) {
	switch tmode {
	case config.TrackerDryRun:
		return track.NewDryRun(), nil, nil

	case config.TrackerLocal:
		dbPath := filepath.Join(workspace, ".psolve", "track.db")
		local, err := track.NewLocal(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open local tracker: %w", err)
		}
		return local, local.Close, nil

	case config.TrackerGitHub:
		token, err := config.GetGitHubToken(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("%w\n\nSet it with:\n  export GITHUB_TOKEN=your-token\nor:\n  psolve config github.token <token>", err)
		}
		var httpClient *http.Client
		if cfg.Timeouts.Tracker > 0 {
			httpClient = &http.Client{Timeout: cfg.Timeouts.Tracker}
		}
		gh, err := track.NewGitHub(track.GitHubConfig{
			Token:      token,
			Owner:      cfg.GitHub.Owner,
			Repo:       cfg.GitHub.Repo,
			HTTPClient: httpClient,
			Retry:      resilient.DefaultConfig(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build github tracker: %w", err)
		}
		return gh, nil, nil

	default:
		return nil, nil, fmt.Errorf("invalid tracker %q: must be dryrun, local, or github", tmode)
	}
}

// writeComposition saves the composed solution under .psolve/ and returns
// its path. Returns "" when the run produced no composition.
func writeComposition(workspace string, coord *workflow.Coordinator) (string, error) {
	snap := coord.Snapshot()
	if snap.Composition == nil || snap.Composition.Content == "" {
		return "", nil
	}

	dir := filepath.Join(workspace, ".psolve")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "solution.md")
	if err := os.WriteFile(path, []byte(snap.Composition.Content), 0644); err != nil {
		return "", err
	}
	return path, nil
}
