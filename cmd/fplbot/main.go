package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/fplbot/config"
	"github.com/alejandrodnm/fplbot/internal/adapters/fpl"
	"github.com/alejandrodnm/fplbot/internal/adapters/notify"
	"github.com/alejandrodnm/fplbot/internal/adapters/solver"
	"github.com/alejandrodnm/fplbot/internal/adapters/storage"
	"github.com/alejandrodnm/fplbot/internal/application/assistant"
	"github.com/alejandrodnm/fplbot/internal/application/squad"
	"github.com/alejandrodnm/fplbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	dryRun := flag.Bool("dry-run", false, "read players from the local fixture and skip storage")
	squadFlag := flag.String("squad", "", "current squad as comma-separated player ids (default: optimize from scratch)")
	compareFlag := flag.String("compare", "", "comma-separated player ids for the radar comparison")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	history := flag.Int("history", 0, "print the stored runs of the last N days and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	squadIDs, err := parseIDs(*squadFlag)
	if err != nil {
		slog.Error("invalid -squad", "err", err)
		os.Exit(2)
	}
	compareIDs, err := parseIDs(*compareFlag)
	if err != nil {
		slog.Error("invalid -compare", "err", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history > 0 {
		if err := runHistory(ctx, cfg.Storage.DSN, *history, notify.NewConsole(true)); err != nil {
			slog.Error("history failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("fplbot starting",
		"config", *configPath,
		"interval", cfg.Interval(),
		"dry_run", *dryRun,
		"once", *once,
		"budget", cfg.League.Budget,
		"solver_timeout", cfg.SolverTimeout(),
	)

	var (
		players ports.PlayerProvider
		source  string
	)
	if *dryRun {
		players = fpl.NewFileProvider(cfg.API.FixturePath)
		source = "file:" + cfg.API.FixturePath
	} else {
		players = fpl.NewClient(cfg.API.BaseURL)
		source = cfg.API.BaseURL
	}

	var store ports.Storage
	if !*dryRun {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	optimizer := squad.New(squad.Config{
		Rules:    cfg.Rules(),
		Timeout:  cfg.SolverTimeout(),
		Presolve: !cfg.Solver.NoPresolve,
	}, solver.NewBranchAndBound(solver.Config{MaxNodes: cfg.Solver.MaxNodes}))

	a := assistant.New(assistant.Config{
		Interval:   cfg.Interval(),
		Once:       *once || *dryRun,
		Source:     source,
		SquadIDs:   squadIDs,
		CompareIDs: compareIDs,
		TopN:       cfg.Assistant.TopN,
		Transfers:  cfg.TransferRules(),
	}, players, optimizer, store, notify.NewConsole(*table))

	if err := a.Run(ctx); err != nil {
		slog.Error("assistant exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("fplbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Las tablas van a stdout; los logs a stderr para no mezclarlos.
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
