package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/inboxlens/inboxlens/internal/analyze"
	"github.com/inboxlens/inboxlens/internal/cache"
	"github.com/inboxlens/inboxlens/internal/gmail"
	"github.com/inboxlens/inboxlens/internal/rate"
	"github.com/inboxlens/inboxlens/internal/runtime"
)

type config struct {
	configDir   string
	gmailctlDir string
	days        int
	query       string
	topSenders  int
	topSubjects int
	jsonOut     string
	pageSize    int
	rps         int
	batchSize   int
	noCache     bool
	clearCache  bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("inboxlens failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	configDir := flag.String("config",
		os.ExpandEnv("$HOME/.config/inboxlens"), "directory for credentials and cache")
	gmailctlDir := flag.String("gmailctl", "",
		"reuse gmailctl credentials from this directory instead of a standalone OAuth flow")
	days := flag.Int("days", 90, "lookback window in days")
	query := flag.String("query", "", "raw Gmail query overriding the lookback window")
	topSenders := flag.Int("top", 20, "number of sender groups to report")
	topSubjects := flag.Int("top-subjects", 100, "number of subject groups to report")
	jsonOut := flag.String("json", "", "write JSON report to path")
	pageSize := flag.Int("page-size", 500, "Gmail list page size (<=500)")
	rps := flag.Int("rps", 4, "max requests per second")
	batchSize := flag.Int("batch", 100, "analysis batch size")
	noCache := flag.Bool("no-cache", false, "skip the session message cache")
	clearCache := flag.Bool("clear-cache", false, "wipe the session message cache and exit")
	flag.Parse()

	return config{
		configDir:   *configDir,
		gmailctlDir: *gmailctlDir,
		days:        *days,
		query:       *query,
		topSenders:  *topSenders,
		topSubjects: *topSubjects,
		jsonOut:     *jsonOut,
		pageSize:    *pageSize,
		rps:         *rps,
		batchSize:   *batchSize,
		noCache:     *noCache,
		clearCache:  *clearCache,
	}
}

func run(cfg config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	var store *cache.SQLiteStore
	if !cfg.noCache || cfg.clearCache {
		var err error
		store, err = cache.NewSQLiteStore(filepath.Join(cfg.configDir, "cache.db"))
		if err != nil {
			return fmt.Errorf("open session cache: %w", err)
		}
		defer func() { _ = store.Close() }()
	}
	if cfg.clearCache {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		logger.Info("session cache cleared")
		return nil
	}

	client, err := runtime.NewGmailClient(ctx, runtime.AuthOptions{
		GmailctlDir: cfg.gmailctlDir,
		ConfigDir:   cfg.configDir,
	})
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var limiter rate.Limiter
	if cfg.rps > 0 {
		limiter = rate.NewQuotaLimiter(cfg.rps * rate.UnitsGet)
	}

	query := gmail.Query{Raw: cfg.query}
	if query.Raw == "" {
		query.Raw = fmt.Sprintf("newer_than:%dd", cfg.days)
	}

	fetcher := &gmail.Fetcher{
		Client:   client,
		Limiter:  limiter,
		Logger:   logger,
		PageSize: cfg.pageSize,
		Progress: func(fetched, total int) {
			if fetched%500 == 0 || fetched == total {
				logger.Info("fetching messages",
					slog.Int("fetched", fetched), slog.Int("total", total))
			}
		},
	}
	if store != nil {
		fetcher.Store = store
	}

	start := time.Now()
	msgs, err := fetcher.Fetch(ctx, query)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	logger.Info("fetched messages",
		slog.Int("count", len(msgs)),
		slog.Duration("elapsed", time.Since(start)))

	assembler := analyze.NewAssembler(logger)
	rep, err := assembler.Assemble(msgs, analyze.Options{
		BatchSize:   cfg.batchSize,
		TopSenders:  cfg.topSenders,
		TopSubjects: cfg.topSubjects,
		Progress: func(p analyze.Progress) {
			if p.Percentage%25 == 0 {
				logger.Debug("analyzing",
					slog.Int("processed", p.Processed), slog.Int("total", p.Total))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}

	if printErr := analyze.PrintHuman(rep, os.Stdout); printErr != nil {
		return fmt.Errorf("print report: %w", printErr)
	}
	if cfg.jsonOut == "" {
		return nil
	}
	if writeErr := analyze.WriteJSON(rep, cfg.jsonOut); writeErr != nil {
		return fmt.Errorf("write json: %w", writeErr)
	}
	return nil
}
