package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/config"
	"github.com/tatianab/idolab/internal/engine"
	"github.com/tatianab/idolab/internal/journal"
	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/narrator"
	"github.com/tatianab/idolab/internal/rules"
	"github.com/tatianab/idolab/internal/tui"
	"github.com/tatianab/idolab/internal/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	var (
		webMode     = flag.Bool("web", false, "serve the game over HTTP instead of the console")
		port        = flag.Int("port", cfg.Port, "HTTP port for --web")
		load        = flag.String("load", "", "resume the named save instead of starting a new game")
		balanceFile = flag.String("balance", cfg.BalanceFile, "YAML file overriding the default balance")
	)
	flag.Parse()

	logger, closeLog, err := newLogger(*webMode, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		return 1
	}
	defer closeLog()

	models.SaveDir = cfg.SaveDir

	b := balance.Default()
	if *balanceFile != "" {
		if b, err = balance.Load(*balanceFile); err != nil {
			logger.Error("load balance", "err", err)
			fmt.Fprintf(os.Stderr, "Error loading balance: %v\n", err)
			return 1
		}
	}

	var w *models.World
	if *load != "" {
		if w, err = models.LoadSession(*load); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading save %q: %v\n", *load, err)
			return 1
		}
		logger.Info("save loaded", "name", *load, "game", w.GameID, "turn", w.Calendar.Turn)
	} else {
		seed := cfg.Seed
		if !cfg.SeedSet {
			seed = uint64(time.Now().UnixNano())
		}
		w = rules.NewGame(cfg.Company, seed, b)
		logger.Info("new game", "game", w.GameID, "seed", seed, "company", cfg.Company)
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	var j *journal.Journal
	if cfg.JournalPath != "" {
		if j, err = journal.Open(cfg.JournalPath); err != nil {
			logger.Error("open journal", "err", err)
			fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
			return 1
		}
		defer j.Close()
		// A loaded save may predate later journaled actions, so it is
		// journaled as a branch by Restore below.
		if *load == "" {
			if err := j.StartGame(journal.Game{ID: w.GameID, Seed: w.Seed, Company: w.Company.Name, StartedAt: time.Now()}); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing journal: %v\n", err)
				return 1
			}
		}
		opts = append(opts, engine.WithRecorder(j, 0))
	}
	eng := engine.NewEngine(w, b, opts...)
	if j != nil && *load != "" {
		if err := eng.Restore(w); err != nil {
			logger.Error("journal branch", "err", err)
			fmt.Fprintf(os.Stderr, "Error writing journal: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *webMode {
		srv := web.NewServer(eng, b, logger)
		if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", *port)); err != nil {
			logger.Error("web bridge stopped", "err", err)
			fmt.Fprintf(os.Stderr, "Error running web bridge: %v\n", err)
			return 1
		}
		if err := eng.CurrentView().Save("autosave"); err != nil {
			logger.Warn("autosave on shutdown failed", "err", err)
		}
		logger.Info("shut down")
		return 0
	}

	var press tui.Press
	if cfg.GeminiAPIKey != "" {
		n, err := narrator.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("narrator unavailable", "err", err)
		} else {
			defer n.Close()
			press = n
		}
	}

	if err := tui.Run(eng, b, press, true); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		return 1
	}
	return 0
}

// newLogger writes to stderr in web mode. The console owns the terminal, so
// there logs go to logFile or nowhere.
func newLogger(webMode bool, logFile string) (*slog.Logger, func(), error) {
	if webMode {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), func() {}, nil
	}
	if logFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), func() { f.Close() }, nil
}
