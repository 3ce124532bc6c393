package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/app"
	"github.com/civiceye/civiceye/internal/logging"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/session"
	"github.com/civiceye/civiceye/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(logging.DefaultLogPath()), 0o755); err != nil {
		log.Fatalf("creating data directory: %v", err)
	}

	logger, closeLog, err := logging.Open(logging.DefaultLogPath())
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer closeLog()

	// A per-run id ties every log line to one process lifetime.
	logger = logger.With("run_id", uuid.NewString())
	logger.Info("starting", "api", cfg.API.BaseURL, "transport", cfg.Notifications.Transport)

	sessions, err := session.OpenKeyringStore()
	if err != nil {
		log.Fatalf("opening session store: %v", err)
	}

	cache, err := store.NewSQLiteCache(store.DefaultCachePath())
	if err != nil {
		log.Fatalf("opening cache: %v", err)
	}
	defer cache.Close()

	client := api.New(cfg.API.BaseURL, api.SessionTokens(sessions), cfg.API.Timeout())

	p := tea.NewProgram(
		app.New(cfg, client, sessions, cache, logger),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		logger.Error("program exited", "error", err)
		fmt.Fprintf(os.Stderr, "civiceye: %v\n", err)
		os.Exit(1)
	}
}
