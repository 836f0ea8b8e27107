package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ghana-health/cli/config"
	"github.com/ghana-health/cli/internal/logger"
	"github.com/ghana-health/cli/internal/tui"
)

func main() {
	var (
		apiFlag  = flag.String("api", "", "Backend API base URL (overrides config)")
		langFlag = flag.String("lang", "", "Consultation language: en, tw or ga (overrides config)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.API.BaseURL = *apiFlag
	}
	if *langFlag != "" {
		cfg.Consultation.Language = *langFlag
	}

	log, err := logger.New(cfg.Logging.Mode, cfg.Paths.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Create and run TUI
	app, err := tui.NewApp(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing app: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}
