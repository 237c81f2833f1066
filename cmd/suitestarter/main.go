package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lei/suite-starter/pkg/starter"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	// Load .env file (ignore error if file doesn't exist - env vars might be set externally)
	_ = godotenv.Load()

	// Determine config file path from environment or use default
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/suitestarter.yaml"
	}

	// Create starter from configuration
	st, err := starter.NewFromEnv(configFile)
	if err != nil {
		return err
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the suite starter (blocks until shutdown)
	return st.Start(ctx)
}
