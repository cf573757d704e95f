package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/commzilla/slack-mcp-server/internal/conf"
	"github.com/commzilla/slack-mcp-server/internal/data"
	"github.com/commzilla/slack-mcp-server/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := conf.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("[daemon] Loaded %d profile(s). Primary: %q", len(cfg.Profiles), cfg.Primary().ID)

	store, err := data.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.SyncProfiles(ctx, cfg.Domain()); err != nil {
		log.Fatalf("Failed to sync profiles: %v", err)
	}

	daemon := service.NewDaemon(cfg, store)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The signal handler only cancels; Shutdown runs below, after
	// Start has returned, so it never races the startup bookkeeping.
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := daemon.Start(ctx); err != nil {
		log.Printf("[daemon] Startup interrupted: %v", err)
	}

	<-ctx.Done()
	daemon.Shutdown()
}
