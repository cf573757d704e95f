package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/commzilla/slack-mcp-server/internal/conf"
	"github.com/commzilla/slack-mcp-server/internal/data"
	"github.com/commzilla/slack-mcp-server/internal/mcpserver"
)

func main() {
	// All logging must stay off stdout, it carries the MCP stdio
	// protocol.
	log.SetOutput(os.Stderr)

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := conf.Load()
	if err != nil {
		log.Fatalf("[mcp] Initialization failed: %v", err)
	}

	store, err := data.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("[mcp] Failed to open store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.SyncProfiles(ctx, cfg.Domain()); err != nil {
		log.Fatalf("[mcp] Failed to sync profiles: %v", err)
	}
	log.Printf("[mcp] Loaded %d profile(s). Primary: %q", len(cfg.Profiles), cfg.Primary().ID)

	server := mcpserver.NewServer(cfg, store)

	log.Println("[mcp] Validating Slack tokens...")
	server.ValidateTokens(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("[mcp] Shutting down...")
		cancel()
		if err := store.Close(); err != nil {
			log.Printf("[mcp] Error closing database: %v", err)
		}
		log.Println("[mcp] Database closed. Goodbye.")
		os.Exit(0)
	}()

	log.Println("[mcp] Slack MCP Server running on stdio")
	if err := server.Run(ctx); err != nil {
		log.Fatalf("[mcp] Fatal error: %v", err)
	}
}
