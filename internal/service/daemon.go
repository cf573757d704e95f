package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/usecase"
	"github.com/commzilla/slack-mcp-server/internal/conf"
	"github.com/commzilla/slack-mcp-server/internal/data"
	"github.com/commzilla/slack-mcp-server/internal/infra/slackstream"
)

const defaultConnectTimeout = 15 * time.Second

// streamClient is the Socket Mode surface the daemon drives
type streamClient interface {
	OnMessage(slackstream.MessageHandler)
	OnStateChange(slackstream.StateHandler)
	Start(ctx context.Context) error
	Stop()
}

// Daemon supervises one Socket Mode connection, watch cache and
// ingestion pipeline per configured profile. Profiles connect
// independently; one bad credential set never takes down the rest.
type Daemon struct {
	cfg   *conf.Config
	store *data.Store

	newStream      func(profileID, appToken, botToken string) streamClient
	connectTimeout time.Duration

	streams   []streamClient
	caches    []*WatchCache
	connected int
	wg        sync.WaitGroup
}

// NewDaemon creates the daemon over the shared store
func NewDaemon(cfg *conf.Config, store *data.Store) *Daemon {
	return &Daemon{
		cfg:   cfg,
		store: store,
		newStream: func(profileID, appToken, botToken string) streamClient {
			return slackstream.NewClient(profileID, appToken, botToken)
		},
		connectTimeout: defaultConnectTimeout,
	}
}

// Start launches every profile's stream at once, then waits until each
// has either connected or run out its connect timeout. A profile that
// fails to connect is logged and left to the transport's retries; it
// never blocks or aborts the others. Returns only the context error.
func (d *Daemon) Start(ctx context.Context) error {
	classifier := usecase.NewClassifier(d.store)

	var settled sync.WaitGroup
	connectedCount := make(chan struct{}, len(d.cfg.Profiles))

	for _, p := range d.cfg.Profiles {
		profile := p

		cache := NewWatchCache(profile.ID, d.store)
		cache.Start()
		d.caches = append(d.caches, cache)

		pipeline := NewPipeline(domain.Profile{
			ID:          profile.ID,
			DisplayName: profile.DisplayName,
			UserID:      profile.UserID,
			IsPrimary:   profile.IsPrimary,
		}, d.store, classifier, cache)

		stream := d.newStream(profile.ID, profile.AppToken, profile.BotToken)
		stream.OnMessage(func(ev *domain.MessageEvent) {
			pipeline.HandleEvent(context.Background(), ev)
		})

		connectedCh := make(chan struct{}, 1)
		stream.OnStateChange(func(state string) {
			if state == "connected" {
				select {
				case connectedCh <- struct{}{}:
				default:
				}
			}
		})

		d.streams = append(d.streams, stream)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := stream.Start(ctx); err != nil && ctx.Err() == nil {
				fmt.Printf("[Daemon] Profile %s stream stopped: %v\n", profile.ID, err)
			}
		}()

		settled.Add(1)
		go func() {
			defer settled.Done()
			select {
			case <-connectedCh:
				fmt.Printf("[Daemon] Profile %s connected\n", profile.ID)
				connectedCount <- struct{}{}
			case <-time.After(d.connectTimeout):
				fmt.Printf("[Daemon] Profile %s did not connect within %v, continuing without it\n", profile.ID, d.connectTimeout)
			case <-ctx.Done():
			}
		}()
	}

	settled.Wait()
	close(connectedCount)
	for range connectedCount {
		d.connected++
	}

	fmt.Printf("[Daemon] %d/%d profiles connected\n", d.connected, len(d.cfg.Profiles))
	if d.connected == 0 {
		fmt.Println("[Daemon] No profiles connected yet, Socket Mode keeps retrying in the background")
	}
	return ctx.Err()
}

// Shutdown stops refreshers, disconnects streams and closes the store,
// in that order. Call it only after Start has returned.
func (d *Daemon) Shutdown() {
	fmt.Println("[Daemon] Shutting down...")
	for _, cache := range d.caches {
		cache.Stop()
	}
	for _, stream := range d.streams {
		stream.Stop()
	}
	d.wg.Wait()
	if err := d.store.Close(); err != nil {
		fmt.Printf("[Daemon] Error closing store: %v\n", err)
	}
	fmt.Println("[Daemon] Stopped")
}
