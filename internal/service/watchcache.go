package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

// WatchCache keeps an in-memory snapshot of one profile's watched
// channel ids so the hot ingestion path never touches the database.
// The snapshot refreshes on an interval; a failed refresh keeps the
// previous snapshot.
type WatchCache struct {
	profileID string
	watches   repo.WatchRepo

	refreshInterval time.Duration
	mu              sync.RWMutex
	ids             map[string]struct{}

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatchCache creates a watch cache for one profile
func NewWatchCache(profileID string, watches repo.WatchRepo) *WatchCache {
	return &WatchCache{
		profileID:       profileID,
		watches:         watches,
		refreshInterval: 60 * time.Second,
		ids:             make(map[string]struct{}),
		stopCh:          make(chan struct{}),
	}
}

// Start loads the initial snapshot and begins the refresh loop
func (c *WatchCache) Start() {
	if c.running {
		return
	}
	c.running = true
	c.refresh()
	c.wg.Add(1)
	go c.loop()
	fmt.Printf("[WatchCache:%s] Started with refresh interval %v\n", c.profileID, c.refreshInterval)
}

// Stop stops the refresh loop
func (c *WatchCache) Stop() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	c.wg.Wait()
	fmt.Printf("[WatchCache:%s] Stopped\n", c.profileID)
}

// Contains reports whether the channel is on the watch list
func (c *WatchCache) Contains(channelID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[channelID]
	return ok
}

func (c *WatchCache) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refresh()
		case <-c.stopCh:
			return
		}
	}
}

func (c *WatchCache) refresh() {
	ids, err := c.watches.GetWatchedIDs(context.Background(), c.profileID)
	if err != nil {
		fmt.Printf("[WatchCache:%s] Error refreshing watch list, keeping previous snapshot: %v\n", c.profileID, err)
		return
	}
	c.mu.Lock()
	c.ids = ids
	c.mu.Unlock()
}
