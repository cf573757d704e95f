package repo

import (
	"context"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// WatchRepo manages the set of watched channels per profile
type WatchRepo interface {
	// UpsertWatch adds a channel to the watch set or updates its
	// name/priority; an unset description keeps the existing one
	UpsertWatch(ctx context.Context, wc *domain.WatchedChannel) error

	// RemoveWatch removes a channel from a profile's watch set
	RemoveWatch(ctx context.Context, profileID, channelID string) error

	// ListWatch returns a profile's watched channels ordered by
	// priority then name
	ListWatch(ctx context.Context, profileID string) ([]domain.WatchedChannel, error)

	// GetWatchedIDs returns the watched channel id set for a profile
	GetWatchedIDs(ctx context.Context, profileID string) (map[string]struct{}, error)
}
