package repo

import (
	"context"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// StyleRepo caches computed style fingerprints
type StyleRepo interface {
	// GetStyle returns the cached fingerprint for a profile, or nil
	// when none has been computed yet
	GetStyle(ctx context.Context, profileID string) (*domain.StyleProfile, error)

	// SaveStyle stores or replaces a profile's fingerprint
	SaveStyle(ctx context.Context, profileID string, style *domain.StyleProfile) error
}
