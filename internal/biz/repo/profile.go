package repo

import (
	"context"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// ProfileRepo persists the configured profile set
type ProfileRepo interface {
	// SyncProfiles upserts all configured profiles by id. Called once
	// at startup so stored rows track the external configuration.
	SyncProfiles(ctx context.Context, profiles []domain.Profile) error
}
