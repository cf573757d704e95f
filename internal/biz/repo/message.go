package repo

import (
	"context"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// PendingFilter narrows a pending-replies query. Empty fields match all.
type PendingFilter struct {
	ProfileID string
	ChannelID string
	Limit     int
}

// MessageRepo is the message storage interface
type MessageRepo interface {
	// InsertIfAbsent stores a message unless a row with the same
	// (ts, profile, channel) already exists. Duplicate delivery of the
	// same event is absorbed silently, not reported as an error.
	InsertIfAbsent(ctx context.Context, msg *domain.Message) error

	// GetChannelMessages returns up to limit recent messages from a
	// channel in chronological order (oldest first)
	GetChannelMessages(ctx context.Context, profileID, channelID string, limit int) ([]domain.Message, error)

	// GetPending returns unresolved needs-reply messages joined with
	// their channel's watch priority, ordered high priority first and
	// newest first within equal priority
	GetPending(ctx context.Context, filter PendingFilter) ([]domain.PendingMessage, error)

	// MarkReplied flags the message at (profile, channel, ts) as replied
	MarkReplied(ctx context.Context, profileID, channelID, ts string) error

	// GetOwnMessages returns up to limit of the profile's own messages,
	// newest first
	GetOwnMessages(ctx context.Context, profileID string, limit int) ([]domain.Message, error)

	// HasParticipatedInThread reports whether the user has a stored
	// message in the given thread
	HasParticipatedInThread(ctx context.Context, profileID, channelID, threadTS, userID string) (bool, error)
}
