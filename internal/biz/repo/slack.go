package repo

import "context"

// ChannelInfo describes a channel the profile is a member of
type ChannelInfo struct {
	ID         string
	Name       string
	IsMember   bool
	NumMembers int
}

// HistoryMessage is a message fetched from the Slack API rather than
// local storage
type HistoryMessage struct {
	TS       string
	UserID   string
	Username string
	Text     string
	ThreadTS string
	Subtype  string
}

// SearchMatch is one result of a Slack message search
type SearchMatch struct {
	TS          string
	ChannelID   string
	ChannelName string
	UserID      string
	Username    string
	Text        string
	Permalink   string
}

// SendResult describes a successfully sent message
type SendResult struct {
	TS        string
	ChannelID string
	Text      string
}

// SlackRepo is the outbound Slack Web API interface for one profile.
// Responsible for live fetches and sends; does not touch local storage.
type SlackRepo interface {
	// ListChannels lists channels the profile is a member of
	ListChannels(ctx context.Context, limit int) ([]ChannelInfo, error)

	// GetChannelHistory fetches recent channel messages in
	// chronological order (oldest first)
	GetChannelHistory(ctx context.Context, channelID string, limit int) ([]HistoryMessage, error)

	// GetThreadReplies fetches all replies in a thread
	GetThreadReplies(ctx context.Context, channelID, threadTS string) ([]HistoryMessage, error)

	// SearchMessages searches messages with Slack search operators
	SearchMessages(ctx context.Context, query string, limit int) ([]SearchMatch, error)

	// SearchUserMessages searches messages authored by a user
	SearchUserMessages(ctx context.Context, userID string, limit int) ([]SearchMatch, error)

	// SendMessage posts a message, optionally into a thread
	SendMessage(ctx context.Context, channelID, text, threadTS string) (*SendResult, error)

	// ResolveChannel resolves a "#name" or raw id to (id, name)
	ResolveChannel(ctx context.Context, channel string) (id, name string, err error)
}
