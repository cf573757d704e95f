package domain

import "time"

// Message represents a stored Slack message
type Message struct {
	ID           int64
	TS           string // Slack source timestamp, e.g. "1234567890.123456"
	ProfileID    string
	ChannelID    string
	ChannelName  string
	UserID       string
	Username     string
	Text         string
	ThreadTS     string // parent thread timestamp, empty for top-level messages
	IsOwnMessage bool
	NeedsReply   bool
	Replied      bool
	CreatedAt    time.Time
}

// IsThreadReply reports whether the message is a reply inside a thread,
// as opposed to a thread root or a plain channel message
func (m *Message) IsThreadReply() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.TS
}

// PendingMessage is a message awaiting a reply, joined with the
// watch priority of its channel
type PendingMessage struct {
	Message
	ChannelPriority Priority
}
