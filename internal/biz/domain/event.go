package domain

// MessageEvent is a message event delivered over a profile's
// Socket Mode connection
type MessageEvent struct {
	Type        string
	Subtype     string
	ChannelID   string
	ChannelType string // channel, group, im, mpim
	UserID      string
	Username    string
	Text        string
	TS          string
	ThreadTS    string
}

// IsDirect reports whether the event belongs to a direct or
// group-direct conversation
func (e *MessageEvent) IsDirect() bool {
	return e.ChannelType == "im" || e.ChannelType == "mpim"
}

// IsThreadReply reports whether the event is a reply inside a thread
// rather than a thread root
func (e *MessageEvent) IsThreadReply() bool {
	return e.ThreadTS != "" && e.ThreadTS != e.TS
}

// Discardable reports whether the event should be dropped before
// classification: edits/deletes/joins carry a subtype, and events
// without text or author cannot be classified
func (e *MessageEvent) Discardable() bool {
	return e.Subtype != "" || e.Text == "" || e.UserID == ""
}
