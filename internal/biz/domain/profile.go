package domain

// Profile represents one authenticated Slack workspace identity
type Profile struct {
	ID          string
	DisplayName string
	UserID      string // Slack user ID (U...)
	IsPrimary   bool
}
