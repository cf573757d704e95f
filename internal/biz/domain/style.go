package domain

import "time"

// Capitalization styles
const (
	CapLowercase = "lowercase"
	CapNormal    = "normal"
	CapUppercase = "uppercase"
)

// Formality levels
const (
	FormalityCasual  = "casual"
	FormalityNeutral = "neutral"
	FormalityFormal  = "formal"
)

// Response length buckets
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// StyleProfile is the cached writing-style fingerprint of a profile,
// derived from its historical outbound messages
type StyleProfile struct {
	AvgMessageLength      int       `json:"avg_message_length"`
	EmojiFrequency        float64   `json:"emoji_frequency"` // 0-1, fraction of messages with an emoji
	UsesExclamation       bool      `json:"uses_exclamation"`
	UsesEllipsis          bool      `json:"uses_ellipsis"`
	CapitalizationStyle   string    `json:"capitalization_style"`
	GreetingPatterns      []string  `json:"greeting_patterns"`
	SignOffPatterns       []string  `json:"sign_off_patterns"`
	CommonPhrases         []string  `json:"common_phrases"`
	FormalityLevel        string    `json:"formality_level"`
	TypicalResponseLength string    `json:"typical_response_length"`
	SampleMessages        []string  `json:"sample_messages,omitempty"`
	UpdatedAt             time.Time `json:"-"`
}
