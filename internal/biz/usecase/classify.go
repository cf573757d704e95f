package usecase

import (
	"context"
	"regexp"
	"strings"
)

// ThreadLookup answers whether a user already has a message stored in
// a given thread. Implemented by the message repository; the classifier
// performs at most one lookup per event.
type ThreadLookup interface {
	HasParticipatedInThread(ctx context.Context, profileID, channelID, threadTS, userID string) (bool, error)
}

var (
	questionStarters = regexp.MustCompile(`(?i)^(who|what|when|where|why|how|can|could|would|should|does|did|is|are|has|have|will)\b`)
	indefinitePeople = regexp.MustCompile(`(?i)\b(anyone|somebody|someone|anybody)\b`)
)

// ClassifyInput is one incoming message event as seen by the classifier
type ClassifyInput struct {
	ChannelID   string
	ChannelType string // channel, group, im, mpim
	Text        string
	TS          string
	ThreadTS    string
}

// Classifier decides whether an incoming message likely needs a human
// reply. Pure string matching over a fixed rule table, except for a
// single storage lookup on the thread-participation rule.
type Classifier struct {
	lookup ThreadLookup
}

// NewClassifier creates a classifier backed by the given thread lookup
func NewClassifier(lookup ThreadLookup) *Classifier {
	return &Classifier{lookup: lookup}
}

// NeedsReply evaluates the rules in fixed order, short-circuiting on
// the first match:
//  1. explicit mention of the owning user
//  2. direct or group-direct conversation
//  3. thread reply in a thread the owning user participated in
//  4. top-level message that looks like a question
func (c *Classifier) NeedsReply(ctx context.Context, profileID, ownUserID string, in ClassifyInput) (bool, error) {
	// 1. Direct mention of the user
	if strings.Contains(in.Text, "<@"+ownUserID+">") {
		return true, nil
	}

	// 2. DMs always need attention, regardless of content
	if in.ChannelType == "im" || in.ChannelType == "mpim" {
		return true, nil
	}

	// 3. Thread reply where the user previously participated
	if in.ThreadTS != "" && in.ThreadTS != in.TS {
		participated, err := c.lookup.HasParticipatedInThread(ctx, profileID, in.ChannelID, in.ThreadTS, ownUserID)
		if err != nil {
			return false, err
		}
		if participated {
			return true, nil
		}
	}

	// 4. Question heuristic, for top-level channel messages only
	if in.ThreadTS == "" && LooksLikeQuestion(in.Text) {
		return true, nil
	}

	return false, nil
}

// LooksLikeQuestion applies the lexical question heuristic: a trailing
// question mark, an interrogative opening word, or an indefinite-pronoun
// trigger anywhere in the text
func LooksLikeQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)

	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	if questionStarters.MatchString(trimmed) {
		return true
	}
	return indefinitePeople.MatchString(text)
}
