package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

// PendingUsecase reads the needs-attention queue and renders it for
// presentation, grouped by profile
type PendingUsecase struct {
	messages repo.MessageRepo
	now      func() time.Time
}

// NewPendingUsecase creates the pending-replies usecase
func NewPendingUsecase(messages repo.MessageRepo) *PendingUsecase {
	return &PendingUsecase{messages: messages, now: time.Now}
}

// GetPendingReplies queries unresolved flagged messages and formats
// them grouped by profile, preserving the query's priority ordering
// within each group
func (uc *PendingUsecase) GetPendingReplies(ctx context.Context, profileID, channelID string, limit int) (string, error) {
	if limit <= 0 {
		limit = 20
	}

	pending, err := uc.messages.GetPending(ctx, repo.PendingFilter{
		ProfileID: profileID,
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return "", fmt.Errorf("query pending replies: %w", err)
	}

	if len(pending) == 0 {
		scope := "any profile"
		if profileID != "" {
			scope = fmt.Sprintf("profile %q", profileID)
		}
		return fmt.Sprintf("No pending replies for %s. All caught up!", scope), nil
	}

	// Group by profile, preserving per-profile relative order
	var profileOrder []string
	byProfile := make(map[string][]domain.PendingMessage)
	for _, msg := range pending {
		if _, ok := byProfile[msg.ProfileID]; !ok {
			profileOrder = append(profileOrder, msg.ProfileID)
		}
		byProfile[msg.ProfileID] = append(byProfile[msg.ProfileID], msg)
	}

	var sections []string
	for _, pid := range profileOrder {
		msgs := byProfile[pid]
		lines := make([]string, 0, len(msgs))
		for _, m := range msgs {
			channel := m.ChannelName
			if channel == "" {
				channel = m.ChannelID
			}
			user := m.Username
			if user == "" {
				user = m.UserID
			}
			priority := ""
			if m.ChannelPriority != domain.PriorityNormal {
				priority = fmt.Sprintf(" [%s]", strings.ToUpper(string(m.ChannelPriority)))
			}
			thread := ""
			if m.ThreadTS != "" {
				thread = fmt.Sprintf(" (thread: %s)", m.ThreadTS)
			}
			lines = append(lines, fmt.Sprintf("  -%s #%s — %s: %q%s (%s)",
				priority, channel, user, truncateText(m.Text, 100), thread, uc.relativeAge(m.TS)))
		}
		sections = append(sections, fmt.Sprintf("**[%s]** (%d pending):\n%s", pid, len(msgs), strings.Join(lines, "\n")))
	}

	return fmt.Sprintf("**Pending Replies (%d total):**\n\n%s", len(pending), strings.Join(sections, "\n\n")), nil
}

// relativeAge renders the age of a Slack timestamp as "5m ago" style text
func (uc *PendingUsecase) relativeAge(slackTS string) string {
	seconds, err := strconv.ParseFloat(slackTS, 64)
	if err != nil {
		return "unknown age"
	}

	diff := uc.now().Sub(time.Unix(int64(seconds), 0))
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func truncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
