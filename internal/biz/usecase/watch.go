package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

// WatchUsecase manages the watched-channel set for a profile. Channel
// arguments accept "#name", bare names, or raw channel ids; names are
// resolved through the Slack API.
type WatchUsecase struct {
	watches repo.WatchRepo
}

// NewWatchUsecase creates the watched-channel management usecase
func NewWatchUsecase(watches repo.WatchRepo) *WatchUsecase {
	return &WatchUsecase{watches: watches}
}

// Add resolves the channel and upserts it into the profile's watch set
func (uc *WatchUsecase) Add(ctx context.Context, slackCli repo.SlackRepo, profileID, channel string, priority domain.Priority, description string) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("channel is required for %q action, provide a channel name (e.g. #general) or ID", "add")
	}
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return "", fmt.Errorf("invalid priority %q, must be high, normal, or low", priority)
	}

	id, name, err := slackCli.ResolveChannel(ctx, channel)
	if err != nil {
		return "", fmt.Errorf("resolve channel %q for profile %q: %w", channel, profileID, err)
	}

	err = uc.watches.UpsertWatch(ctx, &domain.WatchedChannel{
		ChannelID:   id,
		ProfileID:   profileID,
		ChannelName: name,
		Priority:    priority,
		Description: description,
	})
	if err != nil {
		return "", fmt.Errorf("add watched channel: %w", err)
	}

	label := ""
	if priority != domain.PriorityNormal {
		label = fmt.Sprintf(" with %s priority", priority)
	}
	return fmt.Sprintf("Added #%s (%s) to watched channels for %q%s.", name, id, profileID, label), nil
}

// Remove resolves the channel and deletes it from the watch set
func (uc *WatchUsecase) Remove(ctx context.Context, slackCli repo.SlackRepo, profileID, channel string) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("channel is required for %q action, provide a channel name or ID", "remove")
	}

	id, name, err := slackCli.ResolveChannel(ctx, channel)
	if err != nil {
		return "", fmt.Errorf("resolve channel %q for profile %q: %w", channel, profileID, err)
	}

	if err := uc.watches.RemoveWatch(ctx, profileID, id); err != nil {
		return "", fmt.Errorf("remove watched channel: %w", err)
	}

	return fmt.Sprintf("Removed #%s (%s) from watched channels for %q.", name, id, profileID), nil
}

// List renders the profile's watched channels
func (uc *WatchUsecase) List(ctx context.Context, profileID string) (string, error) {
	channels, err := uc.watches.ListWatch(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("list watched channels: %w", err)
	}

	if len(channels) == 0 {
		return fmt.Sprintf("No watched channels for profile %q. Use manage_channels with action \"add\" to start watching channels.", profileID), nil
	}

	lines := make([]string, 0, len(channels))
	for _, ch := range channels {
		desc := ""
		if ch.Description != "" {
			desc = " — " + ch.Description
		}
		prio := ""
		if ch.Priority != domain.PriorityNormal {
			prio = fmt.Sprintf(" [%s]", strings.ToUpper(string(ch.Priority)))
		}
		lines = append(lines, fmt.Sprintf("- #%s (%s)%s%s", ch.ChannelName, ch.ChannelID, prio, desc))
	}

	return fmt.Sprintf("**Watched channels for %q (%d):**\n%s", profileID, len(channels), strings.Join(lines, "\n")), nil
}
