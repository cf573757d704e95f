package data

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

const (
	conversationsPageSize = 200
	searchPageSize        = 100
	maxSearchPages        = 20
)

var channelIDPattern = regexp.MustCompile(`^[CDG][A-Z0-9]+$`)

// SlackAPI implements repo.SlackRepo over the Slack Web API using one
// profile's user token, so sends and searches act as that person.
type SlackAPI struct {
	api *slack.Client
}

func NewSlackAPI(userToken string) *SlackAPI {
	return &SlackAPI{api: slack.New(userToken)}
}

// ListChannels lists channels the profile is a member of, walking
// pagination cursors until the limit is reached.
func (s *SlackAPI) ListChannels(ctx context.Context, limit int) ([]repo.ChannelInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	var channels []repo.ChannelInfo
	cursor := ""
	for {
		page, next, err := s.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:           []string{"public_channel", "private_channel"},
			ExcludeArchived: true,
			Limit:           conversationsPageSize,
			Cursor:          cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}
		for _, ch := range page {
			if !ch.IsMember {
				continue
			}
			channels = append(channels, repo.ChannelInfo{
				ID:         ch.ID,
				Name:       ch.Name,
				IsMember:   true,
				NumMembers: ch.NumMembers,
			})
			if len(channels) >= limit {
				return channels, nil
			}
		}
		if next == "" {
			return channels, nil
		}
		cursor = next
	}
}

// GetChannelHistory fetches recent messages in chronological order.
func (s *SlackAPI) GetChannelHistory(ctx context.Context, channelID string, limit int) ([]repo.HistoryMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	resp, err := s.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel history: %w", err)
	}

	// The API returns newest first.
	messages := make([]repo.HistoryMessage, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		messages = append(messages, toHistoryMessage(resp.Messages[i]))
	}
	return messages, nil
}

// GetThreadReplies fetches a full thread, parent first.
func (s *SlackAPI) GetThreadReplies(ctx context.Context, channelID, threadTS string) ([]repo.HistoryMessage, error) {
	var messages []repo.HistoryMessage
	cursor := ""
	for {
		page, hasMore, next, err := s.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Limit:     conversationsPageSize,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch thread replies: %w", err)
		}
		for _, msg := range page {
			messages = append(messages, toHistoryMessage(msg))
		}
		if !hasMore || next == "" {
			return messages, nil
		}
		cursor = next
	}
}

// SearchMessages searches the workspace with Slack's search operators.
func (s *SlackAPI) SearchMessages(ctx context.Context, query string, limit int) ([]repo.SearchMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	var matches []repo.SearchMatch
	for page := 1; page <= maxSearchPages; page++ {
		params := slack.NewSearchParameters()
		params.Sort = "timestamp"
		params.SortDirection = "desc"
		params.Count = searchPageSize
		params.Page = page

		result, err := s.api.SearchMessagesContext(ctx, query, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search messages: %w", err)
		}
		for _, m := range result.Matches {
			matches = append(matches, repo.SearchMatch{
				TS:          m.Timestamp,
				ChannelID:   m.Channel.ID,
				ChannelName: m.Channel.Name,
				UserID:      m.User,
				Username:    m.Username,
				Text:        m.Text,
				Permalink:   m.Permalink,
			})
			if len(matches) >= limit {
				return matches, nil
			}
		}
		if page >= result.Paging.Pages {
			return matches, nil
		}
	}
	return matches, nil
}

// SearchUserMessages searches messages authored by the given user.
func (s *SlackAPI) SearchUserMessages(ctx context.Context, userID string, limit int) ([]repo.SearchMatch, error) {
	return s.SearchMessages(ctx, fmt.Sprintf("from:<@%s>", userID), limit)
}

// SendMessage posts text to a channel, optionally into a thread.
func (s *SlackAPI) SendMessage(ctx context.Context, channelID, text, threadTS string) (*repo.SendResult, error) {
	options := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
		slack.MsgOptionAsUser(true),
	}
	if threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}
	postedChannel, ts, err := s.api.PostMessageContext(ctx, channelID, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &repo.SendResult{TS: ts, ChannelID: postedChannel, Text: text}, nil
}

// ResolveChannel turns a raw conversation id or a "#name" reference
// into a (id, name) pair.
func (s *SlackAPI) ResolveChannel(ctx context.Context, channel string) (string, string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", "", fmt.Errorf("channel is required")
	}

	if channelIDPattern.MatchString(channel) {
		info, err := s.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
			ChannelID: channel,
		})
		if err != nil {
			// The id may point at a conversation the token cannot
			// inspect. Trust the caller's id and reuse it as the name.
			return channel, channel, nil
		}
		return info.ID, info.Name, nil
	}

	name := strings.TrimPrefix(channel, "#")
	cursor := ""
	for {
		page, next, err := s.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:           []string{"public_channel", "private_channel"},
			ExcludeArchived: true,
			Limit:           conversationsPageSize,
			Cursor:          cursor,
		})
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve channel %q: %w", channel, err)
		}
		for _, ch := range page {
			if ch.Name == name {
				return ch.ID, ch.Name, nil
			}
		}
		if next == "" {
			return "", "", fmt.Errorf("channel %q not found", channel)
		}
		cursor = next
	}
}

// AuthTest verifies the token and returns the authed user id.
func (s *SlackAPI) AuthTest(ctx context.Context) (string, error) {
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test failed: %w", err)
	}
	return resp.UserID, nil
}

func toHistoryMessage(msg slack.Message) repo.HistoryMessage {
	return repo.HistoryMessage{
		TS:       msg.Timestamp,
		UserID:   msg.User,
		Username: msg.Username,
		Text:     msg.Text,
		ThreadTS: msg.ThreadTimestamp,
		Subtype:  msg.SubType,
	}
}
