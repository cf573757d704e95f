package mcpserver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/usecase"
	"github.com/commzilla/slack-mcp-server/internal/conf"
	"github.com/commzilla/slack-mcp-server/internal/data"
)

// Server exposes the workspace attention tools over MCP stdio
type Server struct {
	cfg    *conf.Config
	store  *data.Store
	server *mcp.Server

	pendingUC *usecase.PendingUsecase
	watchUC   *usecase.WatchUsecase
	styleUC   *usecase.StyleUsecase

	mu      sync.Mutex
	clients map[string]*data.SlackAPI
}

// NewServer creates the MCP server and registers all tools
func NewServer(cfg *conf.Config, store *data.Store) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		pendingUC: usecase.NewPendingUsecase(store),
		watchUC:   usecase.NewWatchUsecase(store),
		styleUC:   usecase.NewStyleUsecase(store, store),
		clients:   make(map[string]*data.SlackAPI),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "slack-assistant",
		Version: "v1.0.0",
	}, nil)

	s.registerTools()
	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ValidateTokens runs an auth test for every profile and logs failures.
// A bad token disables one profile's tools, not the whole server.
func (s *Server) ValidateTokens(ctx context.Context) {
	for _, p := range s.cfg.Profiles {
		api := s.clientFor(p.ID)
		if _, err := api.AuthTest(ctx); err != nil {
			log.Printf("[mcp] WARNING: Profile %q failed auth: %v", p.ID, err)
		}
	}
}

// profile resolves an optional profile argument to a configured profile
func (s *Server) profile(id string) (*conf.Profile, *data.SlackAPI, error) {
	p, err := s.cfg.Get(id)
	if err != nil {
		return nil, nil, err
	}
	return p, s.clientFor(p.ID), nil
}

func (s *Server) clientFor(profileID string) *data.SlackAPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	if api, ok := s.clients[profileID]; ok {
		return api
	}
	p, _ := s.cfg.Get(profileID)
	api := data.NewSlackAPI(p.UserToken)
	s.clients[profileID] = api
	return api
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_profiles",
		Description: "List all configured Slack profiles",
	}, s.handleListProfiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_channels",
		Description: "List Slack channels the profile is a member of",
	}, s.handleListChannels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_channel",
		Description: "Read recent messages from a Slack channel",
	}, s.handleReadChannel)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_thread",
		Description: "Read all replies in a message thread",
	}, s.handleGetThread)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_messages",
		Description: "Search Slack messages using Slack search operators (e.g., from:@user, in:#channel, has:link)",
	}, s.handleSearchMessages)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_my_style",
		Description: "Get a profile's writing style for tone matching. Returns style analysis and sample messages to help match the user's voice.",
	}, s.handleGetMyStyle)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a message in a Slack channel as the specified profile. The message will appear as the user's personal profile (not a bot). IMPORTANT: Always draft the message first and show it to the user for approval before calling this tool.",
	}, s.handleSendMessage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "manage_channels",
		Description: "Add, remove, or list watched channels for a profile. Only watched channels are tracked by the background daemon.",
	}, s.handleManageChannels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_pending_replies",
		Description: "Get messages that likely need a reply from the user. Shows mentions, DMs, and thread follow-ups across one or all profiles, sorted by priority.",
	}, s.handleGetPendingReplies)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
	}
}

// ListProfilesInput is empty, the tool takes no arguments
type ListProfilesInput struct{}

func (s *Server) handleListProfiles(ctx context.Context, req *mcp.CallToolRequest, input ListProfilesInput) (*mcp.CallToolResult, any, error) {
	lines := make([]string, 0, len(s.cfg.Profiles))
	for _, p := range s.cfg.Profiles {
		primary := ""
		if p.IsPrimary {
			primary = " (Primary)"
		}
		lines = append(lines, fmt.Sprintf("- **%s**%s: %s [%s]", p.ID, primary, p.DisplayName, p.UserID))
	}
	return textResult(fmt.Sprintf("**Configured Profiles (%d):**\n%s",
		len(s.cfg.Profiles), strings.Join(lines, "\n"))), nil, nil
}

// ListChannelsInput selects the profile and page size
type ListChannelsInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"description=Profile ID to use. Omit for the primary profile."`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of channels to return (default 200)"`
}

func (s *Server) handleListChannels(ctx context.Context, req *mcp.CallToolRequest, input ListChannelsInput) (*mcp.CallToolResult, any, error) {
	p, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 200
	}
	channels, err := api.ListChannels(ctx, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(channels) == 0 {
		return textResult(fmt.Sprintf("No channels found for profile %q. The user may not be a member of any channels.", p.ID)), nil, nil
	}

	lines := make([]string, 0, len(channels))
	for _, ch := range channels {
		lines = append(lines, fmt.Sprintf("- #%s (%s) — %d members", ch.Name, ch.ID, ch.NumMembers))
	}
	return textResult(fmt.Sprintf("**Channels for profile %q (%d):**\n%s",
		p.ID, len(channels), strings.Join(lines, "\n"))), nil, nil
}

// ReadChannelInput identifies the channel to read
type ReadChannelInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit for primary profile."`
	Channel string `json:"channel" jsonschema:"description=Channel name (e.g. #general) or channel ID (e.g. C0123456789)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of messages to return (default 30)"`
}

func (s *Server) handleReadChannel(ctx context.Context, req *mcp.CallToolRequest, input ReadChannelInput) (*mcp.CallToolResult, any, error) {
	p, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 30
	}
	channelID, _, err := api.ResolveChannel(ctx, input.Channel)
	if err != nil {
		return errorResult(err), nil, nil
	}

	// Local storage first, so watched channels read without burning
	// API rate limits.
	cached, err := s.store.GetChannelMessages(ctx, p.ID, channelID, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(cached) > 0 {
		lines := make([]string, 0, len(cached))
		for _, m := range cached {
			user := m.Username
			if user == "" {
				user = m.UserID
			}
			thread := ""
			if m.ThreadTS != "" {
				thread = fmt.Sprintf(" [thread: %s]", m.ThreadTS)
			}
			flag := ""
			if m.NeedsReply && !m.Replied {
				flag = " ⚠️ NEEDS REPLY"
			}
			lines = append(lines, fmt.Sprintf("[%s] %s: %s%s%s", m.TS, user, m.Text, thread, flag))
		}
		return textResult(fmt.Sprintf("**Channel messages (%d, from cache):**\n%s",
			len(cached), strings.Join(lines, "\n"))), nil, nil
	}

	messages, err := api.GetChannelHistory(ctx, channelID, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(messages) == 0 {
		return textResult(fmt.Sprintf("No messages found in channel %s.", input.Channel)), nil, nil
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, formatHistoryLine(m.TS, m.Username, m.UserID, m.Text, m.ThreadTS))
	}
	return textResult(fmt.Sprintf("**Channel messages (%d, from API):**\n%s",
		len(messages), strings.Join(lines, "\n"))), nil, nil
}

// GetThreadInput identifies a thread by channel and parent timestamp
type GetThreadInput struct {
	Profile  string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit for primary profile."`
	Channel  string `json:"channel" jsonschema:"description=Channel name or ID where the thread is"`
	ThreadTS string `json:"thread_ts" jsonschema:"description=Timestamp of the parent message (e.g. 1234567890.123456)"`
}

func (s *Server) handleGetThread(ctx context.Context, req *mcp.CallToolRequest, input GetThreadInput) (*mcp.CallToolResult, any, error) {
	_, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	channelID, _, err := api.ResolveChannel(ctx, input.Channel)
	if err != nil {
		return errorResult(err), nil, nil
	}
	messages, err := api.GetThreadReplies(ctx, channelID, input.ThreadTS)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(messages) == 0 {
		return textResult(fmt.Sprintf("No replies found for thread %s in channel %s.", input.ThreadTS, input.Channel)), nil, nil
	}

	lines := make([]string, 0, len(messages))
	for i, m := range messages {
		user := m.Username
		if user == "" {
			user = m.UserID
		}
		if user == "" {
			user = "unknown"
		}
		parent := ""
		if i == 0 {
			parent = " (parent)"
		}
		text := m.Text
		if text == "" {
			text = "(no text)"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s%s: %s", m.TS, user, parent, text))
	}
	return textResult(fmt.Sprintf("**Thread %s (%d messages):**\n%s",
		input.ThreadTS, len(messages), strings.Join(lines, "\n"))), nil, nil
}

// SearchMessagesInput carries the search query
type SearchMessagesInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit for primary profile."`
	Query   string `json:"query" jsonschema:"description=Search query. Supports Slack operators like from:@user in:#channel has:link before:2025-01-01"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results (default 20)"`
}

func (s *Server) handleSearchMessages(ctx context.Context, req *mcp.CallToolRequest, input SearchMessagesInput) (*mcp.CallToolResult, any, error) {
	_, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	matches, err := api.SearchMessages(ctx, input.Query, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if len(matches) == 0 {
		return textResult(fmt.Sprintf("No messages found for query %q.", input.Query)), nil, nil
	}

	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		channel := m.ChannelName
		if channel == "" {
			channel = "unknown"
		}
		user := m.Username
		if user == "" {
			user = m.UserID
		}
		lines = append(lines, fmt.Sprintf("[%s] #%s — %s: %s", m.TS, channel, user, m.Text))
	}
	return textResult(fmt.Sprintf("**Search results for %q (%d):**\n%s",
		input.Query, len(matches), strings.Join(lines, "\n"))), nil, nil
}

// GetMyStyleInput selects the profile and cache behavior
type GetMyStyleInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit for primary profile."`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"description=Set to true to re-analyze messages and update the cached style profile"`
}

func (s *Server) handleGetMyStyle(ctx context.Context, req *mcp.CallToolRequest, input GetMyStyleInput) (*mcp.CallToolResult, any, error) {
	p, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	result, err := s.styleUC.GetMyStyle(ctx, p.ID, p.UserID, api, input.Refresh)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(result), nil, nil
}

// SendMessageInput carries the outbound message
type SendMessageInput struct {
	Profile  string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit for primary profile."`
	Channel  string `json:"channel" jsonschema:"description=Channel name or ID to send the message to"`
	Text     string `json:"text" jsonschema:"description=The message text to send"`
	ThreadTS string `json:"thread_ts,omitempty" jsonschema:"description=If replying to a thread. the parent message timestamp"`
}

func (s *Server) handleSendMessage(ctx context.Context, req *mcp.CallToolRequest, input SendMessageInput) (*mcp.CallToolResult, any, error) {
	p, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	channelID, _, err := api.ResolveChannel(ctx, input.Channel)
	if err != nil {
		return errorResult(err), nil, nil
	}
	result, err := api.SendMessage(ctx, channelID, input.Text, input.ThreadTS)
	if err != nil {
		return errorResult(err), nil, nil
	}

	// A thread reply resolves the parent's pending flag. Best effort,
	// never fails the send.
	if input.ThreadTS != "" {
		if err := s.store.MarkReplied(ctx, p.ID, result.ChannelID, input.ThreadTS); err != nil {
			log.Printf("[mcp] Failed to mark thread %s replied: %v", input.ThreadTS, err)
		}
	}

	threadInfo := ""
	if input.ThreadTS != "" {
		threadInfo = fmt.Sprintf(" (in thread %s)", input.ThreadTS)
	}
	return textResult(strings.Join([]string{
		"**Message sent successfully!**",
		fmt.Sprintf("- **Profile:** %s", p.ID),
		fmt.Sprintf("- **Channel:** %s%s", result.ChannelID, threadInfo),
		fmt.Sprintf("- **Timestamp:** %s", result.TS),
		fmt.Sprintf("- **Text:** %s", result.Text),
	}, "\n")), nil, nil
}

// ManageChannelsInput drives the watch-list subcommands
type ManageChannelsInput struct {
	Profile     string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit for primary profile."`
	Action      string `json:"action" jsonschema:"description=Action to perform: add, remove, or list"`
	Channel     string `json:"channel,omitempty" jsonschema:"description=Channel name or ID. Required for add and remove actions."`
	Priority    string `json:"priority,omitempty" jsonschema:"description=Channel priority level: high, normal, or low. High-priority channels surface first in pending replies."`
	Description string `json:"description,omitempty" jsonschema:"description=Optional description of the channel"`
}

func (s *Server) handleManageChannels(ctx context.Context, req *mcp.CallToolRequest, input ManageChannelsInput) (*mcp.CallToolResult, any, error) {
	p, api, err := s.profile(input.Profile)
	if err != nil {
		return errorResult(err), nil, nil
	}

	var result string
	switch input.Action {
	case "list":
		result, err = s.watchUC.List(ctx, p.ID)
	case "add":
		result, err = s.watchUC.Add(ctx, api, p.ID, input.Channel, domain.Priority(input.Priority), input.Description)
	case "remove":
		result, err = s.watchUC.Remove(ctx, api, p.ID, input.Channel)
	default:
		err = fmt.Errorf("invalid action %q, must be add, remove, or list", input.Action)
	}
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(result), nil, nil
}

// GetPendingRepliesInput filters the pending queue
type GetPendingRepliesInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"description=Profile ID. Omit to get pending replies across ALL profiles."`
	Channel string `json:"channel,omitempty" jsonschema:"description=Filter to a specific channel ID"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of pending items to return (default 20)"`
}

func (s *Server) handleGetPendingReplies(ctx context.Context, req *mcp.CallToolRequest, input GetPendingRepliesInput) (*mcp.CallToolResult, any, error) {
	profileID := ""
	if input.Profile != "" {
		p, err := s.cfg.Get(input.Profile)
		if err != nil {
			return errorResult(err), nil, nil
		}
		profileID = p.ID
	}

	result, err := s.pendingUC.GetPendingReplies(ctx, profileID, input.Channel, input.Limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(result), nil, nil
}

func formatHistoryLine(ts, username, userID, text, threadTS string) string {
	user := username
	if user == "" {
		user = userID
	}
	if user == "" {
		user = "unknown"
	}
	if text == "" {
		text = "(no text)"
	}
	thread := ""
	if threadTS != "" {
		thread = fmt.Sprintf(" [thread: %s]", threadTS)
	}
	return fmt.Sprintf("[%s] %s: %s%s", ts, user, text, thread)
}
