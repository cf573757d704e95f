package slackstream

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// MessageHandler is the callback for received workspace messages. The
// envelope is acknowledged before the handler runs, so handlers may
// take their time.
type MessageHandler func(ev *domain.MessageEvent)

// StateHandler is the callback for connection state transitions
type StateHandler func(state string)

// Client is a Socket Mode connection for one profile
type Client struct {
	profileID string
	appToken  string
	botToken  string

	api       *slack.Client
	sm        *socketmode.Client
	onMessage MessageHandler
	onState   StateHandler
	cancel    context.CancelFunc
}

// NewClient creates a new Socket Mode client for one profile
func NewClient(profileID, appToken, botToken string) *Client {
	return &Client{
		profileID: profileID,
		appToken:  appToken,
		botToken:  botToken,
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnStateChange sets the connection state handler
func (c *Client) OnStateChange(handler StateHandler) {
	c.onState = handler
}

// Start connects to Slack via Socket Mode and listens for events.
// Blocks until the context is canceled or the connection fails for good.
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.api = slack.New(c.botToken, slack.OptionAppLevelToken(c.appToken))
	c.sm = socketmode.New(c.api)

	go c.consumeEvents(ctx)

	fmt.Printf("[Stream:%s] Starting Socket Mode connection...\n", c.profileID)
	return c.sm.RunContext(ctx)
}

// Stop disconnects from Slack
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sm.Events:
			if !ok {
				return
			}
			c.handleEnvelope(evt)
		}
	}
}

func (c *Client) handleEnvelope(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		c.emitState("connecting")
	case socketmode.EventTypeConnected:
		fmt.Printf("[Stream:%s] Connected\n", c.profileID)
		c.emitState("connected")
	case socketmode.EventTypeConnectionError:
		fmt.Printf("[Stream:%s] Connection error: %v\n", c.profileID, evt.Data)
		c.emitState("error")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		// Ack before any processing so Slack never retries the
		// envelope on our account.
		if evt.Request != nil {
			c.sm.Ack(*evt.Request)
		}
		c.handleEventsAPI(apiEvent)
	}
}

func (c *Client) handleEventsAPI(apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	msg, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	if c.onMessage == nil {
		return
	}
	c.onMessage(&domain.MessageEvent{
		Type:        "message",
		Subtype:     msg.SubType,
		ChannelID:   msg.Channel,
		ChannelType: msg.ChannelType,
		UserID:      msg.User,
		Username:    msg.Username,
		Text:        msg.Text,
		TS:          msg.TimeStamp,
		ThreadTS:    msg.ThreadTimeStamp,
	})
}

func (c *Client) emitState(state string) {
	if c.onState != nil {
		c.onState(state)
	}
}
