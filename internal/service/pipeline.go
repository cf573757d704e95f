package service

import (
	"context"
	"fmt"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
	"github.com/commzilla/slack-mcp-server/internal/biz/usecase"
)

// Pipeline turns raw socket events for one profile into classified,
// persisted messages. Events arrive already acknowledged, so an error
// here only loses the one event.
type Pipeline struct {
	profile    domain.Profile
	messages   repo.MessageRepo
	classifier *usecase.Classifier
	cache      *WatchCache
}

// NewPipeline creates the ingestion pipeline for one profile
func NewPipeline(profile domain.Profile, messages repo.MessageRepo, classifier *usecase.Classifier, cache *WatchCache) *Pipeline {
	return &Pipeline{
		profile:    profile,
		messages:   messages,
		classifier: classifier,
		cache:      cache,
	}
}

// HandleEvent processes one message event end to end
func (p *Pipeline) HandleEvent(ctx context.Context, ev *domain.MessageEvent) {
	if ev.Discardable() {
		return
	}

	// Only monitored conversations are ingested. DMs get no special
	// treatment here, they enter the watch list like any channel.
	if !p.cache.Contains(ev.ChannelID) {
		return
	}

	isOwn := ev.UserID == p.profile.UserID

	needsReply := false
	if !isOwn {
		var err error
		needsReply, err = p.classifier.NeedsReply(ctx, p.profile.ID, p.profile.UserID, usecase.ClassifyInput{
			ChannelID:   ev.ChannelID,
			ChannelType: ev.ChannelType,
			Text:        ev.Text,
			TS:          ev.TS,
			ThreadTS:    ev.ThreadTS,
		})
		if err != nil {
			fmt.Printf("[Pipeline:%s] Error classifying message %s: %v\n", p.profile.ID, ev.TS, err)
		}
	}

	err := p.messages.InsertIfAbsent(ctx, &domain.Message{
		TS:           ev.TS,
		ProfileID:    p.profile.ID,
		ChannelID:    ev.ChannelID,
		UserID:       ev.UserID,
		Username:     ev.Username,
		Text:         ev.Text,
		ThreadTS:     ev.ThreadTS,
		IsOwnMessage: isOwn,
		NeedsReply:   needsReply,
	})
	if err != nil {
		fmt.Printf("[Pipeline:%s] Error storing message %s: %v\n", p.profile.ID, ev.TS, err)
		return
	}

	if needsReply {
		fmt.Printf("[Pipeline:%s] Needs reply in %s from %s: %s\n",
			p.profile.ID, ev.ChannelID, ev.UserID, truncate(ev.Text, 50))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
