package usecase

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

type mockMessageRepo struct {
	pending    []domain.PendingMessage
	lastFilter repo.PendingFilter

	own          []domain.Message
	replied      []string
	participated bool
}

func (m *mockMessageRepo) InsertIfAbsent(ctx context.Context, msg *domain.Message) error {
	return nil
}

func (m *mockMessageRepo) GetChannelMessages(ctx context.Context, profileID, channelID string, limit int) ([]domain.Message, error) {
	return nil, nil
}

func (m *mockMessageRepo) GetPending(ctx context.Context, filter repo.PendingFilter) ([]domain.PendingMessage, error) {
	m.lastFilter = filter
	return m.pending, nil
}

func (m *mockMessageRepo) MarkReplied(ctx context.Context, profileID, channelID, ts string) error {
	m.replied = append(m.replied, ts)
	return nil
}

func (m *mockMessageRepo) GetOwnMessages(ctx context.Context, profileID string, limit int) ([]domain.Message, error) {
	return m.own, nil
}

func (m *mockMessageRepo) HasParticipatedInThread(ctx context.Context, profileID, channelID, threadTS, userID string) (bool, error) {
	return m.participated, nil
}

func pendingMsg(profileID, channel, user, text, ts string, priority domain.Priority) domain.PendingMessage {
	return domain.PendingMessage{
		Message: domain.Message{
			TS:          ts,
			ProfileID:   profileID,
			ChannelID:   "C" + channel,
			ChannelName: channel,
			UserID:      "U" + user,
			Username:    user,
			Text:        text,
		},
		ChannelPriority: priority,
	}
}

func TestGetPendingReplies_Empty(t *testing.T) {
	uc := NewPendingUsecase(&mockMessageRepo{})

	got, err := uc.GetPendingReplies(context.Background(), "work", "", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := `No pending replies for profile "work". All caught up!`
	if got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
}

func TestGetPendingReplies_EmptyAllProfiles(t *testing.T) {
	uc := NewPendingUsecase(&mockMessageRepo{})

	got, err := uc.GetPendingReplies(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(got, "any profile") {
		t.Errorf("Expected any-profile wording, got %q", got)
	}
}

func TestGetPendingReplies_DefaultLimit(t *testing.T) {
	mock := &mockMessageRepo{}
	uc := NewPendingUsecase(mock)

	if _, err := uc.GetPendingReplies(context.Background(), "", "", 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mock.lastFilter.Limit != 20 {
		t.Errorf("Expected default limit 20, got %d", mock.lastFilter.Limit)
	}
}

func TestGetPendingReplies_GroupsByProfile(t *testing.T) {
	now := time.Unix(10000, 0)
	mock := &mockMessageRepo{
		pending: []domain.PendingMessage{
			pendingMsg("work", "incidents", "alice", "prod is down", "9700.000100", domain.PriorityHigh),
			pendingMsg("personal", "general", "bob", "lunch today", "9940.000100", domain.PriorityNormal),
			pendingMsg("work", "general", "carol", "can you review my PR", "9900.000100", domain.PriorityNormal),
		},
	}
	uc := NewPendingUsecase(mock)
	uc.now = func() time.Time { return now }

	got, err := uc.GetPendingReplies(context.Background(), "", "", 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.HasPrefix(got, "**Pending Replies (3 total):**") {
		t.Errorf("Missing total header: %q", got)
	}

	// Profiles appear in first-seen order, each with its own count.
	workIdx := strings.Index(got, "**[work]** (2 pending):")
	personalIdx := strings.Index(got, "**[personal]** (1 pending):")
	if workIdx == -1 || personalIdx == -1 {
		t.Fatalf("Missing profile sections: %q", got)
	}
	if workIdx > personalIdx {
		t.Error("Expected work section before personal section")
	}

	// Both work messages stay under the work section, in query order.
	aliceIdx := strings.Index(got, "alice")
	carolIdx := strings.Index(got, "carol")
	if aliceIdx == -1 || carolIdx == -1 || aliceIdx > carolIdx {
		t.Errorf("Expected per-profile query order preserved: %q", got)
	}

	if !strings.Contains(got, "[HIGH]") {
		t.Errorf("Expected high priority tag: %q", got)
	}
	if strings.Contains(got, "[NORMAL]") {
		t.Errorf("Normal priority should not be tagged: %q", got)
	}
	if !strings.Contains(got, "(5m ago)") {
		t.Errorf("Expected relative age for alice's message: %q", got)
	}
}

func TestGetPendingReplies_ThreadAndTruncation(t *testing.T) {
	long := strings.Repeat("x", 150)
	msg := pendingMsg("work", "general", "alice", long, "9990.000100", domain.PriorityNormal)
	msg.ThreadTS = "9980.000100"

	uc := NewPendingUsecase(&mockMessageRepo{pending: []domain.PendingMessage{msg}})
	uc.now = func() time.Time { return time.Unix(10000, 0) }

	got, err := uc.GetPendingReplies(context.Background(), "work", "", 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(got, "(thread: 9980.000100)") {
		t.Errorf("Expected thread marker: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("x", 100)+"...") {
		t.Errorf("Expected text truncated at 100 chars: %q", got)
	}
	if strings.Contains(got, strings.Repeat("x", 101)) {
		t.Errorf("Text not truncated: %q", got)
	}
}

func TestTruncateText_RuneBoundary(t *testing.T) {
	long := strings.Repeat("日", 120)
	got := truncateText(long, 100)
	if !utf8.ValidString(got) {
		t.Errorf("Truncation produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("日", 100) + "..."; got != want {
		t.Errorf("truncateText = %q, want %q", got, want)
	}
}

func TestRelativeAge(t *testing.T) {
	uc := NewPendingUsecase(&mockMessageRepo{})
	now := time.Unix(100000, 0)
	uc.now = func() time.Time { return now }

	cases := []struct {
		ts   string
		want string
	}{
		{"99990.000000", "just now"},
		{"99700.000000", "5m ago"},
		{"92800.000000", "2h ago"},
		{"13600.000000", "1d ago"},
		{"not-a-ts", "unknown age"},
	}
	for _, tc := range cases {
		if got := uc.relativeAge(tc.ts); got != tc.want {
			t.Errorf("relativeAge(%q) = %q, want %q", tc.ts, got, tc.want)
		}
	}
}
