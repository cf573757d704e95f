package data

import (
	"context"
	"testing"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// Child tables reference profiles, mirroring the startup sync.
	err = store.SyncProfiles(context.Background(), []domain.Profile{
		{ID: "work", DisplayName: "Work", UserID: "U1", IsPrimary: true},
		{ID: "personal", DisplayName: "Personal", UserID: "U2"},
	})
	if err != nil {
		t.Fatalf("Failed to seed profiles: %v", err)
	}
	return store
}

func insertMsg(t *testing.T, store *Store, msg domain.Message) {
	t.Helper()
	if err := store.InsertIfAbsent(context.Background(), &msg); err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
}

func TestInsertIfAbsent_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := domain.Message{
		TS:        "100.000100",
		ProfileID: "work",
		ChannelID: "C1",
		UserID:    "U1",
		Text:      "hello",
	}
	insertMsg(t, store, msg)
	insertMsg(t, store, msg) // same (ts, profile, channel), absorbed silently

	got, err := store.GetChannelMessages(ctx, "work", "C1", 10)
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 stored message after duplicate insert, got %d", len(got))
	}
}

func TestGetChannelMessages_ChronologicalWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []string{"300.000100", "100.000100", "200.000100", "400.000100"} {
		insertMsg(t, store, domain.Message{
			TS: ts, ProfileID: "work", ChannelID: "C1", UserID: "U1", Text: "msg " + ts,
		})
	}

	// The limit keeps the newest rows, returned oldest first.
	got, err := store.GetChannelMessages(ctx, "work", "C1", 3)
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	wantOrder := []string{"200.000100", "300.000100", "400.000100"}
	for i, want := range wantOrder {
		if got[i].TS != want {
			t.Errorf("Position %d: got ts %s, want %s", i, got[i].TS, want)
		}
	}
}

func TestGetPending_PriorityOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertWatch(ctx, &domain.WatchedChannel{
		ChannelID: "CHIGH", ProfileID: "work", ChannelName: "incidents", Priority: domain.PriorityHigh,
	}); err != nil {
		t.Fatalf("Failed to upsert watch: %v", err)
	}
	if err := store.UpsertWatch(ctx, &domain.WatchedChannel{
		ChannelID: "CLOW", ProfileID: "work", ChannelName: "random", Priority: domain.PriorityLow,
	}); err != nil {
		t.Fatalf("Failed to upsert watch: %v", err)
	}

	// Unwatched channel rows fall back to normal priority via the join.
	insertMsg(t, store, domain.Message{TS: "400.000100", ProfileID: "work", ChannelID: "CUNWATCHED", UserID: "U1", Text: "a", NeedsReply: true})
	insertMsg(t, store, domain.Message{TS: "300.000100", ProfileID: "work", ChannelID: "CHIGH", UserID: "U1", Text: "b", NeedsReply: true})
	insertMsg(t, store, domain.Message{TS: "200.000100", ProfileID: "work", ChannelID: "CHIGH", UserID: "U1", Text: "c", NeedsReply: true})
	insertMsg(t, store, domain.Message{TS: "500.000100", ProfileID: "work", ChannelID: "CLOW", UserID: "U1", Text: "d", NeedsReply: true})
	// Not pending: needs_reply unset, or already replied.
	insertMsg(t, store, domain.Message{TS: "600.000100", ProfileID: "work", ChannelID: "CHIGH", UserID: "U1", Text: "e"})

	got, err := store.GetPending(ctx, repo.PendingFilter{ProfileID: "work"})
	if err != nil {
		t.Fatalf("Failed to query pending: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Expected 4 pending messages, got %d", len(got))
	}

	wantTS := []string{"300.000100", "200.000100", "400.000100", "500.000100"}
	for i, want := range wantTS {
		if got[i].TS != want {
			t.Errorf("Position %d: got ts %s, want %s", i, got[i].TS, want)
		}
	}
	if got[0].ChannelPriority != domain.PriorityHigh {
		t.Errorf("Expected high priority first, got %s", got[0].ChannelPriority)
	}
	if got[2].ChannelPriority != domain.PriorityNormal {
		t.Errorf("Expected unwatched channel to report normal priority, got %s", got[2].ChannelPriority)
	}
	if got[0].ChannelName != "incidents" {
		t.Errorf("Expected channel name from watch join, got %q", got[0].ChannelName)
	}
}

func TestGetPending_FiltersAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertMsg(t, store, domain.Message{TS: "100.000100", ProfileID: "work", ChannelID: "C1", UserID: "U1", Text: "a", NeedsReply: true})
	insertMsg(t, store, domain.Message{TS: "200.000100", ProfileID: "work", ChannelID: "C2", UserID: "U1", Text: "b", NeedsReply: true})
	insertMsg(t, store, domain.Message{TS: "300.000100", ProfileID: "personal", ChannelID: "C3", UserID: "U2", Text: "c", NeedsReply: true})

	got, err := store.GetPending(ctx, repo.PendingFilter{ProfileID: "work"})
	if err != nil {
		t.Fatalf("Failed to query pending: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Profile filter: expected 2, got %d", len(got))
	}

	got, err = store.GetPending(ctx, repo.PendingFilter{ChannelID: "C3"})
	if err != nil {
		t.Fatalf("Failed to query pending: %v", err)
	}
	if len(got) != 1 || got[0].ProfileID != "personal" {
		t.Errorf("Channel filter: unexpected result %+v", got)
	}

	got, err = store.GetPending(ctx, repo.PendingFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query pending: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Limit: expected 1, got %d", len(got))
	}
}

func TestMarkReplied(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertMsg(t, store, domain.Message{TS: "100.000100", ProfileID: "work", ChannelID: "C1", UserID: "U1", Text: "a", NeedsReply: true})

	if err := store.MarkReplied(ctx, "work", "C1", "100.000100"); err != nil {
		t.Fatalf("Failed to mark replied: %v", err)
	}
	got, err := store.GetPending(ctx, repo.PendingFilter{ProfileID: "work"})
	if err != nil {
		t.Fatalf("Failed to query pending: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no pending after reply, got %d", len(got))
	}

	// Unknown timestamps are a silent no-op.
	if err := store.MarkReplied(ctx, "work", "C1", "999.000999"); err != nil {
		t.Errorf("Unknown ts should not error: %v", err)
	}
}

func TestHasParticipatedInThread(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertMsg(t, store, domain.Message{
		TS: "150.000100", ProfileID: "work", ChannelID: "C1", UserID: "U1",
		Text: "my reply", ThreadTS: "100.000100", IsOwnMessage: true,
	})

	got, err := store.HasParticipatedInThread(ctx, "work", "C1", "100.000100", "U1")
	if err != nil {
		t.Fatalf("Failed to check participation: %v", err)
	}
	if !got {
		t.Error("Expected participation in thread 100.000100")
	}

	got, err = store.HasParticipatedInThread(ctx, "work", "C1", "200.000100", "U1")
	if err != nil {
		t.Fatalf("Failed to check participation: %v", err)
	}
	if got {
		t.Error("Expected no participation in unrelated thread")
	}

	got, err = store.HasParticipatedInThread(ctx, "work", "C1", "100.000100", "U2")
	if err != nil {
		t.Fatalf("Failed to check participation: %v", err)
	}
	if got {
		t.Error("Expected no participation for another user")
	}
}

func TestGetOwnMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertMsg(t, store, domain.Message{TS: "100.000100", ProfileID: "work", ChannelID: "C1", UserID: "U1", Text: "mine", IsOwnMessage: true})
	insertMsg(t, store, domain.Message{TS: "200.000100", ProfileID: "work", ChannelID: "C1", UserID: "U2", Text: "theirs"})
	insertMsg(t, store, domain.Message{TS: "300.000100", ProfileID: "work", ChannelID: "C2", UserID: "U1", Text: "mine too", IsOwnMessage: true})

	got, err := store.GetOwnMessages(ctx, "work", 10)
	if err != nil {
		t.Fatalf("Failed to read own messages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 own messages, got %d", len(got))
	}
	if got[0].TS != "300.000100" {
		t.Errorf("Expected newest first, got %s", got[0].TS)
	}
}

func TestWatchLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpsertWatch(ctx, &domain.WatchedChannel{
		ChannelID: "C1", ProfileID: "work", ChannelName: "general",
		Priority: domain.PriorityNormal, Description: "main channel",
	})
	if err != nil {
		t.Fatalf("Failed to upsert watch: %v", err)
	}

	// Re-upsert without a description keeps the stored one.
	err = store.UpsertWatch(ctx, &domain.WatchedChannel{
		ChannelID: "C1", ProfileID: "work", ChannelName: "general-renamed",
		Priority: domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Failed to re-upsert watch: %v", err)
	}

	list, err := store.ListWatch(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to list watches: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 watch, got %d", len(list))
	}
	if list[0].ChannelName != "general-renamed" || list[0].Priority != domain.PriorityHigh {
		t.Errorf("Upsert did not update fields: %+v", list[0])
	}
	if list[0].Description != "main channel" {
		t.Errorf("Empty description should keep the existing one, got %q", list[0].Description)
	}

	ids, err := store.GetWatchedIDs(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to get watched ids: %v", err)
	}
	if _, ok := ids["C1"]; !ok || len(ids) != 1 {
		t.Errorf("Unexpected id set: %v", ids)
	}

	if err := store.RemoveWatch(ctx, "work", "C1"); err != nil {
		t.Fatalf("Failed to remove watch: %v", err)
	}
	ids, err = store.GetWatchedIDs(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to get watched ids: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected empty id set after remove, got %v", ids)
	}
}

func TestListWatch_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, wc := range []domain.WatchedChannel{
		{ChannelID: "C1", ProfileID: "work", ChannelName: "zulu", Priority: domain.PriorityNormal},
		{ChannelID: "C2", ProfileID: "work", ChannelName: "alpha", Priority: domain.PriorityLow},
		{ChannelID: "C3", ProfileID: "work", ChannelName: "mike", Priority: domain.PriorityHigh},
		{ChannelID: "C4", ProfileID: "work", ChannelName: "bravo", Priority: domain.PriorityNormal},
	} {
		wc := wc
		if err := store.UpsertWatch(ctx, &wc); err != nil {
			t.Fatalf("Failed to upsert watch: %v", err)
		}
	}

	list, err := store.ListWatch(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to list watches: %v", err)
	}
	var names []string
	for _, wc := range list {
		names = append(names, wc.ChannelName)
	}
	want := []string{"mike", "bravo", "zulu", "alpha"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, names)
		}
	}
}

func TestStyleRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetStyle(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to read absent style: %v", err)
	}
	if got != nil {
		t.Fatal("Expected nil style when none stored")
	}

	style := &domain.StyleProfile{
		AvgMessageLength:      42,
		EmojiFrequency:        0.25,
		UsesExclamation:       true,
		CapitalizationStyle:   domain.CapLowercase,
		GreetingPatterns:      []string{"hey"},
		FormalityLevel:        domain.FormalityCasual,
		TypicalResponseLength: domain.LengthShort,
		SampleMessages:        []string{"sounds good", "on it"},
	}
	if err := store.SaveStyle(ctx, "work", style); err != nil {
		t.Fatalf("Failed to save style: %v", err)
	}

	got, err = store.GetStyle(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to read style: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored style")
	}
	if got.AvgMessageLength != 42 || got.EmojiFrequency != 0.25 || !got.UsesExclamation {
		t.Errorf("Fingerprint mismatch: %+v", got)
	}
	if len(got.SampleMessages) != 2 || got.SampleMessages[0] != "sounds good" {
		t.Errorf("Samples mismatch: %v", got.SampleMessages)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Expected updated_at to be set")
	}

	// Saving again replaces the previous fingerprint.
	style.AvgMessageLength = 99
	if err := store.SaveStyle(ctx, "work", style); err != nil {
		t.Fatalf("Failed to re-save style: %v", err)
	}
	got, err = store.GetStyle(ctx, "work")
	if err != nil {
		t.Fatalf("Failed to re-read style: %v", err)
	}
	if got.AvgMessageLength != 99 {
		t.Errorf("Expected replaced fingerprint, got %d", got.AvgMessageLength)
	}
}

func TestSyncProfiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profiles := []domain.Profile{
		{ID: "work", DisplayName: "Work", UserID: "U1", IsPrimary: true},
		{ID: "personal", DisplayName: "Personal", UserID: "U2"},
	}
	if err := store.SyncProfiles(ctx, profiles); err != nil {
		t.Fatalf("Failed to sync profiles: %v", err)
	}

	// Syncing again with changed fields updates in place.
	profiles[1].DisplayName = "Personal Acct"
	if err := store.SyncProfiles(ctx, profiles); err != nil {
		t.Fatalf("Failed to re-sync profiles: %v", err)
	}
}
