package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// UpsertWatch adds a channel to a profile's watch list or updates an
// existing entry. An empty description keeps whatever was stored before.
func (s *Store) UpsertWatch(ctx context.Context, w *domain.WatchedChannel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watched_channels (channel_id, channel_name, profile_id, priority, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, profile_id) DO UPDATE SET
			channel_name = excluded.channel_name,
			priority = excluded.priority,
			description = COALESCE(excluded.description, watched_channels.description)
	`, w.ChannelID, w.ChannelName, w.ProfileID, string(w.Priority), nullable(w.Description))
	if err != nil {
		return fmt.Errorf("failed to upsert watched channel: %w", err)
	}
	return nil
}

func (s *Store) RemoveWatch(ctx context.Context, profileID, channelID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watched_channels WHERE channel_id = ? AND profile_id = ?`,
		channelID, profileID)
	if err != nil {
		return fmt.Errorf("failed to remove watched channel: %w", err)
	}
	return nil
}

// ListWatch returns a profile's watch list ordered by priority then name.
func (s *Store) ListWatch(ctx context.Context, profileID string) ([]domain.WatchedChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, channel_name, profile_id, priority, description
		FROM watched_channels
		WHERE profile_id = ?
		ORDER BY
			CASE priority WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
			channel_name
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched channels: %w", err)
	}
	defer rows.Close()

	var watches []domain.WatchedChannel
	for rows.Next() {
		var w domain.WatchedChannel
		var priority string
		var description sql.NullString
		if err := rows.Scan(&w.ChannelID, &w.ChannelName, &w.ProfileID, &priority, &description); err != nil {
			return nil, fmt.Errorf("failed to scan watched channel: %w", err)
		}
		w.Priority = domain.Priority(priority)
		w.Description = description.String
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// GetWatchedIDs returns the set of channel IDs a profile watches.
func (s *Store) GetWatchedIDs(ctx context.Context, profileID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id FROM watched_channels WHERE profile_id = ?`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched channel ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan watched channel id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
