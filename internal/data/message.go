package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

// parseStoredTime reads the DATETIME text sqlite writes for
// CURRENT_TIMESTAMP defaults. A zero time is returned for rows
// written by other tools with a format we do not recognize.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// InsertIfAbsent stores a message unless the same (ts, profile, channel)
// row already exists. INSERT OR IGNORE absorbs racing duplicate
// deliveries without an error.
func (s *Store) InsertIfAbsent(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages
			(ts, profile_id, channel_id, channel_name, user_id, username, text, thread_ts, is_own_message, needs_reply)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.TS,
		msg.ProfileID,
		msg.ChannelID,
		nullable(msg.ChannelName),
		msg.UserID,
		nullable(msg.Username),
		msg.Text,
		nullable(msg.ThreadTS),
		boolToInt(msg.IsOwnMessage),
		boolToInt(msg.NeedsReply),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetChannelMessages returns up to limit recent messages from a channel
// in chronological order
func (s *Store) GetChannelMessages(ctx context.Context, profileID, channelID string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, profile_id, channel_id, channel_name, user_id, username, text, thread_ts,
		       is_own_message, needs_reply, replied, created_at
		FROM messages
		WHERE profile_id = ? AND channel_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`, profileID, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Rows come newest first; reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetPending returns unresolved needs-reply messages joined with watch
// priority, high priority first, newest first within equal priority.
// The limit applies after ordering.
func (s *Store) GetPending(ctx context.Context, filter repo.PendingFilter) ([]domain.PendingMessage, error) {
	query := `
		SELECT m.id, m.ts, m.profile_id, m.channel_id, m.channel_name, m.user_id, m.username, m.text,
		       m.thread_ts, m.is_own_message, m.needs_reply, m.replied, m.created_at,
		       COALESCE(wc.priority, 'normal') AS channel_priority
		FROM messages m
		LEFT JOIN watched_channels wc ON m.channel_id = wc.channel_id AND m.profile_id = wc.profile_id
		WHERE m.needs_reply = 1 AND m.replied = 0
	`
	var args []any

	if filter.ProfileID != "" {
		query += ` AND m.profile_id = ?`
		args = append(args, filter.ProfileID)
	}
	if filter.ChannelID != "" {
		query += ` AND m.channel_id = ?`
		args = append(args, filter.ChannelID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += `
		ORDER BY
			CASE COALESCE(wc.priority, 'normal')
				WHEN 'high' THEN 1
				WHEN 'normal' THEN 2
				WHEN 'low' THEN 3
			END,
			m.ts DESC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending replies: %w", err)
	}
	defer rows.Close()

	var pending []domain.PendingMessage
	for rows.Next() {
		var msg domain.Message
		var channelName, username, threadTS sql.NullString
		var createdAt, priority string
		err := rows.Scan(&msg.ID, &msg.TS, &msg.ProfileID, &msg.ChannelID, &channelName, &msg.UserID,
			&username, &msg.Text, &threadTS, &msg.IsOwnMessage, &msg.NeedsReply, &msg.Replied,
			&createdAt, &priority)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending message: %w", err)
		}
		msg.ChannelName = channelName.String
		msg.Username = username.String
		msg.ThreadTS = threadTS.String
		msg.CreatedAt = parseStoredTime(createdAt)
		pending = append(pending, domain.PendingMessage{
			Message:         msg,
			ChannelPriority: domain.Priority(priority),
		})
	}
	return pending, rows.Err()
}

// MarkReplied flags the message at (profile, channel, ts) as replied.
// Unknown timestamps are a no-op.
func (s *Store) MarkReplied(ctx context.Context, profileID, channelID, ts string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET replied = 1
		WHERE profile_id = ? AND channel_id = ? AND ts = ?
	`, profileID, channelID, ts)
	if err != nil {
		return fmt.Errorf("failed to mark replied: %w", err)
	}
	return nil
}

// GetOwnMessages returns up to limit of the profile's own messages,
// newest first
func (s *Store) GetOwnMessages(ctx context.Context, profileID string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, profile_id, channel_id, channel_name, user_id, username, text, thread_ts,
		       is_own_message, needs_reply, replied, created_at
		FROM messages
		WHERE profile_id = ? AND is_own_message = 1
		ORDER BY ts DESC
		LIMIT ?
	`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query own messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// HasParticipatedInThread reports whether the user has a stored message
// in the given thread
func (s *Store) HasParticipatedInThread(ctx context.Context, profileID, channelID, threadTS, userID string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM messages
		WHERE profile_id = ? AND channel_id = ? AND thread_ts = ? AND user_id = ?
		LIMIT 1
	`, profileID, channelID, threadTS, userID)

	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check thread participation: %w", err)
	}
	return true, nil
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var channelName, username, threadTS sql.NullString
		var createdAt string
		err := rows.Scan(&msg.ID, &msg.TS, &msg.ProfileID, &msg.ChannelID, &channelName, &msg.UserID,
			&username, &msg.Text, &threadTS, &msg.IsOwnMessage, &msg.NeedsReply, &msg.Replied, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.ChannelName = channelName.String
		msg.Username = username.String
		msg.ThreadTS = threadTS.String
		msg.CreatedAt = parseStoredTime(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
