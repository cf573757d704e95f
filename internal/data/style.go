package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// GetStyle loads a profile's cached writing style. A nil profile with a
// nil error means no analysis has been stored yet.
func (s *Store) GetStyle(ctx context.Context, profileID string) (*domain.StyleProfile, error) {
	var profileJSON string
	var samplesJSON sql.NullString
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_json, sample_messages, updated_at FROM style_profiles WHERE profile_id = ?`,
		profileID).Scan(&profileJSON, &samplesJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load style profile: %w", err)
	}

	var style domain.StyleProfile
	if err := json.Unmarshal([]byte(profileJSON), &style); err != nil {
		return nil, fmt.Errorf("failed to decode style profile: %w", err)
	}
	if samplesJSON.Valid && samplesJSON.String != "" {
		if err := json.Unmarshal([]byte(samplesJSON.String), &style.SampleMessages); err != nil {
			return nil, fmt.Errorf("failed to decode style samples: %w", err)
		}
	}
	style.UpdatedAt = parseStoredTime(updatedAt)
	return &style, nil
}

// SaveStyle stores or replaces a profile's writing style analysis.
func (s *Store) SaveStyle(ctx context.Context, profileID string, style *domain.StyleProfile) error {
	samples := style.SampleMessages
	trimmed := *style
	trimmed.SampleMessages = nil

	profileJSON, err := json.Marshal(&trimmed)
	if err != nil {
		return fmt.Errorf("failed to encode style profile: %w", err)
	}
	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to encode style samples: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO style_profiles (profile_id, profile_json, sample_messages, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(profile_id) DO UPDATE SET
			profile_json = excluded.profile_json,
			sample_messages = excluded.sample_messages,
			updated_at = excluded.updated_at
	`, profileID, string(profileJSON), string(samplesJSON))
	if err != nil {
		return fmt.Errorf("failed to save style profile: %w", err)
	}
	return nil
}
