package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
)

// ErrNoProfiles indicates profiles.json contained no profiles
var ErrNoProfiles = errors.New("profiles.json must contain at least one profile")

// Profile is one configured Slack identity with its credential set
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	UserToken   string `json:"user_token"` // xoxp-...
	BotToken    string `json:"bot_token"`  // xoxb-...
	AppToken    string `json:"app_token"`  // xapp-...
	UserID      string `json:"user_id"`    // Slack user ID (U...)
	IsPrimary   bool   `json:"is_primary"`
}

// Config is the application configuration
type Config struct {
	Profiles []Profile
	DataDir  string
}

type profilesFile struct {
	Profiles []Profile `json:"profiles"`
}

// Load finds and parses profiles.json, validates it, and resolves the
// data directory
func Load() (*Config, error) {
	path, err := findProfilesJSON()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var parsed profilesFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: invalid JSON: %w", path, err)
	}
	if len(parsed.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range parsed.Profiles {
		if err := validateProfile(&parsed.Profiles[i], i); err != nil {
			return nil, err
		}
	}

	if err := ensureOnePrimary(parsed.Profiles); err != nil {
		return nil, err
	}

	dataDir := os.Getenv("SLACK_DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Join(filepath.Dir(path), "data")
	}

	return &Config{Profiles: parsed.Profiles, DataDir: dataDir}, nil
}

// findProfilesJSON searches the usual locations for profiles.json
func findProfilesJSON() (string, error) {
	var candidates []string

	if p := os.Getenv("SLACK_PROFILES_PATH"); p != "" {
		candidates = append(candidates, p)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "profiles.json"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "profiles.json"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "slack-mcp-server", "profiles.json"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("profiles.json not found, searched:\n%s", strings.Join(candidates, "\n"))
}

func validateProfile(p *Profile, index int) error {
	required := map[string]string{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"user_token":   p.UserToken,
		"bot_token":    p.BotToken,
		"app_token":    p.AppToken,
		"user_id":      p.UserID,
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("profile at index %d is missing required field %q", index, field)
		}
	}

	prefixes := map[string]struct{ value, prefix string }{
		"user_token": {p.UserToken, "xoxp-"},
		"bot_token":  {p.BotToken, "xoxb-"},
		"app_token":  {p.AppToken, "xapp-"},
	}
	for field, tok := range prefixes {
		if !strings.HasPrefix(tok.value, tok.prefix) {
			return fmt.Errorf("profile %q: %s must start with %q", p.ID, field, tok.prefix)
		}
	}

	return nil
}

// ensureOnePrimary enforces exactly one primary profile, defaulting to
// the first when none is marked
func ensureOnePrimary(profiles []Profile) error {
	var primaries []string
	for _, p := range profiles {
		if p.IsPrimary {
			primaries = append(primaries, p.ID)
		}
	}

	switch len(primaries) {
	case 0:
		profiles[0].IsPrimary = true
		log.Printf("[conf] No primary profile set. Defaulting to %q.", profiles[0].ID)
		return nil
	case 1:
		return nil
	default:
		return fmt.Errorf("multiple profiles marked primary: %s; only one allowed", strings.Join(primaries, ", "))
	}
}

// Primary returns the primary profile
func (c *Config) Primary() *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].IsPrimary {
			return &c.Profiles[i]
		}
	}
	return &c.Profiles[0]
}

// Get returns the profile with the given id, or the primary profile
// when id is empty
func (c *Config) Get(id string) (*Profile, error) {
	if id == "" {
		return c.Primary(), nil
	}
	for i := range c.Profiles {
		if c.Profiles[i].ID == id {
			return &c.Profiles[i], nil
		}
	}

	var available []string
	for _, p := range c.Profiles {
		available = append(available, p.ID)
	}
	return nil, fmt.Errorf("profile %q not found, available: %s", id, strings.Join(available, ", "))
}

// Domain converts configured profiles to domain entities without
// credential material
func (c *Config) Domain() []domain.Profile {
	out := make([]domain.Profile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		out = append(out, domain.Profile{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			UserID:      p.UserID,
			IsPrimary:   p.IsPrimary,
		})
	}
	return out
}
