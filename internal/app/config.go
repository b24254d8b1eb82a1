package app

import (
	"fmt"
	"strconv"
	"strings"

	coreconfig "github.com/m3rciful/postbot/core/config"
	coredatabase "github.com/m3rciful/postbot/core/database"
	"github.com/m3rciful/postbot/internal/lifecycle"
)

// ChannelConfig names the broadcast channel.
type ChannelConfig struct {
	// ID is the numeric chat id (-100...) or the public @username.
	ID string `yaml:"id" envconfig:"CHANNEL_ID"`
}

// StagingConfig tunes the submission flow.
type StagingConfig struct {
	SkipPreview bool `yaml:"skip_preview" envconfig:"STAGING_SKIP_PREVIEW"`
	// MembershipCacheSeconds keeps channel membership answers; 0 asks every time.
	MembershipCacheSeconds int `yaml:"membership_cache_seconds" envconfig:"STAGING_MEMBERSHIP_CACHE_SECONDS"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Channel  ChannelConfig       `yaml:"channel"`
	Staging  StagingConfig       `yaml:"staging"`
	Database coredatabase.Config `yaml:"database"`
	Messages lifecycle.Messages  `yaml:"messages"`
}

// CoreConfig exposes the shared core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads, overrides and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	id, err := normalizeChannel(c.Channel.ID)
	if err != nil {
		return err
	}
	c.Channel.ID = id

	if c.Staging.MembershipCacheSeconds < 0 {
		return fmt.Errorf("staging.membership_cache_seconds must be >= 0")
	}
	if c.Database.Enabled() {
		c.Database.Normalize()
	}
	c.Messages = c.Messages.WithDefaults()
	return nil
}

func normalizeChannel(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case id == "":
		return "", fmt.Errorf("channel.id is required")
	case strings.HasPrefix(id, "@"):
		if len(id) < 2 {
			return "", fmt.Errorf("channel.id %q has an empty username", raw)
		}
		return id, nil
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", fmt.Errorf("channel.id %q must be a numeric chat id or @username", raw)
	}
	return id, nil
}
