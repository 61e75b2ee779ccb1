package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultDatabase = "./herald.db"
	defaultTokenEnv = "DISCORD_TOKEN"
	defaultLogLevel = "info"
)

// Config is the host configuration for one Herald instance.
type Config struct {
	// Organization is the peoply.app organization name whose calendar
	// is mirrored.
	Organization string `yaml:"organization"`

	// ChannelID is the Discord text channel announcements go to.
	ChannelID int64 `yaml:"channel_id"`

	// Database is the path of the SQLite file holding the events table.
	Database string `yaml:"database"`

	// TokenEnv names the environment variable holding the Discord bot
	// token. The token itself never appears in the YAML file.
	TokenEnv string `yaml:"token_env"`

	// Listen optionally enables the metrics/health HTTP listener.
	Listen string `yaml:"listen"`

	Log LogConfig `yaml:"log"`

	token string
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads the YAML file at path, seeds the environment from an
// optional .env file, applies defaults, resolves the bot token and
// validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.token = os.Getenv(cfg.TokenEnv)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.TokenEnv == "" {
		c.TokenEnv = defaultTokenEnv
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

func (c *Config) validate() error {
	if c.Organization == "" {
		return errors.New("organization is required")
	}
	if c.ChannelID == 0 {
		return errors.New("channel_id is required")
	}
	if c.token == "" {
		return fmt.Errorf("bot token not found in $%s", c.TokenEnv)
	}
	return nil
}

// Token returns the resolved Discord bot token.
func (c *Config) Token() string {
	return c.token
}
