package clanwatch

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/clanwatchbot/clanwatch/clanwatch/database"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Bot     BotConfig         `toml:"bot"`
	DB      database.DBConfig `toml:"db"`
	Bungie  BungieConfig      `toml:"bungie"`
	Tracker TrackerConfig     `toml:"tracker"`
	Spaces  SpacesConfig      `toml:"spaces"`
	Legacy  LegacyConfig      `toml:"legacy"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type BotConfig struct {
	Token      string         `toml:"token"`
	DevGuilds  []snowflake.ID `toml:"dev_guilds"`
	GuildID    snowflake.ID   `toml:"guild_id"`
	AdminRoles []snowflake.ID `toml:"admin_roles"`
}

type BungieConfig struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	MaxAttempts        int    `toml:"max_attempts"`
	MaxConcurrent      int64  `toml:"max_concurrent"`
	MinIntervalMillis  int64  `toml:"min_interval_millis"`
	RequestTimeoutSecs int64  `toml:"request_timeout_secs"`
}

type ClanConfig struct {
	ID   int64  `toml:"id"`
	Name string `toml:"name"`
}

type TrackerConfig struct {
	Clans                []ClanConfig `toml:"clans"`
	StatisticsPeriodDays int          `toml:"statistics_period_days"`
	RosterIntervalMins   int          `toml:"roster_interval_mins"`
	NameIntervalMins     int          `toml:"name_interval_mins"`
	ActivityIntervalMins int          `toml:"activity_interval_mins"`
	Workers              int64        `toml:"workers"`
}

type SpacesConfig struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
	Root   string `toml:"root"`
}

type LegacyConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}
