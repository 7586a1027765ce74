package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	TVMaze    TVMazeConfig    `mapstructure:"tvmaze"`
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
	Fanart    FanartConfig    `mapstructure:"fanart"`
	Translate TranslateConfig `mapstructure:"translate"`
	Trakt     TraktConfig     `mapstructure:"trakt"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TVMazeConfig holds schedule-provider API configuration.
// TVmaze requires no API key; only the base URL and timeout are tunable.
type TVMazeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// TMDBConfig holds rich-metadata provider API configuration.
type TMDBConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	ImageBase string `mapstructure:"image_base"`
	Language  string `mapstructure:"language"`
	Timeout   int    `mapstructure:"timeout"`
}

// FanartConfig holds artwork-provider API configuration.
type FanartConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// TranslateConfig holds machine-translation API configuration.
type TranslateConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Target   string `mapstructure:"target"`
	Timeout  int    `mapstructure:"timeout"`
	Disabled bool   `mapstructure:"disabled"`
}

// TraktConfig holds watch-history service configuration.
type TraktConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	BaseURL      string `mapstructure:"base_url"`
	Timeout      int    `mapstructure:"timeout"`
}

// SyncConfig holds incremental sync configuration.
type SyncConfig struct {
	Cron        string `mapstructure:"cron"`
	RunOnStart  bool   `mapstructure:"run_on_start"`
	ShowDelayMs int    `mapstructure:"show_delay_ms"`
	CastLimit   int    `mapstructure:"cast_limit"`
}

// ReminderConfig holds episode reminder configuration.
type ReminderConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.watchlog")
	}

	v.SetEnvPrefix("WATCHLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/watchlog.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("tvmaze.base_url", "https://api.tvmaze.com")
	v.SetDefault("tvmaze.timeout", 15)

	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("tmdb.language", "en")
	v.SetDefault("tmdb.timeout", 15)

	v.SetDefault("fanart.api_key", "")
	v.SetDefault("fanart.base_url", "https://api4.thetvdb.com/v4")
	v.SetDefault("fanart.timeout", 15)

	v.SetDefault("translate.base_url", "")
	v.SetDefault("translate.api_key", "")
	v.SetDefault("translate.target", "en")
	v.SetDefault("translate.timeout", 15)
	v.SetDefault("translate.disabled", false)

	v.SetDefault("trakt.client_id", "")
	v.SetDefault("trakt.client_secret", "")
	v.SetDefault("trakt.redirect_uri", "watchlog://oauth/callback")
	v.SetDefault("trakt.base_url", "https://api.trakt.tv")
	v.SetDefault("trakt.timeout", 30)

	v.SetDefault("sync.cron", "0 */6 * * *")
	v.SetDefault("sync.run_on_start", true)
	v.SetDefault("sync.show_delay_ms", 500)
	v.SetDefault("sync.cast_limit", 10)

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.webhook_url", "")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
