package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "HOLDUP_CONFIG"
	dataDirEnv       = "HOLDUP_DATA_DIR"
	databaseDSNEnv   = "DATABASE_DSN"
	alpacaKeyEnv     = "ALPACA_API_KEY"
	alpacaSecretEnv  = "ALPACA_API_SECRET"
	chatGPTAPIKeyEnv = "CHATGPT_API_KEY"
	chatGPTModelEnv  = "CHATGPT_MODEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	DataDir       string             `yaml:"dataDir"`
	Timezone      string             `yaml:"timezone"`
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Crawler       CrawlerConfig      `yaml:"crawler"`
	Alpaca        AlpacaConfig       `yaml:"alpaca"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`

	location *time.Location
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig selects the Postgres storage backend when a DSN is set;
// otherwise partitions live as files under the data directory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when watch mode runs the pipeline.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
}

// CrawlerConfig selects the provider strategy and its fetch window.
type CrawlerConfig struct {
	Provider string            `yaml:"provider"`
	DaysBack int               `yaml:"daysBack"`
	Limit    int               `yaml:"limit"`
	Options  map[string]string `yaml:"options"`
}

// AlpacaConfig wires the Alpaca news API credentials and endpoint.
type AlpacaConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
}

// ChatGPTConfig defines how to contact the summary model.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digest messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Location resolves the configured timezone. "Today" is computed here before
// being mapped to a UTC partition key.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// StagingDir is where file-backed staging partitions live.
func (c Config) StagingDir() string { return filepath.Join(c.DataDir, "staging") }

// CatalogDir is where file-backed catalog partitions live.
func (c Config) CatalogDir() string { return filepath.Join(c.DataDir, "catalog") }

// OutputDir is where the summary consumer writes its markdown files.
func (c Config) OutputDir() string { return filepath.Join(c.DataDir, "output") }

// WatchlistPath locates the persisted ticker watchlist.
func (c Config) WatchlistPath() string { return filepath.Join(c.DataDir, "watchlist.json") }

// EnvPath locates the credentials file written by `holdup setup`.
func (c Config) EnvPath() string { return filepath.Join(c.DataDir, ".env") }

// EnsureDirectories creates the data layout if it does not exist yet.
func (c Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.StagingDir(), c.CatalogDir(), c.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads YAML configuration (if present), loads the data-dir .env file,
// and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		cfg.DataDir = v
	}

	// Credentials saved by `holdup setup` land in the environment first so
	// the override pass below picks them up; real env vars still win.
	if _, err := os.Stat(cfg.EnvPath()); err == nil {
		if err := godotenv.Load(cfg.EnvPath()); err != nil {
			log.Printf("config: cannot load %s: %v", cfg.EnvPath(), err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(alpacaKeyEnv); v != "" {
		c.Alpaca.APIKey = v
	}
	if v := os.Getenv(alpacaSecretEnv); v != "" {
		c.Alpaca.APISecret = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}

	if override.Crawler.Provider != "" {
		base.Crawler.Provider = override.Crawler.Provider
	}
	if override.Crawler.DaysBack > 0 {
		base.Crawler.DaysBack = override.Crawler.DaysBack
	}
	if override.Crawler.Limit > 0 {
		base.Crawler.Limit = override.Crawler.Limit
	}
	if len(override.Crawler.Options) > 0 {
		base.Crawler.Options = override.Crawler.Options
	}

	if override.Alpaca.BaseURL != "" {
		base.Alpaca.BaseURL = override.Alpaca.BaseURL
	}
	if override.Alpaca.APIKey != "" {
		base.Alpaca.APIKey = override.Alpaca.APIKey
	}
	if override.Alpaca.APISecret != "" {
		base.Alpaca.APISecret = override.Alpaca.APISecret
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)

	dataDir := ".holdup"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".holdup")
	}

	return Config{
		DataDir:   dataDir,
		Timezone:  defaultTimezone,
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{CronExpression: "0 7 * * *"},
		Crawler:   CrawlerConfig{Provider: "alpaca", DaysBack: 1, Limit: 50},
		Alpaca:    AlpacaConfig{BaseURL: "https://data.alpaca.markets"},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		location: tz,
	}
}
