// Package config loads the YAML configuration shared by the bot and the
// crawler. Values come from defaults, the config file and WHAT2EAT_*
// environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WHAT2EAT_TELEGRAM_TOKEN.
const EnvPrefix = "WHAT2EAT"

// Config is the application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	DataDir   string          `mapstructure:"data_dir"  validate:"required"`
	DenyList  string          `mapstructure:"denylist"`
	Picker    PickerConfig    `mapstructure:"picker"`
	Cooldown  CooldownConfig  `mapstructure:"cooldown"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Bot       BotConfig       `mapstructure:"bot"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig is only validated by the bot binary.
type TelegramConfig struct {
	Token        string  `mapstructure:"token"          validate:"required"`
	AdminUserIDs []int64 `mapstructure:"admin_user_ids" validate:"dive,gt=0"`

	// LogChatID is the operations chat. Zero disables the ops log.
	LogChatID int64 `mapstructure:"log_chat_id"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

type PickerConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1,max=100"`
}

type CooldownConfig struct {
	Window    time.Duration `mapstructure:"window"     validate:"min=0"`
	Scope     string        `mapstructure:"scope"      validate:"oneof=chat user"`
	NoticeTTL time.Duration `mapstructure:"notice_ttl" validate:"min=0"`
}

type RemoteConfig struct {
	Driver        string        `mapstructure:"driver"         validate:"oneof=sqlite mongo"`
	SQLitePath    string        `mapstructure:"sqlite_path"    validate:"required_if=Driver sqlite"`
	MongoURI      string        `mapstructure:"mongo_uri"      validate:"required_if=Driver mongo"`
	MongoDatabase string        `mapstructure:"mongo_database" validate:"required_if=Driver mongo"`
	PollInterval  time.Duration `mapstructure:"poll_interval"  validate:"min=100ms"`
	Timeout       time.Duration `mapstructure:"timeout"        validate:"min=1s"`

	// TombstoneTTL is how long deleted sqlite rows are kept for pollers.
	TombstoneTTL time.Duration `mapstructure:"tombstone_ttl" validate:"min=1m"`
}

type BotConfig struct {
	Defaults   GuildDefaults `mapstructure:"defaults"`
	ManualURL  string        `mapstructure:"manual_url"  validate:"omitempty,url"`
	SupportURL string        `mapstructure:"support_url" validate:"omitempty,url"`
	DonateURL  string        `mapstructure:"donate_url"  validate:"omitempty,url"`

	// MaxTriggers caps the trigger list of a chat.
	MaxTriggers int `mapstructure:"max_triggers" validate:"min=1"`
}

type GuildDefaults struct {
	Prefix   string   `mapstructure:"prefix"   validate:"required,max=8"`
	Triggers []string `mapstructure:"triggers" validate:"dive,required"`
}

type MessagesConfig struct {
	TryAgain       string `mapstructure:"try_again"       validate:"required"`
	Busy           string `mapstructure:"busy"            validate:"required"`
	Error          string `mapstructure:"error"           validate:"required"`
	Unauthorized   string `mapstructure:"unauthorized"    validate:"required"`
	PrefixUsage    string `mapstructure:"prefix_usage"    validate:"required"`
	PrefixSet      string `mapstructure:"prefix_set"      validate:"required"`
	TriggersUsage  string `mapstructure:"triggers_usage"  validate:"required"`
	TriggersList   string `mapstructure:"triggers_list"   validate:"required"`
	TriggersEmpty  string `mapstructure:"triggers_empty"  validate:"required"`
	TriggersUpdate string `mapstructure:"triggers_update" validate:"required"`
	Reloaded       string `mapstructure:"reloaded"        validate:"required"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

type CrawlerConfig struct {
	MinProducts    int             `mapstructure:"min_products"    validate:"min=0"`
	Delay          time.Duration   `mapstructure:"delay"           validate:"min=0"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout" validate:"min=1s"`
	Retries        int             `mapstructure:"retries"         validate:"min=0,max=10"`
	UserAgent      string          `mapstructure:"user_agent"      validate:"required"`
	FoodPanda      FoodPandaConfig `mapstructure:"foodpanda"`
	UberEats       UberEatsConfig  `mapstructure:"ubereats"`
}

type FoodPandaConfig struct {
	WebURL string   `mapstructure:"web_url" validate:"required,url"`
	APIURL string   `mapstructure:"api_url" validate:"required,url"`
	APIKey string   `mapstructure:"api_key" validate:"required"`
	Cities []string `mapstructure:"cities"  validate:"min=1,dive,required"`
}

type UberEatsConfig struct {
	WebURL string `mapstructure:"web_url" validate:"required,url"`
	Locale string `mapstructure:"locale"  validate:"required"`

	// Cities overrides the discovered city list when set.
	Cities []string `mapstructure:"cities" validate:"dive,required"`
}

// Load reads the config file at path (optional when missing), applies
// environment overrides and validates everything but the Telegram section.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().StructExcept(cfg, "Telegram"); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ValidateBot validates the whole configuration, Telegram section included.
func (c *Config) ValidateBot() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid bot config: %w", err)
	}
	return nil
}

// IsAdmin reports whether userID is a configured bot admin.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
