package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. ALBUM_PROVIDER_API_KEY.
const EnvPrefix = "ALBUM"

// ServiceConfig holds all configuration for the album service.
type ServiceConfig struct {
	Port     string         `mapstructure:"port"`
	AppEnv   string         `mapstructure:"app_env"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Provider ProviderConfig `mapstructure:"provider"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// DatabaseConfig selects and configures the object store.
type DatabaseConfig struct {
	// Driver is "sqlite" (embedded file store) or "postgres".
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               string        `mapstructure:"port"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	DBName             string        `mapstructure:"name"`
	SSLMode            string        `mapstructure:"sslmode"`
	MigrationsPath     string        `mapstructure:"migrations_path"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

// DSN returns the PostgreSQL connection string for GORM.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// DatabaseURL returns the PostgreSQL URL form used by the migration runner.
func (c DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// KafkaConfig configures change-event publishing and the refresh command consumer.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	GroupPrefix   string   `mapstructure:"group_prefix"`
	EventsTopic   string   `mapstructure:"events_topic"`
	CommandsTopic string   `mapstructure:"commands_topic"`

	// Events are written by a background writer; a full queue drops events.
	PublishQueueSize int           `mapstructure:"publish_queue_size"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Brokers[0] != ""
}

// ProviderConfig configures the photo search provider and image downloads.
type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	PerPage           int           `mapstructure:"per_page"`
	BBoxHalfWidth     float64       `mapstructure:"bbox_half_width"`
	BBoxHalfHeight    float64       `mapstructure:"bbox_half_height"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	MaxImageBytes     int64         `mapstructure:"max_image_bytes"`
}

// SyncConfig configures the photo synchronization workflow.
type SyncConfig struct {
	Workers         int           `mapstructure:"workers"`
	LoopQueueSize   int           `mapstructure:"loop_queue_size"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// CacheConfig configures the in-memory image cache.
type CacheConfig struct {
	ImageTTL          time.Duration `mapstructure:"image_ttl"`
	MaxThumbnailWidth int           `mapstructure:"max_thumbnail_width"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8080")
	v.SetDefault("app_env", "development")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "album.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "album")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.slow_query_threshold", 200*time.Millisecond)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.group_prefix", "")
	v.SetDefault("kafka.events_topic", "album.events")
	v.SetDefault("kafka.commands_topic", "album.commands")
	v.SetDefault("kafka.publish_queue_size", 1024)
	v.SetDefault("kafka.write_timeout", 5*time.Second)

	v.SetDefault("provider.base_url", "https://api.flickr.com")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.per_page", 21)
	v.SetDefault("provider.bbox_half_width", 1.0)
	v.SetDefault("provider.bbox_half_height", 1.0)
	v.SetDefault("provider.requests_per_second", 5.0)
	v.SetDefault("provider.burst", 5)
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.user_agent", "service-album")
	v.SetDefault("provider.max_image_bytes", int64(10<<20))

	v.SetDefault("sync.workers", 6)
	v.SetDefault("sync.loop_queue_size", 256)
	v.SetDefault("sync.download_timeout", 30*time.Second)

	v.SetDefault("cache.image_ttl", 10*time.Minute)
	v.SetDefault("cache.max_thumbnail_width", 1024)
}

// Load reads configuration from an optional .env file, an optional config file and
// ALBUM_* environment variables, in increasing order of precedence.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv(EnvPrefix + "_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg ServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that the service cannot run without.
func (c *ServiceConfig) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Provider.PerPage < 1 || c.Provider.PerPage > 500 {
		return fmt.Errorf("provider.per_page must be within [1, 500], got %d", c.Provider.PerPage)
	}
	if c.Provider.BBoxHalfWidth <= 0 || c.Provider.BBoxHalfHeight <= 0 {
		return fmt.Errorf("provider bounding box half sizes must be positive")
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers)
	}
	if c.Sync.LoopQueueSize < 1 {
		return fmt.Errorf("sync.loop_queue_size must be at least 1, got %d", c.Sync.LoopQueueSize)
	}
	return nil
}

// splitList accepts either a list or a single comma separated value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
