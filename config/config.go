package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application-wide configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Data     DataConfig     `mapstructure:"data"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Share    ShareConfig    `mapstructure:"share"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	BodyLimit    int64      `mapstructure:"body_limit"`
	RateLimit    int        `mapstructure:"rate_limit"`
	RateWindow   string     `mapstructure:"rate_window"`
	CORS         CORSConfig `mapstructure:"cors"`
	SessionTTL   string     `mapstructure:"session_ttl"`
	ReadTimeout  int        `mapstructure:"read_timeout"`
	WriteTimeout int        `mapstructure:"write_timeout"`
}

// CORSConfig cross-origin settings
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig selects postgres (production) or sqlite (local development).
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"` // sqlite file
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig redis settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT settings
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LogConfig logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataConfig describes where curricula and term offerings are read from.
//
// Source is one of "file" (Dir), "http" (BaseURL, the static site the
// frontend serves) or "minio" (Storage bucket).
type DataConfig struct {
	Source        string        `mapstructure:"source"`
	Dir           string        `mapstructure:"dir"`
	BaseURL       string        `mapstructure:"base_url"`
	IndexPath     string        `mapstructure:"index_path"`
	CurriculumDir string        `mapstructure:"curriculum_dir"`
	TermDataPath  string        `mapstructure:"term_data_path"`
	TermCacheTTL  time.Duration `mapstructure:"term_cache_ttl"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	RefreshCron   string        `mapstructure:"refresh_cron"`
}

// StorageConfig MinIO / S3 settings
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AIConfig model settings for the classify endpoint
type AIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     string  `mapstructure:"timeout"`
}

// ShareConfig shared-schedule links
type ShareConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Load reads and validates configuration for the API server.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads configuration without server validation (the CLI needs no JWT secret).
// Precedence: environment > config file > .env > defaults
func Read(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.body_limit", 5<<20)
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.session_ttl", "2h")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.path", "kairo.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "kairo")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Toronto")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("data.source", "file")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.base_url", "http://localhost:3000")
	v.SetDefault("data.index_path", "curriculums/index.json")
	v.SetDefault("data.curriculum_dir", "curriculums")
	v.SetDefault("data.term_data_path", "api/data/all_courses_by_term.json")
	v.SetDefault("data.term_cache_ttl", "24h")
	v.SetDefault("data.check_interval", "5m")
	v.SetDefault("data.refresh_cron", "@every 6h")

	v.SetDefault("storage.bucket", "kairo-data")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.max_tokens", 300)
	v.SetDefault("ai.timeout", "20s")

	v.SetDefault("share.base_url", "https://kairoo.ca")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("KAIRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid config: auth.jwt_secret must be set")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be within 1-65535")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid config: db.driver %q (want postgres or sqlite)", c.Database.Driver)
	}
	switch c.Data.Source {
	case "file", "http", "minio":
	default:
		return fmt.Errorf("invalid config: data.source %q (want file, http or minio)", c.Data.Source)
	}
	if c.Data.Source == "minio" && c.Storage.Endpoint == "" {
		return fmt.Errorf("invalid config: storage.endpoint is required when data.source=minio")
	}
	return nil
}

// DurationOr parses a duration string, falling back to def when empty or invalid.
func DurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
