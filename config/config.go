package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application-wide configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	MealPlan MealPlanConfig `mapstructure:"mealplan"`
	Import   ImportConfig   `mapstructure:"import"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Scan     ScanConfig     `mapstructure:"scan"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	BaseURL     string     `mapstructure:"base_url"`
	BodyLimitMB int        `mapstructure:"body_limit_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin settings
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings
type DatabaseConfig struct {
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

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis settings
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
	// LoginRateLimitPerMinute caps login attempts per client IP; 0 disables it.
	LoginRateLimitPerMinute int `mapstructure:"login_rate_limit_per_minute"`
}

// LogConfig logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MealPlanConfig planning window and meal clock settings
type MealPlanConfig struct {
	// Timezone of the cafeteria clock used for meal inference and calendar feeds.
	Timezone       string `mapstructure:"timezone"`
	BreakfastUntil string `mapstructure:"breakfast_until"` // HH:MM
	LunchUntil     string `mapstructure:"lunch_until"`     // HH:MM
}

// Location resolves the configured timezone, falling back to the server's local zone.
func (c *MealPlanConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Cutoffs returns the breakfast and lunch cutoffs as minutes since midnight.
func (c *MealPlanConfig) Cutoffs() (breakfast, lunch int, err error) {
	if breakfast, err = parseClock(c.BreakfastUntil); err != nil {
		return 0, 0, fmt.Errorf("mealplan.breakfast_until: %w", err)
	}
	if lunch, err = parseClock(c.LunchUntil); err != nil {
		return 0, 0, fmt.Errorf("mealplan.lunch_until: %w", err)
	}
	return breakfast, lunch, nil
}

// ImportConfig spreadsheet import settings
type ImportConfig struct {
	MaxRows               int    `mapstructure:"max_rows"`
	EmailDomain           string `mapstructure:"email_domain"`
	DefaultPasswordPrefix string `mapstructure:"default_password_prefix"`
}

// StorageConfig archive of uploaded files. An empty bucket disables archiving.
type StorageConfig struct {
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Region string `mapstructure:"s3_region"`
	S3Prefix string `mapstructure:"s3_prefix"`
}

// ScanConfig scanner endpoint settings
type ScanConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// Load reads configuration from file and environment.
// Precedence: environment > config file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "cantine")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.login_rate_limit_per_minute", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("mealplan.timezone", "Europe/Paris")
	v.SetDefault("mealplan.breakfast_until", "10:00")
	v.SetDefault("mealplan.lunch_until", "15:00")

	v.SetDefault("import.max_rows", 5000)
	v.SetDefault("import.email_domain", "")
	v.SetDefault("import.default_password_prefix", "Ct")

	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "eu-west-3")
	v.SetDefault("storage.s3_prefix", "imports/")

	v.SetDefault("scan.rate_limit_per_minute", 120)

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
	v.SetEnvPrefix("CANTINE")
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid config: auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be within 1-65535")
	}
	if c.MealPlan.Timezone != "" {
		if _, err := time.LoadLocation(c.MealPlan.Timezone); err != nil {
			return fmt.Errorf("invalid config: mealplan.timezone: %w", err)
		}
	}
	breakfast, lunch, err := c.MealPlan.Cutoffs()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if breakfast >= lunch {
		return fmt.Errorf("invalid config: mealplan.breakfast_until must be before mealplan.lunch_until")
	}
	return nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
