package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	NATS    NATSConfig
	JWT     JWTConfig
	Quota   QuotaConfig
	Gemini  GeminiConfig
	Assets  AssetsConfig
	Support SupportConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig configures the optional event bus. An empty URL disables it.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	Secret        string
	SessionExpiry time.Duration
}

// QuotaConfig holds the daily generation limits. Budget figures are
// fractional dollars accumulated by simple addition; precision beyond
// display is not required at these magnitudes.
type QuotaConfig struct {
	UserDailyLimit int
	DailyBudgetUSD float64
	ImageCostUSD   float64
}

type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	EnhanceModel string
	ImageModel   string
	ChatModel    string
	Timeout      time.Duration
}

type AssetsConfig struct {
	SigningKey string
	URLTTL     time.Duration
}

type SupportConfig struct {
	GitHubToken    string
	GitHubOwner    string
	GitHubRepo     string
	SessionWindow  time.Duration
	SessionMaxMsgs int
	LogTTL         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: splitOrigins(k.String("server.cors.origins")),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			Secret: k.String("jwt.secret"),
		},
		Quota: QuotaConfig{
			UserDailyLimit: k.Int("quota.user.daily.limit"),
			DailyBudgetUSD: k.Float64("quota.daily.budget.usd"),
			ImageCostUSD:   k.Float64("quota.image.cost.usd"),
		},
		Gemini: GeminiConfig{
			APIKey:       k.String("gemini.api.key"),
			BaseURL:      k.String("gemini.base.url"),
			EnhanceModel: k.String("gemini.enhance.model"),
			ImageModel:   k.String("gemini.image.model"),
			ChatModel:    k.String("gemini.chat.model"),
		},
		Assets: AssetsConfig{
			SigningKey: k.String("assets.signing.key"),
		},
		Support: SupportConfig{
			GitHubToken:    k.String("support.github.token"),
			GitHubOwner:    k.String("support.github.owner"),
			GitHubRepo:     k.String("support.github.repo"),
			SessionMaxMsgs: k.Int("support.session.max.msgs"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "nutcracker"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "nutcracker"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Quota.UserDailyLimit == 0 {
		cfg.Quota.UserDailyLimit = 24
	}
	if cfg.Quota.DailyBudgetUSD == 0 {
		cfg.Quota.DailyBudgetUSD = 10.0
	}
	if cfg.Quota.ImageCostUSD == 0 {
		cfg.Quota.ImageCostUSD = 0.04
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Gemini.EnhanceModel == "" {
		cfg.Gemini.EnhanceModel = "gemini-2.0-flash"
	}
	if cfg.Gemini.ImageModel == "" {
		cfg.Gemini.ImageModel = "gemini-2.0-flash-exp-image-generation"
	}
	if cfg.Gemini.ChatModel == "" {
		cfg.Gemini.ChatModel = "gemini-2.0-flash"
	}
	if cfg.Support.SessionMaxMsgs == 0 {
		cfg.Support.SessionMaxMsgs = 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.JWT.SessionExpiry, err = parseDuration(k.String("jwt.session.expiry"), "24h")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt session expiry: %w", err)
	}
	cfg.Gemini.Timeout, err = parseDuration(k.String("gemini.timeout"), "110s")
	if err != nil {
		return nil, fmt.Errorf("parsing gemini timeout: %w", err)
	}
	cfg.Assets.URLTTL, err = parseDuration(k.String("assets.url.ttl"), "168h")
	if err != nil {
		return nil, fmt.Errorf("parsing asset url ttl: %w", err)
	}
	cfg.Support.SessionWindow, err = parseDuration(k.String("support.session.window"), "10m")
	if err != nil {
		return nil, fmt.Errorf("parsing support session window: %w", err)
	}
	cfg.Support.LogTTL, err = parseDuration(k.String("support.log.ttl"), "720h")
	if err != nil {
		return nil, fmt.Errorf("parsing support log ttl: %w", err)
	}

	return cfg, nil
}

func parseDuration(s, fallback string) (time.Duration, error) {
	if s == "" {
		s = fallback
	}
	return time.ParseDuration(s)
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
