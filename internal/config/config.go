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
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	Internal   InternalConfig
	CORS       CORSConfig
	Cache      CacheConfig
	LLM        LLMConfig
	Chat       ChatConfig
	Billing    BillingConfig
	Google     GoogleConfig
	Log        LogConfig
}

// DefaultWriteTimeout applies when ServerConfig.WriteTimeout is unset.
const DefaultWriteTimeout = 60 * time.Second

// writeTimeoutHeadroom is added to LLM_TIMEOUT for the save, debit and
// encode work that follows the upstream call.
const writeTimeoutHeadroom = 15 * time.Second

type ServerConfig struct {
	Host string
	Port int

	// WriteTimeout bounds a whole response, so it must outlast a chat turn.
	WriteTimeout time.Duration
}

func (c ServerConfig) WriteTimeoutOrDefault() time.Duration {
	if c.WriteTimeout > 0 {
		return c.WriteTimeout
	}
	return DefaultWriteTimeout
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

// NATSConfig holds the broker URL. An empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type EncryptionConfig struct {
	Key string
}

// InternalConfig guards the service-to-service account surface.
type InternalConfig struct {
	APIKey string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CacheConfig struct {
	Backend string
	TTL     time.Duration
}

type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	FallbackModel string
	MaxTokens     int
	SiteURL       string
	SiteName      string
}

type ChatConfig struct {
	RateLimit       int
	RateWindow      time.Duration
	HistoryMessages int
}

type BillingConfig struct {
	Provider      string
	KeyID         string
	KeySecret     string
	PlanID        string
	SigningSecret string
	TotalCount    int
}

type GoogleConfig struct {
	UserInfoURL string
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
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
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
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		Encryption: EncryptionConfig{
			Key: k.String("encryption.key"),
		},
		Internal: InternalConfig{
			APIKey: k.String("internal.api.key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		Cache: CacheConfig{
			Backend: k.String("cache.backend"),
		},
		LLM: LLMConfig{
			APIKey:        k.String("llm.api.key"),
			BaseURL:       k.String("llm.base.url"),
			FallbackModel: k.String("llm.fallback.model"),
			MaxTokens:     k.Int("llm.max.tokens"),
			SiteURL:       k.String("llm.site.url"),
			SiteName:      k.String("llm.site.name"),
		},
		Chat: ChatConfig{
			RateLimit:       k.Int("chat.rate.limit"),
			HistoryMessages: k.Int("chat.history.messages"),
		},
		Billing: BillingConfig{
			Provider:      k.String("billing.provider"),
			KeyID:         k.String("billing.key.id"),
			KeySecret:     k.String("billing.key.secret"),
			PlanID:        k.String("billing.plan.id"),
			SigningSecret: k.String("billing.signing.secret"),
			TotalCount:    k.Int("billing.total.count"),
		},
		Google: GoogleConfig{
			UserInfoURL: k.String("google.userinfo.url"),
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
		cfg.DB.User = "axoncore"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "axoncore"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if !k.Exists("db.migrations.path") {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "redis"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.LLM.FallbackModel == "" {
		cfg.LLM.FallbackModel = "openai/gpt-3.5-turbo"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1000
	}
	if cfg.LLM.SiteName == "" {
		cfg.LLM.SiteName = "axoncore.ai"
	}
	if cfg.Chat.RateLimit == 0 {
		cfg.Chat.RateLimit = 20
	}
	cfg.Chat.RateWindow = time.Minute
	if cfg.Chat.HistoryMessages == 0 {
		cfg.Chat.HistoryMessages = 10
	}
	if cfg.Billing.Provider == "" {
		cfg.Billing.Provider = "razorpay"
	}
	if cfg.Billing.SigningSecret == "" {
		cfg.Billing.SigningSecret = cfg.Billing.KeySecret
	}
	if cfg.Billing.TotalCount == 0 {
		cfg.Billing.TotalCount = 12
	}
	if cfg.Google.UserInfoURL == "" {
		cfg.Google.UserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.JWT.AccessExpiry, err = durationOr(k, "jwt.access.expiry", "15m")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}
	cfg.JWT.RefreshExpiry, err = durationOr(k, "jwt.refresh.expiry", "168h")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}
	cfg.Cache.TTL, err = durationOr(k, "cache.ttl", "5m")
	if err != nil {
		return nil, fmt.Errorf("parsing cache ttl: %w", err)
	}
	cfg.LLM.Timeout, err = durationOr(k, "llm.timeout", "45s")
	if err != nil {
		return nil, fmt.Errorf("parsing llm timeout: %w", err)
	}
	derived := max(cfg.LLM.Timeout+writeTimeoutHeadroom, DefaultWriteTimeout)
	cfg.Server.WriteTimeout, err = durationOr(k, "server.write.timeout", derived.String())
	if err != nil {
		return nil, fmt.Errorf("parsing server write timeout: %w", err)
	}

	return cfg, nil
}

func durationOr(k *koanf.Koanf, key, def string) (time.Duration, error) {
	s := k.String(key)
	if s == "" {
		s = def
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
