// Package config loads the full service configuration once at startup. The
// resulting struct is passed into constructors; there is no package-level
// configuration state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type AppConfig struct {
	ServiceName string     `mapstructure:"service_name"`
	Env         string     `mapstructure:"env"`
	LogLevel    string     `mapstructure:"log_level"`
	MetricsPath string     `mapstructure:"metrics_path"`
	HTTP        HTTPConfig `mapstructure:"http"`
}

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type VerificationConfig struct {
	CodeTTL       time.Duration
	SweepInterval time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RateLimitRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	Redis  RateLimitRedisConfig
}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Argon2       Argon2Params
	Token        TokenConfig
	Verification VerificationConfig
	SMTP         SMTPConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
}

// Load reads the yaml base config (path from LEX_CONFIG, default
// config.yaml, missing file tolerated) and overlays LEX_-prefixed
// environment variables for secrets and tunables.
func Load() (*Config, error) {
	appCfg, err := loadApp(os.Getenv("LEX_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: *appCfg,
		DB: DBConfig{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			Name:     envString("POSTGRES_DB", "lextrade"),
			User:     envString("POSTGRES_USER", "lextrade"),
			Password: envString("POSTGRES_PASSWORD", "lextrade"),
			SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		},
		Argon2: Argon2Params{
			Memory:      uint32(envInt("LEX_ARGON2_MEMORY", 64*1024)),
			Iterations:  uint32(envInt("LEX_ARGON2_ITERATIONS", 3)),
			Parallelism: uint8(envInt("LEX_ARGON2_PARALLELISM", 2)),
			SaltLength:  uint32(envInt("LEX_ARGON2_SALT_LENGTH", 16)),
			KeyLength:   uint32(envInt("LEX_ARGON2_KEY_LENGTH", 32)),
		},
		Token: TokenConfig{
			AccessTTL:  envDuration("LEX_ACCESS_TOKEN_TTL", 7*24*time.Hour),
			RefreshTTL: envDuration("LEX_REFRESH_TOKEN_TTL", 60*24*time.Hour),
		},
		Verification: VerificationConfig{
			CodeTTL:       envDuration("LEX_VCODE_TTL", 10*time.Minute),
			SweepInterval: envDuration("LEX_VCODE_SWEEP_INTERVAL", 30*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     envString("LEX_SMTP_HOST", ""),
			Port:     envInt("LEX_SMTP_PORT", 587),
			Username: envString("LEX_SMTP_USERNAME", ""),
			Password: envString("LEX_SMTP_PASSWORD", ""),
			Sender:   envString("LEX_SMTP_SENDER", ""),
		},
		Kafka: KafkaConfig{
			Brokers: envList("LEX_KAFKA_BROKERS"),
			Topic:   envString("LEX_KAFKA_NOTIFY_TOPIC", "lextrade.notify.vcode"),
		},
		RateLimit: RateLimitConfig{
			Limit:  envInt("LEX_AUTH_RATE_LIMIT", 10),
			Window: envDuration("LEX_AUTH_RATE_WINDOW", time.Minute),
			Redis: RateLimitRedisConfig{
				Addr:     envString("LEX_RATE_LIMIT_REDIS_ADDR", ""),
				Password: envString("LEX_RATE_LIMIT_REDIS_PASSWORD", ""),
				DB:       envInt("LEX_RATE_LIMIT_REDIS_DB", 0),
				Prefix:   envString("LEX_RATE_LIMIT_REDIS_PREFIX", "lextrade:rl:"),
			},
		},
	}

	if cfg.Token.AccessTTL >= cfg.Token.RefreshTTL {
		return nil, fmt.Errorf("access token TTL must be shorter than refresh token TTL")
	}

	return cfg, nil
}

func loadApp(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("LEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "lextrade-api")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5418)
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
