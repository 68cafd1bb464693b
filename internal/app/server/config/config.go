package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = "../../.env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env       string
	DB        DBConfig
	Server    ServerConfig
	Logger    LoggerConfig
	Photos    PhotosConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type DBConfig struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type ServerConfig struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

type LoggerConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type PhotosConfig struct {
	Dir       string `env:"PHOTOS_DIR"`
	PublicURL string `env:"PHOTOS_PUBLIC_URL"`
	MaxBytes  int    `env:"PHOTOS_MAX_BYTES"`
}

type SyncConfig struct {
	Workers        int           `env:"SYNC_WORKERS"`
	MaxBatch       int           `env:"SYNC_MAX_BATCH"`
	StatusCacheTTL time.Duration `env:"STATUS_CACHE_TTL"`
	MaxBodyBytes   int64         `env:"SYNC_MAX_BODY_BYTES"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS"`
	Burst int     `env:"RATE_LIMIT_BURST"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

func setDefaults() {
	viper.SetDefault("app_env", EnvLocal)
	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("shutdown_timeout", 10*time.Second)
	viper.SetDefault("photos_dir", "data/photos")
	viper.SetDefault("photos_public_url", "http://localhost:8080/photos")
	viper.SetDefault("photos_max_bytes", 15<<20)
	viper.SetDefault("sync_workers", 4)
	viper.SetDefault("sync_max_batch", 50)
	viper.SetDefault("status_cache_ttl", 10*time.Second)
	viper.SetDefault("sync_max_body_bytes", 64<<20)
	viper.SetDefault("rate_limit_rps", 5)
	viper.SetDefault("rate_limit_burst", 10)
	viper.SetDefault("cors_allowed_origins", "http://localhost:3000")
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	return cfg
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("failed to load %s: %v", envPath, err)
		}
	}

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Env: viper.GetString("app_env"),
		DB: DBConfig{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: ServerConfig{
			RunAddress:      viper.GetString("run_address"),
			ShutdownTimeout: viper.GetDuration("shutdown_timeout"),
		},
		Logger: LoggerConfig{LogLevel: viper.GetString("log_level")},
		Photos: PhotosConfig{
			Dir:       viper.GetString("photos_dir"),
			PublicURL: viper.GetString("photos_public_url"),
			MaxBytes:  viper.GetInt("photos_max_bytes"),
		},
		Sync: SyncConfig{
			Workers:        viper.GetInt("sync_workers"),
			MaxBatch:       viper.GetInt("sync_max_batch"),
			StatusCacheTTL: viper.GetDuration("status_cache_ttl"),
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("rate_limit_rps"),
			Burst: viper.GetInt("rate_limit_burst"),
		},
		CORS: CORSConfig{AllowedOrigins: splitList(viper.GetString("cors_allowed_origins"))},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("SYNC_WORKERS must be positive, got %d", c.Sync.Workers)
	}
	if c.Sync.MaxBatch <= 0 {
		return fmt.Errorf("SYNC_MAX_BATCH must be positive, got %d", c.Sync.MaxBatch)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
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
