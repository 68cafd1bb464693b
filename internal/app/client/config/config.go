package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".vistoria"
	defaultDataFile      = "queue.db"
	defaultStatsFile     = "sync_stats.json"
	defaultDeviceIDFile  = "device_id"
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigDir     string `mapstructure:"config_dir"`
	DataPath      string `mapstructure:"data_path"`
	StatsPath     string `mapstructure:"stats_path"`
	DeviceIDPath  string `mapstructure:"device_id_path"`
	PhotosDir     string `mapstructure:"photos_dir"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	VistoriadorID string `mapstructure:"vistoriador_id"`
	EmpresaID     string `mapstructure:"empresa_id"`
	DeviceName    string `mapstructure:"device_name"`
	Sync          Sync   `mapstructure:"sync"`
}

// Sync параметры синхронизации; значения по умолчанию - конфигурация, а не константы кода
type Sync struct {
	BatchSize      int           `mapstructure:"batch_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialDelay   time.Duration `mapstructure:"initial_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	BackoffFactor  float64       `mapstructure:"backoff_factor"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Interval       time.Duration `mapstructure:"interval"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
}

// DefaultSync значения синхронизации по умолчанию
func DefaultSync() Sync {
	return Sync{
		BatchSize:      5,
		MaxRetries:     3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		BackoffFactor:  2,
		RequestTimeout: 20 * time.Second,
		Interval:       60 * time.Second,
		MinInterval:    10 * time.Second,
		ProbeInterval:  15 * time.Second,
	}
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env (если есть), переменные окружения и файл конфигурации viper
func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	d := DefaultSync()
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("SYNC_BATCH_SIZE", d.BatchSize)
	viper.SetDefault("SYNC_MAX_RETRIES", d.MaxRetries)
	viper.SetDefault("SYNC_INITIAL_DELAY", d.InitialDelay)
	viper.SetDefault("SYNC_MAX_DELAY", d.MaxDelay)
	viper.SetDefault("SYNC_BACKOFF_FACTOR", d.BackoffFactor)
	viper.SetDefault("SYNC_REQUEST_TIMEOUT", d.RequestTimeout)
	viper.SetDefault("SYNC_INTERVAL", d.Interval)
	viper.SetDefault("SYNC_MIN_INTERVAL", d.MinInterval)
	viper.SetDefault("SYNC_PROBE_INTERVAL", d.ProbeInterval)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	hostname, _ := os.Hostname()
	deviceName := viper.GetString("DEVICE_NAME")
	if deviceName == "" {
		deviceName = hostname
	}

	cfg := &Config{
		Env:           viper.GetString("APP_ENV"),
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		ConfigDir:     configDir,
		DataPath:      dataPath,
		StatsPath:     filepath.Join(configDir, defaultStatsFile),
		DeviceIDPath:  filepath.Join(configDir, defaultDeviceIDFile),
		PhotosDir:     viper.GetString("PHOTOS_DIR"),
		EnableTLS:     viper.GetBool("ENABLE_TLS"),
		VistoriadorID: viper.GetString("VISTORIADOR_ID"),
		EmpresaID:     viper.GetString("EMPRESA_ID"),
		DeviceName:    deviceName,
		Sync: Sync{
			BatchSize:      viper.GetInt("SYNC_BATCH_SIZE"),
			MaxRetries:     viper.GetInt("SYNC_MAX_RETRIES"),
			InitialDelay:   viper.GetDuration("SYNC_INITIAL_DELAY"),
			MaxDelay:       viper.GetDuration("SYNC_MAX_DELAY"),
			BackoffFactor:  viper.GetFloat64("SYNC_BACKOFF_FACTOR"),
			RequestTimeout: viper.GetDuration("SYNC_REQUEST_TIMEOUT"),
			Interval:       viper.GetDuration("SYNC_INTERVAL"),
			MinInterval:    viper.GetDuration("SYNC_MIN_INTERVAL"),
			ProbeInterval:  viper.GetDuration("SYNC_PROBE_INTERVAL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch_size должен быть положительным, получено %d", c.Sync.BatchSize)
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync max_retries не может быть отрицательным")
	}
	if c.Sync.BackoffFactor < 1 {
		return fmt.Errorf("sync backoff_factor должен быть >= 1")
	}
	if c.Sync.RequestTimeout <= 0 {
		return fmt.Errorf("sync request_timeout должен быть положительным")
	}
	return nil
}

// BaseURL адрес сервера со схемой
func (c *Config) BaseURL() string {
	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + c.ServerAddress
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
