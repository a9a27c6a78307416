package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN    string `env:"DATABASE_URI"`
	AuthSecret     string `env:"AUTH_SECRET"`
	PrivateKeyFile string `env:"SERVER_PRIVATE_KEY"` // PEM, расшифровка sync-токенов

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL         string `env:"-"`
	VaultDir          string `env:"VAULT_DIR"`    // каталог локальных хранилищ (по одному файлу на device uuid)
	DeviceUUID        string `env:"DEVICE_UUID"`  // активное устройство
	DisableLock       bool   `env:"DISABLE_LOCK"` // отключает файловую блокировку (тесты/однопроцессный режим)
	ConnectTimeoutSec int    `env:"CONNECT_TIMEOUT_SEC"`
	RequestTimeoutSec int    `env:"REQUEST_TIMEOUT_SEC"`
	ForceTimestamp    int64  `env:"FORCE_TIMESTAMP"` // подмена timestampLastUpdate; только для отладки
	Version           bool   `env:"-"`               // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.PrivateKeyFile, "private-key", cfg.PrivateKeyFile, "путь к приватному ключу сервера (PEM)")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL of the PassVault server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.VaultDir, "vault-dir", cfg.VaultDir, "directory holding local vault files")
	flag.StringVar(&cfg.DeviceUUID, "device", cfg.DeviceUUID, "device uuid selecting the local vault")
	flag.BoolVar(&cfg.DisableLock, "no-lock", cfg.DisableLock, "disable vault file locking")
	flag.IntVar(&cfg.ConnectTimeoutSec, "connect-timeout", cfg.ConnectTimeoutSec, "network connect timeout, seconds")
	flag.IntVar(&cfg.RequestTimeoutSec, "request-timeout", cfg.RequestTimeoutSec, "overall network request timeout, seconds")
	flag.Int64Var(&cfg.ForceTimestamp, "force-timestamp", cfg.ForceTimestamp, "override timestampLastUpdate (debug only)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "passvault.db"
	}
	if cfg.PrivateKeyFile == "" {
		cfg.PrivateKeyFile = "server_key.pem"
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.ConnectTimeoutSec <= 0 {
		cfg.ConnectTimeoutSec = 5
	}
	if cfg.RequestTimeoutSec <= 0 {
		cfg.RequestTimeoutSec = 30
	}

	// Fill client defaults if empty
	if cfg.VaultDir == "" {
		cfgDir, err := os.UserConfigDir()
		if err == nil {
			cfg.VaultDir = filepath.Join(cfgDir, "PassVault", "vaults")
		} else {
			home, _ := os.UserHomeDir()
			cfg.VaultDir = filepath.Join(home, ".passvault")
		}
	}

	return cfg
}
