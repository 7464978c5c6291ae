package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"smart-locker-control/internal/email"
)

const QR_IMAGE_SIZE = 256

type LockerConfig struct {
	// Identifier of the locker this server controls. Embedded into QR access codes.
	ID string `mapstructure:"id"`
	// Delay before a transitional status (opening/closing) settles.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

type ActivityConfig struct {
	Cap       int `mapstructure:"cap"`        // Entries kept per log, oldest evicted first
	ReadLimit int `mapstructure:"read_limit"` // Entries returned by list endpoints
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"` // 0 disables rate limiting
	Window   time.Duration `mapstructure:"window"`
}

type QRConfig struct {
	CodeTTL   uint `mapstructure:"code_ttl"` // One-time access code TTL in seconds
	ImageSize int  `mapstructure:"image_size"`
}

type NotifyConfig struct {
	Recipients []string `mapstructure:"recipients"`
	Types      []string `mapstructure:"types"` // Activity types that trigger a notification
}

type Config struct {
	// Secret key for signing tokens. Must be set in production.
	Secret string `mapstructure:"secret"`
	// TTL for session tokens in seconds
	TokenTTL uint `mapstructure:"token_ttl"`
	// Nonce janitor runs every 2 * skew seconds.
	TokenExpirySkew uint   `mapstructure:"token_expiry_skew"`
	NonceStore      string `mapstructure:"nonce_store"`
	LogLevel        string `mapstructure:"log_level"`

	Listen string `mapstructure:"listen"`

	// Comma separated list of allowed CIDR networks. Empty means allow all.
	AllowedNetworks string `mapstructure:"allowed_networks"`
	// Comma separated list of allowed CORS origins. Empty means allow all.
	CORSOrigins string `mapstructure:"cors_origins"`
	// Optional shared key required in X-API-Key on /api.
	APIKey string `mapstructure:"api_key"`

	// Path to the users file (.yaml, .yml, .csv or .tsv)
	UsersFile string `mapstructure:"users_file"`

	Locker    LockerConfig    `mapstructure:"locker"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	QR        QRConfig        `mapstructure:"qr"`
	Notify    NotifyConfig    `mapstructure:"notify"`

	Storage Storage `mapstructure:"storage"`

	Email email.SMTPConfig `mapstructure:"email"`
}

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from config.yaml and environment variables.
// Environment variables use underscores for nesting, e.g. LOCKER_SETTLE_DELAY.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, path := range configFile {
		if path != "" {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		slog.Debug("No config file found, using defaults and environment")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			return nil, fmt.Errorf("SECRET configuration variable is required in production")
		}
		slog.Warn("Secret is not set. Do not use in production.")
	}

	return &cfg, nil
}

// normalize clamps values into sensible ranges and resolves relative paths.
func (cfg *Config) normalize() error {
	if cfg.TokenTTL == 0 {
		return fmt.Errorf("token_ttl must be > 0")
	}
	if cfg.Locker.SettleDelay <= 0 {
		return fmt.Errorf("locker.settle_delay must be > 0")
	}
	if cfg.Activity.Cap <= 0 {
		return fmt.Errorf("activity.cap must be > 0")
	}
	if cfg.Activity.ReadLimit <= 0 || cfg.Activity.ReadLimit > cfg.Activity.Cap {
		slog.Warn("activity.read_limit out of range, clamping", slog.Int("actual", cfg.Activity.ReadLimit), slog.Int("cap", cfg.Activity.Cap))
		cfg.Activity.ReadLimit = min(max(cfg.Activity.ReadLimit, 1), cfg.Activity.Cap)
	}
	if cfg.TokenExpirySkew == 0 {
		cfg.TokenExpirySkew = 1
	}
	if cfg.QR.ImageSize <= 0 {
		cfg.QR.ImageSize = QR_IMAGE_SIZE
	}

	// Convert relative paths to the instance folder
	if cfg.UsersFile != "" && !filepath.IsAbs(cfg.UsersFile) {
		if _, err := os.Stat(cfg.UsersFile); err != nil {
			cfg.UsersFile = filepath.Join(getConfigPath(), cfg.UsersFile)
		}
	}
	if cfg.Storage.Type == StorageSQLite {
		if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.local.path must be set for sqlite storage")
		}
		if cfg.Storage.SQLite.Path != ":memory:" && !filepath.IsAbs(cfg.Storage.SQLite.Path) {
			cfg.Storage.SQLite.Path = filepath.Join(getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}
	return nil
}

// SplitList splits a comma separated config value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
