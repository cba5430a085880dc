package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListenAddr = "127.0.0.1:7433"
	DefaultDBFileName = "sealdrop.db"
	DefaultTTLDays    = 7

	DefaultMaxUploadBytes     int64 = 10 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024

	DefaultSMTPPort = 587

	configPathEnvKey = "SEALDROP_CONFIG"
	masterKeyEnvKey  = "SEALDROP_MASTER_KEY"
	jwtSecretEnvKey  = "SEALDROP_JWT_SECRET"
	adminTokenEnvKey = "SEALDROP_ADMIN_TOKEN"
	smtpPassEnvKey   = "SEALDROP_SMTP_PASSWORD"
)

// SMTPConfig defines the outbound mail settings used for secret delivery.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// Enabled reports whether enough is configured to send mail at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// Config defines runtime configuration for sealdrop.
type Config struct {
	ListenAddr   string `toml:"listen_addr"`
	DBPath       string `toml:"db_path"`
	ArtifactRoot string `toml:"artifact_root"`

	// MasterKey is the hex-encoded 32-byte payload encryption key.
	MasterKey  string `toml:"master_key"`
	JWTSecret  string `toml:"jwt_secret"`
	AdminToken string `toml:"admin_token"`

	TTLDays            int   `toml:"ttl_days"`
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`

	LogLevel string `toml:"log_level"`

	SMTP SMTPConfig `toml:"smtp"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		ListenAddr:         DefaultListenAddr,
		DBPath:             "",
		ArtifactRoot:       "",
		TTLDays:            DefaultTTLDays,
		MaxUploadBytes:     DefaultMaxUploadBytes,
		MultipartMaxMemory: DefaultMultipartMaxMemory,
		LogLevel:           "info",
		SMTP: SMTPConfig{
			Port: DefaultSMTPPort,
		},
	}
}

// TTL returns the configured record lifetime as a duration.
// Zero or negative ttl_days disables expiry.
func (c *Config) TTL() time.Duration {
	if c.TTLDays <= 0 {
		return 0
	}
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// DefaultPath returns the config file path, honoring SEALDROP_CONFIG.
func DefaultPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv(configPathEnvKey)); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sealdrop.toml"), nil
}

// Load reads config from path (or the default location when path is
// empty) and applies environment overrides for secret material.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if cfg.ArtifactRoot == "" {
		cfg.ArtifactRoot = filepath.Join(filepath.Dir(cfg.DBPath), "artifacts")
	}

	if key := strings.TrimSpace(os.Getenv(masterKeyEnvKey)); key != "" {
		cfg.MasterKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(jwtSecretEnvKey)); secret != "" {
		cfg.JWTSecret = secret
	}
	if token := strings.TrimSpace(os.Getenv(adminTokenEnvKey)); token != "" {
		cfg.AdminToken = token
	}
	if pass := os.Getenv(smtpPassEnvKey); pass != "" {
		cfg.SMTP.Password = pass
	}
	if addr := strings.TrimSpace(os.Getenv("SEALDROP_LISTEN_ADDR")); addr != "" {
		cfg.ListenAddr = addr
	}
	if dbPath := strings.TrimSpace(os.Getenv("SEALDROP_DB")); dbPath != "" {
		cfg.DBPath = dbPath
	}

	cfg.normalizeLimits()

	return &cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MasterKey) == "" {
		return fmt.Errorf("master_key is required (or set %s)", masterKeyEnvKey)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret is required (or set %s)", jwtSecretEnvKey)
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d out of range", c.SMTP.Port)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalizeLimits() {
	if c.TTLDays < 0 {
		c.TTLDays = 0
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.MultipartMaxMemory <= 0 {
		c.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = DefaultSMTPPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
