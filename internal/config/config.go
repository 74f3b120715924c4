package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file leaves a field empty.
const (
	DefaultPDFToTextPath     = "pdftotext"
	DefaultMaxUploadMB       = 20
	DefaultTailscaleHostname = "gymplan"
	DefaultMigrationsPath    = "migrations"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Documents DocumentsConfig `yaml:"documents"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Migrations string `yaml:"migrations"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DocumentsConfig controls how uploaded plan files are decoded.
type DocumentsConfig struct {
	PDFToTextPath string `yaml:"pdftotext_path"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	// UploadDir stages PDFs for pdftotext. Empty means the system temp dir.
	UploadDir string `yaml:"upload_dir"`
}

// MaxUploadBytes returns the upload size limit in bytes.
func (d DocumentsConfig) MaxUploadBytes() int64 {
	return int64(d.MaxUploadMB) << 20
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix GYMPLAN_ and underscore-separated paths:
//
//	GYMPLAN_SERVER_HOST, GYMPLAN_SERVER_PORT,
//	GYMPLAN_DB_HOST, GYMPLAN_DB_PORT, GYMPLAN_DB_NAME,
//	GYMPLAN_DB_USER, GYMPLAN_DB_PASSWORD, GYMPLAN_DB_SSLMODE,
//	GYMPLAN_AUTH_API_KEY,
//	GYMPLAN_TAILSCALE_ENABLED, GYMPLAN_TAILSCALE_HOSTNAME, GYMPLAN_TAILSCALE_STATE_DIR,
//	GYMPLAN_PDFTOTEXT_PATH, GYMPLAN_MAX_UPLOAD_MB
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GYMPLAN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GYMPLAN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GYMPLAN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GYMPLAN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GYMPLAN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("GYMPLAN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GYMPLAN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GYMPLAN_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("GYMPLAN_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("GYMPLAN_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("GYMPLAN_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("GYMPLAN_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("GYMPLAN_PDFTOTEXT_PATH"); v != "" {
		cfg.Documents.PDFToTextPath = v
	}
	if v := os.Getenv("GYMPLAN_MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.Atoi(v); err == nil {
			cfg.Documents.MaxUploadMB = mb
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Documents.PDFToTextPath == "" {
		cfg.Documents.PDFToTextPath = DefaultPDFToTextPath
	}
	if cfg.Documents.MaxUploadMB == 0 {
		cfg.Documents.MaxUploadMB = DefaultMaxUploadMB
	}
	if cfg.Database.Migrations == "" {
		cfg.Database.Migrations = DefaultMigrationsPath
	}
	if cfg.Tailscale.Enabled && cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = DefaultTailscaleHostname
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Documents.MaxUploadMB < 0 {
		return fmt.Errorf("documents.max_upload_mb must be positive")
	}
	return nil
}
