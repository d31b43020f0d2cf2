package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Auth     AuthConfig     `yaml:"auth"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RequestIPHeader string   `yaml:"request_ip_header"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// LogConfig selects the logrus level ("debug", "info", ..., or "none").
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the range store backend and its throttle.
type StoreConfig struct {
	Driver          string  `yaml:"driver"` // sheets, sql or memory
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// SheetsConfig holds the Google Sheets spreadsheet and credentials.
type SheetsConfig struct {
	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	CredentialsFile string        `yaml:"credentials_file"`
	CredentialsJSON string        `yaml:"credentials_json"`
	ClientEmail     string        `yaml:"client_email"`
	PrivateKey      string        `yaml:"private_key"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration for the SQL
// range store.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LedgerConfig names the sheets of the ledger and tunes its caches.
type LedgerConfig struct {
	RosterSheet          string        `yaml:"roster_sheet"`
	HistorySheet         string        `yaml:"history_sheet"`
	EventsSheet          string        `yaml:"events_sheet"`
	RosterLastRow        int           `yaml:"roster_last_row"`
	HistoryLastRow       int           `yaml:"history_last_row"`
	CacheTTLSeconds      int           `yaml:"cache_ttl_seconds"`
	EventCacheTTLSeconds int           `yaml:"event_cache_ttl_seconds"`
	Timezone             string        `yaml:"timezone"`
	CacheTTL             time.Duration `yaml:"-"`
	EventCacheTTL        time.Duration `yaml:"-"`
}

// AuthConfig controls login and actor resolution.
type AuthConfig struct {
	Enabled         bool          `yaml:"enabled"`
	UsersFile       string        `yaml:"users_file"`
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	CookieName      string        `yaml:"cookie_name"`
	TokenTTL        time.Duration `yaml:"-"`
}

// TracingConfig enables OTLP/HTTP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads the configuration from the given path, applies a .env file from
// the working directory if one exists, then environment overrides and
// defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied and no file or
// environment input.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	setString(&cfg.Sheets.SpreadsheetID, "SPREADSHEET_ID")
	setString(&cfg.Sheets.CredentialsJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	setString(&cfg.Sheets.ClientEmail, "GOOGLE_CLIENT_EMAIL")
	setString(&cfg.Sheets.PrivateKey, "GOOGLE_PRIVATE_KEY")
	setString(&cfg.Sheets.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil && v > 0 {
		cfg.Server.Port = v
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sheets"
	}

	if cfg.Sheets.TimeoutSeconds <= 0 {
		cfg.Sheets.TimeoutSeconds = 15
	}
	cfg.Sheets.Timeout = time.Duration(cfg.Sheets.TimeoutSeconds) * time.Second

	if cfg.Ledger.RosterSheet == "" {
		cfg.Ledger.RosterSheet = "CONTROLE MAQUININHAS"
	}
	if cfg.Ledger.HistorySheet == "" {
		cfg.Ledger.HistorySheet = "HISTORICO MAQUINAS"
	}
	if cfg.Ledger.EventsSheet == "" {
		cfg.Ledger.EventsSheet = "DADOS EVENTOS"
	}
	if cfg.Ledger.RosterLastRow <= 0 {
		cfg.Ledger.RosterLastRow = 2000
	}
	if cfg.Ledger.HistoryLastRow <= 0 {
		cfg.Ledger.HistoryLastRow = 20000
	}
	if cfg.Ledger.CacheTTLSeconds <= 0 {
		cfg.Ledger.CacheTTLSeconds = 15
	}
	cfg.Ledger.CacheTTL = time.Duration(cfg.Ledger.CacheTTLSeconds) * time.Second
	if cfg.Ledger.EventCacheTTLSeconds <= 0 {
		cfg.Ledger.EventCacheTTLSeconds = 300
	}
	cfg.Ledger.EventCacheTTL = time.Duration(cfg.Ledger.EventCacheTTLSeconds) * time.Second
	if cfg.Ledger.Timezone == "" {
		cfg.Ledger.Timezone = "America/Sao_Paulo"
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 12 * 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "ledger_session"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "machine-ledger"
	}
	if cfg.Tracing.SampleRatio <= 0 {
		cfg.Tracing.SampleRatio = 1
	}
}
