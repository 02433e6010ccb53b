// Package config provides runtime configuration for HVACPulse.
// It uses Viper to load settings from files, environment variables, and CLI flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for HVACPulse.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	// ControlPort (8787): operator REST API — JWT protected
	ControlPort int `mapstructure:"control_port"`
	// DataPort (8788): device heartbeat ingestion — Bearer token protected
	DataPort int `mapstructure:"data_port"`

	// ── Database ─────────────────────────────────────────────────────────────
	// DBDriver selects the backend: "postgres" for a provisioned fleet
	// database, "sqlite" for single-box and test runs.
	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBSSLMode  string `mapstructure:"db_sslmode"`
	// DBPath is the sqlite file (":memory:" works for tests).
	DBPath string `mapstructure:"db_path"`
	// DBDSN, when set, is passed to the driver verbatim and wins over the
	// individual db_* fields.
	DBDSN string `mapstructure:"db_dsn"`

	// ── Security ──────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for control-plane tokens.
	// Change this in production — default is a random-looking placeholder.
	JWTSecret string `mapstructure:"jwt_secret"`
	// AgentToken: pre-shared key for data-plane heartbeat requests.
	// Format on wire: "Authorization: Bearer <agent_token>"
	AgentToken string `mapstructure:"agent_token"`
	// AdminUser / AdminPass: credentials for /api/login. AdminPassHash, when
	// set, is a bcrypt hash checked instead of the plaintext AdminPass.
	// TODO: replace with DB-backed operator accounts in v0.2.
	AdminUser     string `mapstructure:"admin_user"`
	AdminPass     string `mapstructure:"admin_pass"`
	AdminPassHash string `mapstructure:"admin_pass_hash"`

	// ── Logging ───────────────────────────────────────────────────────────────
	LogLevel  string `mapstructure:"log_level"`  // debug | info | warn | error
	LogFormat string `mapstructure:"log_format"` // json | console

	// ── Event stream ──────────────────────────────────────────────────────────
	// KafkaBrokers: empty list disables publishing. Accepts a comma-separated
	// string from the environment.
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// ── Ingestion limits ──────────────────────────────────────────────────────
	// IngestRateRPS caps heartbeat requests per second on the data plane;
	// 0 disables the limiter.
	IngestRateRPS   float64 `mapstructure:"ingest_rate_rps"`
	IngestRateBurst int     `mapstructure:"ingest_rate_burst"`

	// ── Probe ─────────────────────────────────────────────────────────────────
	ProbeJoinAddr string `mapstructure:"probe_join_addr"`
	ProbeInterval int    `mapstructure:"probe_interval_seconds"`
	ProbeDeviceID string `mapstructure:"probe_device_id"` // defaults to hostname
	ProbeSiteID   string `mapstructure:"probe_site_id"`
	ProbeStatus   string `mapstructure:"probe_status"`
	// ProbeToken for outbound requests (overridden by --token CLI flag)
	ProbeToken string `mapstructure:"probe_token"`
}

// PostgresDSN builds a keyword/value DSN from the individual db_* fields.
// DBDSN, when non-empty, is returned unchanged.
func (c *Config) PostgresDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Load reads config from file (./config.yaml or ~/.hvacpulse/config.yaml)
// and falls back to smart defaults. Environment variables with prefix PULSE_
// override file values; the database settings also honor the bare DB_* names
// used by the fleet provisioning scripts.
func Load() (*Config, error) {
	v := viper.New()

	// --- Smart Defaults ---
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("control_port", 8787) // operator API
	v.SetDefault("data_port", 8788)    // device data plane
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_name", "hvacdb")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_path", "hvacpulse.db")
	v.SetDefault("db_dsn", "")

	// Security defaults — MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "HvP$Lq7@sE2!mZ9#rK6^dT4&bA1*fY") // random placeholder
	v.SetDefault("agent_token", "hvacpulse-secret-key-123")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")
	v.SetDefault("admin_pass_hash", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "device-heartbeats")

	v.SetDefault("ingest_rate_rps", 0)
	v.SetDefault("ingest_rate_burst", 100)

	v.SetDefault("probe_join_addr", "127.0.0.1:8788")
	v.SetDefault("probe_interval_seconds", 30)
	v.SetDefault("probe_device_id", "")
	v.SetDefault("probe_site_id", "")
	v.SetDefault("probe_status", "ready")
	v.SetDefault("probe_token", "hvacpulse-secret-key-123")

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.hvacpulse")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// --- Environment Variables ---
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// The provisioning scripts export unprefixed DB_* variables; accept both
	// spellings, prefixed winning when a key is set twice.
	v.BindEnv("db_host", "PULSE_DB_HOST", "DB_HOST")
	v.BindEnv("db_port", "PULSE_DB_PORT", "DB_PORT")
	v.BindEnv("db_name", "PULSE_DB_NAME", "DB_NAME")
	v.BindEnv("db_user", "PULSE_DB_USER", "DB_USER")
	v.BindEnv("db_password", "PULSE_DB_PASSWORD", "DB_PASSWORD")
	v.BindEnv("db_sslmode", "PULSE_DB_SSLMODE", "DB_SSLMODE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
