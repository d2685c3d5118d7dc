// Package config provides configuration management for larder.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/feastwise/larder/internal/engine"
	"github.com/feastwise/larder/pkg/models"
)

const (
	// DefaultHTTPPort is the default port for the ranking service.
	DefaultHTTPPort = 8080

	// DefaultBackend selects the embedded store when nothing is configured.
	DefaultBackend = BackendSQLite

	// BackendSQLite runs on the embedded CGO-free SQLite driver.
	BackendSQLite = "sqlite"
	// BackendPostgres runs on Postgres with pgvector flavor search.
	BackendPostgres = "postgres"

	// DefaultCacheTTLSeconds is how long ranked responses stay cached
	// when Redis is configured.
	DefaultCacheTTLSeconds = 60

	// SettingsEnv overrides the settings file location.
	SettingsEnv = "LARDER_SETTINGS"
)

// Config holds the application configuration.
type Config struct {
	// Service settings
	HTTPPort int    `json:"http_port"`
	APIToken string `json:"api_token"`

	// Store settings
	Backend     string `json:"backend"`
	SQLitePath  string `json:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn"`
	MaxConns    int    `json:"max_conns"`

	// Response cache settings (disabled when RedisAddr is empty)
	RedisAddr       string `json:"redis_addr"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`

	// Ranking settings
	UrgencyWeight        float64 `json:"urgency_weight"`
	AffinityWeight       float64 `json:"affinity_weight"`
	FamiliarityWeight    float64 `json:"familiarity_weight"`
	ExpiryHorizonDays    int     `json:"expiry_horizon_days"`
	FamiliarityFloor     float64 `json:"familiarity_floor"`
	MaxPerTier           int     `json:"max_per_tier"`
	FallbackMinThreshold int     `json:"fallback_min_threshold"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.larder).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".larder")
}

// DBPath returns the embedded database file path.
func DBPath() string {
	return filepath.Join(DataDir(), "larder.db")
}

// SettingsPath returns the settings file path, honoring the
// LARDER_SETTINGS override.
func SettingsPath() string {
	if path := os.Getenv(SettingsEnv); path != "" {
		return path
	}
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings creates a default settings file if it doesn't exist.
func EnsureSettings() error {
	path := SettingsPath()

	if _, err := os.Stat(path); err == nil {
		return nil // File exists
	}

	defaultSettings := `{
  "LARDER_HTTP_PORT": 8080,
  "LARDER_BACKEND": "sqlite",
  "LARDER_URGENCY_WEIGHT": 0.45,
  "LARDER_AFFINITY_WEIGHT": 0.35,
  "LARDER_FAMILIARITY_WEIGHT": 0.20,
  "LARDER_EXPIRY_HORIZON_DAYS": 7
}
`
	return os.WriteFile(path, []byte(defaultSettings), 0600)
}

// EnsureAll ensures all required directories and files exist.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	if err := EnsureSettings(); err != nil {
		return err
	}
	return nil
}

// Default returns a Config with default values.
func Default() *Config {
	scoring := models.DefaultScoringConfig()
	return &Config{
		HTTPPort:             DefaultHTTPPort,
		Backend:              DefaultBackend,
		SQLitePath:           DBPath(),
		MaxConns:             4,
		CacheTTLSeconds:      DefaultCacheTTLSeconds,
		UrgencyWeight:        scoring.UrgencyWeight,
		AffinityWeight:       scoring.AffinityWeight,
		FamiliarityWeight:    scoring.FamiliarityWeight,
		ExpiryHorizonDays:    scoring.ExpiryHorizonDays,
		FamiliarityFloor:     scoring.FamiliarityFloor,
		MaxPerTier:           engine.DefaultMaxPerTier,
		FallbackMinThreshold: engine.DefaultFallbackMinThreshold,
	}
}

// Load loads configuration from the settings file, merging with defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Load settings into a map to preserve unknown fields
	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return cfg, nil // Return defaults on parse error
	}

	if v, ok := settings["LARDER_HTTP_PORT"].(float64); ok && v > 0 {
		cfg.HTTPPort = int(v)
	}
	if v, ok := settings["LARDER_API_TOKEN"].(string); ok {
		cfg.APIToken = v
	}
	if v, ok := settings["LARDER_BACKEND"].(string); ok && (v == BackendSQLite || v == BackendPostgres) {
		cfg.Backend = v
	}
	if v, ok := settings["LARDER_SQLITE_PATH"].(string); ok && v != "" {
		cfg.SQLitePath = v
	}
	if v, ok := settings["LARDER_POSTGRES_DSN"].(string); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := settings["LARDER_MAX_CONNS"].(float64); ok && v > 0 {
		cfg.MaxConns = int(v)
	}
	if v, ok := settings["LARDER_REDIS_ADDR"].(string); ok {
		cfg.RedisAddr = v
	}
	if v, ok := settings["LARDER_CACHE_TTL_SECONDS"].(float64); ok && v > 0 {
		cfg.CacheTTLSeconds = int(v)
	}
	if v, ok := settings["LARDER_URGENCY_WEIGHT"].(float64); ok && v >= 0 && v <= 1 {
		cfg.UrgencyWeight = v
	}
	if v, ok := settings["LARDER_AFFINITY_WEIGHT"].(float64); ok && v >= 0 && v <= 1 {
		cfg.AffinityWeight = v
	}
	if v, ok := settings["LARDER_FAMILIARITY_WEIGHT"].(float64); ok && v >= 0 && v <= 1 {
		cfg.FamiliarityWeight = v
	}
	if v, ok := settings["LARDER_EXPIRY_HORIZON_DAYS"].(float64); ok && v > 0 {
		cfg.ExpiryHorizonDays = int(v)
	}
	if v, ok := settings["LARDER_FAMILIARITY_FLOOR"].(float64); ok && v >= 0 && v <= 1 {
		cfg.FamiliarityFloor = v
	}
	if v, ok := settings["LARDER_MAX_PER_TIER"].(float64); ok && v > 0 {
		cfg.MaxPerTier = int(v)
	}
	if v, ok := settings["LARDER_FALLBACK_MIN_THRESHOLD"].(float64); ok && v > 0 {
		cfg.FallbackMinThreshold = int(v)
	}

	return cfg, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Reload re-reads the settings file and swaps the global configuration.
// Returns the freshly loaded config so watchers can publish it.
func Reload() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

// GetHTTPPort returns the HTTP port from environment or config.
func GetHTTPPort() int {
	if port := os.Getenv("LARDER_HTTP_PORT"); port != "" {
		var p int
		if err := json.Unmarshal([]byte(port), &p); err == nil && p > 0 {
			return p
		}
	}
	return Get().HTTPPort
}

// ScoringConfig assembles the scoring weights from the configuration.
// An invalid combination falls back to the defaults so a bad settings
// edit can never take ranking down.
func (c *Config) ScoringConfig() *models.ScoringConfig {
	cfg := &models.ScoringConfig{
		UrgencyWeight:     c.UrgencyWeight,
		AffinityWeight:    c.AffinityWeight,
		FamiliarityWeight: c.FamiliarityWeight,
		ExpiryHorizonDays: c.ExpiryHorizonDays,
		FamiliarityFloor:  c.FamiliarityFloor,
	}
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Configured scoring weights are invalid, using defaults")
		return models.DefaultScoringConfig()
	}
	return cfg
}
