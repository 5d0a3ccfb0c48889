// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Document store backends.
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

const (
	defaultProject        = "storefront-dev"
	defaultPort           = "8080"
	defaultDebounce       = 500 * time.Millisecond
	defaultSessionIdleTTL = 30 * time.Minute
)

// Config holds the process-wide settings.
// Values come from an optional TOML file and are then overridden by env vars.
type Config struct {
	Port                     string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string

	DocumentStore       string
	RedisURL            string
	RedisPasswordSecret string
	DatabaseURL         string

	CartCollection     string
	WishlistCollection string
	DebounceInterval   time.Duration
	VerifyWrites       bool
	SessionIdleTTL     time.Duration
	AllowedOrigins     []string

	LogLevel  string
	LogFormat string
}

type fileConfig struct {
	Port                string   `toml:"port"`
	ProjectID           string   `toml:"project_id"`
	CredentialsFile     string   `toml:"credentials_file"`
	FirebaseProjectID   string   `toml:"firebase_project_id"`
	DocumentStore       string   `toml:"document_store"`
	RedisURL            string   `toml:"redis_url"`
	RedisPasswordSecret string   `toml:"redis_password_secret"`
	DatabaseURL         string   `toml:"database_url"`
	CartCollection      string   `toml:"cart_collection"`
	WishlistCollection  string   `toml:"wishlist_collection"`
	DebounceInterval    string   `toml:"debounce_interval"`
	VerifyWrites        *bool    `toml:"verify_writes"`
	SessionIdleTTL      string   `toml:"session_idle_ttl"`
	AllowedOrigins      []string `toml:"allowed_origins"`
	LogLevel            string   `toml:"log_level"`
	LogFormat           string   `toml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:               defaultPort,
		FirestoreProjectID: defaultProject,
		FirebaseProjectID:  defaultProject,
		DocumentStore:      BackendFirestore,
		CartCollection:     "carts",
		WishlistCollection: "wishlists",
		DebounceInterval:   defaultDebounce,
		SessionIdleTTL:     defaultSessionIdleTTL,
		AllowedOrigins:     []string{"*"},
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads path (empty or missing file = defaults) and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			var raw fileConfig
			if err := toml.Unmarshal(b, &raw); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
			if err := cfg.applyFile(raw); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw fileConfig) error {
	setString(&c.Port, raw.Port)
	if p := strings.TrimSpace(raw.ProjectID); p != "" {
		c.FirestoreProjectID = p
		c.FirebaseProjectID = p
	}
	setString(&c.FirebaseProjectID, raw.FirebaseProjectID)
	setString(&c.FirestoreCredentialsFile, raw.CredentialsFile)
	setString(&c.DocumentStore, raw.DocumentStore)
	setString(&c.RedisURL, raw.RedisURL)
	setString(&c.RedisPasswordSecret, raw.RedisPasswordSecret)
	setString(&c.DatabaseURL, raw.DatabaseURL)
	setString(&c.CartCollection, raw.CartCollection)
	setString(&c.WishlistCollection, raw.WishlistCollection)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.LogFormat, raw.LogFormat)

	if err := setDuration(&c.DebounceInterval, "debounce_interval", raw.DebounceInterval); err != nil {
		return err
	}
	if err := setDuration(&c.SessionIdleTTL, "session_idle_ttl", raw.SessionIdleTTL); err != nil {
		return err
	}
	if raw.VerifyWrites != nil {
		c.VerifyWrites = *raw.VerifyWrites
	}
	if origins := cleanList(raw.AllowedOrigins); len(origins) > 0 {
		c.AllowedOrigins = origins
	}
	return nil
}

func (c *Config) applyEnv() error {
	if p := os.Getenv("GCP_PROJECT_ID"); strings.TrimSpace(p) != "" {
		c.FirestoreProjectID = strings.TrimSpace(p)
		c.FirebaseProjectID = strings.TrimSpace(p)
	}
	c.Port = getenvDefault("PORT", c.Port)
	c.FirestoreProjectID = getenvDefault("FIRESTORE_PROJECT_ID", c.FirestoreProjectID)
	c.FirebaseProjectID = getenvDefault("FIREBASE_PROJECT_ID", c.FirebaseProjectID)
	c.FirestoreCredentialsFile = getenvDefault("FIRESTORE_CREDENTIALS_FILE", c.FirestoreCredentialsFile)
	c.DocumentStore = getenvDefault("DOCUMENT_STORE", c.DocumentStore)
	c.RedisURL = getenvDefault("REDIS_URL", c.RedisURL)
	c.RedisPasswordSecret = getenvDefault("REDIS_PASSWORD_SECRET", c.RedisPasswordSecret)
	c.DatabaseURL = getenvDefault("DATABASE_URL", c.DatabaseURL)
	c.CartCollection = getenvDefault("CART_COLLECTION", c.CartCollection)
	c.WishlistCollection = getenvDefault("WISHLIST_COLLECTION", c.WishlistCollection)
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("LOG_FORMAT", c.LogFormat)

	if err := setDuration(&c.DebounceInterval, "DEBOUNCE_INTERVAL", os.Getenv("DEBOUNCE_INTERVAL")); err != nil {
		return err
	}
	if err := setDuration(&c.SessionIdleTTL, "SESSION_IDLE_TTL", os.Getenv("SESSION_IDLE_TTL")); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("VERIFY_WRITES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: VERIFY_WRITES: %w", err)
		}
		c.VerifyWrites = b
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); strings.TrimSpace(v) != "" {
		c.AllowedOrigins = cleanList(strings.Split(v, ","))
	}
	return nil
}

// Validate checks cross-field requirements of the selected backend.
func (c *Config) Validate() error {
	c.DocumentStore = strings.ToLower(strings.TrimSpace(c.DocumentStore))
	switch c.DocumentStore {
	case BackendFirestore, BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("config: redis_url is required for document_store=redis")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("config: database_url is required for document_store=postgres")
		}
	default:
		return fmt.Errorf("config: unknown document_store %q", c.DocumentStore)
	}
	if c.DebounceInterval <= 0 {
		return errors.New("config: debounce_interval must be positive")
	}
	if c.CartCollection == c.WishlistCollection {
		return errors.New("config: cart and wishlist collections must differ")
	}
	return nil
}

// GetFirestoreProjectID returns the Firestore/GCP project ID.
func (c *Config) GetFirestoreProjectID() string {
	return c.FirestoreProjectID
}

func (c *Config) GetFirebaseProjectID() string {
	return c.FirebaseProjectID
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func setString(dst *string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = s
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	*dst = d
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
