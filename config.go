package regs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/regs/internal/store"
)

// Config configures the regs client.
type Config struct {
	// LocalPath is the path to the local SQLite database.
	// If empty, it is derived from Profile.
	LocalPath string `yaml:"db_path"`

	// Profile selects a database under ~/.regs/profiles.
	// Resolution: explicit > REGS_PROFILE env > "default".
	Profile string `yaml:"profile" validate:"omitempty,max=64"`

	// RemoteURL is the base URL of the remote record service.
	// If empty, the client runs local-only.
	RemoteURL string `yaml:"remote_url" validate:"omitempty,url"`

	// APIKey authenticates with the remote record service.
	APIKey string `yaml:"api_key"`

	// SourceID identifies this client instance to the remote.
	// Defaults to hostname if not set.
	SourceID string `yaml:"source_id"`

	// Owner is the signed-in account id. Empty or "offline" means no account.
	Owner string `yaml:"owner"`

	// Collection is the remote collection records are mirrored to.
	Collection string `yaml:"collection" validate:"omitempty,max=128"`

	// Slot is the local slot holding the collection.
	Slot string `yaml:"slot" validate:"omitempty,max=128"`

	// SyncInterval is how often StartAutoSync syncs. Defaults to 5 minutes.
	SyncInterval time.Duration `yaml:"sync_interval" validate:"gte=0"`

	// Locale drives title collation in views (BCP 47). Defaults to "en".
	Locale string `yaml:"locale"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LogPath, when set, writes logs to a rotated file instead of stderr.
	LogPath   string `yaml:"log_path"`
	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=json text"`

	// Trace selects the trace exporter: "", "none", "stdout" or "otlp".
	Trace        string `yaml:"trace" validate:"omitempty,oneof=none stdout otlp"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	hostname, _ := os.Hostname()
	return Config{
		Profile:      store.DefaultProfile,
		LocalPath:    store.ProfileDBPath("", store.DefaultProfile),
		Collection:   DefaultCollection,
		Slot:         DefaultSlot,
		SyncInterval: 5 * time.Minute,
		SourceID:     hostname,
		Locale:       "en",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// ConfigFromEnv reads configuration from environment variables, after
// loading a .env file from the working directory if one exists.
//
//	REGS_DB_PATH     → LocalPath
//	REGS_PROFILE     → Profile
//	REGS_REMOTE_URL  → RemoteURL
//	REGS_API_KEY     → APIKey
//	REGS_SOURCE_ID   → SourceID
//	REGS_OWNER       → Owner
//	REGS_COLLECTION  → Collection
//	REGS_DEBUG       → Debug (true/1/yes/on)
//	REGS_LOG_PATH    → LogPath
//	REGS_LOG_LEVEL   → LogLevel
//	REGS_LOG_FORMAT  → LogFormat
//	REGS_LOCALE      → Locale
//	REGS_TRACE       → Trace
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	return Config{
		LocalPath:  os.Getenv("REGS_DB_PATH"),
		Profile:    os.Getenv("REGS_PROFILE"),
		RemoteURL:  os.Getenv("REGS_REMOTE_URL"),
		APIKey:     os.Getenv("REGS_API_KEY"),
		SourceID:   os.Getenv("REGS_SOURCE_ID"),
		Owner:      os.Getenv("REGS_OWNER"),
		Collection: os.Getenv("REGS_COLLECTION"),
		Debug:      ParseBool(os.Getenv("REGS_DEBUG")),
		LogPath:    os.Getenv("REGS_LOG_PATH"),
		LogLevel:   os.Getenv("REGS_LOG_LEVEL"),
		LogFormat:  os.Getenv("REGS_LOG_FORMAT"),
		Locale:     os.Getenv("REGS_LOCALE"),
		Trace:      os.Getenv("REGS_TRACE"),
	}
}

// LoadConfigFile reads a YAML config file. A missing file yields an empty
// Config and no error.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, &ValidationError{Field: "file", Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return cfg, nil
}

// Merge returns c with every non-zero field of over applied on top.
func (c Config) Merge(over Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.LocalPath, over.LocalPath)
	set(&c.Profile, over.Profile)
	set(&c.RemoteURL, over.RemoteURL)
	set(&c.APIKey, over.APIKey)
	set(&c.SourceID, over.SourceID)
	set(&c.Owner, over.Owner)
	set(&c.Collection, over.Collection)
	set(&c.Slot, over.Slot)
	set(&c.Locale, over.Locale)
	set(&c.LogPath, over.LogPath)
	set(&c.LogLevel, over.LogLevel)
	set(&c.LogFormat, over.LogFormat)
	set(&c.Trace, over.Trace)
	set(&c.OTLPEndpoint, over.OTLPEndpoint)
	if over.SyncInterval != 0 {
		c.SyncInterval = over.SyncInterval
	}
	if over.Debug {
		c.Debug = true
	}
	return c
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return &ValidationError{Field: "LocalPath", Message: "required: path to SQLite database"}
	}

	if c.Profile != "" {
		if err := store.ValidateProfile(c.Profile); err != nil {
			return &ValidationError{Field: "Profile", Message: err.Error(), Err: err}
		}
	}

	if err := validateStruct(c); err != nil {
		return err
	}

	if c.RemoteURL != "" && c.APIKey == "" {
		return &ValidationError{Field: "APIKey", Message: "required when RemoteURL is set"}
	}

	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return &ValidationError{Field: "Locale", Message: err.Error()}
		}
	}

	return nil
}

// IsOffline returns true if no remote service is configured.
func (c Config) IsOffline() bool {
	return c.RemoteURL == ""
}

// LocaleTag returns the parsed locale, or English when unset or invalid.
func (c Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil || c.Locale == "" {
		return language.English
	}
	return tag
}

// LogLevelName returns the effective log level; Debug forces "debug".
func (c Config) LogLevelName() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// WithDefaults fills in default values for unset fields.
// LocalPath is derived from the resolved profile if not explicitly set.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Profile == "" {
		resolved, err := store.ResolveProfile("")
		if err == nil {
			c.Profile = resolved
		} else {
			c.Profile = store.DefaultProfile
		}
	}
	if c.LocalPath == "" {
		c.LocalPath = store.ProfileDBPath("", c.Profile)
	}

	if c.Collection == "" {
		c.Collection = defaults.Collection
	}
	if c.Slot == "" {
		c.Slot = defaults.Slot
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = defaults.SyncInterval
	}
	if c.SourceID == "" {
		c.SourceID = defaults.SourceID
	}
	if c.Locale == "" {
		c.Locale = defaults.Locale
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	return c
}

// ParseBool parses a lenient boolean: true/1/yes/on and false/0/no/off.
// Anything else, including the empty string, is false.
func ParseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "yes", "on", "y":
		return true
	case "no", "off", "n", "":
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
