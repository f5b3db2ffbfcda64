package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"eventplanner/internal/model"
)

// ICSConfig describes a single ICS subscription imported into the store.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID namespaces imported event ids and appears in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ChatConfig points the chat widget at its endpoint.
type ChatConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Timeout bounds a single chat request; 0 disables it.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// AssistantConfig configures cmd/assistant.
type AssistantConfig struct {
	Listen      string  `yaml:"listen" json:"listen"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Model       string  `yaml:"model" json:"model"`
	APIKeyEnv   string  `yaml:"api_key_env" json:"api_key_env"`
	// Temperature is nil when unset; 0 is a valid setting.
	Temperature *float64 `yaml:"temperature" json:"temperature"`
	// Timeout bounds one completion call; 0 disables it.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to date imported events and to run the
	// refresh schedule.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// AllowedOrigins lists browser origins permitted by CORS.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// RefreshCron is a cron-style schedule for ICS imports.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays / BackfillDays bound recurrence expansion on import.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// CacheDir holds the conditional-GET cache of ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Events seeds the store at startup.
	Events []model.Event `yaml:"events" json:"events"`

	Chat      ChatConfig      `yaml:"chat" json:"chat"`
	Assistant AssistantConfig `yaml:"assistant" json:"assistant"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Timezone:       "UTC",
		LogLevel:       "info",
		AllowedOrigins: defaultOrigins(),
		RefreshCron:    "*/15 * * * *",
		HorizonDays:    90,
		BackfillDays:   7,
		CacheDir:       "./var/ics-cache",
		ICS:            []ICSConfig{},
		Events: []model.Event{{
			ID:          "1",
			Title:       "Team Meeting",
			Date:        "2024-06-15",
			Location:    "Virtual",
			Status:      model.StatusAttending,
			Description: "Quarterly planning session",
		}},
		Chat: ChatConfig{
			Endpoint: "http://127.0.0.1:8000/chat",
		},
		Assistant: AssistantConfig{
			Listen:      "127.0.0.1:8000",
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "mistralai/mistral-7b-instruct-v0.1",
			APIKeyEnv:   "R1",
			Temperature: floatPtr(DefaultTemperature),
		},
	}
}

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.3

func floatPtr(v float64) *float64 {
	return &v
}

func defaultOrigins() []string {
	return []string{"http://localhost:5173", "http://localhost:3000"}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly. Seed events are kept as written.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = defaultOrigins()
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 90
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Events == nil {
		c.Events = []model.Event{}
	}
	if c.Chat.Endpoint == "" {
		c.Chat.Endpoint = "http://127.0.0.1:8000/chat"
	}
	if c.Chat.Timeout < 0 {
		c.Chat.Timeout = 0
	}

	a := &c.Assistant
	if a.Listen == "" {
		a.Listen = "127.0.0.1:8000"
	}
	if a.BaseURL == "" {
		a.BaseURL = "https://openrouter.ai/api/v1"
	}
	if a.Model == "" {
		a.Model = "mistralai/mistral-7b-instruct-v0.1"
	}
	if a.APIKeyEnv == "" {
		a.APIKeyEnv = "R1"
	}
	if a.Temperature == nil || *a.Temperature < 0 {
		a.Temperature = floatPtr(DefaultTemperature)
	}
	if a.Timeout < 0 {
		a.Timeout = 0
	}
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Callers may still run on the defaults.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventplanner-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
