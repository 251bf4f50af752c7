package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"todo/internal/service"
)

//go:embed config.example.toml
var exampleConf []byte

// Backend names accepted in config.toml.
const (
	BackendREST        = "rest"
	BackendFirebase    = "firebase"
	BackendGoogleTasks = "googletasks"
	BackendLocal       = "local"
)

// Settings represents config.toml.
type Settings struct {
	Backend         string            `toml:"backend"`
	DefaultCategory string            `toml:"default_category"`
	REST            RESTSettings      `toml:"rest"`
	Translate       TranslateSettings `toml:"translate"`
	Firebase        FirebaseSettings  `toml:"firebase"`
	Local           LocalSettings     `toml:"local"`
}

// RESTSettings configures the task REST backend.
type RESTSettings struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// TranslateSettings configures the translation requester.
type TranslateSettings struct {
	Enabled  bool    `toml:"enabled"`
	Provider string  `toml:"provider"` // "backend" or "google"
	Variant  string  `toml:"variant"`  // "batch" (/translate) or "single" (/api/translate)
	Language string  `toml:"language"`
	Rate     float64 `toml:"rate"` // requests per second for the google provider
}

// FirebaseSettings configures the Firebase backend.
type FirebaseSettings struct {
	APIKey       string   `toml:"api_key"`
	ProjectID    string   `toml:"project_id"`
	PollInterval Duration `toml:"poll_interval"`
}

// LocalSettings configures the SQLite backend.
type LocalSettings struct {
	Database string `toml:"database"`
}

// Duration is a time.Duration read from a TOML string such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadSettings reads and parses config.toml from path.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := DefaultSettings()
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultSettings returns the settings from the embedded example config.
func DefaultSettings() Settings {
	var s Settings
	if err := toml.Unmarshal(exampleConf, &s); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return s
}

// Validate checks enumerated fields.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendREST, BackendFirebase, BackendGoogleTasks, BackendLocal:
	default:
		return fmt.Errorf("invalid config: unknown backend %q", s.Backend)
	}
	if _, err := service.ParseCategory(s.DefaultCategory); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch s.Translate.Provider {
	case "backend", "google":
	default:
		return fmt.Errorf("invalid config: unknown translate provider %q", s.Translate.Provider)
	}
	switch s.Translate.Variant {
	case "batch", "single":
	default:
		return fmt.Errorf("invalid config: unknown translate variant %q", s.Translate.Variant)
	}
	return nil
}

// Category returns the default category, falling back to personal.
func (s Settings) Category() service.Category {
	c, err := service.ParseCategory(s.DefaultCategory)
	if err != nil {
		return service.Personal
	}
	return c
}

// WriteExample creates config.toml from the embedded example config.
func (c *Config) WriteExample() error {
	if exists(c.SettingsPath()) {
		return fmt.Errorf("config file already exists at %s", c.SettingsPath())
	}
	if err := c.EnsureDir(); err != nil {
		return err
	}
	return os.WriteFile(c.SettingsPath(), exampleConf, 0600)
}
