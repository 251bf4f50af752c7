// Package config handles the XDG configuration directory, file paths and config.toml.
package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application directory name.
	AppName = "todo"

	// ConfigFile is the TOML settings filename.
	ConfigFile = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename (googletasks backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (googletasks backend).
	TokenFile = "token.json"

	// SessionFile holds the REST backend session cookies.
	SessionFile = "session.json"

	// FirebaseTokenFile holds the Firebase ID and refresh tokens.
	FirebaseTokenFile = "firebase_token.json"

	// LocalSessionFile holds the signed-in local account.
	LocalSessionFile = "local_session.json"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings is the parsed config.toml (defaults when absent).
	Settings Settings
}

// New creates a new Config with the default or specified config directory
// and loads config.toml from it when present.
// If configDir is empty, uses XDG_CONFIG_HOME/todo or $HOME/.config/todo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir, Settings: DefaultSettings()}

	if _, err := os.Stat(cfg.SettingsPath()); err == nil {
		s, err := LoadSettings(cfg.SettingsPath())
		if err != nil {
			return nil, err
		}
		cfg.Settings = *s
	}
	if b := os.Getenv("TODO_BACKEND"); b != "" {
		cfg.Settings.Backend = b
		if err := cfg.Settings.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SessionPath returns the path to the REST session cookie file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// FirebaseTokenPath returns the path to the stored Firebase tokens.
func (c *Config) FirebaseTokenPath() string {
	return filepath.Join(c.Dir, FirebaseTokenFile)
}

// LocalSessionPath returns the path to the local backend session file.
func (c *Config) LocalSessionPath() string {
	return filepath.Join(c.Dir, LocalSessionFile)
}

// DatabasePath returns the local SQLite path, relative paths resolved against Dir.
func (c *Config) DatabasePath() string {
	p := c.Settings.Local.Database
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	return exists(c.OAuthClientPath())
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	return exists(c.TokenPath())
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
