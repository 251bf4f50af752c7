// Package backend opens the task backend and translation provider selected in config.toml.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"todo/internal/backend/firebase"
	"todo/internal/backend/googletasks"
	"todo/internal/backend/local"
	"todo/internal/backend/rest"
	"todo/internal/config"
	"todo/internal/logging"
	"todo/internal/service"
	"todo/internal/translate"
)

// ErrConfig marks a backend that cannot be opened with the current config.toml.
var ErrConfig = errors.New("backend config")

// Backend bundles a configured task store with its companions.
type Backend struct {
	service.Service
	Auth service.Authenticator

	// Translator is nil when translation is disabled.
	Translator service.Translator

	// Watcher is nil when the store has no live updates.
	Watcher      service.Watcher
	PollInterval time.Duration

	// Language is the default translation target.
	Language string

	Logger *log.Logger

	close func() error
}

// Close releases the store.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open creates the backend named by cfg.Settings.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Backend, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := cfg.Settings
	b := &Backend{Language: s.Translate.Language, Logger: logger}

	var httpClient *http.Client
	switch s.Backend {
	case config.BackendREST:
		c, err := rest.New(rest.Options{
			BaseURL:     s.REST.BaseURL,
			Timeout:     s.REST.Timeout.Duration,
			SessionPath: cfg.SessionPath(),
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		b.Service, b.Auth = c, c
		httpClient = c.HTTPClient()

	case config.BackendFirebase:
		c, err := firebase.New(ctx, firebase.Options{
			APIKey:    s.Firebase.APIKey,
			ProjectID: s.Firebase.ProjectID,
			TokenPath: cfg.FirebaseTokenPath(),
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		b.Service, b.Auth, b.Watcher = c, c, c
		b.PollInterval = s.Firebase.PollInterval.Duration

	case config.BackendGoogleTasks:
		c, err := googletasks.New(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		b.Service, b.Auth = c, c

	case config.BackendLocal:
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		st, err := local.Open(local.Options{
			Database:    cfg.DatabasePath(),
			SessionPath: cfg.LocalSessionPath(),
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		b.Service, b.Auth = st, st
		b.close = st.Close

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfig, s.Backend)
	}

	tr, err := newTranslator(s, httpClient, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%w: %v", ErrConfig, err), b.Close())
	}
	b.Translator = tr
	return b, nil
}

// newTranslator builds the configured provider. The backend provider reuses the
// REST session when there is one.
func newTranslator(s config.Settings, httpClient *http.Client, logger *log.Logger) (service.Translator, error) {
	if !s.Translate.Enabled {
		return nil, nil
	}
	opts := []translate.Option{translate.WithLogger(logger)}

	if s.Translate.Provider == "google" {
		return translate.NewGoogle(s.Translate.Rate, opts...), nil
	}

	variant, err := translate.ParseVariant(s.Translate.Variant)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		opts = append(opts, translate.WithHTTPClient(httpClient))
	}
	return translate.NewClient(s.REST.BaseURL, variant, opts...), nil
}
