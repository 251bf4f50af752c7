package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"todo/internal/backend/local"
	"todo/internal/backend/rest"
	"todo/internal/config"
	"todo/internal/service"
	"todo/internal/translate"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	cfg.Settings.Backend = backend
	return cfg
}

func TestOpen_Local(t *testing.T) {
	cfg := testConfig(t, config.BackendLocal)
	cfg.Settings.Local.Database = ":memory:"
	cfg.Settings.Translate.Enabled = false

	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	if _, ok := b.Service.(*local.Store); !ok {
		t.Errorf("Service = %T, want *local.Store", b.Service)
	}
	if b.Translator != nil {
		t.Error("Translator should be nil when translation is disabled")
	}
	if b.Watcher != nil {
		t.Error("local backend has no watcher")
	}
	if _, err := b.Auth.Current(context.Background()); !errors.Is(err, service.ErrNotLoggedIn) {
		t.Errorf("Current() error = %v, want ErrNotLoggedIn", err)
	}
}

func TestOpen_RESTWithBackendTranslator(t *testing.T) {
	cfg := testConfig(t, config.BackendREST)
	cfg.Settings.Translate.Enabled = true
	cfg.Settings.Translate.Provider = "backend"

	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := b.Service.(*rest.Client); !ok {
		t.Errorf("Service = %T, want *rest.Client", b.Service)
	}
	if _, ok := b.Translator.(*translate.Client); !ok {
		t.Errorf("Translator = %T, want *translate.Client", b.Translator)
	}
	if b.Language != cfg.Settings.Translate.Language {
		t.Errorf("Language = %q", b.Language)
	}
}

func TestOpen_GoogleTranslator(t *testing.T) {
	cfg := testConfig(t, config.BackendREST)
	cfg.Settings.Translate.Enabled = true
	cfg.Settings.Translate.Provider = "google"

	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := b.Translator.(*translate.Google); !ok {
		t.Errorf("Translator = %T, want *translate.Google", b.Translator)
	}
}

func TestOpen_FirebaseNeedsKeys(t *testing.T) {
	cfg := testConfig(t, config.BackendFirebase)

	_, err := Open(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Errorf("Open() error = %v, want api_key error", err)
	}
}

func TestOpen_GoogleTasksWithoutToken(t *testing.T) {
	cfg := testConfig(t, config.BackendGoogleTasks)

	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := b.ListTasks(context.Background()); !errors.Is(err, service.ErrNotLoggedIn) {
		t.Errorf("ListTasks() error = %v, want ErrNotLoggedIn", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, "carrier-pigeon")

	_, err := Open(context.Background(), cfg, nil)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("Open() error = %v, want ErrConfig", err)
	}
}
