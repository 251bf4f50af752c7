package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"todo/internal/service"
)

func ada() service.SignUp {
	return service.SignUp{
		FirstName: "Ada",
		Surname:   "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		Password:  "engine",
		Confirm:   "engine",
	}
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Database: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func signedIn(t *testing.T) *Store {
	t.Helper()
	s := openMemory(t)
	if _, err := s.SignUp(context.Background(), ada()); err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	return s
}

func TestMigrationsApplied(t *testing.T) {
	s := openMemory(t)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to query schema_migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations, got %d", count)
	}

	// Running again is a no-op
	if err := migrate(s.db); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestRequiresLogin(t *testing.T) {
	s := openMemory(t)

	_, err := s.ListTasks(context.Background())
	if !errors.Is(err, service.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := signedIn(t)
	ctx := context.Background()

	first, err := s.CreateTask(ctx, "Buy milk", service.Personal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.CreateTask(ctx, "Ship report", service.Professional)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("IDs must be unique")
	}
	if first.Completed || first.Created.IsZero() {
		t.Errorf("unexpected new task %+v", first)
	}

	done := true
	updated, err := s.UpdateTask(ctx, second.ID, service.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed || updated.Description != "Ship report" {
		t.Errorf("unexpected updated task %+v", updated)
	}

	if err := s.DeleteTask(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != second.ID || !tasks[0].Completed {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}

func TestOtherUsersTasks(t *testing.T) {
	s := signedIn(t)
	ctx := context.Background()
	task, err := s.CreateTask(ctx, "Private", service.Personal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := ada()
	other.Email = "bob@example.com"
	other.Phone = "555-0199"
	if _, err := s.SignUp(ctx, other); err != nil {
		t.Fatalf("second sign-up: %v", err)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks for new user, got %d", len(tasks))
	}
	if err := s.DeleteTask(ctx, task.ID); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := s.DeleteTask(ctx, "999"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSignUpDuplicates(t *testing.T) {
	s := signedIn(t)
	ctx := context.Background()

	_, err := s.SignUp(ctx, ada())
	if !errors.Is(err, service.ErrConflict) || err.Error() != "already exists: Email address already exists" {
		t.Errorf("unexpected email conflict error: %v", err)
	}

	dup := ada()
	dup.Email = "other@example.com"
	_, err = s.SignUp(ctx, dup)
	if !errors.Is(err, service.ErrConflict) || err.Error() != "already exists: Phone number already exists" {
		t.Errorf("unexpected phone conflict error: %v", err)
	}
}

func TestInsertUserUniqueViolation(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	if _, err := s.db.Exec(`INSERT INTO user (first_name, surname, email, phone_number, password_hash) VALUES ('Ada', 'Lovelace', 'ada@example.com', '555-0100', 'x')`); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	err := s.insertUser(ctx, ada(), []byte("hash"))
	if !errors.Is(err, service.ErrConflict) || err.Error() != "already exists: An account with this email already exists." {
		t.Errorf("unexpected email violation error: %v", err)
	}

	dup := ada()
	dup.Email = "other@example.com"
	err = s.insertUser(ctx, dup, []byte("hash"))
	if !errors.Is(err, service.ErrConflict) || err.Error() != "already exists: An account with this phone number already exists." {
		t.Errorf("unexpected phone violation error: %v", err)
	}

	fresh := ada()
	fresh.Email = "grace@example.com"
	fresh.Phone = "555-0199"
	if err := s.insertUser(ctx, fresh, []byte("hash")); err != nil {
		t.Errorf("insert of a new account failed: %v", err)
	}
}

func TestSessionFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo", "local_session.json")
	s, err := Open(Options{Database: ":memory:", SessionPath: path})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	if _, err := s.SignUp(context.Background(), ada()); err != nil {
		t.Fatalf("sign-up in a fresh config dir failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("session file not written: %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	missing := ada()
	missing.Surname = ""
	_, err := s.SignUp(ctx, missing)
	if err == nil || err.Error() != "invalid input: All fields are required" {
		t.Errorf("unexpected error: %v", err)
	}

	mismatch := ada()
	mismatch.Confirm = "other"
	_, err = s.SignUp(ctx, mismatch)
	if err == nil || err.Error() != "invalid input: Passwords do not match" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoginErrors(t *testing.T) {
	s := signedIn(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "nobody@example.com", "x")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for unknown email, got %v", err)
	}
	_, err = s.Login(ctx, "ada@example.com", "wrong")
	if err == nil || err.Error() != "unauthorized: Invalid password. Please try again." {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSessionRestored(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Database:    filepath.Join(dir, "todo.db"),
		SessionPath: filepath.Join(dir, "local_session.json"),
	}
	ctx := context.Background()

	s, err := Open(opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.SignUp(ctx, ada()); err != nil {
		t.Fatalf("sign-up: %v", err)
	}
	if _, err := s.CreateTask(ctx, "Persisted", service.Personal); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	s, err = Open(opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	sess, err := s.Current(ctx)
	if err != nil || sess.Email != "ada@example.com" {
		t.Fatalf("expected restored session, got %+v, %v", sess, err)
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil || len(tasks) != 1 || tasks[0].Description != "Persisted" {
		t.Fatalf("unexpected tasks %+v, %v", tasks, err)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.Current(ctx); !errors.Is(err, service.ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn after logout, got %v", err)
	}
}
