package service

import (
	"context"
	"time"
)

// Service defines the interface for task backend operations.
// Commands and the board never import a backend SDK directly.
type Service interface {
	// ListTasks returns every task visible to the current session, in backend order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns it with the backend-assigned ID.
	CreateTask(ctx context.Context, description string, category Category) (Task, error)

	// UpdateTask applies a patch and returns the stored task.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error
}

// Authenticator gates access to a Service.
type Authenticator interface {
	// Login signs in and persists the session.
	Login(ctx context.Context, email, password string) (Session, error)

	// SignUp registers a new account and signs in.
	SignUp(ctx context.Context, req SignUp) (Session, error)

	// Logout ends the session and removes stored credentials.
	Logout(ctx context.Context) error

	// Current returns the stored session or ErrNotLoggedIn.
	Current(ctx context.Context) (Session, error)
}

// Snapshot is one result of a live query.
type Snapshot struct {
	Tasks []Task
	Err   error
}

// Watcher is implemented by backends with live-update semantics.
// The channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, interval time.Duration) <-chan Snapshot
}

// Translator maps text to a target language.
type Translator interface {
	// Translate translates a single text.
	Translate(ctx context.Context, text, targetLang string) (string, error)

	// TranslateBatch translates texts; the result is aligned with the input
	// and a failed entry is the empty string.
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error)
}
