// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"todo/internal/service"
)

// FakeService is an in-memory implementation of service.Service and
// service.Authenticator for testing.
type FakeService struct {
	mu      sync.RWMutex
	tasks   []service.Task
	nextID  int
	session *service.Session

	// Users maps email to password for Login.
	Users map[string]string

	// Deleted records every DeleteTask call in order.
	Deleted []string

	// Error injection for testing
	ListTasksErr  error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr map[string]error // taskID -> error; "" applies to all
	LoginErr      error
	SignUpErr     error
	LogoutErr     error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID:        1,
		Users:         make(map[string]string),
		DeleteTaskErr: make(map[string]error),
	}
}

// AddTask seeds a task and returns its ID.
func (f *FakeService) AddTask(description string, category service.Category, completed bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.tasks = append(f.tasks, service.Task{
		ID:          id,
		Description: description,
		Category:    category,
		Completed:   completed,
		Created:     time.Unix(int64(f.nextID), 0).UTC(),
	})
	return id
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// SetSession marks the fake as signed in. Nil signs out.
func (f *FakeService) SetSession(s *service.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, description string, category service.Category) (service.Task, error) {
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	id := f.AddTask(description, category, false)
	t, _ := f.find(id)
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if patch.Description != nil {
			f.tasks[i].Description = *patch.Description
		}
		if patch.Category != nil {
			f.tasks[i].Category = *patch.Category
		}
		if patch.Completed != nil {
			f.tasks[i].Completed = *patch.Completed
		}
		return f.tasks[i], nil
	}
	return service.Task{}, service.ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	if err := f.DeleteTaskErr[id]; err != nil {
		return err
	}
	if err := f.DeleteTaskErr[""]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			f.Deleted = append(f.Deleted, id)
			return nil
		}
	}
	return service.ErrNotFound
}

func (f *FakeService) find(id string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Login implements service.Authenticator.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.Session, error) {
	if f.LoginErr != nil {
		return service.Session{}, f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.Users[email]; !ok || pw != password {
		return service.Session{}, service.ErrUnauthorized
	}
	f.session = &service.Session{UID: "uid-" + strings.ToLower(email), Email: email}
	return *f.session, nil
}

// SignUp implements service.Authenticator.
func (f *FakeService) SignUp(ctx context.Context, req service.SignUp) (service.Session, error) {
	if f.SignUpErr != nil {
		return service.Session{}, f.SignUpErr
	}
	if err := req.Validate(); err != nil {
		return service.Session{}, err
	}
	f.mu.Lock()
	if _, ok := f.Users[req.Email]; ok {
		f.mu.Unlock()
		return service.Session{}, service.ErrConflict
	}
	f.Users[req.Email] = req.Password
	f.mu.Unlock()
	return f.Login(ctx, req.Email, req.Password)
}

// Logout implements service.Authenticator.
func (f *FakeService) Logout(ctx context.Context) error {
	if f.LogoutErr != nil {
		return f.LogoutErr
	}
	f.SetSession(nil)
	return nil
}

// Current implements service.Authenticator.
func (f *FakeService) Current(ctx context.Context) (service.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.session == nil {
		return service.Session{}, service.ErrNotLoggedIn
	}
	return *f.session, nil
}

// FakeTranslator prefixes texts with the target language.
type FakeTranslator struct {
	mu    sync.Mutex
	Calls int

	// Err fails every call.
	Err error

	// Fail lists texts that translate to "".
	Fail map[string]bool
}

// Translate implements service.Translator.
func (f *FakeTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if f.Fail[text] {
		return "", nil
	}
	return lang + ":" + text, nil
}

// TranslateBatch implements service.Translator.
func (f *FakeTranslator) TranslateBatch(ctx context.Context, texts []string, lang string) ([]string, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		if !f.Fail[t] {
			out[i] = lang + ":" + t
		}
	}
	return out, nil
}
