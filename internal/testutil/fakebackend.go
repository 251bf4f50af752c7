package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// BackendTask is a task row of the FakeBackend.
type BackendTask struct {
	ID          int64     `json:"id"`
	Owner       string    `json:"-"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Completed   bool      `json:"completed"`
	Timestamp   time.Time `json:"-"`
}

type backendUser struct {
	email    string
	phone    string
	password string
}

// FakeBackend is an in-memory HTTP task server speaking the same routes,
// cookies and redirects as the real backend.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]backendUser
	sessions map[string]string // cookie -> email
	tasks    []BackendTask
	nextID   int64

	// Translations counts calls to the translation endpoints.
	Translations int

	// FailTranslate makes texts equal to the key translate to null.
	FailTranslate map[string]bool
}

// NewFakeBackend starts a FakeBackend. The caller must Close it.
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		users:         make(map[string]backendUser),
		sessions:      make(map[string]string),
		nextID:        1,
		FailTranslate: make(map[string]bool),
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

// AddUser registers an account.
func (b *FakeBackend) AddUser(email, phone, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = backendUser{email: email, phone: phone, password: password}
}

// AddTask inserts a task owned by email and returns its ID.
func (b *FakeBackend) AddTask(email, description, category string, completed bool) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.tasks = append(b.tasks, BackendTask{
		ID:          id,
		Owner:       email,
		Description: description,
		Category:    category,
		Completed:   completed,
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	return id
}

// Tasks returns a copy of the stored rows.
func (b *FakeBackend) Tasks() []BackendTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BackendTask, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// ExpireSessions drops every server-side session.
func (b *FakeBackend) ExpireSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = make(map[string]string)
}

func (b *FakeBackend) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", b.handleLogin).Methods("POST")
	r.HandleFunc("/sign-up", b.handleSignUp).Methods("POST")
	r.HandleFunc("/logout", b.requireLogin(b.handleLogout)).Methods("GET")
	r.HandleFunc("/tasks", b.requireLogin(b.handleListTasks)).Methods("GET")
	r.HandleFunc("/tasks", b.requireLogin(b.handleCreateTask)).Methods("POST")
	r.HandleFunc("/tasks/{id:[0-9]+}", b.requireLogin(b.handleUpdateTask)).Methods("PUT")
	r.HandleFunc("/tasks/{id:[0-9]+}", b.requireLogin(b.handleDeleteTask)).Methods("DELETE")
	r.HandleFunc("/translate", b.requireLogin(b.handleTranslate)).Methods("POST")
	r.HandleFunc("/api/translate", b.handleTranslateSingle).Methods("POST")
	return r
}

func (b *FakeBackend) requireLogin(next func(w http.ResponseWriter, r *http.Request, email string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		b.mu.Lock()
		email := ""
		if err == nil {
			email = b.sessions[ck.Value]
		}
		b.mu.Unlock()
		if email == "" {
			http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusFound)
			return
		}
		next(w, r, email)
	}
}

func page(w http.ResponseWriter, flash string) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte("<html><body><div class=\"flash\">" + flash + "</div></body></html>"))
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("Email")
	password := r.FormValue("Password")

	b.mu.Lock()
	u, ok := b.users[email]
	b.mu.Unlock()
	switch {
	case !ok:
		page(w, "Email not found. Please check your login details and try again.")
		return
	case u.password != password:
		page(w, "Invalid password. Please try again.")
		return
	}

	token := uuid.NewString()
	b.mu.Lock()
	b.sessions[token] = email
	b.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "session", Value: token, Path: "/", HttpOnly: true})
	http.Redirect(w, r, "/index", http.StatusFound)
}

func (b *FakeBackend) handleSignUp(w http.ResponseWriter, r *http.Request) {
	fields := []string{"First name", "Surname", "Email", "Phone number", "Password", "Confirm password"}
	for _, f := range fields {
		if r.FormValue(f) == "" {
			page(w, "All fields are required")
			return
		}
	}
	if r.FormValue("Password") != r.FormValue("Confirm password") {
		page(w, "Passwords do not match")
		return
	}

	email, phone := r.FormValue("Email"), r.FormValue("Phone number")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.email == email {
			page(w, "Email address already exists")
			return
		}
		if u.phone == phone {
			page(w, "Phone number already exists")
			return
		}
	}
	b.users[email] = backendUser{email: email, phone: phone, password: r.FormValue("Password")}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (b *FakeBackend) handleLogout(w http.ResponseWriter, r *http.Request, email string) {
	ck, _ := r.Cookie("session")
	b.mu.Lock()
	delete(b.sessions, ck.Value)
	b.mu.Unlock()
	http.Redirect(w, r, "/login", http.StatusFound)
}

type wireTask struct {
	BackendTask
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func wire(t BackendTask) wireTask {
	// Naive ISO timestamp, as the backend stores UTC without an offset.
	return wireTask{BackendTask: t, Timestamp: t.Timestamp.Format("2006-01-02T15:04:05.000000")}
}

func (b *FakeBackend) handleListTasks(w http.ResponseWriter, r *http.Request, email string) {
	b.mu.Lock()
	out := []wireTask{}
	for _, t := range b.tasks {
		if t.Owner == email {
			out = append(out, wire(t))
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleCreateTask(w http.ResponseWriter, r *http.Request, email string) {
	var in struct {
		Description string `json:"description"`
		Category    string `json:"category"`
		Completed   bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	id := b.AddTask(email, in.Description, in.Category, in.Completed)
	t, _ := b.find(id)
	writeJSON(w, http.StatusCreated, wire(t))
}

func (b *FakeBackend) find(id int64) (BackendTask, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.tasks {
		if t.ID == id {
			return t, i
		}
	}
	return BackendTask{}, -1
}

func (b *FakeBackend) owned(w http.ResponseWriter, r *http.Request, email string) (int64, bool) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	t, i := b.find(id)
	if i < 0 {
		http.NotFound(w, r)
		return 0, false
	}
	if t.Owner != email {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}

func (b *FakeBackend) handleUpdateTask(w http.ResponseWriter, r *http.Request, email string) {
	id, ok := b.owned(w, r, email)
	if !ok {
		return
	}
	var in struct {
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Completed   *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}

	b.mu.Lock()
	var out BackendTask
	for i := range b.tasks {
		if b.tasks[i].ID != id {
			continue
		}
		if in.Description != nil {
			b.tasks[i].Description = *in.Description
		}
		if in.Category != nil {
			b.tasks[i].Category = *in.Category
		}
		if in.Completed != nil {
			b.tasks[i].Completed = *in.Completed
		}
		out = b.tasks[i]
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, wire(out))
}

func (b *FakeBackend) handleDeleteTask(w http.ResponseWriter, r *http.Request, email string) {
	id, ok := b.owned(w, r, email)
	if !ok {
		return
	}
	b.mu.Lock()
	for i, t := range b.tasks {
		if t.ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) translated(text, lang string) *string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Translations++
	if b.FailTranslate[text] {
		return nil
	}
	s := "[" + strings.ToLower(lang) + "] " + text
	return &s
}

func (b *FakeBackend) handleTranslate(w http.ResponseWriter, r *http.Request, email string) {
	var in struct {
		Text       string   `json:"text"`
		Texts      []string `json:"texts"`
		TargetLang string   `json:"target_lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.TargetLang == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing text(s) or target language"})
		return
	}
	if len(in.Texts) > 0 {
		out := make([]*string, len(in.Texts))
		for i, t := range in.Texts {
			out[i] = b.translated(t, in.TargetLang)
		}
		writeJSON(w, http.StatusOK, map[string]any{"translations": out})
		return
	}
	tr := b.translated(in.Text, in.TargetLang)
	if tr == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Translation failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translated": *tr})
}

func (b *FakeBackend) handleTranslateSingle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text       string `json:"text"`
		TargetLang string `json:"target_lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	tr := b.translated(in.Text, in.TargetLang)
	if tr == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Translation failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translated_text": *tr})
}
