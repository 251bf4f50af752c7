package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	firestore "google.golang.org/api/firestore/v1"

	"todo/internal/service"
)

// fakeGoogle serves the Identity Toolkit and Firestore calls the client makes.
type fakeGoogle struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]string // email -> password
	docs      map[string]*firestore.Document
	clock     time.Time
	queries   int
	refreshes int
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{
		accounts: make(map[string]string),
		docs:     make(map[string]*firestore.Document),
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func apiError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeGoogle) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := r.URL.Path
	switch {
	case strings.HasSuffix(p, "/verifyPassword"):
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		pw, ok := f.accounts[req.Email]
		if !ok {
			apiError(w, 400, "EMAIL_NOT_FOUND")
			return
		}
		if pw != req.Password {
			apiError(w, 400, "INVALID_PASSWORD")
			return
		}
		f.session(w, req.Email)
	case strings.HasSuffix(p, "/signupNewUser"):
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if _, ok := f.accounts[req.Email]; ok {
			apiError(w, 400, "EMAIL_EXISTS")
			return
		}
		f.accounts[req.Email] = req.Password
		f.session(w, req.Email)
	case strings.HasSuffix(p, "/token"):
		f.refreshes++
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-token" {
			apiError(w, 400, "INVALID_REFRESH_TOKEN")
			return
		}
		reply(w, map[string]any{
			"access_token":  "fresh-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-token",
		})
	case strings.HasSuffix(p, ":runQuery"):
		f.runQuery(w, r)
	case strings.HasSuffix(p, ":commit"):
		f.commit(w, r)
	case r.Method == http.MethodPatch:
		f.patch(w, r)
	case r.Method == http.MethodDelete:
		name := strings.TrimPrefix(p, "/v1/")
		if _, ok := f.docs[name]; !ok {
			apiError(w, 404, "No document to update")
			return
		}
		delete(f.docs, name)
		reply(w, map[string]any{})
	default:
		apiError(w, 400, "unexpected request "+r.Method+" "+p)
	}
}

func (f *fakeGoogle) session(w http.ResponseWriter, email string) {
	reply(w, map[string]any{
		"email":        email,
		"localId":      "uid-" + strings.Split(email, "@")[0],
		"idToken":      "id-token",
		"refreshToken": "refresh-token",
		"expiresIn":    "3600",
	})
}

func (f *fakeGoogle) runQuery(w http.ResponseWriter, r *http.Request) {
	f.queries++
	var req firestore.RunQueryRequest
	json.NewDecoder(r.Body).Decode(&req)
	uid := req.StructuredQuery.Where.FieldFilter.Value.StringValue

	var docs []*firestore.Document
	for _, d := range f.docs {
		if d.Fields[fieldUID].StringValue == uid {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Fields[fieldCreated].TimestampValue > docs[j].Fields[fieldCreated].TimestampValue
	})

	out := []map[string]any{}
	for _, d := range docs {
		out = append(out, map[string]any{"document": d, "readTime": f.clock.Format(time.RFC3339Nano)})
	}
	if len(out) == 0 {
		out = append(out, map[string]any{"readTime": f.clock.Format(time.RFC3339Nano)})
	}
	reply(w, out)
}

func (f *fakeGoogle) commit(w http.ResponseWriter, r *http.Request) {
	var req firestore.CommitRequest
	json.NewDecoder(r.Body).Decode(&req)
	wr := req.Writes[0]
	if _, ok := f.docs[wr.Update.Name]; ok {
		apiError(w, 409, "Document already exists")
		return
	}
	f.clock = f.clock.Add(time.Minute)
	ts := f.clock.Format(time.RFC3339Nano)
	doc := wr.Update
	doc.Fields[fieldCreated] = firestore.Value{TimestampValue: ts}
	f.docs[doc.Name] = doc
	reply(w, map[string]any{
		"commitTime":   ts,
		"writeResults": []any{map[string]any{"updateTime": ts, "transformResults": []any{map[string]any{"timestampValue": ts}}}},
	})
}

func (f *fakeGoogle) patch(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/")
	doc, ok := f.docs[name]
	if !ok {
		apiError(w, 404, "No document to update")
		return
	}
	var in firestore.Document
	json.NewDecoder(r.Body).Decode(&in)
	for _, field := range r.URL.Query()["updateMask.fieldPaths"] {
		doc.Fields[field] = in.Fields[field]
	}
	reply(w, doc)
}

// seed stores a document directly.
func (f *fakeGoogle) seed(id, uid, text string, completed bool, category string, created time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields := map[string]firestore.Value{
		fieldText:      {StringValue: text},
		fieldCompleted: {BooleanValue: completed},
		fieldUID:       {StringValue: uid},
		fieldCreated:   {TimestampValue: created.Format(time.RFC3339Nano)},
	}
	if category != "" {
		fields[fieldCategory] = firestore.Value{StringValue: category}
	}
	name := "projects/demo/databases/(default)/documents/todos/" + id
	f.docs[name] = &firestore.Document{Name: name, Fields: fields}
}

func newTestClient(t *testing.T, f *fakeGoogle, tokenPath string) *Client {
	t.Helper()
	c, err := New(context.Background(), Options{
		APIKey:            "key",
		ProjectID:         "demo",
		TokenPath:         tokenPath,
		AuthEndpoint:      f.URL + "/identitytoolkit/v3/relyingparty/",
		FirestoreEndpoint: f.URL + "/",
		HTTPClient:        f.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestNewRequiresProject(t *testing.T) {
	if _, err := New(context.Background(), Options{APIKey: "key"}); err == nil {
		t.Fatal("expected error without project id")
	}
}

func TestLoginRegistersUnknownEmail(t *testing.T) {
	f := newFakeGoogle(t)
	c := newTestClient(t, f, "")

	sess, err := c.Login(context.Background(), "ada@example.com", "engine")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.UID != "uid-ada" || sess.Email != "ada@example.com" {
		t.Errorf("unexpected session %+v", sess)
	}
	if f.accounts["ada@example.com"] != "engine" {
		t.Error("account was not registered")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFakeGoogle(t)
	f.accounts["ada@example.com"] = "engine"
	c := newTestClient(t, f, "")

	_, err := c.Login(context.Background(), "ada@example.com", "nope")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := c.Current(context.Background()); !errors.Is(err, service.ErrNotLoggedIn) {
		t.Errorf("expected no session, got %v", err)
	}
}

func TestSignUpExisting(t *testing.T) {
	f := newFakeGoogle(t)
	f.accounts["ada@example.com"] = "engine"
	c := newTestClient(t, f, "")

	_, err := c.SignUp(context.Background(), service.SignUp{Email: "ada@example.com", Password: "x", Confirm: "x"})
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTasksRequireLogin(t *testing.T) {
	f := newFakeGoogle(t)
	c := newTestClient(t, f, "")

	if _, err := c.ListTasks(context.Background()); !errors.Is(err, service.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestListScopedAndOrdered(t *testing.T) {
	f := newFakeGoogle(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.seed("a", "uid-ada", "older", false, "", base)
	f.seed("b", "uid-ada", "newer", true, "professional", base.Add(time.Hour))
	f.seed("c", "uid-bob", "not mine", false, "personal", base)
	c := newTestClient(t, f, "")
	ctx := context.Background()
	if _, err := c.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "b" || !tasks[0].Completed || tasks[0].Category != service.Professional {
		t.Errorf("unexpected first task %+v", tasks[0])
	}
	if tasks[1].ID != "a" || tasks[1].Category != service.Personal {
		t.Errorf("missing category must read as personal, got %+v", tasks[1])
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	f := newFakeGoogle(t)
	c := newTestClient(t, f, "")
	ctx := context.Background()
	if _, err := c.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	task, err := c.CreateTask(ctx, "Buy milk", service.Personal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" || task.Created.IsZero() || task.Completed {
		t.Fatalf("unexpected created task %+v", task)
	}
	stored := f.docs["projects/demo/databases/(default)/documents/todos/"+task.ID]
	if stored == nil || stored.Fields[fieldUID].StringValue != "uid-ada" {
		t.Fatalf("document not stored with uid: %+v", stored)
	}

	done := true
	updated, err := c.UpdateTask(ctx, task.ID, service.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed || updated.Description != "Buy milk" {
		t.Errorf("unexpected updated task %+v", updated)
	}

	if err := c.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeleteTask(ctx, task.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestTokenPersisted(t *testing.T) {
	f := newFakeGoogle(t)
	tokenPath := filepath.Join(t.TempDir(), "firebase_token.json")
	ctx := context.Background()

	first := newTestClient(t, f, tokenPath)
	if _, err := first.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	info, err := os.Stat(tokenPath)
	if err != nil {
		t.Fatalf("token not saved: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	second := newTestClient(t, f, tokenPath)
	sess, err := second.Current(ctx)
	if err != nil || sess.UID != "uid-ada" {
		t.Fatalf("expected restored session, got %+v, %v", sess, err)
	}

	if err := second.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Errorf("token file still present: %v", err)
	}
}

func TestTokenSavedInFreshConfigDir(t *testing.T) {
	f := newFakeGoogle(t)
	tokenPath := filepath.Join(t.TempDir(), "todo", "firebase_token.json")
	c := newTestClient(t, f, tokenPath)

	if _, err := c.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login on a fresh config dir failed: %v", err)
	}
	if _, err := os.Stat(tokenPath); err != nil {
		t.Errorf("token not saved: %v", err)
	}
}

func TestTokenRefreshAfterCallContextEnds(t *testing.T) {
	f := newFakeGoogle(t)
	ctx, cancel := context.WithCancel(context.Background())
	c, err := New(ctx, Options{
		APIKey:            "key",
		ProjectID:         "demo",
		AuthEndpoint:      f.URL + "/identitytoolkit/v3/relyingparty/",
		FirestoreEndpoint: f.URL + "/",
		TokenURL:          f.URL + "/v1/token",
		HTTPClient:        f.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if _, err := c.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	cancel()

	src := c.tokenSource(&tokenFile{
		UID:          "uid-ada",
		Email:        "ada@example.com",
		IDToken:      "stale-token",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().Add(-time.Minute),
	})
	tok, err := src.Token()
	if err != nil {
		t.Fatalf("refresh after the call context ended: %v", err)
	}
	if tok.AccessToken != "fresh-token" {
		t.Errorf("AccessToken = %q, want fresh-token", tok.AccessToken)
	}
	f.mu.Lock()
	refreshes := f.refreshes
	f.mu.Unlock()
	if refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes)
	}
	if c.token == nil || c.token.IDToken != "fresh-token" {
		t.Errorf("refreshed token not kept: %+v", c.token)
	}
}

func TestWatchEmitsOnChange(t *testing.T) {
	f := newFakeGoogle(t)
	c := newTestClient(t, f, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := c.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ch := c.Watch(ctx, 10*time.Millisecond)

	first := <-ch
	if first.Err != nil || len(first.Tasks) != 0 {
		t.Fatalf("unexpected first snapshot %+v", first)
	}

	f.seed("x", "uid-ada", "appeared", false, "personal", time.Now())
	select {
	case snap := <-ch:
		if snap.Err != nil || len(snap.Tasks) != 1 || snap.Tasks[0].ID != "x" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after change")
	}

	cancel()
	for range ch {
	}
}

func TestTaskFromDocumentName(t *testing.T) {
	doc := &firestore.Document{
		Name:   "projects/p/databases/(default)/documents/todos/abc",
		Fields: map[string]firestore.Value{fieldText: {StringValue: "x"}},
	}
	if got := taskFromDocument(doc); got.ID != path.Base(doc.Name) || got.Description != "x" {
		t.Errorf("unexpected task %+v", got)
	}
}
