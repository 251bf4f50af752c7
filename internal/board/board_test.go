package board_test

import (
	"context"
	"errors"
	"testing"

	"todo/internal/board"
	"todo/internal/service"
	"todo/internal/testutil"
)

// seed creates the two-task fixture: one open personal task and one done professional task.
func seed(t *testing.T) (*testutil.FakeService, *board.State, *board.Engine) {
	t.Helper()
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", service.Personal, false)
	svc.AddTask("Ship report", service.Professional, true)

	s := board.New(service.Personal)
	e := board.NewEngine(svc, board.WithTranslator(&testutil.FakeTranslator{}))
	if r := e.Run(context.Background(), s, board.Load{}); r.Err != nil {
		t.Fatalf("load: %v", r.Err)
	}
	return svc, s, e
}

func ids(items []board.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Task.ID)
	}
	return out
}

func TestLoadShowsCurrentCategory(t *testing.T) {
	_, s, _ := seed(t)

	vis := s.Visible()
	if len(vis) != 1 || vis[0].Task.Description != "Buy milk" {
		t.Fatalf("expected only personal task, got %+v", vis)
	}
	if len(s.Items) != 2 {
		t.Errorf("expected both tasks kept on the board, got %d", len(s.Items))
	}
}

func TestSwitchCategory(t *testing.T) {
	_, s, e := seed(t)

	e.Run(context.Background(), s, board.SwitchCategory{Category: service.Professional})

	vis := s.Visible()
	if len(vis) != 1 || vis[0].Task.ID != "2" || !vis[0].Task.Completed {
		t.Fatalf("expected completed professional task, got %+v", vis)
	}
}

func TestCreateEmptyDescription(t *testing.T) {
	svc, s, e := seed(t)

	r := e.Run(context.Background(), s, board.Create{Description: "   ", Category: service.Personal})

	if !errors.Is(r.Err, board.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", r.Err)
	}
	if s.Message != board.EmptyDescription {
		t.Errorf("expected message %q, got %q", board.EmptyDescription, s.Message)
	}
	if len(svc.Tasks()) != 2 {
		t.Error("no task should have been created")
	}
}

func TestCreateAppendsBackendTask(t *testing.T) {
	svc, s, e := seed(t)

	r := e.Run(context.Background(), s, board.Create{Description: "Call mom", Category: service.Personal})
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}

	vis := s.Visible()
	if len(vis) != 2 || vis[1].Task.Description != "Call mom" || vis[1].Task.Completed {
		t.Fatalf("unexpected visible items: %+v", vis)
	}
	if vis[1].Task.ID != svc.Tasks()[2].ID {
		t.Errorf("expected backend-assigned ID, got %q", vis[1].Task.ID)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	svc, s, e := seed(t)
	ctx := context.Background()

	a, ok := s.ToggleOf("1")
	if !ok {
		t.Fatal("task 1 not on board")
	}
	e.Run(ctx, s, a)
	if it, _ := s.Find("1"); !it.Task.Completed {
		t.Fatal("expected task completed after first toggle")
	}

	a, _ = s.ToggleOf("1")
	e.Run(ctx, s, a)
	if it, _ := s.Find("1"); it.Task.Completed {
		t.Fatal("expected task open after second toggle")
	}
	if svc.Tasks()[0].Completed {
		t.Error("backend should agree with the board")
	}
}

func TestEditKeepsTranslationOnlyWhenUnchanged(t *testing.T) {
	_, s, e := seed(t)
	ctx := context.Background()

	e.Run(ctx, s, board.Translate{ID: "1", Text: "Buy milk", Lang: "es"})
	if it, _ := s.Find("1"); it.Translation != "es:Buy milk" {
		t.Fatalf("unexpected translation %q", it.Translation)
	}

	e.Run(ctx, s, board.Edit{ID: "1", Description: "Buy oat milk"})
	it, _ := s.Find("1")
	if it.Task.Description != "Buy oat milk" {
		t.Errorf("expected edited description, got %q", it.Task.Description)
	}
	if it.Translation != "" {
		t.Errorf("stale translation kept: %q", it.Translation)
	}
}

func TestDeleteFailureKeepsItem(t *testing.T) {
	svc, s, e := seed(t)
	svc.DeleteTaskErr["1"] = service.ErrUnauthorized

	r := e.Run(context.Background(), s, board.Delete{ID: "1"})

	if !errors.Is(r.Err, service.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", r.Err)
	}
	if _, ok := s.Find("1"); !ok {
		t.Error("item removed although the backend refused")
	}
	if s.Message != "delete failed: unauthorized" {
		t.Errorf("unexpected message %q", s.Message)
	}
}

func TestClearOnlyCurrentCategory(t *testing.T) {
	svc, s, e := seed(t)
	svc.AddTask("Water plants", service.Personal, true)
	ctx := context.Background()
	e.Run(ctx, s, board.Load{})

	r := e.Run(ctx, s, s.ClearVisible())
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}

	if !s.Empty() {
		t.Errorf("expected personal view empty, got %v", ids(s.Visible()))
	}
	left := svc.Tasks()
	if len(left) != 1 || left[0].Category != service.Professional {
		t.Errorf("professional task must survive, got %+v", left)
	}
}

func TestClearPartialFailure(t *testing.T) {
	svc, s, e := seed(t)
	third := svc.AddTask("Water plants", service.Personal, false)
	svc.DeleteTaskErr["1"] = service.ErrTimeout
	ctx := context.Background()
	e.Run(ctx, s, board.Load{})

	r := e.Run(ctx, s, s.ClearVisible())

	if !errors.Is(r.Err, service.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", r.Err)
	}
	if got := ids(s.Visible()); len(got) != 1 || got[0] != "1" {
		t.Errorf("expected only the failed task left, got %v", got)
	}
	if _, ok := s.Find(third); ok {
		t.Error("deleted task still on board")
	}
}

func TestClearPaced(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", service.Personal, false)
	svc.AddTask("b", service.Personal, false)
	e := board.NewEngine(svc, board.WithDeleteRate(1000))

	r := e.Do(context.Background(), board.Clear{IDs: []string{"1", "2"}})
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if len(svc.Deleted) != 2 || svc.Deleted[0] != "1" || svc.Deleted[1] != "2" {
		t.Errorf("expected ordered deletes, got %v", svc.Deleted)
	}
}

func TestClearCancelled(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", service.Personal, false)
	e := board.NewEngine(svc, board.WithDeleteRate(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.Do(ctx, board.Clear{IDs: []string{"1"}})
	if r.Err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(svc.Deleted) != 0 {
		t.Errorf("nothing should be deleted, got %v", svc.Deleted)
	}
}

func TestTranslateVisible(t *testing.T) {
	svc, s, e := seed(t)
	svc.AddTask("Walk dog", service.Personal, false)
	ctx := context.Background()
	e.Run(ctx, s, board.Load{})

	a := s.TranslateVisible("fr")
	s.MarkTranslating(a.IDs)
	if it, _ := s.Find("1"); it.Translation != board.Translating {
		t.Fatalf("expected in-flight marker, got %q", it.Translation)
	}

	e.Run(ctx, s, a)

	for _, it := range s.Visible() {
		if it.Translation != "fr:"+it.Task.Description {
			t.Errorf("task %s: unexpected translation %q", it.Task.ID, it.Translation)
		}
	}
	if it, _ := s.Find("2"); it.Translation != "" {
		t.Errorf("hidden task must not be translated, got %q", it.Translation)
	}
}

func TestTranslateBatchNullEntry(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("ok", service.Personal, false)
	svc.AddTask("bad", service.Personal, false)
	tr := &testutil.FakeTranslator{Fail: map[string]bool{"bad": true}}
	s := board.New(service.Personal)
	e := board.NewEngine(svc, board.WithTranslator(tr))
	ctx := context.Background()
	e.Run(ctx, s, board.Load{})

	r := e.Run(ctx, s, s.TranslateVisible("es"))
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}

	if it, _ := s.Find("1"); it.Translation != "es:ok" {
		t.Errorf("unexpected translation %q", it.Translation)
	}
	if it, _ := s.Find("2"); it.Translation != board.TranslationFailed {
		t.Errorf("expected %q, got %q", board.TranslationFailed, it.Translation)
	}
}

func TestTranslateFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("ok", service.Personal, false)
	tr := &testutil.FakeTranslator{Err: service.ErrTimeout}
	s := board.New(service.Personal)
	e := board.NewEngine(svc, board.WithTranslator(tr))
	ctx := context.Background()
	e.Run(ctx, s, board.Load{})

	e.Run(ctx, s, board.Translate{ID: "1", Text: "ok", Lang: "es"})

	if it, _ := s.Find("1"); it.Translation != board.TranslationFailed {
		t.Errorf("expected %q, got %q", board.TranslationFailed, it.Translation)
	}
	if s.Message != board.TranslationFailed {
		t.Errorf("unexpected message %q", s.Message)
	}
}

func TestTranslateDisabled(t *testing.T) {
	svc := testutil.NewFakeService()
	e := board.NewEngine(svc)
	if e.CanTranslate() {
		t.Fatal("engine without translator reports translation support")
	}

	r := e.Do(context.Background(), board.Translate{ID: "1", Text: "x", Lang: "es"})
	if !errors.Is(r.Err, board.ErrTranslationDisabled) {
		t.Fatalf("expected ErrTranslationDisabled, got %v", r.Err)
	}
	if r.Message() != "translate failed: translation disabled" {
		t.Errorf("unexpected message %q", r.Message())
	}
}

func TestReloadKeepsTranslations(t *testing.T) {
	svc, s, e := seed(t)
	ctx := context.Background()
	e.Run(ctx, s, board.Translate{ID: "1", Text: "Buy milk", Lang: "es"})
	svc.AddTask("New one", service.Personal, false)

	e.Run(ctx, s, board.Load{})

	if it, _ := s.Find("1"); it.Translation != "es:Buy milk" {
		t.Errorf("translation lost on reload: %q", it.Translation)
	}
	if len(s.Visible()) != 2 {
		t.Errorf("expected new task after reload, got %v", ids(s.Visible()))
	}
}

func TestSessionResult(t *testing.T) {
	_, s, _ := seed(t)

	s.Apply(board.Result{Kind: board.KindSession, Session: &service.Session{UID: "u1", Email: "a@b.c"}})
	if s.User == nil || s.User.Email != "a@b.c" {
		t.Fatalf("expected user set, got %+v", s.User)
	}
	if len(s.Items) != 2 {
		t.Error("items must survive sign-in")
	}

	s.Apply(board.Result{Kind: board.KindSession})
	if s.User != nil || len(s.Items) != 0 {
		t.Errorf("sign-out must clear the board, got user=%v items=%d", s.User, len(s.Items))
	}
}

func TestLoadErrorKeepsBoard(t *testing.T) {
	svc, s, e := seed(t)
	svc.ListTasksErr = service.ErrNotLoggedIn

	e.Run(context.Background(), s, board.Load{})

	if len(s.Items) != 2 {
		t.Errorf("failed load must not clear items, got %d", len(s.Items))
	}
	if s.Message != "load failed: not logged in" {
		t.Errorf("unexpected message %q", s.Message)
	}
}
