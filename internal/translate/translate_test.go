package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todo/internal/service"
	"todo/internal/translate"
)

func decode(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("bad request body: %v", err)
	}
	return body
}

func TestClientBatchSingleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/translate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body := decode(t, r)
		if body["text"] != "hello" || body["target_lang"] != "es" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"translated":"hola"}`))
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantBatch)
	got, err := c.Translate(context.Background(), "hello", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hola" {
		t.Errorf("expected hola, got %q", got)
	}
}

func TestClientBatchWithNulls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decode(t, r)
		texts, _ := body["texts"].([]any)
		if len(texts) != 3 {
			t.Errorf("expected 3 texts, got %v", body["texts"])
		}
		w.Write([]byte(`{"translations":["uno",null,"tres"]}`))
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantBatch)
	got, err := c.TranslateBatch(context.Background(), []string{"one", "two", "three"}, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"uno", "", "tres"}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestClientBatchShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":["uno"]}`))
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantBatch)
	got, err := c.TranslateBatch(context.Background(), []string{"one", "two"}, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "uno" || got[1] != "" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestClientSingleVariant(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/api/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decode(t, r)
		if body["text"] == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"translated_text": "fr-" + body["text"].(string)})
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantSingle)
	got, err := c.TranslateBatch(context.Background(), []string{"a", "broken", "b"}, "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected one request per text, got %d", calls)
	}
	if got[0] != "fr-a" || got[1] != "" || got[2] != "fr-b" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantBatch)
	if _, err := c.Translate(context.Background(), "x", "es"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestClientMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantBatch)
	_, err := c.Translate(context.Background(), "x", "es")
	if !errors.Is(err, service.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := translate.NewClient(srv.URL, translate.VariantBatch, translate.WithTimeout(20*time.Millisecond))
	_, err := c.Translate(context.Background(), "x", "es")
	if !errors.Is(err, service.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := translate.ParseVariant(""); err != nil || v != translate.VariantBatch {
		t.Errorf("empty: got %q, %v", v, err)
	}
	if v, err := translate.ParseVariant("Single"); err != nil || v != translate.VariantSingle {
		t.Errorf("Single: got %q, %v", v, err)
	}
	if _, err := translate.ParseVariant("stream"); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestGoogleTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("sl") != "auto" || q.Get("tl") != "de" || q.Get("dt") != "t" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("q") != "good morning" {
			t.Errorf("unexpected text %q", q.Get("q"))
		}
		w.Write([]byte(`[[["guten Morgen","good morning",null,null,10]],null,"en"]`))
	}))
	defer srv.Close()

	g := translate.NewGoogle(0, translate.WithEndpoint(srv.URL))
	got, err := g.Translate(context.Background(), "good morning", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "guten Morgen" {
		t.Errorf("expected guten Morgen, got %q", got)
	}
}

func TestGoogleMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[null]`))
	}))
	defer srv.Close()

	g := translate.NewGoogle(0, translate.WithEndpoint(srv.URL))
	_, err := g.Translate(context.Background(), "x", "de")
	if !errors.Is(err, service.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestGoogleBatchAligned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]any{[]any{[]any{"T:" + r.URL.Query().Get("q")}}})
	}))
	defer srv.Close()

	g := translate.NewGoogle(1000, translate.WithEndpoint(srv.URL))
	got, err := g.TranslateBatch(context.Background(), []string{"a", "bad", "c"}, "it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != "T:a" || got[1] != "" || got[2] != "T:c" {
		t.Errorf("unexpected result %q", got)
	}
}
