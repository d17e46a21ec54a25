package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key], _ = value.(string)
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func postRequest(url string, body io.Reader) *http.Request {
	return httptest.NewRequest(http.MethodPost, url, body)
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"wholesale checkout", http.MethodPost, "/api/v1/wholesale/checkout", criticalIdempotencyTTL, true},
		{"customer action", http.MethodPost, "/api/v1/me/orders/456/actions", defaultIdempotencyTTL, true},
		{"admin label", http.MethodPost, "/api/v1/admin/orders/abc/labels", defaultIdempotencyTTL, true},
		{"admin status", http.MethodPost, "/api/v1/admin/orders/abc/status", defaultIdempotencyTTL, true},
		{"admin read", http.MethodGet, "/api/v1/admin/orders/abc", 0, false},
		{"public intake", http.MethodPost, "/api/v1/orders", 0, false},
		{"webhook", http.MethodPost, "/api/v1/webhooks/stripe", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"foo":"bar"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"foo":"bar"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"foo":"diff"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		req := postRequest("/api/v1/admin/orders/abc/labels", strings.NewReader(`{"kind":"outbound"}`))
		req.Header.Set("Idempotency-Key", "label-1")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Fatalf("expected failed request to be retried, handler ran %d times", calls)
	}
}

func TestIdempotencyScopeIncludesUser(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for _, user := range []string{"user-a", "user-b"} {
		req := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "same")
		req = req.WithContext(context.WithValue(req.Context(), ctxUserID, user))
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Fatalf("expected separate scopes per user, handler ran %d times", calls)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// A duplicate arrives while the first request is still running.
			dup := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"qty":1}`))
			dup.Header.Set("Idempotency-Key", "dup")
			inner = httptest.NewRecorder()
			mw(handler).ServeHTTP(inner, dup)
		}
		w.WriteHeader(http.StatusCreated)
	})

	req := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{"qty":1}`))
	req.Header.Set("Idempotency-Key", "dup")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected first request to complete, got %d", rec.Code)
	}
	if inner.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409, got %d", inner.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls)
	}
}

func TestIdempotencyReplayIsMarked(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i, wantReplay := range []string{"", "true"} {
		req := postRequest("/api/v1/me/orders/abc/actions", strings.NewReader(`{"action":"cancel"}`))
		req.Header.Set("Idempotency-Key", "cancel-1")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		if got := rec.Header().Get(replayedHeader); got != wantReplay {
			t.Fatalf("request %d: expected %s=%q, got %q", i, replayedHeader, wantReplay, got)
		}
	}
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	req := postRequest("/api/v1/wholesale/checkout", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", strings.Repeat("k", maxIdempotencyKeyLen+1))
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
