package deeplink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHandleDeepLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/deferred-link/abc123" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected accept header %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != defaultUserAgent {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"linkId":"l1","shortId":"abc123","originalUrl":"u","targetUrl":"u","appUrl":"u","platform":"android"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil, nil)

	data, err := client.HandleDeepLink(context.Background(), "https://links.example.com/r/abc123")
	if err != nil {
		t.Fatalf("HandleDeepLink error: %v", err)
	}
	if data.LinkID != "l1" || data.Platform != "android" {
		t.Fatalf("unexpected data %+v", data)
	}
	if data.Timestamp == 0 {
		t.Fatal("expected timestamp to be stamped at capture time")
	}
}

func TestHandleDeepLink_InvalidURL(t *testing.T) {
	client := newTestClient(t, "https://api.example.com", nil, nil)

	_, err := client.HandleDeepLink(context.Background(), "https://example.com/about")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestHandleDeepLink_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", 401, `{}`, ErrUnauthorized},
		{"not found", 404, `{}`, ErrNoData},
		{"rate limited", 429, `{}`, ErrRateLimited},
		{"server error", 500, `{}`, ErrServer},
		{"unparsable body", 200, `{broken`, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, nil, nil)
			_, err := client.HandleDeepLink(context.Background(), "myapp://open?shortId=x")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHandleDeepLink_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // reject every connection

	client := newTestClient(t, srv.URL, nil, nil)
	_, err := client.HandleDeepLink(context.Background(), "myapp://open?shortId=x")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestDeferredCheckSwallowsResolverFailure(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newMemStore()
	store.Put(context.Background(), KeyPendingShortID, "abc123")
	client := newTestClient(t, srv.URL, store, nil)

	if data := client.CheckForDeferredDeepLink(context.Background()); data != nil {
		t.Fatalf("expected failed resolution to collapse to absent, got %+v", data)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 resolver hit, got %d", hits.Load())
	}
	// The signal was consumed even though resolution failed: single use.
	if store.contains(KeyPendingShortID) {
		t.Fatal("expected signal to be consumed")
	}
}

func TestBaseURLNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/deferred-link/x" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"linkId":"l","shortId":"x","originalUrl":"u","targetUrl":"u","appUrl":"u","platform":"ios"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/", nil, nil)
	if _, err := client.HandleDeepLink(context.Background(), "myapp://open?shortId=x"); err != nil {
		t.Fatalf("HandleDeepLink error: %v", err)
	}
}
