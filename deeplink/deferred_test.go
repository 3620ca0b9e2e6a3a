package deeplink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Put(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *memStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

type fakeSignalSource struct {
	mu      sync.Mutex
	payload *DeferredLinkPayload
	reads   int
}

func (f *fakeSignalSource) ReadAndClear(ctx context.Context) (*DeferredLinkPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	payload := f.payload
	f.payload = nil
	return payload, nil
}

func (f *fakeSignalSource) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload == nil
}

// newResolverServer serves DeepLinkData for every /api/deferred-link/{id}
// request and counts hits.
func newResolverServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		shortID := r.URL.Path[len("/api/deferred-link/"):]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DeepLinkData{
			LinkID:      "link-" + shortID,
			ShortID:     shortID,
			OriginalURL: "https://example.com/p",
			TargetURL:   "https://example.com/p",
			AppURL:      "myapp://p",
			Platform:    "ios",
		})
	}))
}

func newTestClient(t *testing.T, baseURL string, store AttributionStore, clipboard SignalSource) *Client {
	t.Helper()
	return New(Options{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Store:     store,
		Clipboard: clipboard,
	})
}

func storePayload(t *testing.T, store AttributionStore, shortID string, timestamp int64) {
	t.Helper()
	raw, err := json.Marshal(DeferredLinkPayload{ShortID: shortID, Timestamp: timestamp})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), KeyDeferredDeepLink, string(raw)); err != nil {
		t.Fatal(err)
	}
}

func TestCheckForDeferredDeepLink_StoredPayload(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	store := newMemStore()
	signalTime := time.Now().Add(-23 * time.Hour).UnixMilli()
	storePayload(t, store, "abc123", signalTime)

	client := newTestClient(t, srv.URL, store, nil)

	data := client.CheckForDeferredDeepLink(context.Background())
	if data == nil {
		t.Fatal("expected a resolved deep link")
	}
	if data.ShortID != "abc123" {
		t.Fatalf("expected shortId abc123, got %q", data.ShortID)
	}
	if data.Timestamp != signalTime {
		t.Fatalf("expected signal timestamp %d, got %d", signalTime, data.Timestamp)
	}
	if store.contains(KeyDeferredDeepLink) {
		t.Fatal("expected stored payload to be cleared")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 resolver hit, got %d", hits.Load())
	}
}

func TestCheckForDeferredDeepLink_ExpiredStoredPayload(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	store := newMemStore()
	storePayload(t, store, "abc123", time.Now().Add(-25*time.Hour).UnixMilli())

	client := newTestClient(t, srv.URL, store, nil)

	if data := client.CheckForDeferredDeepLink(context.Background()); data != nil {
		t.Fatalf("expected no attribution, got %+v", data)
	}
	if store.contains(KeyDeferredDeepLink) {
		t.Fatal("expected expired payload to be cleared")
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no resolver hits, got %d", hits.Load())
	}
}

func TestCheckForDeferredDeepLink_StoredPayloadWinsOverClipboard(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	store := newMemStore()
	storePayload(t, store, "stored", time.Now().Add(-time.Hour).UnixMilli())
	clipboard := &fakeSignalSource{payload: &DeferredLinkPayload{
		ShortID:   "clipped",
		Timestamp: time.Now().UnixMilli(),
	}}

	client := newTestClient(t, srv.URL, store, clipboard)

	data := client.CheckForDeferredDeepLink(context.Background())
	if data == nil || data.ShortID != "stored" {
		t.Fatalf("expected stored payload to win, got %+v", data)
	}
	if clipboard.reads != 0 {
		t.Fatalf("expected clipboard untouched, got %d reads", clipboard.reads)
	}
}

func TestCheckForDeferredDeepLink_SingleUse(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	store := newMemStore()
	storePayload(t, store, "abc123", time.Now().UnixMilli())

	client := newTestClient(t, srv.URL, store, nil)

	if data := client.CheckForDeferredDeepLink(context.Background()); data == nil {
		t.Fatal("expected first check to resolve")
	}
	if data := client.CheckForDeferredDeepLink(context.Background()); data != nil {
		t.Fatalf("expected second check to be absent, got %+v", data)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly 1 resolver hit, got %d", hits.Load())
	}
}

func TestCheckForDeferredDeepLink_ClipboardSignal(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	signalTime := time.Now().Add(-time.Minute).UnixMilli()
	clipboard := &fakeSignalSource{payload: &DeferredLinkPayload{
		ShortID:   "clipped",
		Timestamp: signalTime,
	}}
	client := newTestClient(t, srv.URL, newMemStore(), clipboard)

	data := client.CheckForDeferredDeepLink(context.Background())
	if data == nil || data.ShortID != "clipped" {
		t.Fatalf("expected clipboard signal to resolve, got %+v", data)
	}
	if data.Timestamp != signalTime {
		t.Fatalf("expected signal timestamp %d, got %d", signalTime, data.Timestamp)
	}
	if !clipboard.empty() {
		t.Fatal("expected clipboard signal to be consumed")
	}
}

func TestCheckForDeferredDeepLink_StaleClipboardSignal(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	clipboard := &fakeSignalSource{payload: &DeferredLinkPayload{
		ShortID:   "clipped",
		Timestamp: time.Now().Add(-6 * time.Minute).UnixMilli(),
	}}
	client := newTestClient(t, srv.URL, newMemStore(), clipboard)

	if data := client.CheckForDeferredDeepLink(context.Background()); data != nil {
		t.Fatalf("expected stale clipboard signal to be ignored, got %+v", data)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no resolver hits, got %d", hits.Load())
	}
}

func TestCheckForDeferredDeepLink_PendingSignalOrder(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	store := newMemStore()
	store.Put(context.Background(), KeyPendingShortID, "from-scheme")
	store.Put(context.Background(), KeyUniversalLinkShortID, "from-universal")

	client := newTestClient(t, srv.URL, store, nil)

	data := client.CheckForDeferredDeepLink(context.Background())
	if data == nil || data.ShortID != "from-scheme" {
		t.Fatalf("expected scheme-open signal to win, got %+v", data)
	}
	if store.contains(KeyPendingShortID) {
		t.Fatal("expected scheme-open signal to be consumed")
	}
	if !store.contains(KeyUniversalLinkShortID) {
		t.Fatal("expected universal-link signal to stay for a later check")
	}

	data = client.CheckForDeferredDeepLink(context.Background())
	if data == nil || data.ShortID != "from-universal" {
		t.Fatalf("expected universal-link signal on second check, got %+v", data)
	}
}

func TestCheckForDeferredDeepLink_MalformedStoredPayload(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	store := newMemStore()
	store.Put(context.Background(), KeyDeferredDeepLink, "{not json")
	store.Put(context.Background(), KeyPendingShortID, "fallback")

	client := newTestClient(t, srv.URL, store, nil)

	data := client.CheckForDeferredDeepLink(context.Background())
	if data == nil || data.ShortID != "fallback" {
		t.Fatalf("expected fall-through to pending signal, got %+v", data)
	}
	if store.contains(KeyDeferredDeepLink) {
		t.Fatal("expected malformed payload to be cleared")
	}
}

func TestCheckForDeferredDeepLink_NoSignals(t *testing.T) {
	var hits atomic.Int64
	srv := newResolverServer(t, &hits)
	defer srv.Close()

	client := newTestClient(t, srv.URL, newMemStore(), &fakeSignalSource{})

	if data := client.CheckForDeferredDeepLink(context.Background()); data != nil {
		t.Fatalf("expected no attribution, got %+v", data)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no resolver hits, got %d", hits.Load())
	}
}

func TestCheckForDeferredDeepLink_ConcurrentCallersCoalesced(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"linkId":"l1","shortId":"abc123","originalUrl":"u","targetUrl":"u","appUrl":"u","platform":"ios"}`)
	}))
	defer srv.Close()

	store := newMemStore()
	storePayload(t, store, "abc123", time.Now().UnixMilli())
	client := newTestClient(t, srv.URL, store, nil)

	results := make(chan *DeepLinkData, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- client.CheckForDeferredDeepLink(context.Background())
		}()
		// Give each caller time to register before the pass completes.
		time.Sleep(50 * time.Millisecond)
	}
	close(release)

	for i := 0; i < 2; i++ {
		data := <-results
		if data == nil || data.ShortID != "abc123" {
			t.Fatalf("expected both callers to receive the result, got %+v", data)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single resolver hit for the batch, got %d", hits.Load())
	}
}

func TestCaptureHooks(t *testing.T) {
	store := newMemStore()
	client := newTestClient(t, "https://api.example.com", store, nil)
	ctx := context.Background()

	client.HandleOpenURL(ctx, "myapp://open?shortId=scheme1")
	if got, _, _ := store.Get(ctx, KeyPendingShortID); got != "scheme1" {
		t.Fatalf("expected pending short id scheme1, got %q", got)
	}

	client.HandleLaunchURL(ctx, "https://links.example.com/r/launch1")
	if got, _, _ := store.Get(ctx, KeyPendingShortID); got != "launch1" {
		t.Fatalf("expected pending short id launch1, got %q", got)
	}

	client.HandleUniversalLink(ctx, "https://links.example.com/r/ul1")
	if got, _, _ := store.Get(ctx, KeyUniversalLinkShortID); got != "ul1" {
		t.Fatalf("expected universal link short id ul1, got %q", got)
	}

	// URLs with no short id must not write anything.
	store2 := newMemStore()
	client2 := newTestClient(t, "https://api.example.com", store2, nil)
	client2.HandleOpenURL(ctx, "https://example.com/about")
	if store2.contains(KeyPendingShortID) {
		t.Fatal("expected no capture for a url without short id")
	}
}
