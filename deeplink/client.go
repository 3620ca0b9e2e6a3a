package deeplink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// requestTimeout bounds every backend round trip.
	requestTimeout = 10 * time.Second
	// storedPayloadTTL is how long a persisted deferred payload stays valid.
	storedPayloadTTL = 24 * time.Hour
	// clipboardSignalTTL is how long a clipboard signal stays valid.
	clipboardSignalTTL = 5 * time.Minute

	defaultUserAgent = "deferlink-go/1.0"
)

// Options configures a Client. BaseURL and Store are required for the
// deferred pipeline; network-backed methods fail with ErrNotConfigured while
// BaseURL is empty.
type Options struct {
	BaseURL   string
	APIKey    string
	Store     AttributionStore
	Clipboard SignalSource

	// HTTPClient overrides the default client (10s timeout).
	HTTPClient *http.Client
	Logger     *zap.Logger
	UserAgent  string
}

// Client is the SDK entry point. It owns the attribution state machine and
// the authenticated HTTP surface. A single Client is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	store      AttributionStore
	clipboard  SignalSource
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	waiters  []chan *DeepLinkData
	inflight bool
}

// New builds a Client from options. The base URL is normalized so it never
// carries a trailing slash.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:     opts.APIKey,
		userAgent:  userAgent,
		httpClient: httpClient,
		store:      opts.Store,
		clipboard:  opts.Clipboard,
		logger:     logger,
		now:        time.Now,
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// newHTTPClient builds the default transport with bounded dial and header
// timeouts.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   requestTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   requestTimeout,
			ResponseHeaderTimeout: requestTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrInvalidRequest, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// do executes the request and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := errorFromStatus(resp.StatusCode); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
