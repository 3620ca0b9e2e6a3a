package deeplink

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// fetchDeepLink issues the authenticated resolution request for a short id
// and surfaces typed failures.
func (c *Client) fetchDeepLink(ctx context.Context, shortID string) (*DeepLinkData, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/deferred-link/"+url.PathEscape(shortID), nil)
	if err != nil {
		return nil, err
	}

	var data DeepLinkData
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// resolveShortID is the best-effort variant used by the deferred pipeline:
// any failure is logged and collapses to nil.
func (c *Client) resolveShortID(ctx context.Context, shortID string) *DeepLinkData {
	data, err := c.fetchDeepLink(ctx, shortID)
	if err != nil {
		c.logger.Warn("deferred resolution failed",
			zap.String("short_id", shortID),
			zap.Error(err),
		)
		return nil
	}
	return data
}

// HandleDeepLink resolves a link opened while the app is already running.
// It parses the short id synchronously and resolves it immediately, without
// touching the attribution store.
func (c *Client) HandleDeepLink(ctx context.Context, rawURL string) (*DeepLinkData, error) {
	shortID, ok := ExtractShortID(rawURL)
	if !ok {
		return nil, ErrInvalidURL
	}

	data, err := c.fetchDeepLink(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if data.Timestamp == 0 {
		data.Timestamp = c.now().UnixMilli()
	}
	return data, nil
}
