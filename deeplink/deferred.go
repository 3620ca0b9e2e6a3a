package deeplink

import (
	"context"

	"go.uber.org/zap"
)

// CheckForDeferredDeepLink runs the deferred-attribution pipeline and blocks
// until a result is available. The pipeline is best-effort: nil means no
// attribution, and it never returns an error.
//
// Concurrent callers are coalesced onto a single resolution pass; everybody
// in the batch receives the same result, and the backend is probed at most
// once per pass. A consumed signal is cleared before resolution, so the same
// signal can never produce two results.
func (c *Client) CheckForDeferredDeepLink(ctx context.Context) *DeepLinkData {
	ch := make(chan *DeepLinkData, 1)

	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	start := !c.inflight
	if start {
		c.inflight = true
	}
	c.mu.Unlock()

	if start {
		go c.runDeferredCheck()
	}

	select {
	case data := <-ch:
		return data
	case <-ctx.Done():
		// The pass keeps running and delivers to the other waiters; this
		// caller just stops waiting.
		return nil
	}
}

// runDeferredCheck performs one resolution pass and delivers the result to
// every registered waiter. The pass is bounded by the request timeout so it
// always terminates.
func (c *Client) runDeferredCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c.deliver(c.resolveDeferred(ctx))
}

func (c *Client) resolveDeferred(ctx context.Context) *DeepLinkData {
	// A stored full payload wins: it may carry attribution the bare signals
	// cannot recover. Once a payload was present, the pass ends here whether
	// or not resolution succeeds.
	if payload, found := c.takeStoredPayload(ctx); found {
		return c.resolveSignal(ctx, payload.ShortID, payload.Timestamp)
	}

	shortID, timestamp, found := c.probeInstallSignals(ctx)
	if !found {
		return nil
	}
	return c.resolveSignal(ctx, shortID, timestamp)
}

// resolveSignal fetches deep-link data for a consumed signal and stamps the
// result with the time the signal was recorded.
func (c *Client) resolveSignal(ctx context.Context, shortID string, signalTimestamp int64) *DeepLinkData {
	data := c.resolveShortID(ctx, shortID)
	if data == nil {
		return nil
	}
	if signalTimestamp > 0 {
		data.Timestamp = signalTimestamp
	} else if data.Timestamp == 0 {
		data.Timestamp = c.now().UnixMilli()
	}
	return data
}

// takeStoredPayload reads and clears the persisted deferred payload. Expired
// or malformed payloads are cleared too, and reported as not found so the
// pipeline falls through to the cheaper probes.
func (c *Client) takeStoredPayload(ctx context.Context) (*DeferredLinkPayload, bool) {
	if c.store == nil {
		return nil, false
	}

	raw, ok, err := takeValue(ctx, c.store, KeyDeferredDeepLink)
	if err != nil {
		c.logger.Warn("reading stored deferred payload failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	payload, err := decodeDeferredPayload(raw)
	if err != nil {
		c.logger.Warn("discarding malformed deferred payload", zap.Error(err))
		return nil, false
	}
	if payload.ExpiredAt(c.now(), storedPayloadTTL) {
		c.logger.Debug("discarding expired deferred payload",
			zap.String("short_id", payload.ShortID),
			zap.Int64("timestamp", payload.Timestamp),
		)
		return nil, false
	}
	return payload, true
}

// probeInstallSignals checks the ephemeral install-attribution signals in
// decreasing trust order: clipboard, pending scheme-open id, universal-link
// id. Every probed signal is destroyed on read.
func (c *Client) probeInstallSignals(ctx context.Context) (string, int64, bool) {
	if payload := c.takeClipboardSignal(ctx); payload != nil {
		return payload.ShortID, payload.Timestamp, true
	}

	if c.store == nil {
		return "", 0, false
	}
	for _, key := range []string{KeyPendingShortID, KeyUniversalLinkShortID} {
		shortID, ok, err := takeValue(ctx, c.store, key)
		if err != nil {
			c.logger.Warn("reading attribution signal failed",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		if ok && shortID != "" {
			return shortID, 0, true
		}
	}
	return "", 0, false
}

func (c *Client) takeClipboardSignal(ctx context.Context) *DeferredLinkPayload {
	if c.clipboard == nil {
		return nil
	}

	payload, err := c.clipboard.ReadAndClear(ctx)
	if err != nil {
		c.logger.Warn("reading clipboard signal failed", zap.Error(err))
		return nil
	}
	if payload == nil || payload.ShortID == "" {
		return nil
	}
	if payload.ExpiredAt(c.now(), clipboardSignalTTL) {
		c.logger.Debug("discarding stale clipboard signal",
			zap.String("short_id", payload.ShortID),
		)
		return nil
	}
	return payload
}

// deliver hands the result to every waiter registered for this pass and
// resets the queue.
func (c *Client) deliver(data *DeepLinkData) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inflight = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- data
	}
}

// HandleLaunchURL captures a short id from the URL the app was launched with
// and parks it for a later deferred check. Failures are logged, never
// surfaced: capture must not disturb the launch path.
func (c *Client) HandleLaunchURL(ctx context.Context, rawURL string) {
	c.captureShortID(ctx, rawURL, KeyPendingShortID)
}

// HandleOpenURL captures a short id from a URL-scheme open.
func (c *Client) HandleOpenURL(ctx context.Context, rawURL string) {
	c.captureShortID(ctx, rawURL, KeyPendingShortID)
}

// HandleUniversalLink captures a short id from a universal-link continuation.
func (c *Client) HandleUniversalLink(ctx context.Context, rawURL string) {
	c.captureShortID(ctx, rawURL, KeyUniversalLinkShortID)
}

func (c *Client) captureShortID(ctx context.Context, rawURL, key string) {
	if c.store == nil {
		return
	}
	shortID, ok := ExtractShortID(rawURL)
	if !ok {
		return
	}
	if err := c.store.Put(ctx, key, shortID); err != nil {
		c.logger.Warn("storing attribution signal failed",
			zap.String("key", key),
			zap.String("short_id", shortID),
			zap.Error(err),
		)
	}
}
