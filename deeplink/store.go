package deeplink

import (
	"context"
	"encoding/json"
	"fmt"
)

// Storage keys used for short-lived attribution signals. External writers
// (the web/referral flow) use the same names.
const (
	KeyDeferredDeepLink     = "deferred_deep_link"
	KeyPendingShortID       = "pending_deferred_shortId"
	KeyUniversalLinkShortID = "universal_link_shortId"
)

// AttributionStore is the key-value persistence contract the SDK stores its
// attribution signals in. Implementations must survive process restarts and
// need only single-key atomicity.
type AttributionStore interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error
}

// SignalSource is a destructive reader for an out-of-band attribution signal
// channel, e.g. the shared clipboard written by the web flow. A successful
// read removes the signal so it can never be consumed twice.
type SignalSource interface {
	ReadAndClear(ctx context.Context) (*DeferredLinkPayload, error)
}

// takeValue reads a key and clears it in the same step. The value, when
// present, is returned exactly once.
func takeValue(ctx context.Context, store AttributionStore, key string) (string, bool, error) {
	value, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	if err := store.Remove(ctx, key); err != nil {
		return "", false, fmt.Errorf("clear %s: %w", key, err)
	}
	return value, true, nil
}

func decodeDeferredPayload(raw string) (*DeferredLinkPayload, error) {
	var payload DeferredLinkPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode deferred payload: %w", err)
	}
	if payload.ShortID == "" {
		return nil, fmt.Errorf("decode deferred payload: missing shortId")
	}
	return &payload, nil
}
