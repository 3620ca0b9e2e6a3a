// Package redisstore backs the SDK attribution contracts with Redis. The
// web/referral flow writes signals into the same key namespace, which is
// scoped per device installation.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deferlink/deferlink-go/deeplink"
)

const keyPrefix = "deferlink"

// storeTTL is a storage-level backstop so abandoned signals do not pile up.
// The SDK enforces the actual signal validity windows itself.
const storeTTL = 48 * time.Hour

// Store is a deeplink.AttributionStore backed by Redis.
type Store struct {
	rdb      *redis.Client
	deviceID string
}

// NewStore scopes an attribution store to one device installation.
func NewStore(rdb *redis.Client, deviceID string) *Store {
	return &Store{rdb: rdb, deviceID: deviceID}
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, s.deviceID, name)
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.key(key), value, storeTTL).Err(); err != nil {
		return fmt.Errorf("redisstore: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: remove %s: %w", key, err)
	}
	return nil
}

// ClipboardSource is a deeplink.SignalSource over the shared clipboard
// channel key. Reads are destructive (GETDEL) and scoped to the SDK's own
// key, so unrelated data is never touched.
type ClipboardSource struct {
	rdb      *redis.Client
	deviceID string
}

// NewClipboardSource scopes a clipboard signal source to one device.
func NewClipboardSource(rdb *redis.Client, deviceID string) *ClipboardSource {
	return &ClipboardSource{rdb: rdb, deviceID: deviceID}
}

func (s *ClipboardSource) key() string {
	return fmt.Sprintf("%s:%s:clipboard", keyPrefix, s.deviceID)
}

func (s *ClipboardSource) ReadAndClear(ctx context.Context) (*deeplink.DeferredLinkPayload, error) {
	raw, err := s.rdb.GetDel(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: read clipboard: %w", err)
	}

	var payload deeplink.DeferredLinkPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("redisstore: decode clipboard payload: %w", err)
	}
	return &payload, nil
}
