package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "refdata:domain:"

// CachedStore is a read-through cache over another Store. Whole domains are
// cached as one JSON blob under refdata:domain:<DOMAIN>; code sets are tiny
// and change rarely, so per-code keys would buy nothing.
//
// Cache failures degrade to the backing store: a broken Redis slows lookups
// down, it never breaks them.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{next: next, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) CodesForDomain(ctx context.Context, domain string) ([]Code, error) {
	key := cacheKeyPrefix + domain

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var codes []Code
		if err := json.Unmarshal(raw, &codes); err == nil {
			return codes, nil
		}
		// Corrupt entry: drop it and fall through to the backing store.
		s.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "refdata cache read failed", "domain", domain, "error", err)
	}

	codes, err := s.next.CodesForDomain(ctx, domain)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(codes); err == nil {
		if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "refdata cache write failed", "domain", domain, "error", err)
		}
	}
	return codes, nil
}

func (s *CachedStore) FindCode(ctx context.Context, domain, code string) (*Code, error) {
	codes, err := s.CodesForDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	for i := range codes {
		if codes[i].Code == code {
			return &codes[i], nil
		}
	}
	return s.next.FindCode(ctx, domain, code)
}
