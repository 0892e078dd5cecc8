package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist remembers revoked tokens until they would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryBlacklist keeps revocations in process memory; they are lost on
// restart.
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{revoked: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(ctx context.Context, token string, until time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweep()
	b.revoked[tokenKey(token)] = until
	return nil
}

func (b *MemoryBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.revoked[tokenKey(token)]
	if !ok {
		return false, nil
	}
	if b.now().After(until) {
		delete(b.revoked, tokenKey(token))
		return false, nil
	}
	return true, nil
}

// sweep drops expired entries. Callers hold b.mu.
func (b *MemoryBlacklist) sweep() {
	now := b.now()
	for k, until := range b.revoked {
		if now.After(until) {
			delete(b.revoked, k)
		}
	}
}

// RedisBlacklist stores revocations as keys that expire with the token.
type RedisBlacklist struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisBlacklist(rdb *redis.Client, prefix string) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb, prefix: prefix}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, b.prefix+tokenKey(token), "1", ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.rdb.Get(ctx, b.prefix+tokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
