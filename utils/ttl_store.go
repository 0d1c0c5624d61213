package utils

import (
	"context"
	"sync"
	"time"
)

// ttlStore keeps short-lived string markers in Redis when available and in a
// process-local map otherwise (single instance only).
type ttlStore struct {
	prefix string
	mu     sync.Mutex
	local  map[string]ttlEntry
}

type ttlEntry struct {
	value     string
	expiresAt time.Time
}

func newTTLStore(prefix string) *ttlStore {
	return &ttlStore{prefix: prefix, local: map[string]ttlEntry{}}
}

func (s *ttlStore) set(key, value string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
			Sugar.Warnf("redis set failed key=%s err=%v", s.prefix+key, err)
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.local[key] = ttlEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (s *ttlStore) get(key string, consume bool) (string, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var (
			v   string
			err error
		)
		if consume {
			v, err = rc.GetDel(ctx, s.prefix+key).Result()
		} else {
			v, err = rc.Get(ctx, s.prefix+key).Result()
		}
		if err != nil {
			return "", false
		}
		return v, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.local[key]
	if !ok {
		return "", false
	}
	if consume || time.Now().After(entry.expiresAt) {
		delete(s.local, key)
	}
	if time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (s *ttlStore) sweepLocked() {
	now := time.Now()
	for k, e := range s.local {
		if now.After(e.expiresAt) {
			delete(s.local, k)
		}
	}
}

var (
	revokedTokens = newTTLStore("jwt:blacklist:")
	oauthStates   = newTTLStore("oauth:state:")
)

// BlacklistToken revokes a token until its natural expiration.
func BlacklistToken(token string, expiresAt time.Time) {
	revokedTokens.set(token, "1", time.Until(expiresAt))
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	_, ok := revokedTokens.get(token, false)
	return ok
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	oauthStates.set(state, "1", ttl)
}

// ConsumeState validates and removes a state token.
func ConsumeState(state string) bool {
	_, ok := oauthStates.get(state, true)
	return ok
}
