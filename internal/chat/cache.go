package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"geminiproxy/internal/models"
	"geminiproxy/internal/redis"
)

const (
	historyKeyPrefix    = "chat:history:"
	generationKeyPrefix = "chat:generation:"
	defaultHistoryTTL   = 10 * time.Minute
)

// cacheBackend is the subset of the Redis client the history cache needs.
type cacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// historyCache keeps serialized session histories in Redis. Every insert bumps
// the session's generation, and histories are stored under the generation read
// before the database query, so a listing that raced an insert lands under a
// key no reader asks for again. A nil cache is a no-op.
type historyCache struct {
	backend cacheBackend
	ttl     time.Duration
}

func newHistoryCache(backend cacheBackend, ttl time.Duration) *historyCache {
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &historyCache{backend: backend, ttl: ttl}
}

func generationKey(sessionID string) string {
	return generationKeyPrefix + sessionID
}

func historyKey(sessionID string, generation int64) string {
	return historyKeyPrefix + sessionID + ":" + strconv.FormatInt(generation, 10)
}

// generation returns the session's current generation. A session that was
// never written to is at generation 0.
func (h *historyCache) generation(ctx context.Context, sessionID string) (int64, error) {
	data, err := h.backend.Get(ctx, generationKey(sessionID))
	if errors.Is(err, redis.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(data), 10, 64)
}

// load returns the cached history and the generation to store a fresh one
// under. ok is false on a miss; usable is false when the cache should be
// skipped entirely for this call.
func (h *historyCache) load(ctx context.Context, sessionID string, l *zap.Logger) (messages []*models.Message, gen int64, ok, usable bool) {
	if h == nil {
		return nil, 0, false, false
	}
	gen, err := h.generation(ctx, sessionID)
	if err != nil {
		l.Warn("load history generation failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, 0, false, false
	}
	data, err := h.backend.Get(ctx, historyKey(sessionID, gen))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			l.Warn("load history cache failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, gen, false, true
	}
	messages = make([]*models.Message, 0)
	if err := json.Unmarshal(data, &messages); err != nil {
		l.Warn("decode history cache failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, gen, false, true
	}
	return messages, gen, true, true
}

func (h *historyCache) store(ctx context.Context, sessionID string, gen int64, messages []*models.Message) error {
	if h == nil {
		return nil
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return h.backend.Set(ctx, historyKey(sessionID, gen), data, h.ttl)
}

// invalidate moves the session to a new generation, orphaning every history
// stored so far, and drops the history of the generation it replaced.
func (h *historyCache) invalidate(ctx context.Context, sessionID string) error {
	if h == nil {
		return nil
	}
	gen, err := h.backend.Incr(ctx, generationKey(sessionID))
	if err != nil {
		return err
	}
	return h.backend.Del(ctx, historyKey(sessionID, gen-1))
}
