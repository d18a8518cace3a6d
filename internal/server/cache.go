package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultAnswerTTL = time.Hour

// AnswerCache memoizes ask responses in Redis keyed by query+topic. A nil
// client disables caching; every operation degrades to a miss.
type AnswerCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAnswerCache(rdb *redis.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = defaultAnswerTTL
	}
	return &AnswerCache{rdb: rdb, ttl: ttl}
}

func (c *AnswerCache) Get(ctx context.Context, query, topic string) (AskResponse, bool) {
	if c == nil || c.rdb == nil {
		return AskResponse{}, false
	}
	raw, err := c.rdb.Get(ctx, answerKey(query, topic)).Bytes()
	if err != nil {
		return AskResponse{}, false
	}
	var resp AskResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return AskResponse{}, false
	}
	return resp, true
}

func (c *AnswerCache) Set(ctx context.Context, query, topic string, resp AskResponse) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	// Best effort: a failed write only costs a recomputation.
	_ = c.rdb.Set(ctx, answerKey(query, topic), raw, c.ttl).Err()
}

func answerKey(query, topic string) string {
	sum := sha256.Sum256([]byte(topic + "\x00" + query))
	return "hrdesk:answer:" + hex.EncodeToString(sum[:16])
}
