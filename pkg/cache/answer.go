package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"datachat-be/pkg/store"
)

// AnswerEntry is a cached synthesized answer plus its attributions
type AnswerEntry struct {
	Response   string              `json:"response"`
	Sources    []store.Attribution `json:"sources"`
	Confidence float64             `json:"confidence"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AnswerCache stores synthesized answers keyed by query plus the ordered
// signature of the section results that produced them. Best-effort: a
// failing cache only costs a synthesis call, never correctness.
type AnswerCache interface {
	Get(ctx context.Context, query, signature string) (*AnswerEntry, bool)
	Set(ctx context.Context, query, signature string, entry *AnswerEntry)
}

// Signature derives the ordered result signature used in answer keys
func Signature(results []store.SectionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s|%s|%d|%v", r.Backend, r.Operation, r.RecordCount, r.Success))
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(strings.Join(parts, ";"))))
}

func answerKey(query, signature string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return fmt.Sprintf("answer:%x:%s", md5.Sum([]byte(normalized)), signature)
}

// MemoryAnswerCache is the default in-process answer cache
type MemoryAnswerCache struct {
	cache *gocache.Cache
}

func NewMemoryAnswerCache(ttl time.Duration) *MemoryAnswerCache {
	return &MemoryAnswerCache{
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func (c *MemoryAnswerCache) Get(ctx context.Context, query, signature string) (*AnswerEntry, bool) {
	if x, found := c.cache.Get(answerKey(query, signature)); found {
		return x.(*AnswerEntry), true
	}
	return nil, false
}

func (c *MemoryAnswerCache) Set(ctx context.Context, query, signature string, entry *AnswerEntry) {
	c.cache.Set(answerKey(query, signature), entry, gocache.DefaultExpiration)
}

// RedisAnswerCache shares answers across instances. All Redis errors are
// logged and degraded to cache misses.
type RedisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewRedisAnswerCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *RedisAnswerCache {
	return &RedisAnswerCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisAnswerCache) Get(ctx context.Context, query, signature string) (*AnswerEntry, bool) {
	data, err := c.client.Get(ctx, answerKey(query, signature)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("[CACHE] Redis get failed: %v", err)
		}
		return nil, false
	}

	var entry AnswerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Printf("[CACHE] Corrupt answer entry dropped: %v", err)
		return nil, false
	}
	return &entry, true
}

func (c *RedisAnswerCache) Set(ctx context.Context, query, signature string, entry *AnswerEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Printf("[CACHE] Answer entry marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, answerKey(query, signature), data, c.ttl).Err(); err != nil {
		c.logger.Printf("[CACHE] Redis set failed: %v", err)
	}
}
