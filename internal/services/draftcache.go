package services

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "os"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/utils"
)

// DraftCache memoizes provider output keyed by the exact input that
// produced it. Identical prompts are common (users retry, demos repeat),
// and provider calls are the slowest and most expensive step.
type DraftCache interface {
  Get(ctx context.Context, key string) (string, bool)
  Set(ctx context.Context, key string, value string)
}

type redisDraftCache struct {
  client *redis.Client
  ttl    time.Duration
  log    *logger.Logger
}

// NewDraftCache connects to Redis when REDIS_ADDR is set. Without it the
// platform runs uncached, which is fine for development.
func NewDraftCache(baseLog *logger.Logger) (DraftCache, error) {
  log := baseLog.With("service", "DraftCache")

  addr := os.Getenv("REDIS_ADDR")
  if addr == "" {
    return nil, nil
  }

  client := redis.NewClient(&redis.Options{
    Addr:        addr,
    Password:    os.Getenv("REDIS_PASSWORD"),
    DB:          utils.GetEnvAsInt("REDIS_DB", 0, log),
    DialTimeout: 5 * time.Second,
  })

  pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := client.Ping(pingCtx).Err(); err != nil {
    return nil, err
  }

  ttlMinutes := utils.GetEnvAsInt("DRAFT_CACHE_TTL_MINUTES", 1440, log)

  log.Info("Draft cache connected", "addr", addr, "ttl_minutes", ttlMinutes)
  return &redisDraftCache{
    client: client,
    ttl:    time.Duration(ttlMinutes) * time.Minute,
    log:    log,
  }, nil
}

func (c *redisDraftCache) Get(ctx context.Context, key string) (string, bool) {
  value, err := c.client.Get(ctx, key).Result()
  if err == redis.Nil {
    return "", false
  }
  if err != nil {
    c.log.Warn("Draft cache read failed", "error", err.Error())
    return "", false
  }
  return value, true
}

func (c *redisDraftCache) Set(ctx context.Context, key string, value string) {
  if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
    c.log.Warn("Draft cache write failed", "error", err.Error())
  }
}

// draftCacheKey builds a stable cache key from the call kind and the
// full input text. Hashing keeps prompts out of Redis key space.
func draftCacheKey(kind string, text string) string {
  sum := sha256.Sum256([]byte(kind + "\x00" + text))
  return "autonoma:draft:" + kind + ":" + hex.EncodeToString(sum[:])
}
