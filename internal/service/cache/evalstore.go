// Package cache keeps engine analyses in redis so repeated reviews of the
// same positions skip the engine.
package cache

import (
    "context"
    "encoding/json"
    "fmt"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/park285/cheese-review/internal/chess/eval"
)

const (
    DefaultTTL = 7 * 24 * time.Hour
    keyPrefix  = "eval:"
)

// EvalStore implements eval.Store on redis.
type EvalStore struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewEvalStore(rdb *redis.Client, ttl time.Duration) *EvalStore {
    if ttl <= 0 { ttl = DefaultTTL }
    return &EvalStore{rdb: rdb, ttl: ttl}
}

// Dial connects to redisURL and checks the connection.
func Dial(ctx context.Context, redisURL string, ttl time.Duration) (*EvalStore, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for evaluation cache")
    }
    opts, err := ParseRedisURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return NewEvalStore(rdb, ttl), nil
}

func (s *EvalStore) key(k string) string { return keyPrefix + k }

func (s *EvalStore) Load(ctx context.Context, key string) (eval.Analysis, bool, error) {
    raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
    if err == redis.Nil { return eval.Analysis{}, false, nil }
    if err != nil { return eval.Analysis{}, false, err }
    var a eval.Analysis
    if err := json.Unmarshal(raw, &a); err != nil {
        return eval.Analysis{}, false, fmt.Errorf("decode cached analysis: %w", err)
    }
    return a, true, nil
}

func (s *EvalStore) Save(ctx context.Context, key string, a eval.Analysis) error {
    raw, err := json.Marshal(a)
    if err != nil { return err }
    return s.rdb.Set(ctx, s.key(key), raw, s.ttl).Err()
}

func (s *EvalStore) Close() error {
    if s == nil || s.rdb == nil { return nil }
    return s.rdb.Close()
}

// ParseRedisURL reads redis://[:password@]host:port[/db].
func ParseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(strings.TrimSpace(raw))
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" {
        n, err := strconv.Atoi(p)
        if err != nil { return nil, fmt.Errorf("redis db %q: %w", p, err) }
        db = n
    }
    pass, _ := u.User.Password()
    return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
