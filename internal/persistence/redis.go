package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// ErrRedisDisabled is returned by helpers when no Redis address is configured.
var ErrRedisDisabled = errors.New("redis client not configured")

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. An empty
// address disables Redis entirely.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; locks and checkpoints are process-local")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Enabled reports whether a client is configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker guards a single-flight job across processes.
type Locker interface {
	// TryLock returns a release func when the lock was acquired, or ok=false
	// when another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLocker builds a locker on top of client.
func NewRedisLocker(client *redis.Client, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// Release on a fresh context so a cancelled caller still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release lock failed", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}

// LocalLocker is the process-local Locker used when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLocalLocker builds an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]time.Time{}}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	l.held[key] = now.Add(ttl)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

// Checkpoint stores the restart point of a chunked job.
type Checkpoint interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, lastID string) error
	Clear(ctx context.Context) error
}

// RedisCheckpoint persists the checkpoint under a single key.
type RedisCheckpoint struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCheckpoint builds a checkpoint that expires after ttl of inactivity.
func NewRedisCheckpoint(client *redis.Client, key string, ttl time.Duration) *RedisCheckpoint {
	return &RedisCheckpoint{client: client, key: key, ttl: ttl}
}

func (c *RedisCheckpoint) Load(ctx context.Context) (string, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (c *RedisCheckpoint) Save(ctx context.Context, lastID string) error {
	return c.client.Set(ctx, c.key, lastID, c.ttl).Err()
}

func (c *RedisCheckpoint) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

// MemoryCheckpoint keeps the checkpoint in process memory.
type MemoryCheckpoint struct {
	mu     sync.Mutex
	lastID string
}

func (c *MemoryCheckpoint) Load(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID, nil
}

func (c *MemoryCheckpoint) Save(_ context.Context, lastID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = lastID
	return nil
}

func (c *MemoryCheckpoint) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = ""
	return nil
}

// NewLocker picks the Redis locker when configured.
func (r *Redis) NewLocker(logger *zap.Logger) Locker {
	if r.Enabled() {
		return NewRedisLocker(r.Client, logger)
	}
	return NewLocalLocker()
}

// NewCheckpoint picks the Redis checkpoint when configured.
func (r *Redis) NewCheckpoint(key string, ttl time.Duration) Checkpoint {
	if r.Enabled() {
		return NewRedisCheckpoint(r.Client, key, ttl)
	}
	return &MemoryCheckpoint{}
}
