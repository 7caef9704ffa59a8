package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunGuard lets one runner at a time hold a named job.
type RunGuard interface {
	// TryAcquire returns a release func when the job was free, or ok=false.
	TryAcquire(ctx context.Context, name string) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunGuard uses SET NX with a TTL so a crashed holder frees the job.
type RedisRunGuard struct {
	client *redis.Client
	ttl    time.Duration
	owner  string
}

func NewRedisRunGuard(client *redis.Client, ttl time.Duration, owner string) *RedisRunGuard {
	return &RedisRunGuard{client: client, ttl: ttl, owner: owner}
}

func (g *RedisRunGuard) TryAcquire(ctx context.Context, name string) (func(), bool, error) {
	key := "commission:job:" + name
	ok, err := g.client.SetNX(ctx, key, g.owner, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, g.client, []string{key}, g.owner)
	}, true, nil
}

// LocalRunGuard serializes jobs inside one process when Redis is not configured.
type LocalRunGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewLocalRunGuard() *LocalRunGuard {
	return &LocalRunGuard{running: make(map[string]struct{})}
}

func (g *LocalRunGuard) TryAcquire(_ context.Context, name string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[name]; busy {
		return nil, false, nil
	}
	g.running[name] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.running, name)
		g.mu.Unlock()
	}, true, nil
}
