package scores

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ProfileLocker serialises the read-modify-write of a single user's profile.
type ProfileLocker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// NoopLocker performs no locking. Concurrent recordings for one user may
// lose profile updates.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

type keyLock struct {
	slot chan struct{}
	refs int
}

// LocalLocker serialises updates per user within one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[userID]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		l.locks[userID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.slot
			l.release(userID, kl)
		})
	}, nil
}

func (l *LocalLocker) release(userID string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, userID)
	}
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serialises updates per user across server instances.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
	}
}

func profileLockKey(userID string) string {
	return fmt.Sprintf("lock:profile:%s", userID)
}

func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := profileLockKey(userID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release on a fresh context: the caller's may already be done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				log.Printf("[SCORES] Failed to release profile lock for %s: %v", userID, err)
			}
		})
	}, nil
}
