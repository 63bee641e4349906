package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Locker hands out per-(provider, external_txid) leases backed by a single
// Redis key. The key holds a random owner token so only the goroutine that
// acquired the lease may release or extend it; the TTL makes crashed holders
// self-heal without operator action.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

const keyPrefix = "payment_lock:"

func LockKey(provider, externalTxID string) string {
	return keyPrefix + provider + ":" + externalTxID
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end`)

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock or reports why it could not. ErrLockHeld means a
// concurrent delivery of the same event owns it; ErrLockUnavailable means
// Redis itself failed and the caller must not proceed.
func (l *Locker) Acquire(ctx context.Context, provider, externalTxID string) (domain.PaymentLease, error) {
	key := LockKey(provider, externalTxID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLockUnavailable, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	return &lease{client: l.client, key: key, token: token}, nil
}

type lease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *lease) Token() string {
	return l.token
}

func (l *lease) Refresh(ctx context.Context, ttl time.Duration) error {
	res, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLockUnavailable, err)
	}
	if res == 0 {
		return domain.ErrLockNotOwned
	}
	return nil
}

func (l *lease) Release(ctx context.Context) error {
	res, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLockUnavailable, err)
	}
	if res == 0 {
		// Expired or taken over; nothing left to release.
		return nil
	}
	return nil
}
