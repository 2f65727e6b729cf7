package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const slotKeyPrefix = "lock:slot:"

// RedisLocker — блокировка слота ключом в Redis, общая для всех реплик.
// Значение ключа — токен владельца, TTL ограничивает время удержания.
type RedisLocker struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	key := slotKey(slotID)
	owner := uuid.NewString()

	err := l.rdb.SetArgs(ctx, key, owner, redis.SetArgs{Mode: "NX", TTL: l.ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrLockNotAcquired
	case err != nil:
		return fmt.Errorf("acquire slot lock %s: %w", slotID, err)
	}
	// отпускаем на отдельном контексте: отменённый запрос тоже освобождает ключ
	defer l.unlock(context.WithoutCancel(ctx), key, owner)

	held, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(held)
}

// unlock удаляет ключ, только если он всё ещё наш: после истечения TTL его
// мог занять другой владелец.
func (l *RedisLocker) unlock(ctx context.Context, key, owner string) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	_ = l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err != nil || current != owner {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

func slotKey(slotID uuid.UUID) string {
	return slotKeyPrefix + slotID.String()
}
