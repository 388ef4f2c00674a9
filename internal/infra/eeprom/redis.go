package eeprom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	// Key holding the store image as a redis string.
	Key string
}

// Redis keeps the store image in one redis string, addressed with GETRANGE
// and SETRANGE. A missing key or a short value reads as zeros.
type Redis struct {
	client  *redis.Client
	key     string
	size    int64
	timeout time.Duration
}

func NewRedis(opts RedisOptions, size int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Redis{
		client:  client,
		key:     opts.Key,
		size:    int64(size),
		timeout: 5 * time.Second,
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

func (r *Redis) Size() int64 { return r.size }

func (r *Redis) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, len(p), r.size); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	val, err := r.client.GetRange(ctx, r.key, off, off+int64(len(p))-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("reading redis store: %w", err)
	}
	n := copy(p, val)
	clear(p[n:])
	return len(p), nil
}

func (r *Redis) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, len(p), r.size); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.SetRange(ctx, r.key, off, string(p)).Err(); err != nil {
		return 0, fmt.Errorf("writing redis store: %w", err)
	}
	return len(p), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
