package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/config"
)

// RedisStore keeps records as plain Redis strings and announces every write on
// a pub/sub channel so other instances can re-sync.
type RedisStore struct {
	Client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisStore connects to Redis using the provided configuration.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, namespace string, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &RedisStore{
		Client:  client,
		channel: namespace + "events",
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.Client.Set(ctx, key, value, 0).Err(); err != nil {
		return err
	}
	if err := r.Client.Publish(ctx, r.channel, changeMessage(r.origin, key)).Err(); err != nil {
		r.logger.Warn("publish record change failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Watch subscribes to the change channel and reports writes from other instances.
func (r *RedisStore) Watch(ctx context.Context, fn func(key string)) error {
	sub := r.Client.Subscribe(ctx, r.channel)
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if key, ok := foreignChange(msg.Payload, r.origin); ok {
				fn(key)
			}
		}
	}
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}
