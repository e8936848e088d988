package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"refacto/internal/logging"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Client is nil while caching is disabled.
var Client *redis.Client

var (
	ErrGet      = errors.New("fail to retrive value from redis")
	ErrDisabled = errors.New("redis cache is disabled")
)

// Setup connects to redis when redis.enabled is set. redis.addr takes
// precedence over redis.hostname and redis.port.
func Setup(ctx context.Context) error {
	if !viper.GetBool("redis.enabled") {
		Client = nil
		logging.Component("redis").Info("cache disabled")
		return nil
	}

	addr := viper.GetString("redis.addr")
	if addr == "" {
		addr = fmt.Sprintf("%v:%v", viper.GetString("redis.hostname"), viper.GetInt("redis.port"))
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("fail to connect to redis at %s: %w", addr, err)
	}

	Client = client
	logging.Component("redis").WithField("addr", addr).Info("cache enabled")
	return nil
}

func Enabled() bool {
	return Client != nil
}

func Expiration() time.Duration {
	return viper.GetDuration("redis.expiration")
}

func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return SetString(ctx, key, string(data), expiration)
}

// Get returns ErrGet on a miss or any redis failure, and the JSON error
// when the cached value cannot be decoded into T.
func Get[T interface{}](ctx context.Context, key string) (*T, error) {
	str, err := GetString(ctx, key)
	if err != nil {
		return nil, ErrGet
	}

	var value T
	err = json.Unmarshal([]byte(str), &value)
	return &value, err
}

func SetString(ctx context.Context, key string, value string, expiration time.Duration) error {
	if Client == nil {
		return ErrDisabled
	}
	return Client.Set(ctx, key, value, expiration).Err()
}

func GetString(ctx context.Context, key string) (string, error) {
	if Client == nil {
		return "", ErrDisabled
	}
	return Client.Get(ctx, key).Result()
}

// Del removes keys; it is a no-op while caching is disabled.
func Del(ctx context.Context, keys ...string) error {
	if Client == nil {
		return nil
	}
	return Client.Del(ctx, keys...).Err()
}
