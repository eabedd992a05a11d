package config

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewClient dials Redis from the URL and timeouts and pings it once.
func (r RedisConfig) NewClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = r.ReadTimeout
	opts.WriteTimeout = r.WriteTimeout
	opts.DialTimeout = r.DialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
