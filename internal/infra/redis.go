package infra

import "github.com/redis/go-redis/v9"

// NewRedis returns a client for the GEO matching index.
func NewRedis(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}
