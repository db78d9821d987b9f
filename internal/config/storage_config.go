package config

import "time"

type StorageConfig interface {
	GetRedisURL() string
	GetTokenTTL() time.Duration
}

type Storage struct {
	RedisURL string        `env:"REDIS_URL"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
}

var _ StorageConfig = Storage{}

// GetRedisURL returns the Redis URL for token storage, "" keeps tokens in memory
func (s Storage) GetRedisURL() string {
	return s.RedisURL
}

func (s Storage) GetTokenTTL() time.Duration {
	return s.TokenTTL
}
