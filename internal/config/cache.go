package config

import "time"

type CacheConfig struct {
	TTL  time.Duration
	Size int
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		TTL:  getSecondsEnv("CACHE_TTL_SEC", 10*time.Minute),
		Size: getIntEnv("CACHE_SIZE", 256),
	}
}
