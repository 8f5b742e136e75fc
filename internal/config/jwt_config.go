package config

import "time"

type JwtConfig struct {
	Secret     string
	DefaultTTL time.Duration
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret:     getEnv("JWT_SECRET", ""),
		DefaultTTL: time.Hour,
	}
}

// Enabled reports whether the run endpoints require a bearer token
func (c *JwtConfig) Enabled() bool {
	return c.Secret != ""
}
