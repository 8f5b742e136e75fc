package config

import "time"

type HttpConfig struct {
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

func NewHttpConfig() *HttpConfig {
	return &HttpConfig{
		Port:           getIntEnv("HTTP_PORT", 8082),
		AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
	}
}
