package config

type AppConfig struct {
	DebugMode     bool
	HttpConfig    *HttpConfig
	LogConfig     *LogConfig
	JudgeConfig   *JudgeConfig
	CatalogConfig *CatalogConfig
	DBConfig      *DBConfig
	RedisConfig   *RedisConfig
	CacheConfig   *CacheConfig
	JwtConfig     *JwtConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:     getBoolEnv("DEBUG_MODE", false),
		HttpConfig:    NewHttpConfig(),
		LogConfig:     NewLogConfig(),
		JudgeConfig:   NewJudgeConfig(),
		CatalogConfig: NewCatalogConfig(),
		DBConfig:      NewDBConfig(),
		RedisConfig:   NewRedisConfig(),
		CacheConfig:   NewCacheConfig(),
		JwtConfig:     NewJwtConfig(),
	}
}
