package config

import "time"

const (
	CatalogSourceBuiltin = "builtin"
	CatalogSourceFile    = "file"
	CatalogSourceSQL     = "sql"
)

type CatalogConfig struct {
	Source         string
	File           string
	ReloadInterval time.Duration
}

func NewCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		Source:         getEnv("CATALOG_SOURCE", CatalogSourceBuiltin),
		File:           getEnv("CATALOG_FILE", "problems.json"),
		ReloadInterval: getSecondsEnv("CATALOG_RELOAD_INTERVAL_SEC", 30*time.Second),
	}
}
