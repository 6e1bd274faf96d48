package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided. A missing file
	// at the default path is not an error.
	DefaultConfigPath = "formbuilder.yml"

	defaultEnv          = EnvDevelopment
	defaultLogLevel     = "info"
	defaultStorage      = StorageFile
	defaultDataDir      = ".formbuilder"
	defaultSQLiteDSN    = "formbuilder.db"
	defaultRedisURL     = "redis://localhost:6379/0"
	defaultRedisPrefix  = "formbuilder:"
	defaultAddr         = ":8080"
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultRenderer     = "html"
	defaultLocale       = "en"
	defaultAccept       = "image/*"
	defaultMaxFileSize  = 1_000_000
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)
