// Package config loads the formbuilder runtime configuration from YAML and
// fills defaults for everything the file leaves out.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath. An empty path reads
// DefaultConfigPath; a missing file at the default path yields Default().
func Load(configPath string) (*Config, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	cfg = normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Env: defaultEnv,
		Log: LogConfig{
			Level: defaultLogLevel,
		},
		Storage: StorageConfig{
			Driver:   defaultStorage,
			Dir:      defaultDataDir,
			DSN:      defaultSQLiteDSN,
			RedisURL: defaultRedisURL,
			Prefix:   defaultRedisPrefix,
		},
		Server: ServerConfig{
			Addr:         defaultAddr,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Preview: PreviewConfig{
			Accept:  []string{defaultAccept},
			MaxSize: defaultMaxFileSize,
		},
		Render: RenderConfig{
			Default: defaultRenderer,
			Locale:  defaultLocale,
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid env %q, expected %s or %s", c.Env, EnvDevelopment, EnvProduction)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q, expected console or json", c.Log.Format)
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageFile, StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("invalid storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == StorageFile && c.Storage.Dir == "" {
		return errors.New("storage.dir is required for the file driver")
	}
	if c.Storage.Timeout < 0 {
		return fmt.Errorf("invalid storage.timeout %s", c.Storage.Timeout)
	}
	if c.Preview.MaxSize < 0 {
		return fmt.Errorf("invalid preview.max_size %d, expected >= 0", c.Preview.MaxSize)
	}
	return nil
}

// Development reports whether the development environment is active.
func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}

func normalize(cfg Config) Config {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaultStorage
	}
	cfg.Storage.Dir = strings.TrimSpace(cfg.Storage.Dir)
	cfg.Storage.DSN = strings.TrimSpace(cfg.Storage.DSN)
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = defaultSQLiteDSN
	}
	cfg.Storage.RedisURL = strings.TrimSpace(cfg.Storage.RedisURL)
	if cfg.Storage.RedisURL == "" {
		cfg.Storage.RedisURL = defaultRedisURL
	}

	cfg.Server.Addr = strings.TrimSpace(cfg.Server.Addr)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	cfg.Server.AllowedOrigins = nonBlank(cfg.Server.AllowedOrigins)

	cfg.Preview.Accept = nonBlank(cfg.Preview.Accept)

	cfg.Render.Default = strings.ToLower(strings.TrimSpace(cfg.Render.Default))
	if cfg.Render.Default == "" {
		cfg.Render.Default = defaultRenderer
	}
	cfg.Render.Locale = strings.TrimSpace(cfg.Render.Locale)
	return cfg
}

func nonBlank(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
