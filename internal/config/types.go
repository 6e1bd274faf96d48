package config

import "time"

// Config holds runtime configuration loaded from YAML.
type Config struct {
	Env     string        `yaml:"env"` // "development" | "production"
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Preview PreviewConfig `yaml:"preview"`
	Render  RenderConfig  `yaml:"render"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" | "json"; empty follows env
}

type StorageConfig struct {
	Driver   string        `yaml:"driver"`
	Dir      string        `yaml:"dir"`
	DSN      string        `yaml:"dsn"`
	RedisURL string        `yaml:"redis_url"`
	Prefix   string        `yaml:"prefix"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type PreviewConfig struct {
	Accept  []string `yaml:"accept"`
	MaxSize int      `yaml:"max_size"`
}

type RenderConfig struct {
	Default string `yaml:"default"`
	Locale  string `yaml:"locale"`
}
