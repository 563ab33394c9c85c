package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
	GetValue(path string, defaultValue interface{}) interface{}
}

type ServiceConfig struct {
	Name        string             `yaml:"name" json:"name" validate:"required"`
	Version     string             `yaml:"version" json:"version" validate:"required"`
	Debug       bool               `yaml:"debug" json:"debug"`
	Server      *ServerConfig      `yaml:"server" json:"server"`
	Logger      *LoggerConfig      `yaml:"logger" json:"logger"`
	Middlewares *MiddlewaresConfig `yaml:"middlewares" json:"middlewares"`
	Cache       *CacheConfig       `yaml:"cache" json:"cache"`
	Metrics     *MetricsConfig     `yaml:"metrics" json:"metrics"`
}

type ServerConfig struct {
	HTTP *HTTPConfig `yaml:"http" json:"http"`
}

type HTTPConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     int    `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     int    `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level"`
	Config interface{} `yaml:"config" json:"config"`
}

type MiddlewaresConfig struct {
	Enabled     bool                  `yaml:"enabled" json:"enabled"`
	RequestID   *MiddlewareItemConfig `yaml:"request_id" json:"request_id"`
	AccessLog   *MiddlewareItemConfig `yaml:"access_log" json:"access_log"`
	CORS        *MiddlewareItemConfig `yaml:"cors" json:"cors"`
	Compression *MiddlewareItemConfig `yaml:"compression" json:"compression"`
	Auth        *MiddlewareItemConfig `yaml:"auth" json:"auth"`
	BodyLimit   *MiddlewareItemConfig `yaml:"body_limit" json:"body_limit"`
	Cache       *MiddlewareItemConfig `yaml:"cache" json:"cache"`
	Metrics     *MiddlewareItemConfig `yaml:"metrics" json:"metrics"`
}

type MiddlewareItemConfig struct {
	Enabled bool                   `yaml:"enabled" json:"enabled"`
	Weight  int                    `yaml:"weight" json:"weight" validate:"min=0"`
	Params  map[string]interface{} `yaml:"params" json:"params"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Type       string        `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Config     interface{}   `yaml:"config" json:"config"`
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
}

type MetricsConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Path    string            `yaml:"path" json:"path"`
	Port    int               `yaml:"port" json:"port"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
	Config  interface{}       `yaml:"config" json:"config"`
}
