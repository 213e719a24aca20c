package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Env     string `yaml:"env" validate:"omitempty,oneof=development production test"`
	LogMode string `yaml:"logMode" validate:"omitempty,oneof=development production"`
}

type ServerConfig struct {
	Port         string `yaml:"port" validate:"omitempty,numeric"`
	ReadTimeout  string `yaml:"readTimeout"`
	WriteTimeout string `yaml:"writeTimeout"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	TTL      string `yaml:"ttl"`
}

type QuizConfig struct {
	SheetTTL               string `yaml:"sheetTTL"`
	DefaultTimeLimit       int    `yaml:"defaultTimeLimit" validate:"gte=0"`
	DefaultMaxParticipants int    `yaml:"defaultMaxParticipants" validate:"gte=0"`
	DefaultPoints          int    `yaml:"defaultPoints" validate:"gte=0"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" validate:"required,min=16"`
	TokenTTL  string `yaml:"tokenTTL"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type ShareConfig struct {
	// JoinURL is the link encoded in join QR codes; {code} is replaced by the quiz code.
	JoinURL string `yaml:"joinURL" validate:"omitempty,contains={code}"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName" validate:"required_if=Enabled true"`
}

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Quiz     QuizConfig     `yaml:"quiz"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	Share    ShareConfig    `yaml:"share"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// Development reports whether raw errors may be exposed to clients.
func (c Config) Development() bool {
	return c.App.Env == "development"
}

// Load reads YAML config from path and validates it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML.
func Parse(data []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
