package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"tasktracker/pkg/config"
	"tasktracker/pkg/otel"
)

const DefaultPath = "config.yaml"

type AppConfig struct {
	// Timezone decides what "today" means for due dates and how
	// timestamps are rendered in exports.
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	Redis  config.RedisConfig  `yaml:"redis"`
	MQ     config.MQConfig     `yaml:"mq"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	App    AppConfig           `yaml:"app"`
	Otel   otel.Config         `yaml:"otel"`
	Log    LogConfig           `yaml:"log"`
}

// Load reads the YAML file at path, applies environment overrides and
// fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	// Environment overrides.
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		cfg.App.Timezone = tz
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		cfg.Otel.Endpoint = endpoint
	}

	cfg.applyDefaults()

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = 24
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "tasktracker"
	}
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TTLHours) * time.Hour
}
