package config

import (
	"os"
	"strconv"
)

// Sections shared by the tasktracker server and worker. Every field can be
// overridden from the environment after the YAML file is read.

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// SlowQueryMS is the threshold above which a statement is logged as slow.
	SlowQueryMS int `yaml:"slow_query_ms"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

func OverrideDBFromEnv(cfg *DBConfig) {
	setString(&cfg.Host, "DB_HOST")
	setInt(&cfg.Port, "DB_PORT")
	setString(&cfg.User, "DB_USER")
	setString(&cfg.Password, "DB_PASSWORD")
	setString(&cfg.Name, "DB_NAME")
	setString(&cfg.SSLMode, "DB_SSLMODE")
	setInt(&cfg.SlowQueryMS, "DB_SLOW_QUERY_MS")
}

func OverrideMQFromEnv(cfg *MQConfig) {
	setString(&cfg.URL, "MQ_URL")
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	setString(&cfg.Addr, "REDIS_ADDR")
	setString(&cfg.Password, "REDIS_PASSWORD")
	setInt(&cfg.DB, "REDIS_DB")
}

func OverrideJWTFromEnv(cfg *JWTConfig) {
	setString(&cfg.Secret, "JWT_SECRET")
	setInt(&cfg.TTLHours, "JWT_TTL_HOURS")
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	setString(&cfg.Port, "SERVER_PORT")
}

// GetEnv returns the value of key, or fallback when it is unset or empty.
// The binaries use it to locate their config file via CONFIG_PATH.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
