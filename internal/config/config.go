package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath 配置文件路径环境变量
const EnvConfigPath = "LFG_CONFIG"

const DefaultConfigPath = "config.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Session  SessionConfig  `yaml:"session"`
	Limits   RateLimits     `yaml:"limits"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RateLimits 免费用户每日额度；会员始终不限量
type RateLimits struct {
	PostsPerDay            int `yaml:"posts_per_day"`
	CommentsPerDay         int `yaml:"comments_per_day"`
	LoginAttemptsPerMinute int `yaml:"login_attempts_per_minute"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled 未配置 broker 时不投递 kafka
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 && k.Topic != "" }

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (s SMTPConfig) Enabled() bool { return s.Host != "" }

type OutboxConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Interval  time.Duration `yaml:"interval"`
	MaxRetry  int           `yaml:"max_retry"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default 默认配置，开发环境可直接使用
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080", GinMode: "release"},
		Database: DatabaseConfig{DSN: "file:data/lfg.db"},
		Redis:    RedisConfig{Addr: "127.0.0.1:6379"},
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		Session: SessionConfig{TTL: 30 * time.Minute},
		Limits: RateLimits{
			PostsPerDay:            3,
			CommentsPerDay:         5,
			LoginAttemptsPerMinute: 5,
		},
		Outbox: OutboxConfig{BatchSize: 200, Interval: time.Second, MaxRetry: 5},
		Log:    LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 7, MaxAgeDays: 30},
	}
}

// ResolvePath 命令行参数优先，其次环境变量，最后默认路径
func ResolvePath(flagPath string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load 读取并校验配置文件
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse 未知字段直接报错，避免配置项拼写错误被静默忽略
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Database.DSN) == "":
		return fmt.Errorf("%w: database.dsn is required", ErrInvalidConfig)
	case c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "":
		return fmt.Errorf("%w: jwt secrets are required", ErrInvalidConfig)
	case c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.Session.TTL <= 0:
		return fmt.Errorf("%w: ttl values must be positive", ErrInvalidConfig)
	}
	return c.Limits.Validate()
}

func (l RateLimits) Validate() error {
	if l.PostsPerDay <= 0 || l.CommentsPerDay <= 0 {
		return fmt.Errorf("%w: limits.posts_per_day and limits.comments_per_day must be positive", ErrInvalidConfig)
	}
	if l.LoginAttemptsPerMinute <= 0 {
		return fmt.Errorf("%w: limits.login_attempts_per_minute must be positive", ErrInvalidConfig)
	}
	return nil
}
